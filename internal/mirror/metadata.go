package mirror

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/xattr"

	"github.com/gas-mcp/gas-mcp-server/internal/pathresolver"
)

const (
	xattrUpdateTime = "user.gas.updateTime"
	xattrFileType   = "user.gas.fileType"
)

// sidecarMetadata is the JSON fallback used when the filesystem doesn't
// support extended attributes (tmpfs, some network mounts, non-POSIX).
type sidecarMetadata struct {
	UpdateTime string `json:"updateTime"`
	FileType   string `json:"fileType"`
}

func sidecarPath(absPath string) string {
	return absPath + ".gas-meta.json"
}

// setMetadata stamps gas.updateTime and gas.fileType on absPath, trying
// xattr first and falling back to a JSON sidecar file if either xattr
// write fails.
func setMetadata(absPath, updateTime string, fileType pathresolver.FileType) error {
	errUpdate := xattr.Set(absPath, xattrUpdateTime, []byte(updateTime))
	errType := xattr.Set(absPath, xattrFileType, []byte(fileType))
	if errUpdate == nil && errType == nil {
		return nil
	}
	return writeSidecar(absPath, updateTime, fileType)
}

func getMetadata(absPath string) (updateTime string, fileType pathresolver.FileType, ok bool) {
	updateBytes, errUpdate := xattr.Get(absPath, xattrUpdateTime)
	typeBytes, errType := xattr.Get(absPath, xattrFileType)
	if errUpdate == nil && errType == nil {
		return string(updateBytes), pathresolver.FileType(typeBytes), true
	}
	return readSidecar(absPath)
}

func removeMetadata(absPath string) error {
	_ = xattr.Remove(absPath, xattrUpdateTime)
	_ = xattr.Remove(absPath, xattrFileType)
	err := os.Remove(sidecarPath(absPath))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func writeSidecar(absPath, updateTime string, fileType pathresolver.FileType) error {
	data, err := json.Marshal(sidecarMetadata{UpdateTime: updateTime, FileType: string(fileType)})
	if err != nil {
		return err
	}
	return os.WriteFile(sidecarPath(absPath), data, 0o644)
}

func readSidecar(absPath string) (string, pathresolver.FileType, bool) {
	data, err := os.ReadFile(sidecarPath(absPath))
	if err != nil {
		return "", "", false
	}
	var meta sidecarMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return "", "", false
	}
	if strings.TrimSpace(meta.UpdateTime) == "" {
		return "", "", false
	}
	return meta.UpdateTime, pathresolver.FileType(meta.FileType), true
}
