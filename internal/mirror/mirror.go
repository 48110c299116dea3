// Package mirror implements the filesystem-backed cache of a project:
// one directory per scriptId under the configured repos root, with
// xattr-cached remote metadata for fast-path reads and a crash-safe
// ledger so a write that dies mid-flight still leaves a discoverable
// file rather than an orphan.
package mirror

import (
	"os"
	"path/filepath"
	"time"

	"github.com/gas-mcp/gas-mcp-server/internal/errors"
	"github.com/gas-mcp/gas-mcp-server/internal/pathresolver"
)

// Entry is the on-disk state of one mirrored file.
type Entry struct {
	RelPath    string
	Content    []byte
	ModTime    time.Time
	UpdateTime string                  // gas.updateTime, RFC-3339
	FileType   pathresolver.FileType
}

// Mirror is the local cache for a single project's scriptId.
type Mirror struct {
	reposRoot string
	scriptID  string
	ledger    *Ledger
}

// New opens (without creating) the mirror for scriptID under reposRoot.
func New(reposRoot, scriptID string) (*Mirror, error) {
	dir := projectDir(reposRoot, scriptID)
	ledger, err := OpenLedger(dir)
	if err != nil {
		return nil, err
	}
	return &Mirror{reposRoot: reposRoot, scriptID: scriptID, ledger: ledger}, nil
}

func projectDir(reposRoot, scriptID string) string {
	return filepath.Join(reposRoot, "project-"+scriptID)
}

// Dir returns the project's root directory on disk.
func (m *Mirror) Dir() string {
	return projectDir(m.reposRoot, m.scriptID)
}

// AbsPath resolves a validated relative path under the project directory.
func (m *Mirror) AbsPath(relPath string) (string, error) {
	if err := pathresolver.Validate(relPath); err != nil {
		return "", err
	}
	return filepath.Join(m.Dir(), filepath.FromSlash(relPath)), nil
}

// Write stores content at relPath, recording it in the ledger before any
// metadata stamp so a crash between write and stamp still leaves the file
// discoverable by rsync and ls (spec's mtime-before-metadata hazard).
func (m *Mirror) Write(relPath string, content []byte, updateTime string, fileType pathresolver.FileType) error {
	absPath, err := m.AbsPath(relPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return errors.New(errors.CodeInternal, "creating mirror directory", err).
			WithContext("path", relPath)
	}

	if err := m.ledger.Track(relPath); err != nil {
		return err
	}

	if err := atomicWriteFile(absPath, content); err != nil {
		return errors.New(errors.CodeInternal, "writing mirror file", err).
			WithContext("path", relPath)
	}

	if updateTime != "" {
		if err := setMetadata(absPath, updateTime, fileType); err != nil {
			// Non-fatal: xattr unavailable (tmpfs, non-POSIX) degrades to
			// slow-path reads, it does not fail the write.
			_ = err
		}
	}

	return nil
}

// Read loads a file's bytes from disk. The caller is responsible for
// deciding fast-path validity via IsFastPathValid before calling Read.
func (m *Mirror) Read(relPath string) ([]byte, error) {
	absPath, err := m.AbsPath(relPath)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeNotFound, "mirrored file not found", err).
				WithContext("path", relPath)
		}
		return nil, errors.New(errors.CodeInternal, "reading mirror file", err).
			WithContext("path", relPath)
	}
	return content, nil
}

// Delete removes a mirrored file and its ledger entry.
func (m *Mirror) Delete(relPath string) error {
	absPath, err := m.AbsPath(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
		return errors.New(errors.CodeInternal, "deleting mirror file", err).
			WithContext("path", relPath)
	}
	_ = removeMetadata(absPath)
	return m.ledger.Untrack(relPath)
}

// IsFastPathValid reports whether the cached metadata is fresh enough to
// skip a remote refetch: local mtime must be at or after the cached
// gas.updateTime, and a fileType must be cached at all.
func (m *Mirror) IsFastPathValid(relPath, remoteUpdateTime string) (bool, error) {
	absPath, err := m.AbsPath(relPath)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return false, nil
	}

	cachedUpdateTime, cachedType, ok := getMetadata(absPath)
	if !ok || cachedUpdateTime == "" || cachedType == "" {
		return false, nil
	}
	if remoteUpdateTime != "" && cachedUpdateTime != remoteUpdateTime {
		return false, nil
	}

	cachedTime, err := time.Parse(time.RFC3339, cachedUpdateTime)
	if err != nil {
		return false, nil
	}
	return !info.ModTime().Before(cachedTime), nil
}

// TrackedPaths returns every relative path the ledger knows about,
// including ones whose xattr/mtime stamp never completed.
func (m *Mirror) TrackedPaths() []string {
	return m.ledger.Paths()
}

func atomicWriteFile(absPath string, content []byte) error {
	dir := filepath.Dir(absPath)
	tmp, err := os.CreateTemp(dir, ".mcp-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, absPath)
}
