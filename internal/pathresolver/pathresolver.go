// Package pathresolver translates between GAS logical file names and the
// local filesystem paths the mirror, git host, and rsync engine operate
// on. Every function here is pure: no I/O, no shared state.
package pathresolver

import (
	"strings"
	"unicode"

	"github.com/gas-mcp/gas-mcp-server/internal/errors"
)

// FileType mirrors the three content kinds the Apps Script API recognizes.
type FileType string

const (
	TypeServerJS FileType = "SERVER_JS"
	TypeHTML     FileType = "HTML"
	TypeJSON     FileType = "JSON"
)

const maxNameLength = 255

// manifestName is the one GAS file with a fixed logical name and JSON type.
const manifestName = "appsscript"

// readmeName is the one GAS file round-tripped as Markdown locally.
const readmeName = "README"

// GasToLocal maps a GAS logical name plus its type to a relative local path.
func GasToLocal(name string, fileType FileType) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	switch fileType {
	case TypeJSON:
		if name == manifestName {
			return manifestName + ".json", nil
		}
		return name + ".json", nil
	case TypeHTML:
		if name == readmeName {
			return "README.md", nil
		}
		return name + ".html", nil
	case TypeServerJS:
		if IsDotfile(name) {
			return name, nil
		}
		return name + ".js", nil
	default:
		return "", errors.New(errors.CodeValidation, "unknown GAS file type", nil).
			WithContext("fileType", string(fileType))
	}
}

// LocalToGas maps a relative local path back to its GAS logical name and type.
func LocalToGas(relPath string) (string, FileType, error) {
	if err := Validate(relPath); err != nil {
		return "", "", err
	}

	base := relPath
	if base == "README.md" {
		return readmeName, TypeHTML, nil
	}

	switch {
	case strings.HasSuffix(base, ".json"):
		name := strings.TrimSuffix(base, ".json")
		return name, TypeJSON, nil
	case strings.HasSuffix(base, ".html"):
		name := strings.TrimSuffix(base, ".html")
		return name, TypeHTML, nil
	case strings.HasSuffix(base, ".js"):
		name := strings.TrimSuffix(base, ".js")
		return name, TypeServerJS, nil
	default:
		// Dotfiles and other virtual files round-trip with no suffix change.
		return base, TypeServerJS, nil
	}
}

// InferType determines a file's GAS type from its name and, when ambiguous,
// its content. Known-name overrides take priority over content sniffing.
func InferType(localName string, content []byte) FileType {
	switch {
	case localName == manifestName+".json":
		return TypeJSON
	case localName == "README.md":
		return TypeHTML
	case strings.HasSuffix(localName, ".json"):
		return TypeJSON
	case strings.HasSuffix(localName, ".html"):
		return TypeHTML
	case strings.HasSuffix(localName, ".js"):
		return TypeServerJS
	}

	trimmed := strings.TrimSpace(string(content))
	switch {
	case strings.HasPrefix(trimmed, "<?") || strings.HasPrefix(strings.ToLower(trimmed), "<!doctype"):
		return TypeHTML
	case looksLikeJSON(trimmed):
		return TypeJSON
	default:
		return TypeServerJS
	}
}

func looksLikeJSON(trimmed string) bool {
	if trimmed == "" {
		return false
	}
	first := trimmed[0]
	last := trimmed[len(trimmed)-1]
	return (first == '{' && last == '}') || (first == '[' && last == ']')
}

// Validate rejects local paths that cannot round-trip safely: traversal,
// absolute paths, embedded NULs, excess length, or illegal characters.
func Validate(relPath string) error {
	if relPath == "" {
		return errors.New(errors.CodeValidation, "empty path", nil)
	}
	if len(relPath) > maxNameLength {
		return errors.New(errors.CodeValidation, "path exceeds maximum length", nil).
			WithContext("path", relPath)
	}
	if strings.ContainsRune(relPath, 0) {
		return errors.New(errors.CodeValidation, "path contains a NUL byte", nil)
	}
	if strings.HasPrefix(relPath, "/") {
		return errors.New(errors.CodeValidation, "path must be relative", nil).
			WithContext("path", relPath)
	}
	for _, segment := range strings.Split(relPath, "/") {
		if segment == ".." {
			return errors.New(errors.CodeValidation, "path traversal is not allowed", nil).
				WithContext("path", relPath)
		}
	}
	for _, r := range relPath {
		if unicode.IsControl(r) {
			return errors.New(errors.CodeValidation, "path contains a control character", nil).
				WithContext("path", relPath)
		}
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return errors.New(errors.CodeValidation, "empty GAS file name", nil)
	}
	if len(name) > maxNameLength {
		return errors.New(errors.CodeValidation, "GAS file name exceeds maximum length", nil).
			WithContext("name", name)
	}
	if strings.ContainsRune(name, 0) {
		return errors.New(errors.CodeValidation, "GAS file name contains a NUL byte", nil)
	}
	return nil
}

// SplitLogical splits a GAS logical name into its directory prefix and base
// name: "Server/Utils/Format" -> ("Server/Utils", "Format").
func SplitLogical(name string) (dir, base string) {
	idx := strings.LastIndex(name, "/")
	if idx < 0 {
		return "", name
	}
	return name[:idx], name[idx+1:]
}

// IsDotfile reports whether a logical or local name names a dotfile: the
// last path segment starts with "." (e.g. ".gitignore", "config/.env").
func IsDotfile(name string) bool {
	_, base := SplitLogical(name)
	return strings.HasPrefix(base, ".")
}
