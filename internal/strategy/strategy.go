// Package strategy implements the six file-operation strategies
// GitOperationManager drives: Write, Edit, Aider, Copy, Move, Delete.
// computeChanges is pure (reads remote, never writes); applyChanges
// writes only the bytes the orchestrator hands back after hook
// validation, never what computeChanges itself proposed.
package strategy

import (
	"context"

	"github.com/gas-mcp/gas-mcp-server/internal/gasapi"
	"github.com/gas-mcp/gas-mcp-server/internal/pathresolver"
	"github.com/gas-mcp/gas-mcp-server/internal/wrapper"
)

// PriorFile is the pre-operation state of one affected path, captured
// during ComputeChanges so Rollback can restore it exactly — including
// its original type, which matters most for Copy/Move/Delete.
type PriorFile struct {
	Existed       bool
	Content       []byte // local-canonical (unwrapped) form
	FileType      pathresolver.FileType
	ModuleOptions wrapper.ModuleOptions
}

// Plan is the pure result of ComputeChanges: the paths a strategy will
// touch, the local-canonical content it proposes for each, and enough
// prior state to reverse the operation.
type Plan struct {
	AffectedFiles    []string
	ProposedContents map[string][]byte
	PriorFiles       map[string]PriorFile
}

// Description names a strategy for logging and supplies the git commit
// message the orchestrator uses.
type Description struct {
	Type          string
	CommitMessage string
}

// Strategy is implemented by Write, Edit, Aider, Copy, Move, and Delete.
type Strategy interface {
	// ComputeChanges must not write to LocalMirror or GasApi. It may
	// read remote content to decide what the operation will do.
	ComputeChanges(ctx context.Context) (*Plan, error)

	// ApplyChanges writes canonical (post-hook) bytes to the remote
	// project, keyed by the same paths ComputeChanges proposed.
	ApplyChanges(ctx context.Context, canonical map[string][]byte) error

	// Rollback reverses a partially- or fully-applied ApplyChanges.
	Rollback(ctx context.Context) error

	Describe() Description
}

// findFile returns the file named name from files, if present.
func findFile(files []gasapi.File, name string) (gasapi.File, bool) {
	for _, f := range files {
		if f.Name == name {
			return f, true
		}
	}
	return gasapi.File{}, false
}

// unwrapIfServerJS returns the local-canonical (unwrapped) form of a
// remote file's source, plus its preserved ModuleOptions. Non-SERVER_JS
// files pass through unchanged.
func unwrapIfServerJS(source string, fileType pathresolver.FileType) (string, wrapper.ModuleOptions) {
	if fileType != pathresolver.TypeServerJS {
		return source, wrapper.ModuleOptions{}
	}
	body, opts, _ := wrapper.Unwrap(source)
	return body, opts
}

// wrapIfServerJS wraps content for the wire if fileType is SERVER_JS,
// using the given module name and options; other types pass through.
func wrapIfServerJS(content, moduleName string, fileType pathresolver.FileType, opts wrapper.ModuleOptions) (string, error) {
	if fileType != pathresolver.TypeServerJS {
		return content, nil
	}
	return wrapper.Wrap(content, moduleName, opts)
}
