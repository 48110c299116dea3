// Package gasapi is the external contract the Core consumes: list/get
// content, update/delete files, reorder, and the version/deployment
// calls DeploymentManager needs. Client is an interface so strategies
// and the orchestrator can be tested against a fake; RestClient is the
// one production adapter, over google.golang.org/api/script/v1.
package gasapi

import (
	"context"

	"github.com/gas-mcp/gas-mcp-server/internal/pathresolver"
)

// File is the Core's view of a GasFile: name, type, source, and the
// remote bookkeeping fields LocalMirror caches for fast-path reads.
type File struct {
	Name           string
	Type           pathresolver.FileType
	Source         string
	UpdateTime     string
	LastModifyUser string
}

// ProjectView is the in-memory snapshot of a project. Derived, never
// authoritative — always refetched or fast-pathed through LocalMirror.
type ProjectView struct {
	ScriptID string
	Files    []File
}

// Version is an immutable snapshot created by createVersion, pinned by
// staging/prod deployments.
type Version struct {
	Number      int64
	Description string
	CreateTime  string
}

// Deployment ties a version (or HEAD, for dev) to a description string
// DeploymentManager parses for its environment tag.
type Deployment struct {
	ID          string
	VersionNum  int64 // 0 means "tracks HEAD"
	Description string
	UpdateTime  string
}

// ExecResult is what the Execution API returns for one scripts.run call.
type ExecResult struct {
	Result         interface{}
	LoggerOutput   string
	ExecutionError string // set instead of Result when the function threw
}

// Client is the GasApi external contract.
type Client interface {
	ListContent(ctx context.Context, scriptID string) ([]File, error)
	GetMetadata(ctx context.Context, scriptID string) ([]File, error)
	UpdateFile(ctx context.Context, scriptID string, file File, position int) ([]File, error)
	DeleteFile(ctx context.Context, scriptID, name string) error
	Reorder(ctx context.Context, scriptID string, orderedNames []string) error

	CreateVersion(ctx context.Context, scriptID, description string) (Version, error)
	CreateDeployment(ctx context.Context, scriptID string, versionNum int64, description string) (Deployment, error)
	UpdateDeployment(ctx context.Context, scriptID, deploymentID string, versionNum int64, description string) (Deployment, error)
	ListDeployments(ctx context.Context, scriptID string) ([]Deployment, error)
	FindHeadDeployment(ctx context.Context, scriptID string) (Deployment, error)

	// Execute runs functionName in scriptID's HEAD deployment via the
	// Apps Script Execution API, in dev mode (against the latest saved
	// content rather than a pinned deployment version).
	Execute(ctx context.Context, scriptID, functionName string, parameters []interface{}) (ExecResult, error)
}
