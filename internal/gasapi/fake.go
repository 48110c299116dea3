package gasapi

import (
	"context"
	"sync"
	"time"

	gmerrors "github.com/gas-mcp/gas-mcp-server/internal/errors"
)

// Fake is an in-memory Client used by strategy, orchestrator, and rsync
// tests so they don't depend on network access or real credentials.
type Fake struct {
	mu          sync.Mutex
	files       map[string][]File // scriptID -> ordered files
	deployments map[string][]Deployment
	versions    map[string][]Version
	nextDepID   int

	// OnExecute backs Execute; nil means any exec tool test that reaches
	// it is a test bug, not a silently-empty result.
	OnExecute ExecuteFunc
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{
		files:       make(map[string][]File),
		deployments: make(map[string][]Deployment),
		versions:    make(map[string][]Version),
	}
}

// Seed installs an initial file set for scriptID, for test setup.
func (f *Fake) Seed(scriptID string, files []File) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[scriptID] = append([]File(nil), files...)
}

func (f *Fake) ListContent(ctx context.Context, scriptID string) ([]File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]File(nil), f.files[scriptID]...), nil
}

func (f *Fake) GetMetadata(ctx context.Context, scriptID string) ([]File, error) {
	files, _ := f.ListContent(ctx, scriptID)
	for i := range files {
		files[i].Source = ""
	}
	return files, nil
}

func (f *Fake) UpdateFile(ctx context.Context, scriptID string, file File, position int) ([]File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if file.UpdateTime == "" {
		file.UpdateTime = time.Now().UTC().Format(time.RFC3339)
	}

	existing := f.files[scriptID]
	updated := make([]File, 0, len(existing)+1)
	replaced := false
	for _, ef := range existing {
		if ef.Name == file.Name {
			updated = append(updated, file)
			replaced = true
			continue
		}
		updated = append(updated, ef)
	}
	if !replaced {
		if position < 0 || position > len(updated) {
			position = len(updated)
		}
		updated = append(updated[:position], append([]File{file}, updated[position:]...)...)
	}
	f.files[scriptID] = updated
	return append([]File(nil), updated...), nil
}

func (f *Fake) DeleteFile(ctx context.Context, scriptID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing := f.files[scriptID]
	remaining := make([]File, 0, len(existing))
	found := false
	for _, ef := range existing {
		if ef.Name == name {
			found = true
			continue
		}
		remaining = append(remaining, ef)
	}
	if !found {
		return gmerrors.New(gmerrors.CodeNotFound, "deleteFile: no such file", nil).WithContext("name", name)
	}
	f.files[scriptID] = remaining
	return nil
}

func (f *Fake) Reorder(ctx context.Context, scriptID string, orderedNames []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing := f.files[scriptID]
	byName := make(map[string]File, len(existing))
	for _, ef := range existing {
		byName[ef.Name] = ef
	}
	reordered := make([]File, 0, len(existing))
	seen := make(map[string]bool, len(existing))
	for _, name := range orderedNames {
		if ef, ok := byName[name]; ok {
			reordered = append(reordered, ef)
			seen[name] = true
		}
	}
	for _, ef := range existing {
		if !seen[ef.Name] {
			reordered = append(reordered, ef)
		}
	}
	f.files[scriptID] = reordered
	return nil
}

func (f *Fake) CreateVersion(ctx context.Context, scriptID, description string) (Version, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := Version{
		Number:      int64(len(f.versions[scriptID]) + 1),
		Description: description,
		CreateTime:  time.Now().UTC().Format(time.RFC3339),
	}
	f.versions[scriptID] = append(f.versions[scriptID], v)
	return v, nil
}

func (f *Fake) CreateDeployment(ctx context.Context, scriptID string, versionNum int64, description string) (Deployment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextDepID++
	d := Deployment{
		ID:          idFor(f.nextDepID),
		VersionNum:  versionNum,
		Description: description,
		UpdateTime:  time.Now().UTC().Format(time.RFC3339),
	}
	f.deployments[scriptID] = append(f.deployments[scriptID], d)
	return d, nil
}

func (f *Fake) UpdateDeployment(ctx context.Context, scriptID, deploymentID string, versionNum int64, description string) (Deployment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	deployments := f.deployments[scriptID]
	for i, d := range deployments {
		if d.ID == deploymentID {
			d.VersionNum = versionNum
			d.Description = description
			d.UpdateTime = time.Now().UTC().Format(time.RFC3339)
			deployments[i] = d
			return d, nil
		}
	}
	return Deployment{}, gmerrors.New(gmerrors.CodeNotFound, "updateDeployment: no such deployment", nil)
}

func (f *Fake) ListDeployments(ctx context.Context, scriptID string) ([]Deployment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Deployment(nil), f.deployments[scriptID]...), nil
}

func (f *Fake) FindHeadDeployment(ctx context.Context, scriptID string) (Deployment, error) {
	deployments, _ := f.ListDeployments(ctx, scriptID)
	for _, d := range deployments {
		if d.VersionNum == 0 {
			return d, nil
		}
	}
	return Deployment{}, gmerrors.New(gmerrors.CodeNotFound, "findHeadDeployment: no HEAD deployment", nil)
}

// ExecuteFunc, when set, lets a test control Execute's result without
// wiring an actual GAS runtime.
type ExecuteFunc func(ctx context.Context, scriptID, functionName string, parameters []interface{}) (ExecResult, error)

func (f *Fake) Execute(ctx context.Context, scriptID, functionName string, parameters []interface{}) (ExecResult, error) {
	f.mu.Lock()
	onExecute := f.OnExecute
	f.mu.Unlock()
	if onExecute != nil {
		return onExecute(ctx, scriptID, functionName, parameters)
	}
	return ExecResult{}, gmerrors.New(gmerrors.CodeInternal, "execute: no OnExecute configured on fake", nil)
}

func idFor(n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	if n < len(alphabet) {
		return "dep-" + string(alphabet[n])
	}
	return "dep-" + string(rune('a'+n%26))
}
