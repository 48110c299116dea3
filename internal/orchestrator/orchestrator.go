// Package orchestrator implements GitOperationManager, the two-phase
// lock-protected workflow that drives a Strategy through local
// hook-validation before writing its bytes to a GAS project: lock,
// ensure the local git mirror exists and is on a feature branch, compute
// the strategy's proposed changes, stage them locally, run the
// repository's pre-commit hook, write the (possibly hook-rewritten)
// canonical bytes remotely, commit, and release the lock. Any failure
// after the lock is acquired rolls back what was already done.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gas-mcp/gas-mcp-server/internal/errors"
	"github.com/gas-mcp/gas-mcp-server/internal/gasapi"
	"github.com/gas-mcp/gas-mcp-server/internal/githost"
	"github.com/gas-mcp/gas-mcp-server/internal/lock"
	"github.com/gas-mcp/gas-mcp-server/internal/mirror"
	"github.com/gas-mcp/gas-mcp-server/internal/pathresolver"
	"github.com/gas-mcp/gas-mcp-server/internal/shim"
	"github.com/gas-mcp/gas-mcp-server/internal/strategy"
)

// Manager drives Strategy executions for one repos root.
type Manager struct {
	ReposRoot     string
	Locks         *lock.Manager
	Client        gasapi.Client
	FallbackName  string
	FallbackEmail string
}

// NewManager builds a Manager. timeout bounds how long WithLock waits for
// a live holder before surfacing CodeLockTimeout. client is used to ensure
// the module shim is installed in a project before any strategy touches it.
func NewManager(reposRoot string, timeout time.Duration, client gasapi.Client, fallbackName, fallbackEmail string) *Manager {
	return &Manager{
		ReposRoot:     reposRoot,
		Locks:         lock.NewManager(reposRoot, timeout),
		Client:        client,
		FallbackName:  fallbackName,
		FallbackEmail: fallbackEmail,
	}
}

// Result is what a successful Execute reports back to the calling tool.
type Result struct {
	AffectedFiles []string
	CommitHash    string
	Branch        string
	ShowStat      string
	HookRan       bool
}

// Execute runs strategy to completion under scriptID's exclusive lock.
func (m *Manager) Execute(ctx context.Context, scriptID, tool string, strat strategy.Strategy) (*Result, error) {
	var result *Result
	desc := strat.Describe()

	err := m.Locks.WithLock(ctx, scriptID, tool, desc.Type, func() error {
		r, err := m.execute(ctx, scriptID, strat, desc)
		result = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (m *Manager) execute(ctx context.Context, scriptID string, strat strategy.Strategy, desc strategy.Description) (*Result, error) {
	if err := shim.EnsureInstalled(ctx, m.Client, scriptID); err != nil {
		return nil, err
	}

	mir, err := mirror.New(m.ReposRoot, scriptID)
	if err != nil {
		return nil, err
	}
	host := githost.New(mir.Dir())

	if err := host.EnsureRepo(ctx, m.FallbackName, m.FallbackEmail); err != nil {
		return nil, err
	}
	branch := branchNameFor(desc.CommitMessage)
	if err := host.EnsureFeatureBranch(ctx, branch); err != nil {
		return nil, err
	}

	plan, err := strat.ComputeChanges(ctx)
	if err != nil {
		return nil, err
	}

	for path, content := range plan.ProposedContents {
		if err := stageLocal(ctx, mir, host, path, content); err != nil {
			rollbackLocal(ctx, mir, host, plan)
			return nil, err
		}
	}

	hookResult, err := host.RunHook(ctx, "pre-commit")
	if err != nil {
		return nil, err
	}
	if hookResult.ExitCode != 0 {
		rollbackLocal(ctx, mir, host, plan)
		return nil, errors.New(errors.CodeHookRejected, "pre-commit hook rejected the staged changes", nil).
			WithContext("scriptId", scriptID).
			WithContext("stderr", hookResult.Stderr)
	}

	canonical := make(map[string][]byte, len(plan.ProposedContents))
	for path := range plan.ProposedContents {
		content, err := mir.Read(path)
		if err != nil {
			rollbackLocal(ctx, mir, host, plan)
			return nil, err
		}
		canonical[path] = content
	}

	if err := strat.ApplyChanges(ctx, canonical); err != nil {
		if rbErr := strat.Rollback(ctx); rbErr != nil {
			return nil, errors.New(errors.CodeRollbackIncomplete,
				fmt.Sprintf("apply failed (%v) and rollback also failed (%v)", err, rbErr), err).
				WithContext("scriptId", scriptID)
		}
		rollbackLocal(ctx, mir, host, plan)
		return nil, err
	}

	if err := host.Commit(ctx, desc.CommitMessage); err != nil {
		if rbErr := strat.Rollback(ctx); rbErr != nil {
			return nil, errors.New(errors.CodeRollbackIncomplete,
				fmt.Sprintf("commit failed (%v) and rollback also failed (%v)", err, rbErr), err).
				WithContext("scriptId", scriptID)
		}
		rollbackLocal(ctx, mir, host, plan)
		return nil, err
	}

	commitHash, err := host.RevParseHEAD(ctx)
	if err != nil {
		return nil, err
	}
	showStat, _ := host.ShowStatHEAD(ctx)

	return &Result{
		AffectedFiles: plan.AffectedFiles,
		CommitHash:    commitHash,
		Branch:        branch,
		ShowStat:      showStat,
		HookRan:       hookResult.Ran,
	}, nil
}

func stageLocal(ctx context.Context, mir *mirror.Mirror, host *githost.Host, path string, content []byte) error {
	_, fileType, err := pathresolver.LocalToGas(path)
	if err != nil {
		return err
	}
	if err := mir.Write(path, content, "", fileType); err != nil {
		return err
	}
	return host.Add(ctx, path)
}

// rollbackLocal restores the mirror and git index to their pre-operation
// state; it is best-effort and swallows its own errors, since it only
// runs while already unwinding a prior failure.
func rollbackLocal(ctx context.Context, mir *mirror.Mirror, host *githost.Host, plan *strategy.Plan) {
	for path, prior := range plan.PriorFiles {
		if prior.Existed {
			_ = mir.Write(path, prior.Content, "", prior.FileType)
		} else {
			_ = mir.Delete(path)
		}
	}
	_ = host.ResetHard(ctx)
}

// branchNameFor derives a feature-branch name from a commit message,
// e.g. "Add helper for X" -> "mcp/add-helper-for-x".
func branchNameFor(changeReason string) string {
	lower := strings.ToLower(strings.TrimSpace(changeReason))
	if lower == "" {
		return "mcp/change"
	}
	var b strings.Builder
	lastWasDash := false
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastWasDash = false
		default:
			if !lastWasDash {
				b.WriteByte('-')
				lastWasDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > 48 {
		slug = slug[:48]
	}
	if slug == "" {
		slug = "change"
	}
	return "mcp/" + slug
}
