// Package deploy implements DeploymentManager: the dev/staging/prod
// environment state machine layered over GasApi's version/deployment
// primitives. dev always tracks HEAD; staging and prod pin immutable
// version numbers. Promote, Rollback and Reset run under the project's
// write lock; Status reads without taking it.
package deploy

import (
	"context"
	"strings"

	"github.com/gas-mcp/gas-mcp-server/internal/errors"
	"github.com/gas-mcp/gas-mcp-server/internal/gasapi"
	"github.com/gas-mcp/gas-mcp-server/internal/githost"
	"github.com/gas-mcp/gas-mcp-server/internal/lock"
	"github.com/gas-mcp/gas-mcp-server/internal/mirror"
)

// Env is one of the three fixed deployment environments.
type Env string

const (
	EnvDev     Env = "dev"
	EnvStaging Env = "staging"
	EnvProd    Env = "prod"
)

const (
	tagStaging = "[STAGING]"
	tagProd    = "[PROD]"
	tagDev     = "[DEV]"
)

// Manager drives promote/rollback/status/reset for one repos root.
type Manager struct {
	Client    gasapi.Client
	ReposRoot string
	Locks     *lock.Manager
}

// NewManager builds a Manager backed by client, with a project lock
// shared with GitOperationManager's write path.
func NewManager(client gasapi.Client, reposRoot string, locks *lock.Manager) *Manager {
	return &Manager{Client: client, ReposRoot: reposRoot, Locks: locks}
}

// EnvInfo is one environment's current pin, reported by Status.
type EnvInfo struct {
	Env         Env
	DeploymentID string
	VersionNum  int64 // 0 for dev, which tracks HEAD
	Description string
}

// Status is DeploymentManager.status's result.
type Status struct {
	Dev, Staging, Prod EnvInfo
	StagingFreshness   string // "current" or "stale"; "" if suppressed
	Hint               string
	Urgency            string // "LOW" or "MEDIUM"; "" if no hint
}

func (m *Manager) Promote(ctx context.Context, scriptID string, env Env, description string) (*EnvInfo, error) {
	var result *EnvInfo
	err := m.Locks.WithLock(ctx, scriptID, "deploy", "promote:"+string(env), func() error {
		r, err := m.promote(ctx, scriptID, env, description)
		result = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (m *Manager) promote(ctx context.Context, scriptID string, env Env, description string) (*EnvInfo, error) {
	deployments, err := m.Client.ListDeployments(ctx, scriptID)
	if err != nil {
		return nil, err
	}

	switch env {
	case EnvStaging:
		staging, found := findByTag(deployments, tagStaging)
		if !found {
			return nil, errors.New(errors.CodeNotFound, "promote: no staging deployment; run reset first", nil).
				WithContext("scriptId", scriptID)
		}
		version, err := m.Client.CreateVersion(ctx, scriptID, description)
		if err != nil {
			return nil, err
		}
		state, err := loadState(m.ReposRoot, scriptID)
		if err != nil {
			return nil, err
		}
		state.PriorStagingVersion = staging.VersionNum
		commit, _ := headCommit(m.ReposRoot, scriptID)
		state.StagingPromotedCommit = commit
		if err := saveState(m.ReposRoot, scriptID, state); err != nil {
			return nil, err
		}

		updated, err := m.Client.UpdateDeployment(ctx, scriptID, staging.ID, version.Number, tagStaging+" "+description)
		if err != nil {
			return nil, err
		}
		return &EnvInfo{Env: EnvStaging, DeploymentID: updated.ID, VersionNum: updated.VersionNum, Description: updated.Description}, nil

	case EnvProd:
		staging, found := findByTag(deployments, tagStaging)
		if !found {
			return nil, errors.New(errors.CodeNotFound, "promote: no staging deployment; run reset first", nil).
				WithContext("scriptId", scriptID)
		}
		prod, found := findByTag(deployments, tagProd)
		if !found {
			return nil, errors.New(errors.CodeNotFound, "promote: no prod deployment; run reset first", nil).
				WithContext("scriptId", scriptID)
		}

		state, err := loadState(m.ReposRoot, scriptID)
		if err != nil {
			return nil, err
		}
		state.PriorProdVersion = prod.VersionNum
		if err := saveState(m.ReposRoot, scriptID, state); err != nil {
			return nil, err
		}

		updated, err := m.Client.UpdateDeployment(ctx, scriptID, prod.ID, staging.VersionNum, tagProd+" "+description)
		if err != nil {
			return nil, err
		}
		return &EnvInfo{Env: EnvProd, DeploymentID: updated.ID, VersionNum: updated.VersionNum, Description: updated.Description}, nil

	default:
		return nil, errors.New(errors.CodeValidation, "promote: env must be staging or prod", nil).WithContext("env", string(env))
	}
}

// Rollback pins env to toVersion, or the recorded prior version if
// toVersion is nil.
func (m *Manager) Rollback(ctx context.Context, scriptID string, env Env, toVersion *int64) (*EnvInfo, error) {
	var result *EnvInfo
	err := m.Locks.WithLock(ctx, scriptID, "deploy", "rollback:"+string(env), func() error {
		r, err := m.rollback(ctx, scriptID, env, toVersion)
		result = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (m *Manager) rollback(ctx context.Context, scriptID string, env Env, toVersion *int64) (*EnvInfo, error) {
	if env == EnvDev {
		return nil, errors.New(errors.CodeValidation, "rollback: dev always tracks HEAD and cannot be pinned", nil)
	}

	deployments, err := m.Client.ListDeployments(ctx, scriptID)
	if err != nil {
		return nil, err
	}
	tag := tagStaging
	if env == EnvProd {
		tag = tagProd
	}
	target, found := findByTag(deployments, tag)
	if !found {
		return nil, errors.New(errors.CodeNotFound, "rollback: no deployment for environment", nil).WithContext("env", string(env))
	}

	version := int64(0)
	if toVersion != nil {
		version = *toVersion
	} else {
		state, err := loadState(m.ReposRoot, scriptID)
		if err != nil {
			return nil, err
		}
		if env == EnvStaging {
			version = state.PriorStagingVersion
		} else {
			version = state.PriorProdVersion
		}
		if version == 0 {
			return nil, errors.New(errors.CodeValidation, "rollback: no prior version recorded; specify toVersion explicitly", nil).
				WithContext("currentVersion", target.VersionNum)
		}
	}

	updated, err := m.Client.UpdateDeployment(ctx, scriptID, target.ID, version, target.Description)
	if err != nil {
		return nil, err
	}
	return &EnvInfo{Env: env, DeploymentID: updated.ID, VersionNum: updated.VersionNum, Description: updated.Description}, nil
}

// Status reports each environment's current pin plus staging staleness.
func (m *Manager) Status(ctx context.Context, scriptID string) (*Status, error) {
	dev, err := m.Client.FindHeadDeployment(ctx, scriptID)
	if err != nil {
		return nil, err
	}
	deployments, err := m.Client.ListDeployments(ctx, scriptID)
	if err != nil {
		return nil, err
	}
	staging, _ := findByTag(deployments, tagStaging)
	prod, _ := findByTag(deployments, tagProd)

	status := &Status{
		Dev:     EnvInfo{Env: EnvDev, DeploymentID: dev.ID, VersionNum: dev.VersionNum, Description: dev.Description},
		Staging: EnvInfo{Env: EnvStaging, DeploymentID: staging.ID, VersionNum: staging.VersionNum, Description: staging.Description},
		Prod:    EnvInfo{Env: EnvProd, DeploymentID: prod.ID, VersionNum: prod.VersionNum, Description: prod.Description},
	}

	dirty, commit, err := gitState(m.ReposRoot, scriptID)
	if err != nil || dirty {
		// Suppressed while uncommitted, or when the mirror has no repo yet.
		return status, nil
	}

	state, err := loadState(m.ReposRoot, scriptID)
	if err != nil {
		return status, nil
	}
	if state.StagingPromotedCommit == "" {
		return status, nil
	}
	if commit == state.StagingPromotedCommit {
		status.StagingFreshness = "current"
		return status, nil
	}
	status.StagingFreshness = "stale"
	status.Hint = "new commits landed since staging was last promoted; re-promote to staging"
	status.Urgency = "MEDIUM"
	return status, nil
}

// Reset re-establishes the dev/staging/prod deployment set: it creates a
// [DEV] head deployment only when none is tagged [DEV], cuts a new
// "reset baseline" version, and creates fresh [STAGING] and [PROD]
// deployments pinned to it. It deletes no deployment: earlier staging and
// prod deployments, and any duplicate head deployments, stay in place.
func (m *Manager) Reset(ctx context.Context, scriptID string) (*Status, error) {
	var result *Status
	err := m.Locks.WithLock(ctx, scriptID, "deploy", "reset", func() error {
		r, err := m.reset(ctx, scriptID)
		result = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (m *Manager) reset(ctx context.Context, scriptID string) (*Status, error) {
	deployments, err := m.Client.ListDeployments(ctx, scriptID)
	if err != nil {
		return nil, err
	}
	for _, d := range deployments {
		// Deployments cannot be deleted through this contract, so none is
		// removed here. dev's head deployment is left alone if present,
		// created fresh only if absent; staging/prod get new deployments.
		_ = d
	}

	if _, found := findByTag(deployments, tagDev); !found {
		if _, err := m.Client.CreateDeployment(ctx, scriptID, 0, tagDev+" development (HEAD)"); err != nil {
			return nil, err
		}
	}

	baseline, err := m.Client.CreateVersion(ctx, scriptID, "reset baseline")
	if err != nil {
		return nil, err
	}
	if _, err := m.Client.CreateDeployment(ctx, scriptID, baseline.Number, tagStaging+" reset baseline"); err != nil {
		return nil, err
	}
	if _, err := m.Client.CreateDeployment(ctx, scriptID, baseline.Number, tagProd+" reset baseline"); err != nil {
		return nil, err
	}

	if err := saveState(m.ReposRoot, scriptID, deployState{}); err != nil {
		return nil, err
	}

	return m.Status(ctx, scriptID)
}

func findByTag(deployments []gasapi.Deployment, tag string) (gasapi.Deployment, bool) {
	for _, d := range deployments {
		if strings.HasPrefix(d.Description, tag) {
			return d, true
		}
	}
	return gasapi.Deployment{}, false
}

func gitState(reposRoot, scriptID string) (dirty bool, commit string, err error) {
	mir, err := mirror.New(reposRoot, scriptID)
	if err != nil {
		return false, "", err
	}
	host := githost.New(mir.Dir())
	ctx := context.Background()
	status, err := host.Status(ctx)
	if err != nil {
		return false, "", err
	}
	commit, err = host.RevParseHEAD(ctx)
	if err != nil {
		return false, "", err
	}
	return strings.TrimSpace(status) != "", commit, nil
}

func headCommit(reposRoot, scriptID string) (string, error) {
	mir, err := mirror.New(reposRoot, scriptID)
	if err != nil {
		return "", err
	}
	host := githost.New(mir.Dir())
	return host.RevParseHEAD(context.Background())
}
