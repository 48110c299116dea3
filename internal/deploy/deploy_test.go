package deploy

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/gas-mcp/gas-mcp-server/internal/errors"
	"github.com/gas-mcp/gas-mcp-server/internal/gasapi"
	"github.com/gas-mcp/gas-mcp-server/internal/lock"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

func newTestManager(t *testing.T) (*Manager, *gasapi.Fake, string) {
	t.Helper()
	reposRoot := t.TempDir()
	client := gasapi.NewFake()
	locks := lock.NewManager(reposRoot, 5*time.Second)
	return NewManager(client, reposRoot, locks), client, reposRoot
}

func TestResetCreatesAllThreeEnvironments(t *testing.T) {
	requireGit(t)
	mgr, client, _ := newTestManager(t)
	ctx := context.Background()

	status, err := mgr.Reset(ctx, "proj1")
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if status.Dev.DeploymentID == "" || status.Staging.DeploymentID == "" || status.Prod.DeploymentID == "" {
		t.Fatalf("expected all three environments populated: %+v", status)
	}

	deployments, _ := client.ListDeployments(ctx, "proj1")
	if len(deployments) != 3 {
		t.Fatalf("expected 3 deployments, got %d", len(deployments))
	}
}

func TestPromoteStagingThenProd(t *testing.T) {
	requireGit(t)
	mgr, _, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.Reset(ctx, "proj1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	staging, err := mgr.Promote(ctx, "proj1", EnvStaging, "promote feature A")
	if err != nil {
		t.Fatalf("promote staging: %v", err)
	}
	if staging.VersionNum == 0 {
		t.Fatalf("expected staging pinned to a real version")
	}

	prod, err := mgr.Promote(ctx, "proj1", EnvProd, "ship feature A")
	if err != nil {
		t.Fatalf("promote prod: %v", err)
	}
	if prod.VersionNum != staging.VersionNum {
		t.Fatalf("expected prod to pin staging's version, got prod=%d staging=%d", prod.VersionNum, staging.VersionNum)
	}
}

func TestRollbackWithoutPriorFailsClearly(t *testing.T) {
	requireGit(t)
	mgr, _, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.Reset(ctx, "proj1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	_, err := mgr.Rollback(ctx, "proj1", EnvStaging, nil)
	if !errors.Is(err, errors.CodeValidation) {
		t.Fatalf("expected CodeValidation when no prior version is known, got %v", err)
	}
}

func TestRollbackRestoresPriorVersion(t *testing.T) {
	requireGit(t)
	mgr, _, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.Reset(ctx, "proj1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	before, err := mgr.Promote(ctx, "proj1", EnvStaging, "v1")
	if err != nil {
		t.Fatalf("promote v1: %v", err)
	}
	if _, err := mgr.Promote(ctx, "proj1", EnvStaging, "v2"); err != nil {
		t.Fatalf("promote v2: %v", err)
	}

	rolled, err := mgr.Rollback(ctx, "proj1", EnvStaging, nil)
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if rolled.VersionNum != before.VersionNum {
		t.Fatalf("expected rollback to restore version %d, got %d", before.VersionNum, rolled.VersionNum)
	}
}

func TestRollbackRejectsDev(t *testing.T) {
	requireGit(t)
	mgr, _, _ := newTestManager(t)
	ctx := context.Background()
	if _, err := mgr.Reset(ctx, "proj1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	_, err := mgr.Rollback(ctx, "proj1", EnvDev, nil)
	if !errors.Is(err, errors.CodeValidation) {
		t.Fatalf("expected CodeValidation for dev rollback, got %v", err)
	}
}
