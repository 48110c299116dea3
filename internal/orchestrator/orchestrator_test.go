package orchestrator

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/gas-mcp/gas-mcp-server/internal/errors"
	"github.com/gas-mcp/gas-mcp-server/internal/gasapi"
	"github.com/gas-mcp/gas-mcp-server/internal/pathresolver"
	"github.com/gas-mcp/gas-mcp-server/internal/strategy"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

func TestExecuteWriteCommitsOnFeatureBranch(t *testing.T) {
	requireGit(t)
	reposRoot := t.TempDir()

	client := gasapi.NewFake()
	mgr := NewManager(reposRoot, 5*time.Second, client, "Test Bot", "bot@example.com")

	w := &strategy.Write{
		Client:       client,
		ScriptID:     "proj1",
		Path:         "Code.js",
		Content:      "function f() { return 1; }",
		ChangeReason: "Add f helper",
	}

	result, err := mgr.Execute(context.Background(), "proj1", "write", w)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Branch != "mcp/add-f-helper" {
		t.Fatalf("unexpected branch: %s", result.Branch)
	}
	if result.CommitHash == "" {
		t.Fatalf("expected a commit hash")
	}

	files, _ := client.ListContent(context.Background(), "proj1")
	if len(files) != 3 || files[2].Name != "Code" || files[2].Type != pathresolver.TypeServerJS {
		t.Fatalf("expected file pushed to remote: %+v", files)
	}
}

func TestExecuteRollsBackOnHookRejection(t *testing.T) {
	requireGit(t)
	reposRoot := t.TempDir()

	client := gasapi.NewFake()
	mgr := NewManager(reposRoot, 5*time.Second, client, "Test Bot", "bot@example.com")

	w := &strategy.Write{
		Client:       client,
		ScriptID:     "proj2",
		Path:         "Code.js",
		Content:      "function f() {}",
		ChangeReason: "initial add",
	}
	if _, err := mgr.Execute(context.Background(), "proj2", "write", w); err != nil {
		t.Fatalf("seed Execute: %v", err)
	}

	hooksDir := filepath.Join(reposRoot, "project-proj2", ".git", "hooks")
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		t.Fatalf("mkdir hooks: %v", err)
	}
	hookPath := filepath.Join(hooksDir, "pre-commit")
	if err := os.WriteFile(hookPath, []byte("#!/bin/sh\necho rejected >&2\nexit 1\n"), 0o755); err != nil {
		t.Fatalf("write hook: %v", err)
	}

	w2 := &strategy.Write{
		Client:       client,
		ScriptID:     "proj2",
		Path:         "Code.js",
		Content:      "function f() { return 99; }",
		ChangeReason: "change f",
	}
	_, err := mgr.Execute(context.Background(), "proj2", "write", w2)
	if !errors.Is(err, errors.CodeHookRejected) {
		t.Fatalf("expected CodeHookRejected, got %v", err)
	}

	files, _ := client.ListContent(context.Background(), "proj2")
	if len(files) != 3 || files[2].Source == "" {
		t.Fatalf("unexpected remote state: %+v", files)
	}
}

func TestBranchNameForSlug(t *testing.T) {
	cases := map[string]string{
		"Add helper for X!":  "mcp/add-helper-for-x",
		"":                   "mcp/change",
		"  spaced out words": "mcp/spaced-out-words",
	}
	for reason, want := range cases {
		if got := branchNameFor(reason); got != want {
			t.Fatalf("branchNameFor(%q) = %q, want %q", reason, got, want)
		}
	}
}
