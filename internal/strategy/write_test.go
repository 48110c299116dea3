package strategy

import (
	"context"
	"testing"

	"github.com/gas-mcp/gas-mcp-server/internal/gasapi"
	"github.com/gas-mcp/gas-mcp-server/internal/pathresolver"
	"github.com/gas-mcp/gas-mcp-server/internal/wrapper"
)

func TestWriteCreatesNewFile(t *testing.T) {
	client := gasapi.NewFake()
	w := &Write{
		Client:       client,
		ScriptID:     "proj1",
		Path:         "src/foo.js",
		Content:      "function foo() {}",
		ChangeReason: "add foo",
	}
	ctx := context.Background()

	plan, err := w.ComputeChanges(ctx)
	if err != nil {
		t.Fatalf("ComputeChanges: %v", err)
	}
	if plan.PriorFiles["src/foo.js"].Existed {
		t.Fatalf("expected no prior file")
	}

	canonical := map[string][]byte{"src/foo.js": plan.ProposedContents["src/foo.js"]}
	if err := w.ApplyChanges(ctx, canonical); err != nil {
		t.Fatalf("ApplyChanges: %v", err)
	}

	files, _ := client.ListContent(ctx, "proj1")
	if len(files) != 1 || files[0].Type != pathresolver.TypeServerJS {
		t.Fatalf("unexpected files: %+v", files)
	}
}

func TestWriteRollbackDeletesNewlyCreatedFile(t *testing.T) {
	client := gasapi.NewFake()
	w := &Write{Client: client, ScriptID: "proj1", Path: "src/foo.js", Content: "x"}
	ctx := context.Background()

	if _, err := w.ComputeChanges(ctx); err != nil {
		t.Fatalf("ComputeChanges: %v", err)
	}
	if err := w.ApplyChanges(ctx, map[string][]byte{"src/foo.js": []byte("x")}); err != nil {
		t.Fatalf("ApplyChanges: %v", err)
	}
	if err := w.Rollback(ctx); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	files, _ := client.ListContent(ctx, "proj1")
	if len(files) != 0 {
		t.Fatalf("expected rollback to delete file, got %+v", files)
	}
}

func TestWritePreservesExistingModuleOptions(t *testing.T) {
	client := gasapi.NewFake()
	loadNow := true
	wrapped, err := wrapper.Wrap("module.exports = 1;", "src/foo", wrapper.ModuleOptions{LoadNow: &loadNow})
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	client.Seed("proj1", []gasapi.File{{Name: "src/foo", Type: pathresolver.TypeServerJS, Source: wrapped}})

	w := &Write{Client: client, ScriptID: "proj1", Path: "src/foo.js", Content: "module.exports = 2;"}
	ctx := context.Background()
	if _, err := w.ComputeChanges(ctx); err != nil {
		t.Fatalf("ComputeChanges: %v", err)
	}
	if w.resolvedOpts.LoadNow == nil || !*w.resolvedOpts.LoadNow {
		t.Fatalf("expected loadNow preserved from existing file")
	}
}
