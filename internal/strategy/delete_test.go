package strategy

import (
	"context"
	"testing"

	"github.com/gas-mcp/gas-mcp-server/internal/errors"
	"github.com/gas-mcp/gas-mcp-server/internal/gasapi"
	"github.com/gas-mcp/gas-mcp-server/internal/pathresolver"
)

func TestDeleteRemovesFile(t *testing.T) {
	client := gasapi.NewFake()
	client.Seed("proj1", []gasapi.File{{Name: "Code", Type: pathresolver.TypeServerJS, Source: "function f() {}"}})

	d := &Delete{Client: client, ScriptID: "proj1", Path: "Code.js"}
	ctx := context.Background()

	if _, err := d.ComputeChanges(ctx); err != nil {
		t.Fatalf("ComputeChanges: %v", err)
	}
	if err := d.ApplyChanges(ctx, nil); err != nil {
		t.Fatalf("ApplyChanges: %v", err)
	}

	files, _ := client.ListContent(ctx, "proj1")
	if len(files) != 0 {
		t.Fatalf("expected file deleted, got %+v", files)
	}
}

func TestDeleteRollbackRestoresFile(t *testing.T) {
	client := gasapi.NewFake()
	client.Seed("proj1", []gasapi.File{{Name: "Code", Type: pathresolver.TypeServerJS, Source: "function f() {}"}})

	d := &Delete{Client: client, ScriptID: "proj1", Path: "Code.js"}
	ctx := context.Background()

	if _, err := d.ComputeChanges(ctx); err != nil {
		t.Fatalf("ComputeChanges: %v", err)
	}
	if err := d.ApplyChanges(ctx, nil); err != nil {
		t.Fatalf("ApplyChanges: %v", err)
	}
	if err := d.Rollback(ctx); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	files, _ := client.ListContent(ctx, "proj1")
	if len(files) != 1 {
		t.Fatalf("expected file restored, got %+v", files)
	}
}

func TestDeleteFailsWhenFileMissing(t *testing.T) {
	client := gasapi.NewFake()
	d := &Delete{Client: client, ScriptID: "proj1", Path: "Nope.js"}
	_, err := d.ComputeChanges(context.Background())
	if !errors.Is(err, errors.CodeNotFound) {
		t.Fatalf("expected CodeNotFound, got %v", err)
	}
}
