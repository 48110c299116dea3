package strategy

import (
	"context"
	"testing"

	"github.com/gas-mcp/gas-mcp-server/internal/errors"
	"github.com/gas-mcp/gas-mcp-server/internal/gasapi"
	"github.com/gas-mcp/gas-mcp-server/internal/pathresolver"
)

func TestCopyDuplicatesFilePreservingType(t *testing.T) {
	client := gasapi.NewFake()
	client.Seed("proj1", []gasapi.File{{Name: "Code", Type: pathresolver.TypeServerJS, Source: "function f() {}"}})

	c := &Copy{Client: client, ScriptID: "proj1", SourcePath: "Code.js", DestPath: "Code2.js"}
	ctx := context.Background()

	plan, err := c.ComputeChanges(ctx)
	if err != nil {
		t.Fatalf("ComputeChanges: %v", err)
	}
	if err := c.ApplyChanges(ctx, plan.ProposedContents); err != nil {
		t.Fatalf("ApplyChanges: %v", err)
	}

	files, _ := client.ListContent(ctx, "proj1")
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	var dest gasapi.File
	for _, f := range files {
		if f.Name == "Code2" {
			dest = f
		}
	}
	if dest.Type != pathresolver.TypeServerJS {
		t.Fatalf("expected destination to preserve SERVER_JS type, got %v", dest.Type)
	}
}

func TestCopyFailsWhenDestExistsWithoutOverwrite(t *testing.T) {
	client := gasapi.NewFake()
	client.Seed("proj1", []gasapi.File{
		{Name: "Code", Type: pathresolver.TypeServerJS, Source: "1"},
		{Name: "Code2", Type: pathresolver.TypeServerJS, Source: "2"},
	})

	c := &Copy{Client: client, ScriptID: "proj1", SourcePath: "Code.js", DestPath: "Code2.js"}
	_, err := c.ComputeChanges(context.Background())
	if !errors.Is(err, errors.CodeConflict) {
		t.Fatalf("expected CodeConflict, got %v", err)
	}
}

func TestCopySourceNotFound(t *testing.T) {
	client := gasapi.NewFake()
	c := &Copy{Client: client, ScriptID: "proj1", SourcePath: "Nope.js", DestPath: "Dest.js"}
	_, err := c.ComputeChanges(context.Background())
	if !errors.Is(err, errors.CodeNotFound) {
		t.Fatalf("expected CodeNotFound, got %v", err)
	}
}
