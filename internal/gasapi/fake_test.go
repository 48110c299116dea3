package gasapi

import (
	"context"
	"testing"

	"github.com/gas-mcp/gas-mcp-server/internal/pathresolver"
)

var _ Client = (*Fake)(nil)

func TestFakeUpdateFileInsertsAndReplaces(t *testing.T) {
	ctx := context.Background()
	f := NewFake()

	files, err := f.UpdateFile(ctx, "script1", File{Name: "Code", Type: pathresolver.TypeServerJS, Source: "v1"}, -1)
	if err != nil {
		t.Fatalf("UpdateFile: unexpected error: %v", err)
	}
	if len(files) != 1 || files[0].Source != "v1" {
		t.Fatalf("expected one file with source v1, got %+v", files)
	}

	files, err = f.UpdateFile(ctx, "script1", File{Name: "Code", Type: pathresolver.TypeServerJS, Source: "v2"}, -1)
	if err != nil {
		t.Fatalf("UpdateFile: unexpected error: %v", err)
	}
	if len(files) != 1 || files[0].Source != "v2" {
		t.Fatalf("expected replace in place, got %+v", files)
	}
}

func TestFakeDeleteFileNotFound(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	if err := f.DeleteFile(ctx, "script1", "Nope"); err == nil {
		t.Error("expected error deleting a file that doesn't exist")
	}
}

func TestFakeDeploymentLifecycle(t *testing.T) {
	ctx := context.Background()
	f := NewFake()

	v, err := f.CreateVersion(ctx, "script1", "initial")
	if err != nil {
		t.Fatalf("CreateVersion: unexpected error: %v", err)
	}
	if v.Number != 1 {
		t.Errorf("expected first version number 1, got %d", v.Number)
	}

	dep, err := f.CreateDeployment(ctx, "script1", v.Number, "prod")
	if err != nil {
		t.Fatalf("CreateDeployment: unexpected error: %v", err)
	}

	found, err := f.ListDeployments(ctx, "script1")
	if err != nil || len(found) != 1 || found[0].ID != dep.ID {
		t.Errorf("expected to find created deployment, got %+v, err=%v", found, err)
	}
}
