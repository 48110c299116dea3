package rsync

import (
	"context"
	"testing"

	"github.com/gas-mcp/gas-mcp-server/internal/gasapi"
	"github.com/gas-mcp/gas-mcp-server/internal/mirror"
	"github.com/gas-mcp/gas-mcp-server/internal/pathresolver"
)

func TestPullBootstrapWritesAllFilesAndBlocksDeletions(t *testing.T) {
	reposRoot := t.TempDir()
	client := gasapi.NewFake()
	client.Seed("proj1", []gasapi.File{
		{Name: "Code", Type: pathresolver.TypeServerJS, Source: "function f() {}", UpdateTime: "2024-01-01T00:00:00Z"},
		{Name: "appsscript", Type: pathresolver.TypeJSON, Source: `{"timeZone":"UTC"}`, UpdateTime: "2024-01-01T00:00:00Z"},
	})

	engine := NewEngine(client, reposRoot)
	diff, err := engine.Sync(context.Background(), "proj1", Pull, Options{ConfirmDeletions: true})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !diff.DeletionsBlocked {
		t.Fatalf("expected bootstrap to report deletions blocked")
	}
	if len(diff.Entries) != 2 {
		t.Fatalf("expected 2 added entries, got %+v", diff.Entries)
	}
	for _, e := range diff.Entries {
		if e.Kind != Added {
			t.Fatalf("expected all entries Added on bootstrap, got %+v", e)
		}
	}
}

func TestPullDryrunDoesNotWriteFiles(t *testing.T) {
	reposRoot := t.TempDir()
	client := gasapi.NewFake()
	client.Seed("proj1", []gasapi.File{{Name: "Code", Type: pathresolver.TypeServerJS, Source: "function f() {}"}})

	engine := NewEngine(client, reposRoot)
	diff, err := engine.Sync(context.Background(), "proj1", Pull, Options{Dryrun: true})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if diff.Applied {
		t.Fatalf("expected dryrun to not apply")
	}
	if len(diff.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %+v", diff.Entries)
	}
}

func TestPullThenSecondPullIsNoop(t *testing.T) {
	reposRoot := t.TempDir()
	client := gasapi.NewFake()
	client.Seed("proj1", []gasapi.File{{Name: "Code", Type: pathresolver.TypeServerJS, Source: "function f() {}", UpdateTime: "2024-01-01T00:00:00Z"}})

	engine := NewEngine(client, reposRoot)
	if _, err := engine.Sync(context.Background(), "proj1", Pull, Options{}); err != nil {
		t.Fatalf("first Sync: %v", err)
	}

	diff, err := engine.Sync(context.Background(), "proj1", Pull, Options{})
	if err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if len(diff.Entries) != 0 {
		t.Fatalf("expected no-op second pull, got %+v", diff.Entries)
	}
}

func TestPullIncludeGlobFiltersFiles(t *testing.T) {
	reposRoot := t.TempDir()
	client := gasapi.NewFake()
	client.Seed("proj1", []gasapi.File{
		{Name: "Code", Type: pathresolver.TypeServerJS, Source: "function f() {}"},
		{Name: "Views/Index", Type: pathresolver.TypeHTML, Source: "<p>hi</p>"},
	})

	engine := NewEngine(client, reposRoot)
	diff, err := engine.Sync(context.Background(), "proj1", Pull, Options{Dryrun: true, IncludeGlobs: []string{"**/*.html"}})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(diff.Entries) != 1 || diff.Entries[0].Path != "Views/Index.html" {
		t.Fatalf("expected only the HTML file, got %+v", diff.Entries)
	}
}

func TestPushUploadsLocalOnlyFile(t *testing.T) {
	reposRoot := t.TempDir()
	client := gasapi.NewFake()

	engine := NewEngine(client, reposRoot)
	if _, err := engine.Sync(context.Background(), "proj1", Pull, Options{}); err != nil {
		t.Fatalf("initial pull: %v", err)
	}

	mir, err := mirror.New(reposRoot, "proj1")
	if err != nil {
		t.Fatalf("mirror: %v", err)
	}
	if err := mir.Write("NewFile.js", []byte("function g() {}"), "", pathresolver.TypeServerJS); err != nil {
		t.Fatalf("write local: %v", err)
	}

	diff, err := engine.Sync(context.Background(), "proj1", Push, Options{})
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if len(diff.Entries) != 1 || diff.Entries[0].Kind != Added {
		t.Fatalf("expected one Added entry pushed, got %+v", diff.Entries)
	}

	files, _ := client.ListContent(context.Background(), "proj1")
	if len(files) != 3 || files[2].Name != "NewFile" {
		t.Fatalf("expected remote to receive NewFile, got %+v", files)
	}
}

func TestPullDeletionRequiresConfirmAndNonBootstrap(t *testing.T) {
	reposRoot := t.TempDir()
	client := gasapi.NewFake()
	client.Seed("proj1", []gasapi.File{{Name: "Code", Type: pathresolver.TypeServerJS, Source: "function f() {}"}})

	engine := NewEngine(client, reposRoot)
	if _, err := engine.Sync(context.Background(), "proj1", Pull, Options{}); err != nil {
		t.Fatalf("initial pull: %v", err)
	}

	client.Seed("proj1", nil) // remote now has nothing

	diff, err := engine.Sync(context.Background(), "proj1", Pull, Options{ConfirmDeletions: true})
	if err != nil {
		t.Fatalf("second pull: %v", err)
	}
	if len(diff.Entries) != 1 || diff.Entries[0].Kind != Deleted {
		t.Fatalf("expected deletion entry, got %+v", diff.Entries)
	}

	mir, err := mirror.New(reposRoot, "proj1")
	if err != nil {
		t.Fatalf("mirror: %v", err)
	}
	if _, err := mir.Read("Code.js"); err == nil {
		t.Fatalf("expected local file removed after confirmed deletion")
	}
}

func TestPullNeverDeletesDotfilesEvenWithConfirm(t *testing.T) {
	reposRoot := t.TempDir()
	client := gasapi.NewFake()
	client.Seed("proj1", []gasapi.File{{Name: ".gitignore", Type: pathresolver.TypeServerJS, Source: "node_modules/"}})

	engine := NewEngine(client, reposRoot)
	if _, err := engine.Sync(context.Background(), "proj1", Pull, Options{}); err != nil {
		t.Fatalf("initial pull: %v", err)
	}

	client.Seed("proj1", nil) // remote now has nothing

	diff, err := engine.Sync(context.Background(), "proj1", Pull, Options{ConfirmDeletions: true})
	if err != nil {
		t.Fatalf("second pull: %v", err)
	}
	if len(diff.Entries) != 1 || diff.Entries[0].Path != ".gitignore" || diff.Entries[0].Kind != Deleted {
		t.Fatalf("expected .gitignore surfaced as a deletion candidate, got %+v", diff.Entries)
	}

	mir, err := mirror.New(reposRoot, "proj1")
	if err != nil {
		t.Fatalf("mirror: %v", err)
	}
	if _, err := mir.Read(".gitignore"); err != nil {
		t.Fatalf("expected .gitignore to survive a confirmed bulk deletion: %v", err)
	}
}
