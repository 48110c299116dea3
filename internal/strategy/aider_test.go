package strategy

import (
	"context"
	"strings"
	"testing"

	"github.com/gas-mcp/gas-mcp-server/internal/errors"
	"github.com/gas-mcp/gas-mcp-server/internal/gasapi"
	"github.com/gas-mcp/gas-mcp-server/internal/pathresolver"
)

func TestAiderMatchesNearIdenticalText(t *testing.T) {
	client := gasapi.NewFake()
	client.Seed("proj1", []gasapi.File{{
		Name:   "Code",
		Type:   pathresolver.TypeServerJS,
		Source: "function greet(name) {\n  console.log('hello ' + name);\n}\n",
	}})

	a := &Aider{
		Client:   client,
		ScriptID: "proj1",
		Path:     "Code.js",
		Edits: []AiderEdit{
			{SearchText: "console.log('hello' + name)", ReplaceText: "console.log('hi ' + name)"},
		},
	}
	plan, err := a.ComputeChanges(context.Background())
	if err != nil {
		t.Fatalf("ComputeChanges: %v", err)
	}
	if !strings.Contains(string(plan.ProposedContents["Code.js"]), "hi ") {
		t.Fatalf("expected fuzzy replacement, got %s", plan.ProposedContents["Code.js"])
	}
}

func TestAiderFailsBelowThreshold(t *testing.T) {
	client := gasapi.NewFake()
	client.Seed("proj1", []gasapi.File{{Name: "Code", Type: pathresolver.TypeServerJS, Source: "totally unrelated content here"}})

	a := &Aider{
		Client:   client,
		ScriptID: "proj1",
		Path:     "Code.js",
		Edits: []AiderEdit{
			{SearchText: "function completelyDifferentThing(x, y, z) { return x + y + z; }", ReplaceText: "x"},
		},
	}
	_, err := a.ComputeChanges(context.Background())
	if !errors.Is(err, errors.CodeValidation) {
		t.Fatalf("expected CodeValidation, got %v", err)
	}
}

func TestAiderRejectsOverlappingEdits(t *testing.T) {
	content := "alpha beta gamma delta"
	client := gasapi.NewFake()
	client.Seed("proj1", []gasapi.File{{Name: "Code", Type: pathresolver.TypeServerJS, Source: content}})

	a := &Aider{
		Client:   client,
		ScriptID: "proj1",
		Path:     "Code.js",
		Edits: []AiderEdit{
			{SearchText: "alpha beta", ReplaceText: "x"},
			{SearchText: "beta gamma", ReplaceText: "y"},
		},
	}
	_, err := a.ComputeChanges(context.Background())
	if !errors.Is(err, errors.CodeValidation) {
		t.Fatalf("expected CodeValidation for overlap, got %v", err)
	}
}

func TestAiderAppliesMultipleNonOverlappingEditsIndependently(t *testing.T) {
	content := "one two three four five"
	client := gasapi.NewFake()
	client.Seed("proj1", []gasapi.File{{Name: "Code", Type: pathresolver.TypeServerJS, Source: content}})

	a := &Aider{
		Client:   client,
		ScriptID: "proj1",
		Path:     "Code.js",
		Edits: []AiderEdit{
			{SearchText: "one two", ReplaceText: "ONE_TWO"},
			{SearchText: "four five", ReplaceText: "FOUR_FIVE"},
		},
	}
	plan, err := a.ComputeChanges(context.Background())
	if err != nil {
		t.Fatalf("ComputeChanges: %v", err)
	}
	got := string(plan.ProposedContents["Code.js"])
	if !strings.Contains(got, "ONE_TWO") || !strings.Contains(got, "FOUR_FIVE") {
		t.Fatalf("expected both edits applied, got %q", got)
	}
}
