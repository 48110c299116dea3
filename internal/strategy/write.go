package strategy

import (
	"context"

	"github.com/gas-mcp/gas-mcp-server/internal/gasapi"
	"github.com/gas-mcp/gas-mcp-server/internal/pathresolver"
	"github.com/gas-mcp/gas-mcp-server/internal/wrapper"
)

// Write upserts a single file. FileType, when empty, is inferred.
// ModuleOptions, when nil, preserves whatever the existing file had.
type Write struct {
	Client        gasapi.Client
	ScriptID      string
	Path          string
	Content       string
	FileType      pathresolver.FileType
	ModuleOptions *wrapper.ModuleOptions
	ChangeReason  string

	name         string
	resolvedType pathresolver.FileType
	resolvedOpts wrapper.ModuleOptions
	prior        PriorFile
}

func (w *Write) ComputeChanges(ctx context.Context) (*Plan, error) {
	name, inferredType, err := pathresolver.LocalToGas(w.Path)
	if err != nil {
		return nil, err
	}
	w.name = name

	resolvedType := w.FileType
	if resolvedType == "" {
		resolvedType = inferredType
	}

	files, err := w.Client.ListContent(ctx, w.ScriptID)
	if err != nil {
		return nil, err
	}

	existing, found := findFile(files, name)
	prior := PriorFile{Existed: found}
	if found {
		body, opts := unwrapIfServerJS(existing.Source, existing.Type)
		prior.Content = []byte(body)
		prior.FileType = existing.Type
		prior.ModuleOptions = opts
		if w.FileType == "" {
			resolvedType = existing.Type
		}
		if w.ModuleOptions == nil {
			w.resolvedOpts = opts
		}
	}
	if w.ModuleOptions != nil {
		w.resolvedOpts = *w.ModuleOptions
	}

	w.resolvedType = resolvedType
	w.prior = prior

	return &Plan{
		AffectedFiles:    []string{w.Path},
		ProposedContents: map[string][]byte{w.Path: []byte(w.Content)},
		PriorFiles:       map[string]PriorFile{w.Path: prior},
	}, nil
}

func (w *Write) ApplyChanges(ctx context.Context, canonical map[string][]byte) error {
	content, err := wrapIfServerJS(string(canonical[w.Path]), w.name, w.resolvedType, w.resolvedOpts)
	if err != nil {
		return err
	}
	_, err = w.Client.UpdateFile(ctx, w.ScriptID, gasapi.File{
		Name:   w.name,
		Type:   w.resolvedType,
		Source: content,
	}, -1)
	return err
}

func (w *Write) Rollback(ctx context.Context) error {
	if !w.prior.Existed {
		return w.Client.DeleteFile(ctx, w.ScriptID, w.name)
	}
	content, err := wrapIfServerJS(string(w.prior.Content), w.name, w.prior.FileType, w.prior.ModuleOptions)
	if err != nil {
		return err
	}
	_, err = w.Client.UpdateFile(ctx, w.ScriptID, gasapi.File{
		Name:   w.name,
		Type:   w.prior.FileType,
		Source: content,
	}, -1)
	return err
}

func (w *Write) Describe() Description {
	return Description{Type: "write", CommitMessage: w.ChangeReason}
}
