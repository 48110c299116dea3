package strategy

import (
	"context"
	"strings"

	"github.com/gas-mcp/gas-mcp-server/internal/errors"
	"github.com/gas-mcp/gas-mcp-server/internal/gasapi"
	"github.com/gas-mcp/gas-mcp-server/internal/pathresolver"
	"github.com/gas-mcp/gas-mcp-server/internal/wrapper"
)

// Edit performs an exact-string find/replace within a single file. It
// fails if searchText isn't found, or matches more than once and
// ReplaceAll isn't set. ModuleOptions, when nil, preserves whatever the
// file already carried; non-nil overrides it on write.
type Edit struct {
	Client        gasapi.Client
	ScriptID      string
	Path          string
	SearchText    string
	ReplaceText   string
	ReplaceAll    bool
	ModuleOptions *wrapper.ModuleOptions
	ChangeReason  string

	name         string
	resolvedType pathresolver.FileType
	resolvedOpts wrapper.ModuleOptions
	prior        PriorFile
}

func (e *Edit) ComputeChanges(ctx context.Context) (*Plan, error) {
	name, _, err := pathresolver.LocalToGas(e.Path)
	if err != nil {
		return nil, err
	}
	e.name = name

	files, err := e.Client.ListContent(ctx, e.ScriptID)
	if err != nil {
		return nil, err
	}
	existing, found := findFile(files, name)
	if !found {
		return nil, errors.New(errors.CodeNotFound, "edit: file not found", nil).WithContext("path", e.Path)
	}

	content, opts := unwrapIfServerJS(existing.Source, existing.Type)
	e.resolvedType = existing.Type
	e.prior = PriorFile{Existed: true, Content: []byte(content), FileType: existing.Type, ModuleOptions: opts}
	e.resolvedOpts = opts
	if e.ModuleOptions != nil {
		e.resolvedOpts = *e.ModuleOptions
	}

	count := strings.Count(content, e.SearchText)
	if count == 0 {
		return nil, errors.New(errors.CodeValidation, "edit: searchText not found", nil).
			WithContext("path", e.Path)
	}
	if count > 1 && !e.ReplaceAll {
		return nil, errors.New(errors.CodeValidation, "edit: searchText matches multiple occurrences; set replaceAll", nil).
			WithContext("path", e.Path).WithContext("occurrences", count)
	}

	var newContent string
	if e.ReplaceAll {
		newContent = strings.ReplaceAll(content, e.SearchText, e.ReplaceText)
	} else {
		newContent = strings.Replace(content, e.SearchText, e.ReplaceText, 1)
	}

	return &Plan{
		AffectedFiles:    []string{e.Path},
		ProposedContents: map[string][]byte{e.Path: []byte(newContent)},
		PriorFiles:       map[string]PriorFile{e.Path: e.prior},
	}, nil
}

func (e *Edit) ApplyChanges(ctx context.Context, canonical map[string][]byte) error {
	content, err := wrapIfServerJS(string(canonical[e.Path]), e.name, e.resolvedType, e.resolvedOpts)
	if err != nil {
		return err
	}
	_, err = e.Client.UpdateFile(ctx, e.ScriptID, gasapi.File{
		Name:   e.name,
		Type:   e.resolvedType,
		Source: content,
	}, -1)
	return err
}

func (e *Edit) Rollback(ctx context.Context) error {
	content, err := wrapIfServerJS(string(e.prior.Content), e.name, e.prior.FileType, e.prior.ModuleOptions)
	if err != nil {
		return err
	}
	_, err = e.Client.UpdateFile(ctx, e.ScriptID, gasapi.File{
		Name:   e.name,
		Type:   e.prior.FileType,
		Source: content,
	}, -1)
	return err
}

func (e *Edit) Describe() Description {
	return Description{Type: "edit", CommitMessage: e.ChangeReason}
}
