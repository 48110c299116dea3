package strategy

import (
	"context"

	"github.com/gas-mcp/gas-mcp-server/internal/errors"
	"github.com/gas-mcp/gas-mcp-server/internal/gasapi"
	"github.com/gas-mcp/gas-mcp-server/internal/pathresolver"
)

// Delete removes a single file from the project.
type Delete struct {
	Client       gasapi.Client
	ScriptID     string
	Path         string
	ChangeReason string

	name  string
	prior PriorFile
}

func (d *Delete) ComputeChanges(ctx context.Context) (*Plan, error) {
	name, _, err := pathresolver.LocalToGas(d.Path)
	if err != nil {
		return nil, err
	}
	d.name = name

	files, err := d.Client.ListContent(ctx, d.ScriptID)
	if err != nil {
		return nil, err
	}
	existing, found := findFile(files, name)
	if !found {
		return nil, errors.New(errors.CodeNotFound, "delete: file not found", nil).WithContext("path", d.Path)
	}

	content, opts := unwrapIfServerJS(existing.Source, existing.Type)
	d.prior = PriorFile{Existed: true, Content: []byte(content), FileType: existing.Type, ModuleOptions: opts}

	return &Plan{
		AffectedFiles:    []string{d.Path},
		ProposedContents: map[string][]byte{},
		PriorFiles:       map[string]PriorFile{d.Path: d.prior},
	}, nil
}

func (d *Delete) ApplyChanges(ctx context.Context, canonical map[string][]byte) error {
	return d.Client.DeleteFile(ctx, d.ScriptID, d.name)
}

func (d *Delete) Rollback(ctx context.Context) error {
	content, err := wrapIfServerJS(string(d.prior.Content), d.name, d.prior.FileType, d.prior.ModuleOptions)
	if err != nil {
		return err
	}
	_, err = d.Client.UpdateFile(ctx, d.ScriptID, gasapi.File{
		Name:   d.name,
		Type:   d.prior.FileType,
		Source: content,
	}, -1)
	return err
}

func (d *Delete) Describe() Description {
	return Description{Type: "delete", CommitMessage: d.ChangeReason}
}
