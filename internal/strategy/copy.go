package strategy

import (
	"context"

	"github.com/gas-mcp/gas-mcp-server/internal/errors"
	"github.com/gas-mcp/gas-mcp-server/internal/gasapi"
	"github.com/gas-mcp/gas-mcp-server/internal/pathresolver"
	"github.com/gas-mcp/gas-mcp-server/internal/wrapper"
)

// Copy duplicates SourcePath to DestPath within the same project,
// preserving the source file's type explicitly on the destination
// rather than re-inferring it from the destination's extension.
// ModuleOptions, when nil, carries the source's options onto the
// destination; non-nil overrides them.
type Copy struct {
	Client        gasapi.Client
	ScriptID      string
	SourcePath    string
	DestPath      string
	Overwrite     bool
	ModuleOptions *wrapper.ModuleOptions
	ChangeReason  string

	srcName, destName string
	fileType          pathresolver.FileType
	srcOpts           wrapper.ModuleOptions
	priorDest         PriorFile
}

func (c *Copy) ComputeChanges(ctx context.Context) (*Plan, error) {
	srcName, _, err := pathresolver.LocalToGas(c.SourcePath)
	if err != nil {
		return nil, err
	}
	destName, _, err := pathresolver.LocalToGas(c.DestPath)
	if err != nil {
		return nil, err
	}
	c.srcName, c.destName = srcName, destName

	files, err := c.Client.ListContent(ctx, c.ScriptID)
	if err != nil {
		return nil, err
	}

	src, found := findFile(files, srcName)
	if !found {
		return nil, errors.New(errors.CodeNotFound, "copy: source file not found", nil).WithContext("path", c.SourcePath)
	}
	c.fileType = src.Type

	if existingDest, found := findFile(files, destName); found {
		if !c.Overwrite {
			return nil, errors.New(errors.CodeConflict, "copy: destination already exists", nil).WithContext("path", c.DestPath)
		}
		body, opts := unwrapIfServerJS(existingDest.Source, existingDest.Type)
		c.priorDest = PriorFile{Existed: true, Content: []byte(body), FileType: existingDest.Type, ModuleOptions: opts}
	}

	content, opts := unwrapIfServerJS(src.Source, src.Type)
	c.srcOpts = opts
	if c.ModuleOptions != nil {
		c.srcOpts = *c.ModuleOptions
	}

	return &Plan{
		AffectedFiles:    []string{c.DestPath},
		ProposedContents: map[string][]byte{c.DestPath: []byte(content)},
		PriorFiles:       map[string]PriorFile{c.DestPath: c.priorDest},
	}, nil
}

func (c *Copy) ApplyChanges(ctx context.Context, canonical map[string][]byte) error {
	content, err := wrapIfServerJS(string(canonical[c.DestPath]), c.destName, c.fileType, c.srcOpts)
	if err != nil {
		return err
	}
	_, err = c.Client.UpdateFile(ctx, c.ScriptID, gasapi.File{
		Name:   c.destName,
		Type:   c.fileType,
		Source: content,
	}, -1)
	return err
}

func (c *Copy) Rollback(ctx context.Context) error {
	if !c.priorDest.Existed {
		return c.Client.DeleteFile(ctx, c.ScriptID, c.destName)
	}
	content, err := wrapIfServerJS(string(c.priorDest.Content), c.destName, c.priorDest.FileType, c.priorDest.ModuleOptions)
	if err != nil {
		return err
	}
	_, err = c.Client.UpdateFile(ctx, c.ScriptID, gasapi.File{
		Name:   c.destName,
		Type:   c.priorDest.FileType,
		Source: content,
	}, -1)
	return err
}

func (c *Copy) Describe() Description {
	return Description{Type: "copy", CommitMessage: c.ChangeReason}
}
