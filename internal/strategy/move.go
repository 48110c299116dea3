package strategy

import (
	"context"

	"github.com/gas-mcp/gas-mcp-server/internal/errors"
	"github.com/gas-mcp/gas-mcp-server/internal/gasapi"
	"github.com/gas-mcp/gas-mcp-server/internal/pathresolver"
	"github.com/gas-mcp/gas-mcp-server/internal/wrapper"
)

// Move renames SourcePath to DestPath: it writes DestPath with the
// source's content and type, then removes SourcePath. Rollback restores
// the source and, if the destination didn't exist before, removes it.
// ModuleOptions, when nil, carries the source's options onto the
// destination; non-nil overrides them.
type Move struct {
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
	priorSrc          PriorFile
	priorDest         PriorFile
}

func (m *Move) ComputeChanges(ctx context.Context) (*Plan, error) {
	srcName, _, err := pathresolver.LocalToGas(m.SourcePath)
	if err != nil {
		return nil, err
	}
	destName, _, err := pathresolver.LocalToGas(m.DestPath)
	if err != nil {
		return nil, err
	}
	m.srcName, m.destName = srcName, destName

	files, err := m.Client.ListContent(ctx, m.ScriptID)
	if err != nil {
		return nil, err
	}

	src, found := findFile(files, srcName)
	if !found {
		return nil, errors.New(errors.CodeNotFound, "move: source file not found", nil).WithContext("path", m.SourcePath)
	}
	m.fileType = src.Type

	if existingDest, found := findFile(files, destName); found {
		if !m.Overwrite {
			return nil, errors.New(errors.CodeConflict, "move: destination already exists", nil).WithContext("path", m.DestPath)
		}
		body, opts := unwrapIfServerJS(existingDest.Source, existingDest.Type)
		m.priorDest = PriorFile{Existed: true, Content: []byte(body), FileType: existingDest.Type, ModuleOptions: opts}
	}

	content, opts := unwrapIfServerJS(src.Source, src.Type)
	m.srcOpts = opts
	if m.ModuleOptions != nil {
		m.srcOpts = *m.ModuleOptions
	}
	m.priorSrc = PriorFile{Existed: true, Content: []byte(content), FileType: src.Type, ModuleOptions: opts}

	return &Plan{
		AffectedFiles: []string{m.DestPath, m.SourcePath},
		ProposedContents: map[string][]byte{
			m.DestPath: []byte(content),
		},
		PriorFiles: map[string]PriorFile{
			m.DestPath:   m.priorDest,
			m.SourcePath: m.priorSrc,
		},
	}, nil
}

func (m *Move) ApplyChanges(ctx context.Context, canonical map[string][]byte) error {
	destContent, err := wrapIfServerJS(string(canonical[m.DestPath]), m.destName, m.fileType, m.srcOpts)
	if err != nil {
		return err
	}
	if _, err := m.Client.UpdateFile(ctx, m.ScriptID, gasapi.File{
		Name:   m.destName,
		Type:   m.fileType,
		Source: destContent,
	}, -1); err != nil {
		return err
	}
	return m.Client.DeleteFile(ctx, m.ScriptID, m.srcName)
}

func (m *Move) Rollback(ctx context.Context) error {
	srcContent, err := wrapIfServerJS(string(m.priorSrc.Content), m.srcName, m.priorSrc.FileType, m.priorSrc.ModuleOptions)
	if err != nil {
		return err
	}
	if _, err := m.Client.UpdateFile(ctx, m.ScriptID, gasapi.File{
		Name:   m.srcName,
		Type:   m.priorSrc.FileType,
		Source: srcContent,
	}, -1); err != nil {
		return err
	}

	if !m.priorDest.Existed {
		return m.Client.DeleteFile(ctx, m.ScriptID, m.destName)
	}
	destContent, err := wrapIfServerJS(string(m.priorDest.Content), m.destName, m.priorDest.FileType, m.priorDest.ModuleOptions)
	if err != nil {
		return err
	}
	_, err = m.Client.UpdateFile(ctx, m.ScriptID, gasapi.File{
		Name:   m.destName,
		Type:   m.priorDest.FileType,
		Source: destContent,
	}, -1)
	return err
}

func (m *Move) Describe() Description {
	return Description{Type: "move", CommitMessage: m.ChangeReason}
}
