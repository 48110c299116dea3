// Package rsync implements RsyncEngine: a stateless, lock-free diff and
// apply between a project's remote GAS files and its local mirror
// directory. It never commits to git and never acquires the project
// lock itself — callers that need exclusivity take it before calling in.
package rsync

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/gas-mcp/gas-mcp-server/internal/errors"
	"github.com/gas-mcp/gas-mcp-server/internal/gasapi"
	"github.com/gas-mcp/gas-mcp-server/internal/mirror"
	"github.com/gas-mcp/gas-mcp-server/internal/pathresolver"
	"github.com/gas-mcp/gas-mcp-server/internal/shim"
	"github.com/gas-mcp/gas-mcp-server/internal/wrapper"
)

// Direction selects which side of the diff is authoritative.
type Direction string

const (
	Pull Direction = "pull"
	Push Direction = "push"
)

// Kind classifies one diff entry.
type Kind string

const (
	Added    Kind = "added"
	Modified Kind = "modified"
	Deleted  Kind = "deleted"
)

// Entry is one file the diff found out of sync between local and remote.
type Entry struct {
	Path string
	Kind Kind
}

// Options controls filtering and destructiveness.
type Options struct {
	Dryrun           bool
	ConfirmDeletions bool
	IncludeGlobs     []string
	ExcludeGlobs     []string
}

// Diff is the result of computing (and optionally applying) a sync pass.
// Dotfile deletions are always surfaced as entries but never auto-applied,
// even with ConfirmDeletions set: removing project metadata like
// .gitignore has to go through rm, not a bulk sync.
type Diff struct {
	Entries          []Entry
	Applied          bool
	DeletionsBlocked bool // bootstrap: no prior local mirror, deletions always blocked
}

// Engine runs Pull/Push for one repos root.
type Engine struct {
	Client    gasapi.Client
	ReposRoot string
}

// NewEngine builds an Engine backed by client's remote content and local
// mirrors rooted at reposRoot.
func NewEngine(client gasapi.Client, reposRoot string) *Engine {
	return &Engine{Client: client, ReposRoot: reposRoot}
}

// Sync runs one diff-and-apply pass in the given direction.
func (e *Engine) Sync(ctx context.Context, scriptID string, dir Direction, opts Options) (*Diff, error) {
	mir, err := mirror.New(e.ReposRoot, scriptID)
	if err != nil {
		return nil, err
	}

	bootstrap := len(mir.TrackedPaths()) == 0

	remoteFiles, err := e.Client.ListContent(ctx, scriptID)
	if err != nil {
		return nil, err
	}
	localPaths, err := localFiles(mir)
	if err != nil {
		return nil, err
	}

	var diff *Diff
	switch dir {
	case Pull:
		diff, err = e.computePull(mir, remoteFiles, localPaths, opts)
	case Push:
		diff, err = e.computePush(ctx, mir, remoteFiles, localPaths, opts)
	default:
		return nil, errors.New(errors.CodeValidation, "unknown sync direction", nil).WithContext("direction", string(dir))
	}
	if err != nil {
		return nil, err
	}
	diff.DeletionsBlocked = bootstrap

	if opts.Dryrun {
		return diff, nil
	}

	switch dir {
	case Pull:
		err = e.applyPull(ctx, mir, remoteFiles, diff, opts, bootstrap)
	case Push:
		err = e.applyPush(ctx, scriptID, mir, remoteFiles, diff, opts, bootstrap)
	}
	if err != nil {
		return nil, err
	}
	diff.Applied = true
	return diff, nil
}

func (e *Engine) computePull(mir *mirror.Mirror, remoteFiles []gasapi.File, localPaths map[string]bool, opts Options) (*Diff, error) {
	entries := make([]Entry, 0, len(remoteFiles))
	remoteLocal := make(map[string]bool, len(remoteFiles))

	for _, rf := range remoteFiles {
		localPath, err := pathresolver.GasToLocal(rf.Name, rf.Type)
		if err != nil {
			return nil, err
		}
		if !matches(localPath, opts) {
			continue
		}
		remoteLocal[localPath] = true

		if !localPaths[localPath] {
			entries = append(entries, Entry{Path: localPath, Kind: Added})
			continue
		}

		valid, err := mir.IsFastPathValid(localPath, rf.UpdateTime)
		if err != nil {
			return nil, err
		}
		if valid {
			continue
		}

		localContent, err := mir.Read(localPath)
		if err != nil {
			return nil, err
		}
		remoteContent, _ := unwrapIfNeeded(rf.Source, rf.Type)
		if mirror.ContentSHA256(localContent) == mirror.ContentSHA256([]byte(remoteContent)) {
			continue
		}
		entries = append(entries, Entry{Path: localPath, Kind: Modified})
	}

	for localPath := range localPaths {
		if !matches(localPath, opts) {
			continue
		}
		if !remoteLocal[localPath] {
			entries = append(entries, Entry{Path: localPath, Kind: Deleted})
		}
	}

	sortEntries(entries)
	return &Diff{Entries: entries}, nil
}

func (e *Engine) applyPull(ctx context.Context, mir *mirror.Mirror, remoteFiles []gasapi.File, diff *Diff, opts Options, bootstrap bool) error {
	byLocal := make(map[string]gasapi.File, len(remoteFiles))
	for _, rf := range remoteFiles {
		localPath, err := pathresolver.GasToLocal(rf.Name, rf.Type)
		if err != nil {
			return err
		}
		byLocal[localPath] = rf
	}

	for _, entry := range diff.Entries {
		switch entry.Kind {
		case Added, Modified:
			rf := byLocal[entry.Path]
			content, _ := unwrapIfNeeded(rf.Source, rf.Type)
			if err := mir.Write(entry.Path, []byte(content), rf.UpdateTime, rf.Type); err != nil {
				return err
			}
		case Deleted:
			if !opts.ConfirmDeletions || bootstrap || pathresolver.IsDotfile(entry.Path) {
				continue
			}
			if err := mir.Delete(entry.Path); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) computePush(ctx context.Context, mir *mirror.Mirror, remoteFiles []gasapi.File, localPaths map[string]bool, opts Options) (*Diff, error) {
	entries := make([]Entry, 0, len(localPaths))
	remoteByLocal := make(map[string]gasapi.File, len(remoteFiles))
	for _, rf := range remoteFiles {
		localPath, err := pathresolver.GasToLocal(rf.Name, rf.Type)
		if err != nil {
			return nil, err
		}
		remoteByLocal[localPath] = rf
	}

	for localPath := range localPaths {
		if !matches(localPath, opts) {
			continue
		}
		localContent, err := mir.Read(localPath)
		if err != nil {
			return nil, err
		}
		rf, found := remoteByLocal[localPath]
		if !found {
			entries = append(entries, Entry{Path: localPath, Kind: Added})
			continue
		}
		remoteContent, _ := unwrapIfNeeded(rf.Source, rf.Type)
		if mirror.ContentSHA256(localContent) != mirror.ContentSHA256([]byte(remoteContent)) {
			entries = append(entries, Entry{Path: localPath, Kind: Modified})
		}
	}

	for localPath := range remoteByLocal {
		if !matches(localPath, opts) {
			continue
		}
		if !localPaths[localPath] {
			entries = append(entries, Entry{Path: localPath, Kind: Deleted})
		}
	}

	sortEntries(entries)
	return &Diff{Entries: entries}, nil
}

func (e *Engine) applyPush(ctx context.Context, scriptID string, mir *mirror.Mirror, remoteFiles []gasapi.File, diff *Diff, opts Options, bootstrap bool) error {
	if len(diff.Entries) > 0 {
		if err := shim.EnsureInstalled(ctx, e.Client, scriptID); err != nil {
			return err
		}
	}

	remoteByName := make(map[string]gasapi.File, len(remoteFiles))
	for _, rf := range remoteFiles {
		remoteByName[rf.Name] = rf
	}

	for _, entry := range diff.Entries {
		name, fileType, err := pathresolver.LocalToGas(entry.Path)
		if err != nil {
			return err
		}

		switch entry.Kind {
		case Added, Modified:
			content, err := mir.Read(entry.Path)
			if err != nil {
				return err
			}
			existingOpts := wrapper.ModuleOptions{}
			if rf, found := remoteByName[name]; found {
				_, existingOpts = unwrapIfNeeded(rf.Source, rf.Type)
			}
			wrapped, err := wrapIfServerJSWithOpts(string(content), name, fileType, existingOpts)
			if err != nil {
				return err
			}
			if _, err := e.Client.UpdateFile(ctx, scriptID, gasapi.File{
				Name:   name,
				Type:   fileType,
				Source: wrapped,
			}, -1); err != nil {
				return err
			}
		case Deleted:
			if !opts.ConfirmDeletions || bootstrap || pathresolver.IsDotfile(entry.Path) {
				continue
			}
			if err := e.Client.DeleteFile(ctx, scriptID, name); err != nil {
				return err
			}
		}
	}
	return nil
}

func localFiles(mir *mirror.Mirror) (map[string]bool, error) {
	result := make(map[string]bool)
	root := mir.Dir()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if isInternalMirrorFile(rel) {
			return nil
		}
		result[rel] = true
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.New(errors.CodeInternal, "walking local mirror", err)
	}
	return result, nil
}

func isInternalMirrorFile(rel string) bool {
	base := filepath.Base(rel)
	switch {
	case base == ".mcp-ledger.json", base == ".lock", base == ".lock.state":
		return true
	case filepath.Ext(base) == ".json" && len(base) > len(".gas-meta.json") &&
		base[len(base)-len(".gas-meta.json"):] == ".gas-meta.json":
		return true
	default:
		return false
	}
}

func matches(localPath string, opts Options) bool {
	if len(opts.IncludeGlobs) > 0 {
		included := false
		for _, pattern := range opts.IncludeGlobs {
			if ok, _ := doublestar.Match(pattern, localPath); ok {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}
	for _, pattern := range opts.ExcludeGlobs {
		if ok, _ := doublestar.Match(pattern, localPath); ok {
			return false
		}
	}
	return true
}

func unwrapIfNeeded(source string, fileType pathresolver.FileType) (string, wrapper.ModuleOptions) {
	if fileType != pathresolver.TypeServerJS {
		return source, wrapper.ModuleOptions{}
	}
	body, opts, _ := wrapper.Unwrap(source)
	return body, opts
}

func wrapIfServerJSWithOpts(content, moduleName string, fileType pathresolver.FileType, opts wrapper.ModuleOptions) (string, error) {
	if fileType != pathresolver.TypeServerJS {
		return content, nil
	}
	return wrapper.Wrap(content, moduleName, opts)
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
}
