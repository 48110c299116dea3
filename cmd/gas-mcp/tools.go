package main

import (
	"context"

	"github.com/gas-mcp/gas-mcp-server/internal/analyzer"
	"github.com/gas-mcp/gas-mcp-server/internal/deploy"
	"github.com/gas-mcp/gas-mcp-server/internal/errors"
	"github.com/gas-mcp/gas-mcp-server/internal/gasapi"
	"github.com/gas-mcp/gas-mcp-server/internal/mcpserver"
	"github.com/gas-mcp/gas-mcp-server/internal/mirror"
	"github.com/gas-mcp/gas-mcp-server/internal/orchestrator"
	"github.com/gas-mcp/gas-mcp-server/internal/pathresolver"
	"github.com/gas-mcp/gas-mcp-server/internal/rsync"
	"github.com/gas-mcp/gas-mcp-server/internal/shim"
	"github.com/gas-mcp/gas-mcp-server/internal/strategy"
	"github.com/gas-mcp/gas-mcp-server/internal/wrapper"
)

// toolset holds every engine a Descriptor handler needs; building it
// once in main and closing over it keeps each handler a short, direct
// translation from params to an engine call.
type toolset struct {
	client   gasapi.Client
	orch     *orchestrator.Manager
	rsync    *rsync.Engine
	deploy   *deploy.Manager
	reposDir string
}

func (a *toolset) descriptors() []mcpserver.Descriptor {
	return []mcpserver.Descriptor{
		a.catDescriptor(),
		a.writeDescriptor(),
		a.editDescriptor(),
		a.aiderDescriptor(),
		a.cpDescriptor(),
		a.mvDescriptor(),
		a.rmDescriptor(),
		a.lsDescriptor(),
		a.fileStatusDescriptor(),
		a.execDescriptor(),
		a.rsyncDescriptor(),
		a.deployDescriptor(),
	}
}

// moduleOptionsSchema describes the wrap-time metadata a caller may set
// or override on a write/edit/aider/cp/mv call: whether the module loads
// eagerly at startup, which of its exports get top-level hoisted stubs
// for Sheets custom functions, and whether it registers simple-trigger
// event handlers.
var moduleOptionsSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"loadNow":   map[string]any{"type": "boolean"},
		"hasEvents": map[string]any{"type": "boolean"},
		"hoistedFunctions": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"name"},
				"properties": map[string]any{
					"name":   map[string]any{"type": "string"},
					"params": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"jsdoc":  map[string]any{"type": "string"},
				},
			},
		},
	},
}

// --- param helpers -------------------------------------------------

func requireString(params map[string]interface{}, key string) (string, error) {
	raw, ok := params[key]
	if !ok {
		return "", errors.New(errors.CodeValidation, "missing required param "+key, nil)
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", errors.New(errors.CodeValidation, "param "+key+" must be a non-empty string", nil)
	}
	return s, nil
}

func optString(params map[string]interface{}, key string) string {
	if raw, ok := params[key]; ok {
		if s, ok := raw.(string); ok {
			return s
		}
	}
	return ""
}

func optBool(params map[string]interface{}, key string) bool {
	if raw, ok := params[key]; ok {
		if b, ok := raw.(bool); ok {
			return b
		}
	}
	return false
}

func optFloat(params map[string]interface{}, key string) (float64, bool) {
	if raw, ok := params[key]; ok {
		if f, ok := raw.(float64); ok {
			return f, true
		}
	}
	return 0, false
}

// optModuleOptions decodes an optional moduleOptions object param into a
// *wrapper.ModuleOptions override. Returns nil when the param is absent,
// so callers preserve whatever the existing file already carried.
func optModuleOptions(params map[string]interface{}, key string) *wrapper.ModuleOptions {
	raw, ok := params[key]
	if !ok {
		return nil
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}

	opts := wrapper.ModuleOptions{}
	if loadNow, ok := m["loadNow"].(bool); ok {
		opts.LoadNow = &loadNow
	}
	if hasEvents, ok := m["hasEvents"].(bool); ok {
		opts.HasEvents = hasEvents
	}
	if rawFns, ok := m["hoistedFunctions"].([]interface{}); ok {
		for _, rawFn := range rawFns {
			fn, ok := rawFn.(map[string]interface{})
			if !ok {
				continue
			}
			name, _ := fn["name"].(string)
			if name == "" {
				continue
			}
			jsdoc, _ := fn["jsdoc"].(string)
			hf := wrapper.HoistedFunction{Name: name, JSDoc: jsdoc}
			if rawParams, ok := fn["params"].([]interface{}); ok {
				for _, p := range rawParams {
					if s, ok := p.(string); ok {
						hf.Params = append(hf.Params, s)
					}
				}
			}
			opts.HoistedFunctions = append(opts.HoistedFunctions, hf)
		}
	}
	return &opts
}

func optStringSlice(params map[string]interface{}, key string) []string {
	raw, ok := params[key]
	if !ok {
		return nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// --- cat -------------------------------------------------------------

func (a *toolset) catDescriptor() mcpserver.Descriptor {
	return mcpserver.Descriptor{
		Name:        "cat",
		Description: "Read one file's content, unwrapped for SERVER_JS, from the local mirror or remote project.",
		Mode:        mcpserver.ModeSmart,
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"scriptId", "path"},
			"properties": map[string]any{
				"scriptId": map[string]any{"type": "string"},
				"path":     map[string]any{"type": "string"},
			},
		},
		Execute: func(ctx context.Context, params map[string]interface{}) (any, error) {
			scriptID, err := requireString(params, "scriptId")
			if err != nil {
				return nil, err
			}
			path, err := requireString(params, "path")
			if err != nil {
				return nil, err
			}

			name, _, err := pathresolver.LocalToGas(path)
			if err != nil {
				return nil, err
			}
			files, err := a.client.ListContent(ctx, scriptID)
			if err != nil {
				return nil, err
			}
			file, found := findFile(files, name)
			if !found {
				return nil, errors.New(errors.CodeNotFound, "no such file", nil).WithContext("path", path)
			}

			mir, err := mirror.New(a.reposDir, scriptID)
			if err != nil {
				return nil, err
			}
			body, _, _ := wrapper.Unwrap(file.Source)
			source := "remote"
			if file.Type != pathresolver.TypeServerJS {
				body = file.Source
			}
			if valid, _ := mir.IsFastPathValid(path, file.UpdateTime); valid {
				if cached, err := mir.Read(path); err == nil {
					body = string(cached)
					source = "cache"
				}
			} else {
				_ = mir.Write(path, []byte(body), file.UpdateTime, file.Type)
			}

			return map[string]any{
				"content":  body,
				"fileType": string(file.Type),
				"source":   source,
			}, nil
		},
	}
}

func findFile(files []gasapi.File, name string) (gasapi.File, bool) {
	for _, f := range files {
		if f.Name == name {
			return f, true
		}
	}
	return gasapi.File{}, false
}

// analyzeRemote re-reads path's current remote content and runs the
// static write analyzer against it. It is best-effort: any lookup
// failure yields no warnings rather than failing the calling tool,
// since the write or edit it follows already succeeded.
func (a *toolset) analyzeRemote(ctx context.Context, scriptID, path string) []string {
	name, _, err := pathresolver.LocalToGas(path)
	if err != nil {
		return nil
	}
	files, err := a.client.ListContent(ctx, scriptID)
	if err != nil {
		return nil
	}
	file, found := findFile(files, name)
	if !found || file.Type != pathresolver.TypeServerJS {
		return nil
	}
	body, opts, _ := wrapper.Unwrap(file.Source)
	return analyzer.AnalyzeWrite(body, opts)
}

// --- write -------------------------------------------------------------

func (a *toolset) writeDescriptor() mcpserver.Descriptor {
	return mcpserver.Descriptor{
		Name:        "write",
		Description: "Upsert a single file's content, wrapping SERVER_JS and routing through GitOperationManager.",
		Mode:        mcpserver.ModeSmart,
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"scriptId", "path", "content"},
			"properties": map[string]any{
				"scriptId":      map[string]any{"type": "string"},
				"path":          map[string]any{"type": "string"},
				"content":       map[string]any{"type": "string"},
				"fileType":      map[string]any{"type": "string"},
				"moduleOptions": moduleOptionsSchema,
				"changeReason":  map[string]any{"type": "string"},
			},
		},
		Execute: func(ctx context.Context, params map[string]interface{}) (any, error) {
			scriptID, err := requireString(params, "scriptId")
			if err != nil {
				return nil, err
			}
			path, err := requireString(params, "path")
			if err != nil {
				return nil, err
			}
			content, err := requireString(params, "content")
			if err != nil {
				return nil, err
			}

			strat := &strategy.Write{
				Client:        a.client,
				ScriptID:      scriptID,
				Path:          path,
				Content:       content,
				FileType:      pathresolver.FileType(optString(params, "fileType")),
				ModuleOptions: optModuleOptions(params, "moduleOptions"),
				ChangeReason:  optString(params, "changeReason"),
			}
			result, err := a.orch.Execute(ctx, scriptID, "write", strat)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"success":  true,
				"path":     path,
				"git":      gitHint(result),
				"warnings": a.analyzeRemote(ctx, scriptID, path),
			}, nil
		},
	}
}

func gitHint(result *orchestrator.Result) map[string]any {
	return map[string]any{
		"branch":      result.Branch,
		"uncommitted": 0,
		"files":       result.AffectedFiles,
		"blocked":     false,
		"action":      "finish",
	}
}

// --- edit -------------------------------------------------------------

func (a *toolset) editDescriptor() mcpserver.Descriptor {
	return mcpserver.Descriptor{
		Name:        "edit",
		Description: "Exact find/replace within one file via GitOperationManager.",
		Mode:        mcpserver.ModeSmart,
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"scriptId", "path", "searchText", "replaceText"},
			"properties": map[string]any{
				"scriptId":      map[string]any{"type": "string"},
				"path":          map[string]any{"type": "string"},
				"searchText":    map[string]any{"type": "string"},
				"replaceText":   map[string]any{"type": "string"},
				"replaceAll":    map[string]any{"type": "boolean"},
				"moduleOptions": moduleOptionsSchema,
			},
		},
		Execute: func(ctx context.Context, params map[string]interface{}) (any, error) {
			scriptID, err := requireString(params, "scriptId")
			if err != nil {
				return nil, err
			}
			path, err := requireString(params, "path")
			if err != nil {
				return nil, err
			}
			searchText, err := requireString(params, "searchText")
			if err != nil {
				return nil, err
			}
			replaceText := optString(params, "replaceText")

			strat := &strategy.Edit{
				Client:        a.client,
				ScriptID:      scriptID,
				Path:          path,
				SearchText:    searchText,
				ReplaceText:   replaceText,
				ReplaceAll:    optBool(params, "replaceAll"),
				ModuleOptions: optModuleOptions(params, "moduleOptions"),
				ChangeReason:  optString(params, "changeReason"),
			}
			result, err := a.orch.Execute(ctx, scriptID, "edit", strat)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"success":  true,
				"path":     path,
				"git":      gitHint(result),
				"warnings": a.analyzeRemote(ctx, scriptID, path),
			}, nil
		},
	}
}

// --- aider -------------------------------------------------------------

func (a *toolset) aiderDescriptor() mcpserver.Descriptor {
	return mcpserver.Descriptor{
		Name:        "aider",
		Description: "Fuzzy find/replace batch within one file, matched by normalized Levenshtein similarity.",
		Mode:        mcpserver.ModeSmart,
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"scriptId", "path", "edits"},
			"properties": map[string]any{
				"scriptId":      map[string]any{"type": "string"},
				"path":          map[string]any{"type": "string"},
				"edits":         map[string]any{"type": "array"},
				"moduleOptions": moduleOptionsSchema,
			},
		},
		Execute: func(ctx context.Context, params map[string]interface{}) (any, error) {
			scriptID, err := requireString(params, "scriptId")
			if err != nil {
				return nil, err
			}
			path, err := requireString(params, "path")
			if err != nil {
				return nil, err
			}
			rawEdits, _ := params["edits"].([]interface{})
			if len(rawEdits) == 0 {
				return nil, errors.New(errors.CodeValidation, "edits must be a non-empty array", nil)
			}
			edits := make([]strategy.AiderEdit, 0, len(rawEdits))
			for _, raw := range rawEdits {
				m, ok := raw.(map[string]interface{})
				if !ok {
					return nil, errors.New(errors.CodeValidation, "each edit must be an object", nil)
				}
				search, err := requireString(m, "searchText")
				if err != nil {
					return nil, err
				}
				threshold, _ := optFloat(m, "similarityThreshold")
				edits = append(edits, strategy.AiderEdit{
					SearchText:          search,
					ReplaceText:         optString(m, "replaceText"),
					SimilarityThreshold: threshold,
				})
			}

			strat := &strategy.Aider{
				Client:        a.client,
				ScriptID:      scriptID,
				Path:          path,
				Edits:         edits,
				ModuleOptions: optModuleOptions(params, "moduleOptions"),
				ChangeReason:  optString(params, "changeReason"),
			}
			result, err := a.orch.Execute(ctx, scriptID, "aider", strat)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"success":  true,
				"path":     path,
				"git":      gitHint(result),
				"warnings": a.analyzeRemote(ctx, scriptID, path),
			}, nil
		},
	}
}

// --- cp / mv / rm -------------------------------------------------------

func (a *toolset) cpDescriptor() mcpserver.Descriptor {
	return mcpserver.Descriptor{
		Name:        "cp",
		Description: "Copy a file within a project, preserving its type and moduleOptions onto the destination.",
		Mode:        mcpserver.ModeSmart,
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"scriptId", "from", "to"},
			"properties": map[string]any{
				"scriptId":      map[string]any{"type": "string"},
				"from":          map[string]any{"type": "string"},
				"to":            map[string]any{"type": "string"},
				"overwrite":     map[string]any{"type": "boolean"},
				"moduleOptions": moduleOptionsSchema,
			},
		},
		Execute: func(ctx context.Context, params map[string]interface{}) (any, error) {
			scriptID, err := requireString(params, "scriptId")
			if err != nil {
				return nil, err
			}
			from, err := requireString(params, "from")
			if err != nil {
				return nil, err
			}
			to, err := requireString(params, "to")
			if err != nil {
				return nil, err
			}
			strat := &strategy.Copy{
				Client:        a.client,
				ScriptID:      scriptID,
				SourcePath:    from,
				DestPath:      to,
				Overwrite:     optBool(params, "overwrite"),
				ModuleOptions: optModuleOptions(params, "moduleOptions"),
				ChangeReason:  optString(params, "changeReason"),
			}
			result, err := a.orch.Execute(ctx, scriptID, "cp", strat)
			if err != nil {
				return nil, err
			}
			return map[string]any{"success": true, "path": to, "git": gitHint(result)}, nil
		},
	}
}

func (a *toolset) mvDescriptor() mcpserver.Descriptor {
	return mcpserver.Descriptor{
		Name:        "mv",
		Description: "Rename a file within a project.",
		Mode:        mcpserver.ModeSmart,
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"scriptId", "from", "to"},
			"properties": map[string]any{
				"scriptId":      map[string]any{"type": "string"},
				"from":          map[string]any{"type": "string"},
				"to":            map[string]any{"type": "string"},
				"overwrite":     map[string]any{"type": "boolean"},
				"moduleOptions": moduleOptionsSchema,
			},
		},
		Execute: func(ctx context.Context, params map[string]interface{}) (any, error) {
			scriptID, err := requireString(params, "scriptId")
			if err != nil {
				return nil, err
			}
			from, err := requireString(params, "from")
			if err != nil {
				return nil, err
			}
			to, err := requireString(params, "to")
			if err != nil {
				return nil, err
			}
			strat := &strategy.Move{
				Client:        a.client,
				ScriptID:      scriptID,
				SourcePath:    from,
				DestPath:      to,
				Overwrite:     optBool(params, "overwrite"),
				ModuleOptions: optModuleOptions(params, "moduleOptions"),
				ChangeReason:  optString(params, "changeReason"),
			}
			result, err := a.orch.Execute(ctx, scriptID, "mv", strat)
			if err != nil {
				return nil, err
			}
			return map[string]any{"success": true, "path": to, "git": gitHint(result)}, nil
		},
	}
}

func (a *toolset) rmDescriptor() mcpserver.Descriptor {
	return mcpserver.Descriptor{
		Name:        "rm",
		Description: "Delete a file from a project.",
		Mode:        mcpserver.ModeSmart,
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"scriptId", "path"},
			"properties": map[string]any{
				"scriptId": map[string]any{"type": "string"},
				"path":     map[string]any{"type": "string"},
			},
		},
		Execute: func(ctx context.Context, params map[string]interface{}) (any, error) {
			scriptID, err := requireString(params, "scriptId")
			if err != nil {
				return nil, err
			}
			path, err := requireString(params, "path")
			if err != nil {
				return nil, err
			}
			strat := &strategy.Delete{
				Client:       a.client,
				ScriptID:     scriptID,
				Path:         path,
				ChangeReason: optString(params, "changeReason"),
			}
			result, err := a.orch.Execute(ctx, scriptID, "rm", strat)
			if err != nil {
				return nil, err
			}
			return map[string]any{"success": true, "path": path, "git": gitHint(result)}, nil
		},
	}
}

// --- ls / file_status ----------------------------------------------------

func (a *toolset) lsDescriptor() mcpserver.Descriptor {
	return mcpserver.Descriptor{
		Name:        "ls",
		Description: "List a project's files, optionally with git-sha1 checksums.",
		Mode:        mcpserver.ModeSmart,
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"scriptId"},
			"properties": map[string]any{
				"scriptId":   map[string]any{"type": "string"},
				"path":       map[string]any{"type": "string"},
				"checksums":  map[string]any{"type": "boolean"},
			},
		},
		Execute: func(ctx context.Context, params map[string]interface{}) (any, error) {
			scriptID, err := requireString(params, "scriptId")
			if err != nil {
				return nil, err
			}
			prefix := optString(params, "path")
			withChecksums := optBool(params, "checksums")

			files, err := a.client.ListContent(ctx, scriptID)
			if err != nil {
				return nil, err
			}
			type entry struct {
				Name       string `json:"name"`
				Type       string `json:"type"`
				Size       int    `json:"size"`
				UpdateTime string `json:"updateTime"`
				GitSha1    string `json:"gitSha1,omitempty"`
			}
			out := make([]entry, 0, len(files))
			for _, f := range files {
				localPath, err := pathresolver.GasToLocal(f.Name, f.Type)
				if err != nil {
					continue
				}
				if prefix != "" && !hasPathPrefix(localPath, prefix) {
					continue
				}
				body, _, _ := wrapper.Unwrap(f.Source)
				if f.Type != pathresolver.TypeServerJS {
					body = f.Source
				}
				e := entry{
					Name:       localPath,
					Type:       string(f.Type),
					Size:       len(body),
					UpdateTime: f.UpdateTime,
				}
				if withChecksums {
					e.GitSha1 = mirror.GitBlobSHA1([]byte(body))
				}
				out = append(out, e)
			}
			return map[string]any{"files": out}, nil
		},
	}
}

func hasPathPrefix(path, prefix string) bool {
	if len(path) < len(prefix) {
		return false
	}
	return path[:len(prefix)] == prefix
}

func (a *toolset) fileStatusDescriptor() mcpserver.Descriptor {
	return mcpserver.Descriptor{
		Name:        "file_status",
		Description: "Report hashes for a set of paths, for drift detection against an external copy.",
		Mode:        mcpserver.ModeSmart,
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"scriptId", "paths"},
			"properties": map[string]any{
				"scriptId": map[string]any{"type": "string"},
				"paths":    map[string]any{"type": "array"},
			},
		},
		Execute: func(ctx context.Context, params map[string]interface{}) (any, error) {
			scriptID, err := requireString(params, "scriptId")
			if err != nil {
				return nil, err
			}
			paths := optStringSlice(params, "paths")
			if len(paths) == 0 {
				return nil, errors.New(errors.CodeValidation, "paths must be a non-empty array", nil)
			}
			files, err := a.client.ListContent(ctx, scriptID)
			if err != nil {
				return nil, err
			}
			byLocal := make(map[string]gasapi.File, len(files))
			for _, f := range files {
				if localPath, err := pathresolver.GasToLocal(f.Name, f.Type); err == nil {
					byLocal[localPath] = f
				}
			}

			type status struct {
				Path     string `json:"path"`
				Found    bool   `json:"found"`
				GitSha1  string `json:"gitSha1,omitempty"`
				Sha256   string `json:"sha256,omitempty"`
			}
			out := make([]status, 0, len(paths))
			for _, p := range paths {
				f, found := byLocal[p]
				if !found {
					out = append(out, status{Path: p, Found: false})
					continue
				}
				body, _, _ := wrapper.Unwrap(f.Source)
				if f.Type != pathresolver.TypeServerJS {
					body = f.Source
				}
				out = append(out, status{
					Path:    p,
					Found:   true,
					GitSha1: mirror.GitBlobSHA1([]byte(body)),
					Sha256:  mirror.ContentSHA256([]byte(body)),
				})
			}
			return map[string]any{"files": out}, nil
		},
	}
}

// --- exec -------------------------------------------------------------

func (a *toolset) execDescriptor() mcpserver.Descriptor {
	return mcpserver.Descriptor{
		Name:        "exec",
		Description: "Execute an ad-hoc JS statement in the project's HEAD deployment through the exec bootstrap module.",
		Mode:        mcpserver.ModeRaw,
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"scriptId", "js_statement"},
			"properties": map[string]any{
				"scriptId":     map[string]any{"type": "string"},
				"js_statement": map[string]any{"type": "string"},
			},
		},
		Execute: func(ctx context.Context, params map[string]interface{}) (any, error) {
			scriptID, err := requireString(params, "scriptId")
			if err != nil {
				return nil, err
			}
			statement, err := requireString(params, "js_statement")
			if err != nil {
				return nil, err
			}
			if err := shim.EnsureInstalled(ctx, a.client, scriptID); err != nil {
				return nil, err
			}
			res, err := a.client.Execute(ctx, scriptID, shim.ExecFunctionName, []interface{}{statement})
			if err != nil {
				return nil, err
			}
			if res.ExecutionError != "" {
				return map[string]any{
					"success":        false,
					"logger_output":  res.LoggerOutput,
					"execution_type": "error",
					"error":          res.ExecutionError,
				}, nil
			}
			return map[string]any{
				"success":        true,
				"result":         res.Result,
				"logger_output":  res.LoggerOutput,
				"execution_type": "value",
			}, nil
		},
	}
}

// --- rsync ---------------------------------------------------------------

func (a *toolset) rsyncDescriptor() mcpserver.Descriptor {
	return mcpserver.Descriptor{
		Name:        "rsync",
		Description: "Diff and optionally sync a project's files against its local mirror, pull or push.",
		Mode:        mcpserver.ModeSmart,
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"scriptId", "direction"},
			"properties": map[string]any{
				"scriptId":          map[string]any{"type": "string"},
				"direction":         map[string]any{"type": "string", "enum": []string{"pull", "push"}},
				"dryrun":            map[string]any{"type": "boolean"},
				"confirmDeletions":  map[string]any{"type": "boolean"},
				"includeGlobs":      map[string]any{"type": "array"},
				"excludeGlobs":      map[string]any{"type": "array"},
			},
		},
		Execute: func(ctx context.Context, params map[string]interface{}) (any, error) {
			scriptID, err := requireString(params, "scriptId")
			if err != nil {
				return nil, err
			}
			directionStr, err := requireString(params, "direction")
			if err != nil {
				return nil, err
			}
			var direction rsync.Direction
			switch directionStr {
			case "pull":
				direction = rsync.Pull
			case "push":
				direction = rsync.Push
			default:
				return nil, errors.New(errors.CodeValidation, "direction must be pull or push", nil).
					WithContext("direction", directionStr)
			}

			diff, err := a.rsync.Sync(ctx, scriptID, direction, rsync.Options{
				Dryrun:           optBool(params, "dryrun"),
				ConfirmDeletions: optBool(params, "confirmDeletions"),
				IncludeGlobs:     optStringSlice(params, "includeGlobs"),
				ExcludeGlobs:     optStringSlice(params, "excludeGlobs"),
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"entries":          diff.Entries,
				"applied":          diff.Applied,
				"deletionsBlocked": diff.DeletionsBlocked,
			}, nil
		},
	}
}

// --- deploy ---------------------------------------------------------------

func (a *toolset) deployDescriptor() mcpserver.Descriptor {
	return mcpserver.Descriptor{
		Name:        "deploy",
		Description: "Promote, roll back, inspect, or reset a project's dev/staging/prod deployments.",
		Mode:        mcpserver.ModeSmart,
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"scriptId", "operation"},
			"properties": map[string]any{
				"scriptId":    map[string]any{"type": "string"},
				"operation":   map[string]any{"type": "string", "enum": []string{"promote", "rollback", "status", "reset"}},
				"environment": map[string]any{"type": "string", "enum": []string{"dev", "staging", "prod"}},
				"description": map[string]any{"type": "string"},
				"toVersion":   map[string]any{"type": "integer"},
			},
		},
		Execute: func(ctx context.Context, params map[string]interface{}) (any, error) {
			scriptID, err := requireString(params, "scriptId")
			if err != nil {
				return nil, err
			}
			operation, err := requireString(params, "operation")
			if err != nil {
				return nil, err
			}

			switch operation {
			case "status":
				return a.deploy.Status(ctx, scriptID)
			case "reset":
				return a.deploy.Reset(ctx, scriptID)
			case "promote":
				env, err := parseEnv(optString(params, "environment"))
				if err != nil {
					return nil, err
				}
				return a.deploy.Promote(ctx, scriptID, env, optString(params, "description"))
			case "rollback":
				env, err := parseEnv(optString(params, "environment"))
				if err != nil {
					return nil, err
				}
				var toVersion *int64
				if f, ok := optFloat(params, "toVersion"); ok {
					v := int64(f)
					toVersion = &v
				}
				return a.deploy.Rollback(ctx, scriptID, env, toVersion)
			default:
				return nil, errors.New(errors.CodeValidation, "unknown deploy operation", nil).
					WithContext("operation", operation)
			}
		},
	}
}

func parseEnv(raw string) (deploy.Env, error) {
	switch raw {
	case "dev":
		return deploy.EnvDev, nil
	case "staging":
		return deploy.EnvStaging, nil
	case "prod":
		return deploy.EnvProd, nil
	default:
		return "", errors.New(errors.CodeValidation, "environment must be dev, staging, or prod", nil).
			WithContext("environment", raw)
	}
}
