// Package wrapper implements the host-side SERVER_JS envelope transform:
// wrap embeds user source in the shim's _main(module, exports, require)
// factory; unwrap reverses it. Both are pure functions over strings.
package wrapper

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// HoistedFunction describes a top-level stub wrap() must emit outside
// _main so GAS custom functions (Sheets `=MYFN(...)`) can see it.
type HoistedFunction struct {
	Name   string   `json:"name"`
	Params []string `json:"params"`
	JSDoc  string   `json:"jsdoc,omitempty"`
}

// ModuleOptions is the per-file metadata wrap/unwrap must round-trip.
// A nil LoadNow means "omit": the caller must read-before-write to
// preserve whatever value the file already carried.
type ModuleOptions struct {
	LoadNow          *bool             `json:"loadNow,omitempty"`
	HoistedFunctions []HoistedFunction `json:"hoistedFunctions,omitempty"`
	HasEvents        bool              `json:"hasEvents,omitempty"`
}

const mainSignature = "function _main(module = globalThis.__getCurrentModule(),\n" +
	"               exports = module.exports,\n" +
	"               require = globalThis.require) {\n"

const optionsCommentPrefix = "// __mcp_options__ "

var defineModuleNameRe = regexp.MustCompile(`__defineModule__\(_main,\s*"([^"]*)"`)

// Wrap embeds userSource in the shim's module factory envelope, emitting
// hoisted-function stubs and an options comment the later unwrap call
// uses to recover ModuleOptions without re-parsing the factory body.
func Wrap(userSource, moduleName string, opts ModuleOptions) (string, error) {
	optionsJSON, err := json.Marshal(opts)
	if err != nil {
		return "", fmt.Errorf("marshal module options: %w", err)
	}

	var b strings.Builder
	b.WriteString(optionsCommentPrefix)
	b.Write(optionsJSON)
	b.WriteString("\n")

	for _, hf := range opts.HoistedFunctions {
		b.WriteString(hoistedStub(moduleName, hf))
		b.WriteString("\n")
	}

	b.WriteString(mainSignature)
	b.WriteString(userSource)
	b.WriteString("}\n")

	loadNow := opts.LoadNow != nil && *opts.LoadNow
	defineOptsJSON, _ := json.Marshal(map[string]bool{
		"loadNow":   loadNow,
		"hasEvents": opts.HasEvents,
	})
	fmt.Fprintf(&b, "__defineModule__(_main, %q, %s);\n", moduleName, defineOptsJSON)

	return b.String(), nil
}

func hoistedStub(moduleName string, hf HoistedFunction) string {
	params := strings.Join(hf.Params, ", ")
	var b strings.Builder
	if hf.JSDoc != "" {
		b.WriteString(hf.JSDoc)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "function %s(%s) {\n", hf.Name, params)
	fmt.Fprintf(&b, "  return require(%q).%s(%s);\n", moduleName, hf.Name, params)
	b.WriteString("}\n")
	return b.String()
}

// Unwrap reverses Wrap. If wrapped doesn't carry the exact envelope Wrap
// emits — a hand-authored file, or a system file like the shim itself —
// it is returned unchanged with matched=false. Unwrap is idempotent:
// Unwrap(Unwrap(x)) always equals Unwrap(x).
func Unwrap(wrapped string) (userSource string, opts ModuleOptions, matched bool) {
	mainStart := strings.Index(wrapped, mainSignature)
	if mainStart < 0 {
		return wrapped, ModuleOptions{}, false
	}

	bodyStart := mainStart + len(mainSignature)
	closeMarker := "}\n__defineModule__(_main"
	closeIdx := strings.Index(wrapped[bodyStart:], closeMarker)
	if closeIdx < 0 {
		return wrapped, ModuleOptions{}, false
	}

	body := wrapped[bodyStart : bodyStart+closeIdx] // exactly what Wrap appended before its own closing brace

	opts = parseOptionsComment(wrapped[:mainStart])
	return body, opts, true
}

func parseOptionsComment(prefix string) ModuleOptions {
	idx := strings.LastIndex(prefix, optionsCommentPrefix)
	if idx < 0 {
		return ModuleOptions{}
	}
	line := prefix[idx+len(optionsCommentPrefix):]
	if end := strings.IndexByte(line, '\n'); end >= 0 {
		line = line[:end]
	}

	var opts ModuleOptions
	if err := json.Unmarshal([]byte(line), &opts); err != nil {
		return ModuleOptions{}
	}
	return opts
}

// ModuleName extracts the name wrap() registered a factory under, for
// callers that only have the wrapped source and need to know which
// registry entry it corresponds to.
func ModuleName(wrapped string) (string, bool) {
	match := defineModuleNameRe.FindStringSubmatch(wrapped)
	if match == nil {
		return "", false
	}
	return match[1], true
}
