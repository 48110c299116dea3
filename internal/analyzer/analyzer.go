// Package analyzer implements the static write analyzer: a best-effort
// scan over SERVER_JS source for simple-trigger entry points that a
// lazily-loaded CommonJS module would hide from GAS's global scope.
package analyzer

import (
	"regexp"

	"github.com/gas-mcp/gas-mcp-server/internal/wrapper"
)

// EntryPoints are the function names GAS recognizes as HTTP handlers or
// simple triggers only when they resolve on globalThis directly.
var EntryPoints = []string{"doGet", "doPost", "onOpen", "onEdit", "onInstall"}

var (
	blockCommentRe = regexp.MustCompile(`/\*[\s\S]*?\*/`)
	lineCommentRe  = regexp.MustCompile(`//[^\n]*`)
)

func stripComments(content string) string {
	content = blockCommentRe.ReplaceAllString(content, "")
	return lineCommentRe.ReplaceAllString(content, "")
}

// entryPointPattern matches a function declaration, a function/arrow
// expression assigned to name, or an object-literal method shorthand
// named name.
func entryPointPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(
		`function\s+` + name + `\s*\(` +
			`|(?:^|[.\s])` + name + `\s*=\s*(?:function\s*\(|\([^)]*\)\s*=>|\w+\s*=>|async)` +
			`|(?:^|[{,]\s*)` + name + `\s*\([^)]*\)\s*\{`,
	)
}

// AnalyzeWrite reports critical warnings for content that declares a
// simple-trigger entry point while opts.LoadNow is false or unset (its
// default): GAS only wires doGet/doPost/onOpen/onEdit/onInstall when
// they reach globalThis directly, which a module loaded lazily via
// require() never does on its own.
func AnalyzeWrite(content string, opts wrapper.ModuleOptions) []string {
	if opts.LoadNow != nil && *opts.LoadNow {
		return nil
	}
	stripped := stripComments(content)

	var warnings []string
	for _, name := range EntryPoints {
		if entryPointPattern(name).MatchString(stripped) {
			warnings = append(warnings, "critical: "+name+" is declared but moduleOptions.loadNow is false, "+
				"so GAS will not see it as a global entry point until something requires this module; "+
				"set moduleOptions.loadNow=true or expose it via hoistedFunctions")
		}
	}
	return warnings
}
