package wrapper

import "strings"

// ReadmeMapping is the small explicit table that lets README round-trip
// between the local Markdown form and the HTML GAS actually stores it
// as. The transform is lossless: the Markdown is embedded verbatim in an
// HTML comment, so ToHTML/ToMarkdown is an exact inverse pair.
type ReadmeMapping struct{}

const readmeMarkerOpen = "<!-- gas-mcp:readme:markdown"
const readmeMarkerClose = "-->"

// ToHTML wraps Markdown content in the HTML shell GAS stores README as.
func (ReadmeMapping) ToHTML(markdown string) string {
	var b strings.Builder
	b.WriteString(readmeMarkerOpen)
	b.WriteString("\n")
	b.WriteString(escapeComment(markdown))
	b.WriteString("\n")
	b.WriteString(readmeMarkerClose)
	b.WriteString("\n")
	return b.String()
}

// ToMarkdown recovers the original Markdown from HTML produced by ToHTML.
// If html wasn't produced by ToHTML, ok is false and ToMarkdown returns
// the HTML unchanged so callers can still surface something readable.
func (ReadmeMapping) ToMarkdown(html string) (markdown string, ok bool) {
	start := strings.Index(html, readmeMarkerOpen)
	if start < 0 {
		return html, false
	}
	contentStart := start + len(readmeMarkerOpen)
	end := strings.Index(html[contentStart:], readmeMarkerClose)
	if end < 0 {
		return html, false
	}
	raw := html[contentStart : contentStart+end]
	raw = strings.TrimPrefix(raw, "\n")
	raw = strings.TrimSuffix(raw, "\n")
	return unescapeComment(raw), true
}

// escapeComment neutralizes "-->" sequences inside markdown so they can't
// terminate the HTML comment early.
func escapeComment(markdown string) string {
	return strings.ReplaceAll(markdown, "-->", "--\\>")
}

func unescapeComment(escaped string) string {
	return strings.ReplaceAll(escaped, "--\\>", "-->")
}
