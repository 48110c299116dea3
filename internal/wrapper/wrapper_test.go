package wrapper

import (
	"strings"
	"testing"
)

func TestWrapUnwrapRoundTrip(t *testing.T) {
	userSource := "exports.greet = function() { return 'hi'; };"
	loadNow := true
	opts := ModuleOptions{LoadNow: &loadNow}

	wrapped, err := Wrap(userSource, "Greeter", opts)
	if err != nil {
		t.Fatalf("Wrap: unexpected error: %v", err)
	}

	body, gotOpts, matched := Unwrap(wrapped)
	if !matched {
		t.Fatalf("Unwrap did not recognize Wrap's own envelope")
	}
	if body != userSource {
		t.Errorf("Unwrap body = %q, want %q", body, userSource)
	}
	if gotOpts.LoadNow == nil || !*gotOpts.LoadNow {
		t.Errorf("expected LoadNow=true to round-trip, got %+v", gotOpts)
	}

	name, ok := ModuleName(wrapped)
	if !ok || name != "Greeter" {
		t.Errorf("ModuleName = (%q, %v), want (Greeter, true)", name, ok)
	}
}

func TestWrapUnwrapRoundTripNoTrailingNewline(t *testing.T) {
	userSource := "function add(a,b){return a+b;} module.exports={add};"

	wrapped, err := Wrap(userSource, "M", ModuleOptions{})
	if err != nil {
		t.Fatalf("Wrap: unexpected error: %v", err)
	}
	body, _, matched := Unwrap(wrapped)
	if !matched {
		t.Fatalf("Unwrap did not recognize Wrap's own envelope")
	}
	if body != userSource {
		t.Errorf("Unwrap(Wrap(s)) = %q, want exact input %q", body, userSource)
	}
}

func TestWrapUnwrapRoundTripEmptySource(t *testing.T) {
	wrapped, err := Wrap("", "M", ModuleOptions{})
	if err != nil {
		t.Fatalf("Wrap: unexpected error: %v", err)
	}
	body, _, matched := Unwrap(wrapped)
	if !matched {
		t.Fatalf("Unwrap did not recognize Wrap's own envelope")
	}
	if body != "" {
		t.Errorf("Unwrap(Wrap(\"\")) = %q, want empty string", body)
	}
}

func TestUnwrapUnmatchedReturnsUnchanged(t *testing.T) {
	raw := "function doGet() { return 'plain'; }"
	body, opts, matched := Unwrap(raw)
	if matched {
		t.Error("expected no match for a hand-authored file")
	}
	if body != raw {
		t.Errorf("expected unchanged source, got %q", body)
	}
	if opts.LoadNow != nil {
		t.Errorf("expected zero-value options, got %+v", opts)
	}
}

func TestUnwrapIsIdempotent(t *testing.T) {
	wrapped, err := Wrap("exports.x = 1;", "M", ModuleOptions{})
	if err != nil {
		t.Fatalf("Wrap: unexpected error: %v", err)
	}
	once, _, _ := Unwrap(wrapped)
	twice, _, _ := Unwrap(once)
	if once != twice {
		t.Errorf("Unwrap not idempotent: once=%q twice=%q", once, twice)
	}
}

func TestWrapEmitsHoistedStubs(t *testing.T) {
	opts := ModuleOptions{
		HoistedFunctions: []HoistedFunction{{Name: "MYFN", Params: []string{"a", "b"}}},
	}
	wrapped, err := Wrap("exports.MYFN = function(a, b) { return a + b; };", "Fns", opts)
	if err != nil {
		t.Fatalf("Wrap: unexpected error: %v", err)
	}
	if !strings.Contains(wrapped, "function MYFN(a, b)") {
		t.Errorf("expected hoisted stub in wrapped source, got %q", wrapped)
	}

	_, gotOpts, matched := Unwrap(wrapped)
	if !matched {
		t.Fatal("expected match")
	}
	if len(gotOpts.HoistedFunctions) != 1 || gotOpts.HoistedFunctions[0].Name != "MYFN" {
		t.Errorf("hoisted functions did not round-trip: %+v", gotOpts.HoistedFunctions)
	}
}

func TestReadmeMappingRoundTrip(t *testing.T) {
	var m ReadmeMapping
	markdown := "# Title\n\nSome --> arrow in text.\n"

	html := m.ToHTML(markdown)
	got, ok := m.ToMarkdown(html)
	if !ok {
		t.Fatal("expected ToMarkdown to recognize ToHTML's output")
	}
	if got != markdown {
		t.Errorf("ReadmeMapping round trip = %q, want %q", got, markdown)
	}
}

func TestReadmeMappingToMarkdownUnrecognized(t *testing.T) {
	var m ReadmeMapping
	_, ok := m.ToMarkdown("<html><body>plain</body></html>")
	if ok {
		t.Error("expected ok=false for HTML not produced by ToHTML")
	}
}
