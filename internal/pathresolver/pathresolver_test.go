package pathresolver

import "testing"

func TestGasToLocalRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		fileType FileType
		wantPath string
	}{
		{"Server/Utils", TypeServerJS, "Server/Utils.js"},
		{"Page", TypeHTML, "Page.html"},
		{"appsscript", TypeJSON, "appsscript.json"},
		{"README", TypeHTML, "README.md"},
		{".gitignore", TypeServerJS, ".gitignore"},
	}

	for _, tc := range cases {
		local, err := GasToLocal(tc.name, tc.fileType)
		if err != nil {
			t.Fatalf("GasToLocal(%q, %q): unexpected error: %v", tc.name, tc.fileType, err)
		}
		if local != tc.wantPath {
			t.Errorf("GasToLocal(%q, %q) = %q, want %q", tc.name, tc.fileType, local, tc.wantPath)
		}

		name, fileType, err := LocalToGas(local)
		if err != nil {
			t.Fatalf("LocalToGas(%q): unexpected error: %v", local, err)
		}
		if name != tc.name || fileType != tc.fileType {
			t.Errorf("LocalToGas(%q) = (%q, %q), want (%q, %q)", local, name, fileType, tc.name, tc.fileType)
		}
	}
}

func TestLocalToGasDotfile(t *testing.T) {
	name, fileType, err := LocalToGas(".gitignore")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != ".gitignore" || fileType != TypeServerJS {
		t.Errorf("got (%q, %q), want (.gitignore, SERVER_JS)", name, fileType)
	}
}

func TestInferType(t *testing.T) {
	cases := []struct {
		localName string
		content   string
		want      FileType
	}{
		{"appsscript.json", "", TypeJSON},
		{"README.md", "", TypeHTML},
		{"Code.js", "", TypeServerJS},
		{"Index.html", "", TypeHTML},
		{"mystery", "<!DOCTYPE html><html></html>", TypeHTML},
		{"mystery", `{"a": 1}`, TypeJSON},
		{"mystery", "function doGet() {}", TypeServerJS},
	}
	for _, tc := range cases {
		got := InferType(tc.localName, []byte(tc.content))
		if got != tc.want {
			t.Errorf("InferType(%q, %q) = %q, want %q", tc.localName, tc.content, got, tc.want)
		}
	}
}

func TestValidateRejectsBadPaths(t *testing.T) {
	bad := []string{"", "/abs/path", "../escape", "a/../../b", "a\x00b"}
	for _, path := range bad {
		if err := Validate(path); err == nil {
			t.Errorf("Validate(%q): expected error, got nil", path)
		}
	}
}

func TestValidateAcceptsLegalPaths(t *testing.T) {
	good := []string{"Code.js", "Server/Utils.js", ".gitignore", "README.md"}
	for _, path := range good {
		if err := Validate(path); err != nil {
			t.Errorf("Validate(%q): unexpected error: %v", path, err)
		}
	}
}

func TestSplitLogical(t *testing.T) {
	dir, base := SplitLogical("Server/Utils/Format")
	if dir != "Server/Utils" || base != "Format" {
		t.Errorf("got (%q, %q), want (Server/Utils, Format)", dir, base)
	}

	dir, base = SplitLogical("Code")
	if dir != "" || base != "Code" {
		t.Errorf("got (%q, %q), want (\"\", Code)", dir, base)
	}
}

func TestIsDotfile(t *testing.T) {
	if !IsDotfile(".gitignore") {
		t.Error("expected .gitignore to be a dotfile")
	}
	if !IsDotfile("config/.env") {
		t.Error("expected config/.env to be a dotfile")
	}
	if IsDotfile("Code.js") {
		t.Error("expected Code.js to not be a dotfile")
	}
}
