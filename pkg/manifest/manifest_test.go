package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/deptree/pkg/deptree"
	"github.com/matzehuels/deptree/pkg/errors"
)

func TestParse(t *testing.T) {
	content := `{
		"name": "my-app",
		"version": "1.0.0",
		"dependencies": {"react": "^18.2.0", "axios": "1.6.0", "lodash": "~4.17.21"},
		"devDependencies": {"jest": "^29.0.0", "weird": {"not": "a string"}},
		"peerDependencies": {"react-dom": ">=18"}
	}`

	m, err := Parse([]byte(content))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if m.Name != "my-app" || m.Version != "1.0.0" {
		t.Errorf("got %s@%s", m.Name, m.Version)
	}

	want := []deptree.Request{
		{Name: "react", Version: "^18.2.0"},
		{Name: "axios", Version: "1.6.0"},
		{Name: "lodash", Version: "~4.17.21"},
		{Name: "jest", Version: "^29.0.0", IsDev: true},
		{Name: "react-dom", Version: ">=18", IsPeer: true},
	}
	if len(m.Requests) != len(want) {
		t.Fatalf("got %d requests, want %d: %+v", len(m.Requests), len(want), m.Requests)
	}
	for i := range want {
		if m.Requests[i] != want[i] {
			t.Errorf("request[%d] = %+v, want %+v", i, m.Requests[i], want[i])
		}
	}
}

func TestParse_NoDependencies(t *testing.T) {
	m, err := Parse([]byte(`{"name": "empty"}`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if m.Requests == nil || len(m.Requests) != 0 {
		t.Errorf("Requests = %v, want empty non-nil", m.Requests)
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{`{not json`, `[]`, `"str"`} {
		_, err := Parse([]byte(in))
		if !errors.Is(err, errors.ErrCodeInvalidManifest) {
			t.Errorf("Parse(%q) error = %v, want INVALID_MANIFEST", in, err)
		}
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "package.json")
	if err := os.WriteFile(path, []byte(`{"dependencies":{"a":"1.0.0"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if len(m.Requests) != 1 || m.Requests[0].Name != "a" {
		t.Errorf("Requests = %+v", m.Requests)
	}

	if _, err := ReadFile(filepath.Join(dir, "missing.json")); !errors.Is(err, errors.ErrCodeInvalidManifest) {
		t.Errorf("missing file error = %v", err)
	}
}

func TestSupports(t *testing.T) {
	tests := map[string]bool{
		"package.json":        true,
		"./web/package.json":  true,
		`C:\app\Package.JSON`: true,
		"package-lock.json":   false,
		"requirements.txt":    false,
	}
	for in, want := range tests {
		if got := Supports(in); got != want {
			t.Errorf("Supports(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseSpec(t *testing.T) {
	tests := []struct {
		arg         string
		wantName    string
		wantVersion string
		wantErr     bool
	}{
		{"express@4.18.2", "express", "4.18.2", false},
		{"express", "express", "latest", false},
		{"@babel/core@7.24.0", "@babel/core", "7.24.0", false},
		{"@babel/core", "@babel/core", "latest", false},
		{"lodash@^4.17.0", "lodash", "^4.17.0", false},
		{"  react@18.2.0 ", "react", "18.2.0", false},
		{"express@", "", "", true},
		{"", "", "", true},
		{"../x@1.0.0", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			r, err := ParseSpec(tt.arg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSpec(%q) error = %v, wantErr %v", tt.arg, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if r.Name != tt.wantName || r.Version != tt.wantVersion {
				t.Errorf("ParseSpec(%q) = %s@%s, want %s@%s", tt.arg, r.Name, r.Version, tt.wantName, tt.wantVersion)
			}
		})
	}
}

func TestParseSpecs(t *testing.T) {
	reqs, err := ParseSpecs([]string{"jest@29.0.0", "mocha"}, true, false)
	if err != nil {
		t.Fatalf("ParseSpecs() error: %v", err)
	}
	if len(reqs) != 2 || !reqs[0].IsDev || !reqs[1].IsDev || reqs[1].Version != "latest" {
		t.Errorf("ParseSpecs() = %+v", reqs)
	}

	if _, err := ParseSpecs([]string{"ok", "bad name"}, false, false); err == nil {
		t.Error("expected error for invalid argument")
	}
}
