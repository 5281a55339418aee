package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadPrefersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	t.Setenv("EVALIA_TEST_KEY", "from-env")

	got, err := Load(Source{Name: "gemini api key", File: path, Value: "inline", Env: "EVALIA_TEST_KEY"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-file" {
		t.Fatalf("expected file value, got %q", got)
	}
}

func TestLoadFallsBackToEnv(t *testing.T) {
	t.Setenv("EVALIA_TEST_KEY", " from-env ")

	got, err := Load(Source{Name: "gemini api key", Env: "EVALIA_TEST_KEY"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-env" {
		t.Fatalf("expected env value, got %q", got)
	}
}

func TestLoadErrors(t *testing.T) {
	empty := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	t.Setenv("EVALIA_TEST_KEY", "")

	tests := []struct {
		name string
		src  Source
		want string
	}{
		{name: "missing file", src: Source{Name: "key", File: filepath.Join(t.TempDir(), "nope")}, want: "reading key from file"},
		{name: "empty file", src: Source{Name: "key", File: empty}, want: "is empty"},
		{name: "unset env", src: Source{Name: "key", Env: "EVALIA_TEST_KEY"}, want: "set EVALIA_TEST_KEY"},
		{name: "nothing", src: Source{}, want: "secret is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.src)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
