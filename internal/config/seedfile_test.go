package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoadSeedFile(t *testing.T) {
	path := writeTemp(t, `accounts:
  - username: carol
    name: Carol Ops
    password: changeme
    role: ADMIN
  - username: dave
    name: Dave
    password: changeme
    role: STAFF
`)

	sf, err := LoadSeedFile(path)
	if err != nil {
		t.Fatalf("LoadSeedFile: %v", err)
	}
	if len(sf.Accounts) != 2 {
		t.Fatalf("accounts = %d, want 2", len(sf.Accounts))
	}
	if sf.Accounts[0].Username != "carol" || sf.Accounts[0].Role != "ADMIN" {
		t.Errorf("first account = %+v", sf.Accounts[0])
	}
}

func TestLoadSeedFileRejections(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"no accounts", "accounts: []"},
		{"not yaml", "{{{"},
		{"missing password", "accounts:\n  - username: carol\n    name: Carol\n    role: ADMIN"},
		{"bad role", "accounts:\n  - username: carol\n    name: Carol\n    password: pw\n    role: ROOT"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadSeedFile(writeTemp(t, tc.content)); err == nil {
				t.Error("LoadSeedFile succeeded, want error")
			}
		})
	}
}

func TestLoadSeedFileMissing(t *testing.T) {
	if _, err := LoadSeedFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadSeedFile on missing file succeeded, want error")
	}
}
