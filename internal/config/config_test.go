package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"irl/internal/config"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "irl.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return path
}

func TestLoadParsesFullManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[package]
entry = "@main"

[pipeline]
passes = ["sccp", "dce"]
max_rounds = 10

[budget]
max_passes = 64
max_mutations = 1000000
`)
	m, err := config.Load(filepath.Join(dir, "irl.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Package.Entry != "@main" {
		t.Fatalf("expected entry @main, got %q", m.Package.Entry)
	}
	if len(m.Pipeline.Passes) != 2 || m.Pipeline.Passes[0] != "sccp" {
		t.Fatalf("unexpected passes: %v", m.Pipeline.Passes)
	}
	if m.Budget.MaxPasses != 64 {
		t.Fatalf("expected max_passes 64, got %d", m.Budget.MaxPasses)
	}
}

func TestLoadRejectsMissingEntry(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[package]
entry = ""
`)
	if _, err := config.Load(filepath.Join(dir, "irl.toml")); err == nil {
		t.Fatalf("expected an error for a blank [package].entry")
	}
}

func TestFindWalksUpward(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[package]
entry = "@main"
`)
	sub := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("failed to create subdirectory: %v", err)
	}
	path, ok, err := config.Find(sub)
	if err != nil || !ok {
		t.Fatalf("expected to find the manifest, got ok=%v err=%v", ok, err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("expected manifest in %q, got %q", dir, path)
	}
}

func TestLoadFromDirReportsNoManifest(t *testing.T) {
	dir := t.TempDir()
	_, ok, err := config.LoadFromDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false when no manifest is present")
	}
}
