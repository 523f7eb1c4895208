// Package config loads a project's irl.toml manifest: the entry function
// to run, an optional pass-pipeline override, and the pass-driver budgets.
// Parsed with toml.MetaData.IsDefined guards against a present-but-empty
// table, and an upward search from the working directory for the manifest
// file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrNoManifest describes a missing irl.toml. Find and LoadFromDir do not
// return it: they report a missing manifest through their ok result.
var ErrNoManifest = errors.New("no irl.toml found")

// Manifest is a parsed irl.toml.
type Manifest struct {
	Path     string
	Root     string
	Package  PackageConfig
	Pipeline PipelineConfig
	Budget   BudgetConfig
}

type PackageConfig struct {
	Entry string `toml:"entry"`
}

type PipelineConfig struct {
	Passes    []string `toml:"passes"`
	MaxRounds int      `toml:"max_rounds"`
}

type BudgetConfig struct {
	MaxPasses    int `toml:"max_passes"`
	MaxMutations int `toml:"max_mutations"`
}

type fileConfig struct {
	Package  PackageConfig  `toml:"package"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Budget   BudgetConfig   `toml:"budget"`
}

// Find searches startDir and each of its ancestors for an irl.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "irl.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load parses the irl.toml at path.
func Load(path string) (*Manifest, error) {
	var cfg fileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("package") {
		return nil, fmt.Errorf("%s: missing [package]", path)
	}
	if !meta.IsDefined("package", "entry") || strings.TrimSpace(cfg.Package.Entry) == "" {
		return nil, fmt.Errorf("%s: missing [package].entry", path)
	}
	m := &Manifest{
		Path:     path,
		Root:     filepath.Dir(path),
		Package:  cfg.Package,
		Pipeline: cfg.Pipeline,
		Budget:   cfg.Budget,
	}
	if m.Pipeline.MaxRounds < 0 {
		return nil, fmt.Errorf("%s: [pipeline].max_rounds must not be negative", path)
	}
	if m.Budget.MaxPasses < 0 || m.Budget.MaxMutations < 0 {
		return nil, fmt.Errorf("%s: [budget] values must not be negative", path)
	}
	return m, nil
}

// LoadFromDir finds and loads the nearest irl.toml above startDir. ok is
// false (with a nil error) when no manifest exists — running a standalone
// file with no project manifest is not itself an error.
func LoadFromDir(startDir string) (*Manifest, bool, error) {
	path, ok, err := Find(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err := Load(path)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}
