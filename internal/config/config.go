// Package config loads the project-level funcqc configuration file.
//
// Configuration is ambient: it governs which files the Source Walker
// considers, how aggressively the pipeline parallelizes, and where the
// Snapshot Store keeps its data. None of it affects the semantics of
// the analysis pipeline itself.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	ferrors "github.com/funcqc/funcqc/internal/errors"
)

// DefaultFileName is the conventional config file name looked up in the
// project root.
const DefaultFileName = ".funcqc.yml"

// TOMLFileName is the alternate config file format checked alongside
// DefaultFileName when the latter isn't present.
const TOMLFileName = ".funcqc.toml"

// Embedding configures the out-of-scope description/semantic-search
// subsystem. funcqc only threads these values through; it never calls
// out to a provider itself.
type Embedding struct {
	Provider   string `yaml:"provider" toml:"provider"`
	Model      string `yaml:"model" toml:"model"`
	Dimensions int    `yaml:"dimensions" toml:"dimensions"`
}

// Config is the parsed contents of .funcqc.yml (or .funcqc.toml).
type Config struct {
	Roots        []string  `yaml:"roots" toml:"roots"`
	ExcludeGlobs []string  `yaml:"excludeGlobs" toml:"excludeGlobs"`
	Extensions   []string  `yaml:"extensions" toml:"extensions"`
	BatchSize    int       `yaml:"batchSize" toml:"batchSize"`
	QuickMode    bool      `yaml:"quickMode" toml:"quickMode"`
	DataDir      string    `yaml:"dataDir" toml:"dataDir"`
	Embedding    Embedding `yaml:"embedding" toml:"embedding"`

	// Lineage detector thresholds.
	LineageMinSignificance float64 `yaml:"lineageMinSignificance" toml:"lineageMinSignificance"`
	LineageSplitThreshold  float64 `yaml:"lineageSplitThreshold" toml:"lineageSplitThreshold"`
	AllowSplitDetection    bool    `yaml:"allowSplitDetection" toml:"allowSplitDetection"`
}

// defaults returns a Config populated with funcqc's defaults before any
// file is merged in.
func defaults() Config {
	return Config{
		Roots:                  []string{"."},
		Extensions:             []string{".ts", ".tsx", ".js", ".jsx", ".mts", ".cts"},
		BatchSize:              50,
		LineageMinSignificance: 0.6,
		LineageSplitThreshold:  0.55,
		AllowSplitDetection:    true,
	}
}

// Load reads and validates the config file at path. A missing file
// falls back to a sibling .funcqc.toml in path's directory, then to
// defaults if neither exists. A malformed file is a ConfigError.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		tomlPath := filepath.Join(filepath.Dir(path), TOMLFileName)
		tomlData, tomlErr := os.ReadFile(tomlPath)
		if os.IsNotExist(tomlErr) {
			if cfg.DataDir == "" {
				cfg.DataDir = defaultDataDir("")
			}
			return &cfg, nil
		}
		if tomlErr != nil {
			return nil, ferrors.NewConfigError(
				"cannot read funcqc configuration",
				tomlErr.Error(),
				fmt.Sprintf("check that %s is readable", tomlPath),
				tomlErr,
			)
		}
		if _, decodeErr := toml.Decode(string(tomlData), &cfg); decodeErr != nil {
			return nil, ferrors.NewConfigError(
				"cannot parse funcqc configuration",
				decodeErr.Error(),
				fmt.Sprintf("fix the TOML syntax in %s", tomlPath),
				decodeErr,
			)
		}
		return finalizeConfig(cfg, tomlPath)
	}
	if err != nil {
		return nil, ferrors.NewConfigError(
			"cannot read funcqc configuration",
			err.Error(),
			fmt.Sprintf("check that %s is readable", path),
			err,
		)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, ferrors.NewConfigError(
			"cannot parse funcqc configuration",
			err.Error(),
			fmt.Sprintf("fix the YAML syntax in %s", path),
			err,
		)
	}

	return finalizeConfig(cfg, path)
}

// finalizeConfig applies the shared post-parse validation and
// defaulting that both the YAML and TOML load paths need.
func finalizeConfig(cfg Config, sourcePath string) (*Config, error) {
	if len(cfg.Roots) == 0 {
		return nil, ferrors.NewConfigError(
			"invalid funcqc configuration",
			"roots must list at least one directory to scan",
			"add a roots entry, e.g. roots: [\".\"]",
			nil,
		)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir(filepath.Dir(sourcePath))
	}

	return &cfg, nil
}

func defaultDataDir(projectRoot string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	name := filepath.Base(projectRoot)
	if name == "" || name == "." {
		name = "default"
	}
	return filepath.Join(home, ".funcqc", "data", name)
}
