// Package config handles configuration loading and validation for sopform.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/colonyops/sopform/internal/core/styles"
)

// Config holds the application configuration.
type Config struct {
	// OpenSpecRoot is the directory holding changes/. Overridden by
	// OPENSPEC_ROOT or --openspec-root.
	OpenSpecRoot string `yaml:"openspec_root"`
	// OpenSpecPath is the openspec executable used by the validate and archive gates.
	OpenSpecPath string       `yaml:"openspec_path"`
	Gates        GatesConfig  `yaml:"gates"`
	Server       ServerConfig `yaml:"server"`
	// ProjectsFile stores form projects. Defaults to <data dir>/projects.json.
	ProjectsFile string `yaml:"projects_file"`
	// Theme names the color palette used for CLI output and forms.
	Theme        string         `yaml:"theme"`
	Vars         map[string]any `yaml:"vars"`
	VarsFiles    []string       `yaml:"vars_files"`
	DataDir      string         `yaml:"-"` // set by caller, not from config file
}

// GatesConfig configures gate execution.
type GatesConfig struct {
	// VerifyCmd is a shell command template for the verify gate. Empty
	// disables verify. Overridden by VERIFY_CMD or --verify-cmd.
	VerifyCmd string `yaml:"verify_cmd"`
	// Timeout bounds a single gate run. Zero means no limit.
	Timeout time.Duration `yaml:"timeout"`
}

// ServerConfig configures `sopform serve`.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// VerifyTemplateData defines the fields available to gates.verify_cmd.
type VerifyTemplateData struct {
	ChangeID string // change being verified
	Root     string // OpenSpec root, also the working directory
	Vars     map[string]any
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		OpenSpecRoot: ".",
		OpenSpecPath: "openspec",
		Theme:        styles.DefaultTheme,
		Server: ServerConfig{
			Addr: ":3001",
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir

			if len(cfg.VarsFiles) > 0 {
				fileVars, err := loadVarsFiles(filepath.Dir(configPath), cfg.VarsFiles)
				if err != nil {
					return nil, err
				}
				// inline vars win over vars files
				mergeMaps(fileVars, cfg.Vars)
				cfg.Vars = fileVars
			}
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.OpenSpecRoot == "" {
		c.OpenSpecRoot = defaults.OpenSpecRoot
	}
	if c.OpenSpecPath == "" {
		c.OpenSpecPath = defaults.OpenSpecPath
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Theme == "" {
		c.Theme = defaults.Theme
	}
	if c.ProjectsFile == "" && c.DataDir != "" {
		c.ProjectsFile = filepath.Join(c.DataDir, "projects.json")
	}
	if c.Vars == nil {
		c.Vars = map[string]any{}
	}
}

// ApplyOverrides applies flag or environment values on top of the file
// configuration. Empty values leave the current setting untouched.
func (c *Config) ApplyOverrides(openspecRoot, verifyCmd string) {
	if openspecRoot != "" {
		c.OpenSpecRoot = openspecRoot
	}
	if verifyCmd != "" {
		c.Gates.VerifyCmd = verifyCmd
	}
}

// VerifyConfigured reports whether the verify gate has a command.
func (c *Config) VerifyConfigured() bool {
	return c.Gates.VerifyCmd != ""
}

// OpenSpecRootAbs returns the OpenSpec root as an absolute path.
func (c *Config) OpenSpecRootAbs() string {
	abs, err := filepath.Abs(c.OpenSpecRoot)
	if err != nil {
		return c.OpenSpecRoot
	}
	return abs
}
