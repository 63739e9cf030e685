package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/hay-kot/criterio"

	"github.com/colonyops/sopform/internal/core/styles"
	"github.com/colonyops/sopform/pkg/tmpl"
)

// Validate checks that the configuration is structurally valid. It does no I/O.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("openspec_root", c.OpenSpecRoot, notEmpty),
		criterio.Run("openspec_path", c.OpenSpecPath, notEmpty),
		criterio.Run("server.addr", c.Server.Addr, notEmpty),
		criterio.Run("data_dir", c.DataDir, notEmpty),
		criterio.Run("theme", c.Theme, knownTheme),
		c.validateTimeout(),
	)
}

func (c *Config) validateTimeout() error {
	var errs criterio.FieldErrorsBuilder
	if c.Gates.Timeout < 0 {
		errs = errs.Append("gates.timeout", fmt.Errorf("cannot be negative"))
	}
	return errs.ToError()
}

// ValidateDeep performs comprehensive validation of the configuration including
// template syntax and file accessibility. The configPath argument specifies the
// config file location to validate (empty string skips config file check).
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.ValidateSettings(configPath); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		criterio.Run("openspec_root", c.OpenSpecRoot, isDirectory),
		criterio.Run("openspec_path", c.OpenSpecPath, executableExists),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

// ValidateSettings checks the config file itself: structure, vars files and the
// verify command template. It does not look at the OpenSpec root or PATH.
func (c *Config) ValidateSettings(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		c.validateVarsFiles(configPath),
		c.validateVerifyTemplate(),
	)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

func (c *Config) validateVarsFiles(configPath string) error {
	if len(c.VarsFiles) == 0 {
		return nil
	}

	configDir := filepath.Dir(configPath)
	var errs criterio.FieldErrorsBuilder

	for i, file := range c.VarsFiles {
		path := file
		if !filepath.IsAbs(path) {
			path = filepath.Join(configDir, path)
		}

		if _, err := os.Stat(path); err != nil {
			errs = errs.Append(fmt.Sprintf("vars_files[%d]", i), fmt.Errorf("file not found: %s", file))
		}
	}

	return errs.ToError()
}

func (c *Config) validateVerifyTemplate() error {
	if c.Gates.VerifyCmd == "" {
		return nil
	}

	data := VerifyTemplateData{ChangeID: "example-change", Root: c.OpenSpecRoot, Vars: c.Vars}
	if err := tmpl.Check(c.Gates.VerifyCmd, data); err != nil {
		return criterio.NewFieldErrors("gates.verify_cmd", fmt.Errorf("template error: %w", err))
	}
	return nil
}

func notEmpty(s string) error {
	if s == "" {
		return fmt.Errorf("cannot be empty")
	}
	return nil
}

// executableExists validates that the path resolves to an executable.
func executableExists(path string) error {
	if _, err := exec.LookPath(path); err != nil {
		return fmt.Errorf("executable not found: %s", path)
	}
	return nil
}

func isDirectory(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

func knownTheme(name string) error {
	if _, ok := styles.GetPalette(name); !ok {
		return fmt.Errorf("unknown theme %q (available: %s)", name, strings.Join(styles.ThemeNames(), ", "))
	}
	return nil
}
