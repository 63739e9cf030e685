package doctor

import (
	"context"
	"errors"

	"github.com/hay-kot/criterio"

	"github.com/colonyops/sopform/internal/core/config"
)

// ConfigCheck validates the config file and reports each field error. Paths and
// executables are covered by PathsCheck and ToolsCheck.
type ConfigCheck struct {
	cfg        *config.Config
	configPath string
}

// NewConfigCheck creates a new config check.
func NewConfigCheck(cfg *config.Config, configPath string) *ConfigCheck {
	return &ConfigCheck{cfg: cfg, configPath: configPath}
}

func (c *ConfigCheck) Name() string {
	return "Configuration"
}

func (c *ConfigCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	err := c.cfg.ValidateSettings(c.configPath)
	if err == nil {
		detail := c.configPath
		if detail == "" {
			detail = "defaults"
		}
		result.Items = append(result.Items, CheckItem{Label: "config", Status: StatusPass, Detail: detail})
		return result
	}

	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		result.Items = append(result.Items, CheckItem{Label: "config", Status: StatusFail, Detail: err.Error()})
		return result
	}

	for _, fe := range fieldErrs {
		result.Items = append(result.Items, CheckItem{
			Label:  fe.Field,
			Status: StatusFail,
			Detail: fe.Err.Error(),
		})
	}
	return result
}
