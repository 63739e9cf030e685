package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// loadVarsFiles reads the YAML files listed in vars_files, resolving relative
// paths against configDir. Files are merged in order, later keys winning.
func loadVarsFiles(configDir string, files []string) (map[string]any, error) {
	out := map[string]any{}

	for _, file := range files {
		path := file
		if !filepath.IsAbs(path) {
			path = filepath.Join(configDir, path)
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read vars file %q: %w", file, err)
		}

		var vars map[string]any
		if err := yaml.Unmarshal(raw, &vars); err != nil {
			return nil, fmt.Errorf("parse vars file %q: %w", file, err)
		}

		mergeMaps(out, vars)
	}

	return out, nil
}

// mergeMaps deep-merges src into dst. Nested maps merge; anything else in src
// replaces the value in dst.
func mergeMaps(dst, src map[string]any) {
	for key, val := range src {
		sub, ok := val.(map[string]any)
		if !ok {
			dst[key] = val
			continue
		}
		if existing, ok := dst[key].(map[string]any); ok {
			mergeMaps(existing, sub)
			continue
		}
		dst[key] = sub
	}
}
