package config

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// pyprojectFilename is the per-project configuration file.
const pyprojectFilename = "pyproject.toml"

// pyprojectFile models the `[tool.pyfix]` table. Parsed with go-toml
// directly rather than viper so the case of override names is preserved.
type pyprojectFile struct {
	Tool struct {
		Pyfix struct {
			CommonStatements  map[string]string `toml:"common_statements"`
			NoqaMarker        string            `toml:"noqa_marker"`
			IgnoreInitModules *bool             `toml:"ignore_init_modules"`
			ProjectRoot       string            `toml:"project_root"`
			SearchPaths       []string          `toml:"search_paths"`
		} `toml:"pyfix"`
	} `toml:"tool"`
}

// FindPyproject searches for a pyproject.toml by traversing up from the
// given directory. Returns the file path and whether one was found.
func FindPyproject(startDir string) (string, bool) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false
	}

	for {
		candidate := filepath.Join(dir, pyprojectFilename)
		if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
			return candidate, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}

		dir = parent
	}
}

// applyPyproject overlays `[tool.pyfix]` settings from the nearest
// pyproject.toml. Project-local settings win over the global config file.
func applyPyproject(cfg *Config, startDir string) {
	path, found := FindPyproject(startDir)
	if !found {
		return
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var file pyprojectFile
	if unmarshalErr := toml.Unmarshal(content, &file); unmarshalErr != nil {
		return
	}

	table := file.Tool.Pyfix

	if len(table.CommonStatements) > 0 {
		if cfg.CommonStatements == nil {
			cfg.CommonStatements = make(map[string]string, len(table.CommonStatements))
		}

		for name, statement := range table.CommonStatements {
			cfg.CommonStatements[name] = statement
		}
	}

	if table.NoqaMarker != "" {
		cfg.NoqaMarker = table.NoqaMarker
	}

	if table.IgnoreInitModules != nil {
		cfg.IgnoreInitModules = *table.IgnoreInitModules
	}

	switch {
	case table.ProjectRoot != "":
		cfg.ProjectRoot = filepath.Join(filepath.Dir(path), table.ProjectRoot)
	case cfg.ProjectRoot == "":
		// A pyproject.toml marks a project root even without explicit config.
		cfg.ProjectRoot = filepath.Dir(path)
	}

	if len(table.SearchPaths) > 0 {
		base := filepath.Dir(path)
		for _, searchPath := range table.SearchPaths {
			cfg.SearchPaths = append(cfg.SearchPaths, filepath.Join(base, searchPath))
		}
	}
}
