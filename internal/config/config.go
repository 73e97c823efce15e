// Package config loads the run configuration: the .pyfix.yaml file plus
// environment variables, overridden by a pyproject.toml `[tool.pyfix]`
// table discovered from the working directory upwards. The result is an
// immutable value constructed once per run and shared read-only by every
// worker.
package config

import "errors"

var errWorkers = errors.New("workers must be positive")

// Config is the top-level configuration for pyfix. Field tags use
// mapstructure for viper unmarshalling.
type Config struct {
	// CommonStatements overrides the default name-to-import table.
	// An override replaces the default entry for that name.
	CommonStatements map[string]string `mapstructure:"common_statements"`
	// NoqaMarker is the end-of-line opt-out annotation.
	NoqaMarker string `mapstructure:"noqa_marker"`
	// Workers is the number of files fixed concurrently.
	Workers int `mapstructure:"workers"`
	// IgnoreInitModules skips __init__.py files during discovery.
	IgnoreInitModules bool `mapstructure:"ignore_init_modules"`
	// ProjectRoot is the directory scanned for the project symbol index.
	// Empty disables the project-index provider.
	ProjectRoot string `mapstructure:"project_root"`
	// SearchPaths are directories scanned for importable modules in
	// addition to the standard library.
	SearchPaths []string `mapstructure:"search_paths"`
	// CacheDir stores the compressed project symbol index between runs.
	// Empty disables the cache.
	CacheDir string `mapstructure:"cache_dir"`
}

// Validate checks invariants that viper cannot express.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return errWorkers
	}

	return nil
}
