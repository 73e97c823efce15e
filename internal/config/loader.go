package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/pyfix/pkg/pysource"
)

// configName is the config file name without extension.
const configName = ".pyfix"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for pyfix settings.
const envPrefix = "PYFIX"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// DefaultWorkers is the worker pool size when unset.
const DefaultWorkers = 4

// LoadConfig loads configuration from file, env vars, and defaults, then
// applies pyproject.toml overrides found from startDir upwards. If
// configPath is non-empty it is used as the explicit config file path;
// otherwise the config file is searched in CWD and $HOME. A missing config
// file is not an error; defaults are used.
func LoadConfig(configPath, startDir string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	applyPyproject(&cfg, startDir)

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("common_statements", map[string]string{})
	viperCfg.SetDefault("noqa_marker", pysource.DefaultNoqaMarker)
	viperCfg.SetDefault("workers", DefaultWorkers)
	viperCfg.SetDefault("ignore_init_modules", false)
	viperCfg.SetDefault("project_root", "")
	viperCfg.SetDefault("search_paths", []string{})
	viperCfg.SetDefault("cache_dir", "")
}
