package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".preflight"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for preflight settings.
const envPrefix = "PREFLIGHT"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Default values, per spec §6's configuration option table.
const (
	DefaultMaxFileBytes        = 2 << 20  // 2 MiB per file.
	DefaultMaxTotalBytes       = 512 << 20 // 512 MiB per bundle.
	DefaultGitCloneTimeoutMs   = 60_000
	DefaultASTEngine           = ASTEngineWASM
	DefaultBundleCreationLimit = 4
	DefaultGraphMaxFiles       = 20_000
	DefaultGraphMaxNodes       = 50_000
	DefaultGraphMaxEdges       = 100_000
	DefaultGraphTimeBudgetMs   = 30_000
)

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
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
		if !errors.As(readErr, &notFound) && !errors.Is(readErr, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	if err := viperCfg.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	home, _ := os.UserHomeDir()

	viperCfg.SetDefault("storage_dirs", []string{home + "/.preflight/bundles"})
	viperCfg.SetDefault("tmp_dir", os.TempDir())
	viperCfg.SetDefault("max_file_bytes", DefaultMaxFileBytes)
	viperCfg.SetDefault("max_total_bytes", DefaultMaxTotalBytes)
	viperCfg.SetDefault("git_clone_timeout_ms", DefaultGitCloneTimeoutMs)
	viperCfg.SetDefault("ast_engine", DefaultASTEngine)
	viperCfg.SetDefault("analysis_mode", AnalysisModeFull)
	viperCfg.SetDefault("bundle_creation_limiter", DefaultBundleCreationLimit)

	viperCfg.SetDefault("graph_budgets.max_files", DefaultGraphMaxFiles)
	viperCfg.SetDefault("graph_budgets.max_nodes", DefaultGraphMaxNodes)
	viperCfg.SetDefault("graph_budgets.max_edges", DefaultGraphMaxEdges)
	viperCfg.SetDefault("graph_budgets.time_budget_ms", DefaultGraphTimeBudgetMs)
}
