package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix         = "LOCALCHAT"
	defaultConfigName = "localchat.yaml"
)

// Load builds configuration from defaults, an optional config file and env vars,
// and returns the resolved path ("" when no file was read).
// Precedence: defaults < config file < env vars < caller overrides.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("addr", cfg.Addr)
	v.SetDefault("metrics_addr", cfg.MetricsAddr)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("write_timeout", cfg.WriteTimeout)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
	v.SetDefault("max_username_len", cfg.MaxUsernameLen)
	v.SetDefault("max_message_len", cfg.MaxMessageLen)
	v.SetDefault("unique_usernames", cfg.UniqueUsernames)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := resolveConfigPath(explicitPath)
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if explicitPath != "" || !(errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
				return cfg, configPath, fmt.Errorf("read config: %w", err)
			}
			configPath = ""
		} else if logger != nil {
			logger.Debug().Str("path", configPath).Msg("config file loaded")
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, configPath, nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	path := filepath.Join(cwd, defaultConfigName)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
