package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr" yaml:"metrics_addr"`
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	// Length limits count runes; zero disables the limit.
	MaxUsernameLen  int           `mapstructure:"max_username_len" yaml:"max_username_len"`
	MaxMessageLen   int           `mapstructure:"max_message_len" yaml:"max_message_len"`
	UniqueUsernames bool          `mapstructure:"unique_usernames" yaml:"unique_usernames"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:            "0.0.0.0:5555",
		MetricsAddr:     ":9090",
		LogLevel:        "info",
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		MaxUsernameLen:  0,
		MaxMessageLen:   1024,
		UniqueUsernames: true,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
// UniqueUsernames is a plain bool and is left to the caller.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.MetricsAddr != "" {
		c.MetricsAddr = other.MetricsAddr
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.WriteTimeout != 0 {
		c.WriteTimeout = other.WriteTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.MaxUsernameLen != 0 {
		c.MaxUsernameLen = other.MaxUsernameLen
	}
	if other.MaxMessageLen != 0 {
		c.MaxMessageLen = other.MaxMessageLen
	}
}
