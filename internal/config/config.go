package config

import (
	"errors"
	"time"
)

// Config holds bot configuration values.
type Config struct {
	Host      string `mapstructure:"host" yaml:"host"`
	Identity  string `mapstructure:"identity" yaml:"identity"`
	Password  string `mapstructure:"password" yaml:"password"`
	Insecure  bool   `mapstructure:"insecure" yaml:"insecure"`
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	IdleTimeout    time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay" yaml:"reconnect_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// SendRate limits outbound mutations per second; zero disables the limiter.
	SendRate  float64 `mapstructure:"send_rate" yaml:"send_rate"`
	SendBurst int     `mapstructure:"send_burst" yaml:"send_burst"`

	MessageCacheSize int    `mapstructure:"message_cache_size" yaml:"message_cache_size"`
	CommandPrefix    string `mapstructure:"command_prefix" yaml:"command_prefix"`

	// StatusAddr enables the status HTTP server when non-empty.
	StatusAddr string `mapstructure:"status_addr" yaml:"status_addr"`
	// StatusRate limits archive API requests per second; zero disables the limiter.
	StatusRate  float64 `mapstructure:"status_rate" yaml:"status_rate"`
	StatusBurst int     `mapstructure:"status_burst" yaml:"status_burst"`
	// ArchivePath enables the sqlite message archive when non-empty.
	ArchivePath string `mapstructure:"archive_path" yaml:"archive_path"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		UserAgent:        "SharkordGo (https://github.com/vovakirdan/sharkord-go)",
		LogLevel:         "info",
		LogFormat:        "console",
		IdleTimeout:      31 * time.Second,
		ProbeTimeout:     3 * time.Second,
		ReconnectDelay:   5 * time.Second,
		RequestTimeout:   15 * time.Second,
		WriteTimeout:     10 * time.Second,
		SendRate:         5,
		SendBurst:        10,
		MessageCacheSize: 1000,
		CommandPrefix:    "!",
		StatusRate:       10,
		StatusBurst:      20,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Host != "" {
		c.Host = other.Host
	}
	if other.Identity != "" {
		c.Identity = other.Identity
	}
	if other.Password != "" {
		c.Password = other.Password
	}
	if other.Insecure {
		c.Insecure = true
	}
	if other.UserAgent != "" {
		c.UserAgent = other.UserAgent
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.IdleTimeout != 0 {
		c.IdleTimeout = other.IdleTimeout
	}
	if other.ProbeTimeout != 0 {
		c.ProbeTimeout = other.ProbeTimeout
	}
	if other.ReconnectDelay != 0 {
		c.ReconnectDelay = other.ReconnectDelay
	}
	if other.RequestTimeout != 0 {
		c.RequestTimeout = other.RequestTimeout
	}
	if other.WriteTimeout != 0 {
		c.WriteTimeout = other.WriteTimeout
	}
	if other.SendRate != 0 {
		c.SendRate = other.SendRate
	}
	if other.SendBurst != 0 {
		c.SendBurst = other.SendBurst
	}
	if other.MessageCacheSize != 0 {
		c.MessageCacheSize = other.MessageCacheSize
	}
	if other.CommandPrefix != "" {
		c.CommandPrefix = other.CommandPrefix
	}
	if other.StatusAddr != "" {
		c.StatusAddr = other.StatusAddr
	}
	if other.StatusRate != 0 {
		c.StatusRate = other.StatusRate
	}
	if other.StatusBurst != 0 {
		c.StatusBurst = other.StatusBurst
	}
	if other.ArchivePath != "" {
		c.ArchivePath = other.ArchivePath
	}
}

// Validate reports missing required values.
func (c *Config) Validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, errors.New("host is required"))
	}
	if c.Identity == "" {
		errs = append(errs, errors.New("identity is required"))
	}
	if c.Password == "" {
		errs = append(errs, errors.New("password is required"))
	}
	if c.IdleTimeout <= 0 || c.ProbeTimeout <= 0 {
		errs = append(errs, errors.New("idle_timeout and probe_timeout must be positive"))
	}
	return errors.Join(errs...)
}
