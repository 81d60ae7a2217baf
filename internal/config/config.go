// Package config loads the stub driver's runtime settings from YAML.
package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"github.com/yifeimfd/usbip-win/pkg"
	"github.com/yifeimfd/usbip-win/stub/devconf"
)

// Config is the top-level configuration document.
type Config struct {
	Log     LogConfig  `yaml:"log"`
	Pool    PoolConfig `yaml:"pool"`
	Fixture string     `yaml:"fixture"`
}

// LogConfig selects level, format and destination of diagnostics. An empty
// File logs to stderr; otherwise the file is rotated by size.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// PoolConfig bounds the memory configuration registries may hold. A zero
// Quota means unbounded.
type PoolConfig struct {
	Quota int64 `yaml:"quota"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "warn",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Parse decodes a YAML document over the defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field ranges. Errors wrap pkg.ErrInvalidParameter.
func (c *Config) Validate() error {
	if _, err := pkg.ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	if _, err := pkg.ParseLogFormat(c.Log.Format); err != nil {
		return err
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log rotation limits must not be negative: %w", pkg.ErrInvalidParameter)
	}
	if c.Pool.Quota < 0 {
		return fmt.Errorf("pool quota %d: %w", c.Pool.Quota, pkg.ErrInvalidParameter)
	}
	return nil
}

// NewPool returns the pool described by the configuration.
func (c *Config) NewPool() devconf.Pool {
	if c.Pool.Quota == 0 {
		return devconf.HeapPool{}
	}
	return devconf.NewQuotaPool(c.Pool.Quota)
}

// OpenLog returns the writer diagnostics should go to. The caller closes it.
func (l *LogConfig) OpenLog() io.WriteCloser {
	if l.File == "" {
		return nopCloser{os.Stderr}
	}
	return &lumberjack.Logger{
		Filename:   l.File,
		MaxSize:    l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAge:     l.MaxAgeDays,
		Compress:   l.Compress,
	}
}

// Apply configures the pkg logger and returns the opened log writer.
func (l *LogConfig) Apply() (io.WriteCloser, error) {
	level, err := pkg.ParseLogLevel(l.Level)
	if err != nil {
		return nil, err
	}
	format, err := pkg.ParseLogFormat(l.Format)
	if err != nil {
		return nil, err
	}
	w := l.OpenLog()
	pkg.SetLogLevel(level)
	pkg.SetLogOutput(w, format)
	return w, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
