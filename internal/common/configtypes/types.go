package configtypes

import (
	"fmt"
)

// Log levels accepted by LogConfig.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Log encoder formats.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
	LogFormatText    = "text"
)

// Console output streams.
const (
	LogOutputStdout = "stdout"
	LogOutputStderr = "stderr"
)

type LogConfig struct {
	Level   string           `yaml:"level"`
	Console ConsoleLogConfig `yaml:"console"`
	File    FileLogConfig    `yaml:"file"`
}

type ConsoleLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format"`
	Level   string `yaml:"level,omitempty"`
	// Output is stdout (default) or stderr.
	Output string `yaml:"output,omitempty"`
}

type FileLogConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Path     string         `yaml:"path"`
	Format   string         `yaml:"format"`
	Level    string         `yaml:"level,omitempty"`
	Rotation RotationConfig `yaml:"rotation"`
}

// RotationConfig maps onto lumberjack: sizes in MB, ages in days.
type RotationConfig struct {
	MaxSize    int  `yaml:"max_size"`
	MaxAge     int  `yaml:"max_age"`
	MaxBackups int  `yaml:"max_backups"`
	Compress   bool `yaml:"compress"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Listen    string `yaml:"listen"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (c *RedisConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	if c.DB < 0 {
		return fmt.Errorf("redis.db cannot be negative, got %d", c.DB)
	}
	return nil
}

// Validate checks level and format names and that at least one output is on.
func (c *LogConfig) Validate() error {
	if err := validateLevel("log.level", c.Level, false); err != nil {
		return err
	}
	if !c.Console.Enabled && !c.File.Enabled {
		return fmt.Errorf("log: at least one of console or file output must be enabled")
	}
	if c.Console.Enabled {
		if err := validateFormat("log.console.format", c.Console.Format); err != nil {
			return err
		}
		if err := validateLevel("log.console.level", c.Console.Level, true); err != nil {
			return err
		}
		switch c.Console.Output {
		case "", LogOutputStdout, LogOutputStderr:
		default:
			return fmt.Errorf("log.console.output: must be stdout or stderr, got %q", c.Console.Output)
		}
	}
	if c.File.Enabled {
		if c.File.Path == "" {
			return fmt.Errorf("log.file.path is required when file logging is enabled")
		}
		if err := validateFormat("log.file.format", c.File.Format); err != nil {
			return err
		}
		if err := validateLevel("log.file.level", c.File.Level, true); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the listen address and path when metrics are enabled.
func (c *MetricsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if err := ValidateListenAddress(c.Listen); err != nil {
		return fmt.Errorf("metrics.listen: %w", err)
	}
	if c.Path == "" || c.Path[0] != '/' {
		return fmt.Errorf("metrics.path must start with '/', got %q", c.Path)
	}
	return nil
}

func validateLevel(field, level string, allowEmpty bool) error {
	switch level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return nil
	case "":
		if allowEmpty {
			return nil
		}
	}
	return fmt.Errorf("%s: invalid log level %q", field, level)
}

func validateFormat(field, format string) error {
	switch format {
	case LogFormatJSON, LogFormatConsole, LogFormatText:
		return nil
	}
	return fmt.Errorf("%s: invalid log format %q", field, format)
}
