package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/edgecomet/pagesaver/internal/common/configtypes"
)

// DynamicLogger is a zap.Logger whose output levels can be changed at runtime.
type DynamicLogger struct {
	*zap.Logger
	levels     []*zap.AtomicLevel
	configured configtypes.LogConfig
}

// NewLogger builds console and/or file cores from config.
func NewLogger(config configtypes.LogConfig) (*DynamicLogger, error) {
	global := parseLogLevel(config.Level)

	var cores []zapcore.Core
	var levels []*zap.AtomicLevel

	if config.Console.Enabled {
		level := zap.NewAtomicLevelAt(resolveLogLevel(config.Console.Level, global))
		cores = append(cores, zapcore.NewCore(createEncoder(config.Console.Format), consoleWriter(config.Console.Output), level))
		levels = append(levels, &level)
	}

	if config.File.Enabled {
		if config.File.Path == "" {
			return nil, fmt.Errorf("file.path must be specified when file logging is enabled")
		}
		level := zap.NewAtomicLevelAt(resolveLogLevel(config.File.Level, global))
		cores = append(cores, zapcore.NewCore(createEncoder(config.File.Format), createFileWriter(config.File), level))
		levels = append(levels, &level)
	}

	if len(cores) == 0 {
		return nil, fmt.Errorf("at least one log output (console or file) must be enabled")
	}

	return &DynamicLogger{
		Logger:     zap.New(zapcore.NewTee(cores...)),
		levels:     levels,
		configured: config,
	}, nil
}

// NewLoggerWithStartupOverride starts at INFO when the configured level is
// quieter, so startup lines are always visible. Call SwitchToConfiguredLevel
// once the service is up.
func NewLoggerWithStartupOverride(config configtypes.LogConfig) (*DynamicLogger, error) {
	if parseLogLevel(config.Level) <= zap.InfoLevel {
		return NewLogger(config)
	}

	startup := config
	startup.Level = configtypes.LogLevelInfo
	if startup.Console.Level == "" {
		startup.Console.Level = configtypes.LogLevelInfo
	}
	if startup.File.Level == "" {
		startup.File.Level = configtypes.LogLevelInfo
	}

	dl, err := NewLogger(startup)
	if err != nil {
		return nil, err
	}
	dl.configured = config
	return dl, nil
}

// SwitchToConfiguredLevel restores the levels from the loaded config.
func (dl *DynamicLogger) SwitchToConfiguredLevel() {
	global := parseLogLevel(dl.configured.Level)
	dl.Info("Switching logger to configured level", zap.String("level", dl.configured.Level))

	idx := 0
	if dl.configured.Console.Enabled && idx < len(dl.levels) {
		dl.levels[idx].SetLevel(resolveLogLevel(dl.configured.Console.Level, global))
		idx++
	}
	if dl.configured.File.Enabled && idx < len(dl.levels) {
		dl.levels[idx].SetLevel(resolveLogLevel(dl.configured.File.Level, global))
	}
}

// EnsureInfoLevelForShutdown lowers every output to INFO so the shutdown
// sequence is logged.
func (dl *DynamicLogger) EnsureInfoLevelForShutdown() {
	changed := false
	for _, level := range dl.levels {
		if level.Level() > zap.InfoLevel {
			level.SetLevel(zap.InfoLevel)
			changed = true
		}
	}
	if changed {
		dl.Info("Switched to INFO level for shutdown visibility")
	}
}

// NewDefaultLogger is a debug console logger for tools and tests.
func NewDefaultLogger() (*DynamicLogger, error) {
	return NewLogger(configtypes.LogConfig{
		Level: configtypes.LogLevelDebug,
		Console: configtypes.ConsoleLogConfig{
			Enabled: true,
			Format:  configtypes.LogFormatConsole,
		},
	})
}

func consoleWriter(output string) zapcore.WriteSyncer {
	if output == configtypes.LogOutputStderr {
		return zapcore.Lock(os.Stderr)
	}
	return zapcore.Lock(os.Stdout)
}

func parseLogLevel(level string) zapcore.Level {
	switch level {
	case configtypes.LogLevelDebug:
		return zap.DebugLevel
	case configtypes.LogLevelWarn:
		return zap.WarnLevel
	case configtypes.LogLevelError:
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

func resolveLogLevel(outputLevel string, global zapcore.Level) zapcore.Level {
	if outputLevel != "" {
		return parseLogLevel(outputLevel)
	}
	return global
}

func createEncoder(format string) zapcore.Encoder {
	if format == configtypes.LogFormatJSON {
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	if format == configtypes.LogFormatText {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func createFileWriter(cfg configtypes.FileLogConfig) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.Rotation.MaxSize,
		MaxAge:     cfg.Rotation.MaxAge,
		MaxBackups: cfg.Rotation.MaxBackups,
		Compress:   cfg.Rotation.Compress,
	})
}
