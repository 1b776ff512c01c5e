// Package config loads the YAML configuration of the snapshot and PDF
// services.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/edgecomet/pagesaver/internal/common/configtypes"
)

var namespaceRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// GetConfigPath resolves the config file path
func GetConfigPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("config path cannot be empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path: %w", err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("config file does not exist: %s", absPath)
	}

	return absPath, nil
}

// applyLogDefaults enables console output when nothing is configured.
func applyLogDefaults(log *configtypes.LogConfig) {
	if log.Level == "" {
		log.Level = configtypes.LogLevelInfo
	}
	if !log.Console.Enabled && !log.File.Enabled {
		log.Console.Enabled = true
	}
	if log.Console.Format == "" {
		log.Console.Format = configtypes.LogFormatConsole
	}
	if log.File.Format == "" {
		log.File.Format = configtypes.LogFormatText
	}
}

func applyMetricsDefaults(m *configtypes.MetricsConfig) {
	if m.Path == "" {
		m.Path = "/metrics"
	}
	if m.Namespace == "" {
		m.Namespace = "pagesaver"
	}
}

// validateCommon checks the sections every service shares.
func validateCommon(listen string, log *configtypes.LogConfig, metrics *configtypes.MetricsConfig) error {
	if listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	if err := configtypes.ValidateListenAddress(listen); err != nil {
		return fmt.Errorf("invalid server.listen: %w", err)
	}
	if err := log.Validate(); err != nil {
		return err
	}
	if err := metrics.Validate(); err != nil {
		return err
	}
	if metrics.Enabled {
		_, metricsPort, err1 := configtypes.ParseListenAddress(metrics.Listen)
		_, serverPort, err2 := configtypes.ParseListenAddress(listen)
		if err1 == nil && err2 == nil && metricsPort == serverPort {
			return fmt.Errorf("metrics.listen port (%d) must differ from server.listen port (%d) when metrics enabled", metricsPort, serverPort)
		}
	}
	if !namespaceRe.MatchString(metrics.Namespace) {
		return fmt.Errorf("invalid metrics.namespace: %s (must match [a-zA-Z_][a-zA-Z0-9_]*)", metrics.Namespace)
	}
	return nil
}
