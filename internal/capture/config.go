package capture

import (
	"fmt"
	"time"
)

// Config controls how pages are loaded for capture.
type Config struct {
	Headless        bool
	ExecPath        string
	WindowWidth     int
	WindowHeight    int
	PageLoadTimeout time.Duration
	// SettleWait is an extra pause after the load event for late layout.
	SettleWait          time.Duration
	UserAgent           string
	BlockThirdParty     bool
	BlockedPatterns     []string
	DenyPrivateNetworks bool
}

// DefaultConfig is used in tests and by the one-shot CLI.
func DefaultConfig() *Config {
	return &Config{
		Headless:        true,
		WindowWidth:     1366,
		WindowHeight:    900,
		PageLoadTimeout: 30 * time.Second,
		SettleWait:      500 * time.Millisecond,
		BlockThirdParty: true,
	}
}

func (c *Config) Validate() error {
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.WindowWidth, c.WindowHeight)
	}
	if c.PageLoadTimeout <= 0 {
		return fmt.Errorf("page load timeout must be positive")
	}
	if c.SettleWait < 0 {
		return fmt.Errorf("settle wait cannot be negative")
	}
	return nil
}
