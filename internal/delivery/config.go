package delivery

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	// DownloadsDir receives primary downloads and saved resources.
	DownloadsDir string
	// AnchorDir receives anchor-tier downloads. Empty means DownloadsDir.
	AnchorDir string
	// ManualDir holds manual-save copies. Empty means os.TempDir().
	ManualDir string
	// ManualOpen opens the manual-save copy in the desktop browser.
	ManualOpen bool

	PollInterval time.Duration
	PollTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		DownloadsDir: filepath.Join(os.TempDir(), "pagesaver", "downloads"),
		PollInterval: 100 * time.Millisecond,
		PollTimeout:  10 * time.Second,
	}
}

func (c Config) Validate() error {
	if c.DownloadsDir == "" {
		return fmt.Errorf("delivery.downloads_dir is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("delivery.poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.PollTimeout < c.PollInterval {
		return fmt.Errorf("delivery.poll_timeout (%s) must not be shorter than poll_interval (%s)", c.PollTimeout, c.PollInterval)
	}
	return nil
}

// EffectiveAnchorDir is AnchorDir, or DownloadsDir when unset. Anchor
// downloads land in the same folder as tracked ones unless configured.
func (c Config) EffectiveAnchorDir() string {
	if c.AnchorDir != "" {
		return c.AnchorDir
	}
	return c.DownloadsDir
}
