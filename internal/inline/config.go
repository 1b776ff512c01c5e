package inline

import (
	"fmt"
	"time"
)

type Config struct {
	// BatchSize bounds concurrent normal-image work.
	BatchSize  int
	BatchPause time.Duration

	// SmallImageSize is the max width and height of a small image.
	SmallImageSize  int
	SmallRetries    int
	SmallRetryDelay time.Duration

	RedrawTimeout time.Duration
	ProbeTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize:       5,
		BatchPause:      100 * time.Millisecond,
		SmallImageSize:  32,
		SmallRetries:    3,
		SmallRetryDelay: 500 * time.Millisecond,
		RedrawTimeout:   10 * time.Second,
		ProbeTimeout:    5 * time.Second,
	}
}

func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("inline.batch_size must be positive, got %d", c.BatchSize)
	}
	if c.BatchPause < 0 || c.SmallRetryDelay < 0 {
		return fmt.Errorf("inline pauses cannot be negative")
	}
	if c.SmallImageSize < 0 {
		return fmt.Errorf("inline.small_image_size cannot be negative")
	}
	if c.SmallRetries < 1 {
		return fmt.Errorf("inline.small_retries must be at least 1, got %d", c.SmallRetries)
	}
	if c.RedrawTimeout <= 0 || c.ProbeTimeout <= 0 {
		return fmt.Errorf("inline redraw and probe timeouts must be positive")
	}
	return nil
}
