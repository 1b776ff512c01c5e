package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/edgecomet/pagesaver/internal/capture"
	"github.com/edgecomet/pagesaver/internal/common/configtypes"
	"github.com/edgecomet/pagesaver/internal/common/yamlutil"
	"github.com/edgecomet/pagesaver/internal/delivery"
	"github.com/edgecomet/pagesaver/internal/fetch"
	"github.com/edgecomet/pagesaver/internal/inline"
	"github.com/edgecomet/pagesaver/internal/pdfclient"
	"github.com/edgecomet/pagesaver/internal/resourcecache"
	"github.com/edgecomet/pagesaver/internal/sanitize"
	"github.com/edgecomet/pagesaver/pkg/types"
)

// SnapshotConfig is the snapshot service configuration.
type SnapshotConfig struct {
	Server   ServerConfig              `yaml:"server"`
	Log      configtypes.LogConfig     `yaml:"log"`
	Metrics  configtypes.MetricsConfig `yaml:"metrics"`
	Chrome   ChromeConfig              `yaml:"chrome"`
	Inline   InlineConfig              `yaml:"inline"`
	Sanitize sanitize.Config           `yaml:"sanitize"`
	Delivery DeliveryConfig            `yaml:"delivery"`
	PDF      PDFClientConfig           `yaml:"pdf"`
	Cache    resourcecache.Config      `yaml:"cache"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
	// Timeout bounds one command, saves included.
	Timeout types.Duration `yaml:"timeout"`
	// StartURL is captured at startup when set.
	StartURL string `yaml:"start_url"`
}

// ChromeConfig selects browser capture. When disabled, pages are captured
// over plain HTTP without layout.
type ChromeConfig struct {
	Enabled             bool           `yaml:"enabled"`
	Headless            bool           `yaml:"headless"`
	ExecPath            string         `yaml:"exec_path"`
	WindowWidth         int            `yaml:"window_width"`
	WindowHeight        int            `yaml:"window_height"`
	PageLoadTimeout     types.Duration `yaml:"page_load_timeout"`
	SettleWait          types.Duration `yaml:"settle_wait"`
	UserAgent           string         `yaml:"user_agent"`
	BlockThirdParty     bool           `yaml:"block_third_party"`
	BlockedPatterns     []string       `yaml:"blocked_patterns"`
	DenyPrivateNetworks bool           `yaml:"deny_private_networks"`
}

type InlineConfig struct {
	BatchSize        int            `yaml:"batch_size"`
	BatchPause       types.Duration `yaml:"batch_pause"`
	SmallImageSize   int            `yaml:"small_image_size"`
	SmallRetries     int            `yaml:"small_retries"`
	SmallRetryDelay  types.Duration `yaml:"small_retry_delay"`
	FetchTimeout     types.Duration `yaml:"fetch_timeout"`
	RedrawTimeout    types.Duration `yaml:"redraw_timeout"`
	ProbeTimeout     types.Duration `yaml:"probe_timeout"`
	MaxResourceBytes int64          `yaml:"max_resource_bytes"`
	UserAgent        string         `yaml:"user_agent"`
}

type DeliveryConfig struct {
	DownloadsDir string         `yaml:"downloads_dir"`
	AnchorDir    string         `yaml:"anchor_dir"`
	ManualDir    string         `yaml:"manual_dir"`
	ManualOpen   bool           `yaml:"manual_open"`
	PollInterval types.Duration `yaml:"poll_interval"`
	PollTimeout  types.Duration `yaml:"poll_timeout"`
}

type PDFClientConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Endpoint string         `yaml:"endpoint"`
	Timeout  types.Duration `yaml:"timeout"`
}

// DefaultSnapshotConfig is the base that config files are decoded onto.
func DefaultSnapshotConfig() SnapshotConfig {
	chrome := capture.DefaultConfig()
	in := inline.DefaultConfig()
	fc := fetch.DefaultConfig()
	dc := delivery.DefaultConfig()
	pc := pdfclient.DefaultConfig()

	return SnapshotConfig{
		Server: ServerConfig{
			Listen:  ":8090",
			Timeout: types.Duration(2 * time.Minute),
		},
		Metrics: configtypes.MetricsConfig{
			Listen:    ":9091",
			Path:      "/metrics",
			Namespace: "pagesaver",
		},
		Chrome: ChromeConfig{
			Enabled:         true,
			Headless:        chrome.Headless,
			WindowWidth:     chrome.WindowWidth,
			WindowHeight:    chrome.WindowHeight,
			PageLoadTimeout: types.Duration(chrome.PageLoadTimeout),
			SettleWait:      types.Duration(chrome.SettleWait),
			BlockThirdParty: chrome.BlockThirdParty,
		},
		Inline: InlineConfig{
			BatchSize:        in.BatchSize,
			BatchPause:       types.Duration(in.BatchPause),
			SmallImageSize:   in.SmallImageSize,
			SmallRetries:     in.SmallRetries,
			SmallRetryDelay:  types.Duration(in.SmallRetryDelay),
			FetchTimeout:     types.Duration(fc.Timeout),
			RedrawTimeout:    types.Duration(in.RedrawTimeout),
			ProbeTimeout:     types.Duration(in.ProbeTimeout),
			MaxResourceBytes: fc.MaxBytes,
			UserAgent:        fc.UserAgent,
		},
		Delivery: DeliveryConfig{
			DownloadsDir: dc.DownloadsDir,
			PollInterval: types.Duration(dc.PollInterval),
			PollTimeout:  types.Duration(dc.PollTimeout),
		},
		PDF: PDFClientConfig{
			Enabled:  pc.Enabled,
			Endpoint: pc.Endpoint,
			Timeout:  types.Duration(pc.Timeout),
		},
		Cache: resourcecache.DefaultConfig(),
	}
}

// LoadSnapshotConfig reads, defaults and validates a snapshot service config.
func LoadSnapshotConfig(path string, logger *zap.Logger) (*SnapshotConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultSnapshotConfig()
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger.Info("Snapshot service configuration loaded",
		zap.String("path", path),
		zap.String("listen", cfg.Server.Listen),
		zap.Bool("chrome", cfg.Chrome.Enabled),
		zap.Bool("cache", cfg.Cache.Enabled),
		zap.Bool("pdf", cfg.PDF.Enabled))
	return &cfg, nil
}

func (cfg *SnapshotConfig) applyDefaults() {
	applyLogDefaults(&cfg.Log)
	applyMetricsDefaults(&cfg.Metrics)
}

// Validate checks configuration validity
func (cfg *SnapshotConfig) Validate() error {
	if err := validateCommon(cfg.Server.Listen, &cfg.Log, &cfg.Metrics); err != nil {
		return err
	}
	if cfg.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive")
	}
	if cfg.Chrome.Enabled {
		if err := cfg.CaptureConfig().Validate(); err != nil {
			return fmt.Errorf("chrome: %w", err)
		}
	}
	if cfg.Inline.FetchTimeout <= 0 {
		return fmt.Errorf("inline.fetch_timeout must be positive")
	}
	if err := cfg.InlineOptions().Validate(); err != nil {
		return err
	}
	if err := cfg.Sanitize.Validate(); err != nil {
		return fmt.Errorf("sanitize: %w", err)
	}
	if err := cfg.DeliveryOptions().Validate(); err != nil {
		return err
	}
	if err := cfg.PDFClientOptions().Validate(); err != nil {
		return fmt.Errorf("pdf: %w", err)
	}
	return cfg.Cache.Validate()
}

// CalculateServerTimeout leaves headroom over the command timeout.
func (cfg *SnapshotConfig) CalculateServerTimeout() time.Duration {
	return cfg.Server.Timeout.ToDuration() + 10*time.Second
}

func (cfg *SnapshotConfig) CaptureConfig() *capture.Config {
	c := cfg.Chrome
	return &capture.Config{
		Headless:            c.Headless,
		ExecPath:            c.ExecPath,
		WindowWidth:         c.WindowWidth,
		WindowHeight:        c.WindowHeight,
		PageLoadTimeout:     c.PageLoadTimeout.ToDuration(),
		SettleWait:          c.SettleWait.ToDuration(),
		UserAgent:           c.UserAgent,
		BlockThirdParty:     c.BlockThirdParty,
		BlockedPatterns:     c.BlockedPatterns,
		DenyPrivateNetworks: c.DenyPrivateNetworks,
	}
}

func (cfg *SnapshotConfig) FetchConfig() fetch.Config {
	return fetch.Config{
		Timeout:   cfg.Inline.FetchTimeout.ToDuration(),
		MaxBytes:  cfg.Inline.MaxResourceBytes,
		UserAgent: cfg.Inline.UserAgent,
	}
}

func (cfg *SnapshotConfig) InlineOptions() inline.Config {
	in := cfg.Inline
	return inline.Config{
		BatchSize:       in.BatchSize,
		BatchPause:      in.BatchPause.ToDuration(),
		SmallImageSize:  in.SmallImageSize,
		SmallRetries:    in.SmallRetries,
		SmallRetryDelay: in.SmallRetryDelay.ToDuration(),
		RedrawTimeout:   in.RedrawTimeout.ToDuration(),
		ProbeTimeout:    in.ProbeTimeout.ToDuration(),
	}
}

func (cfg *SnapshotConfig) DeliveryOptions() delivery.Config {
	d := cfg.Delivery
	return delivery.Config{
		DownloadsDir: d.DownloadsDir,
		AnchorDir:    d.AnchorDir,
		ManualDir:    d.ManualDir,
		ManualOpen:   d.ManualOpen,
		PollInterval: d.PollInterval.ToDuration(),
		PollTimeout:  d.PollTimeout.ToDuration(),
	}
}

func (cfg *SnapshotConfig) PDFClientOptions() pdfclient.Config {
	return pdfclient.Config{
		Enabled:  cfg.PDF.Enabled,
		Endpoint: cfg.PDF.Endpoint,
		Timeout:  cfg.PDF.Timeout.ToDuration(),
	}
}
