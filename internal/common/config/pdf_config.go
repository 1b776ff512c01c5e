package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/edgecomet/pagesaver/internal/common/configtypes"
	"github.com/edgecomet/pagesaver/internal/common/yamlutil"
	"github.com/edgecomet/pagesaver/internal/pdfservice"
	"github.com/edgecomet/pagesaver/pkg/types"
)

// PDFServiceConfig is the PDF conversion service configuration.
type PDFServiceConfig struct {
	Server    PDFServerConfig           `yaml:"server"`
	Log       configtypes.LogConfig     `yaml:"log"`
	Metrics   configtypes.MetricsConfig `yaml:"metrics"`
	OutputDir string                    `yaml:"output_dir"`
	Timeout   types.Duration            `yaml:"timeout"`
	Paper     PaperConfig               `yaml:"paper"`
	Browser   BrowserConfig             `yaml:"browser"`
}

type PDFServerConfig struct {
	Listen string `yaml:"listen"`
}

type PaperConfig struct {
	Size            string  `yaml:"size"`
	Landscape       bool    `yaml:"landscape"`
	MarginCM        float64 `yaml:"margin_cm"`
	Scale           float64 `yaml:"scale"`
	PrintBackground bool    `yaml:"print_background"`
}

type BrowserConfig struct {
	ExecPath  string `yaml:"exec_path"`
	Download  bool   `yaml:"download"`
	NoSandbox bool   `yaml:"no_sandbox"`
}

func DefaultPDFServiceConfig() PDFServiceConfig {
	def := pdfservice.DefaultConfig()
	return PDFServiceConfig{
		Server: PDFServerConfig{Listen: ":5000"},
		Metrics: configtypes.MetricsConfig{
			Listen:    ":9092",
			Path:      "/metrics",
			Namespace: "pagesaver",
		},
		Timeout: types.Duration(def.Timeout),
		Paper: PaperConfig{
			Size:            def.Paper.Size,
			Landscape:       def.Paper.Landscape,
			MarginCM:        def.Paper.MarginCM,
			Scale:           def.Paper.Scale,
			PrintBackground: def.Paper.PrintBackground,
		},
	}
}

// LoadPDFServiceConfig reads, defaults and validates a PDF service config.
func LoadPDFServiceConfig(path string, logger *zap.Logger) (*PDFServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultPDFServiceConfig()
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyLogDefaults(&cfg.Log)
	applyMetricsDefaults(&cfg.Metrics)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger.Info("PDF service configuration loaded",
		zap.String("path", path),
		zap.String("listen", cfg.Server.Listen),
		zap.String("paper", cfg.Paper.Size))
	return &cfg, nil
}

func (cfg *PDFServiceConfig) Validate() error {
	if err := validateCommon(cfg.Server.Listen, &cfg.Log, &cfg.Metrics); err != nil {
		return err
	}
	return cfg.ServiceConfig().Validate()
}

// CalculateServerTimeout leaves headroom over the conversion timeout.
func (cfg *PDFServiceConfig) CalculateServerTimeout() time.Duration {
	return cfg.Timeout.ToDuration() + 10*time.Second
}

func (cfg *PDFServiceConfig) ServiceConfig() pdfservice.Config {
	return pdfservice.Config{
		OutputDir: cfg.OutputDir,
		Timeout:   cfg.Timeout.ToDuration(),
		Paper: pdfservice.Paper{
			Size:            cfg.Paper.Size,
			Landscape:       cfg.Paper.Landscape,
			MarginCM:        cfg.Paper.MarginCM,
			Scale:           cfg.Paper.Scale,
			PrintBackground: cfg.Paper.PrintBackground,
		},
		ChromePath:      cfg.Browser.ExecPath,
		DownloadBrowser: cfg.Browser.Download,
		NoSandbox:       cfg.Browser.NoSandbox,
	}
}
