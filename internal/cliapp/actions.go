package cliapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/edgecomet/pagesaver/internal/command"
	"github.com/edgecomet/pagesaver/internal/common/config"
	"github.com/edgecomet/pagesaver/internal/common/configtypes"
	logutil "github.com/edgecomet/pagesaver/internal/common/logger"
	"github.com/edgecomet/pagesaver/internal/delivery"
	"github.com/edgecomet/pagesaver/internal/pdfclient"
	"github.com/edgecomet/pagesaver/internal/pipeline"
	"github.com/edgecomet/pagesaver/pkg/types"
)

var (
	ErrNoSelectors  = errors.New("selection mode needs at least one --select")
	ErrNoMatch      = errors.New("selector matched nothing")
	ErrNotSaved     = errors.New("snapshot not saved")
	ErrMissingInput = errors.New("missing HTML file argument")
)

// SaveAction captures --url and saves it. The save response is written to
// stdout as JSON.
func SaveAction(c *cli.Context) error {
	mode, err := types.ParseMode(c.String("mode"))
	if err != nil {
		return err
	}
	selectors := c.StringSlice("select")
	if mode == types.ModeSelection && len(selectors) == 0 {
		return ErrNoSelectors
	}

	logger, err := newLogger(c.Bool("verbose"))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := snapshotConfig(c, logger)
	if err != nil {
		return err
	}

	p, err := pipeline.Build(cfg, nil, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	d := command.NewDispatcher(ctx, p.Session, nil, logger)
	resp, err := Run(ctx, d, c.String("url"), mode, selectors)
	if err != nil {
		_ = writeJSON(c.App.Writer, command.ErrorResponse(err))
		return err
	}
	if err := writeJSON(c.App.Writer, resp); err != nil {
		return err
	}
	if resp.Success == nil || !*resp.Success {
		return fmt.Errorf("%w: %s", ErrNotSaved, resp.Reason)
	}
	return nil
}

// Run drives d through navigate, select and save, the same commands a
// service client would send.
func Run(ctx context.Context, d *command.Dispatcher, pageURL string, mode types.Mode, selectors []string) (*command.Response, error) {
	if _, err := d.Dispatch(ctx, command.Request{Action: command.ActionNavigate, URL: pageURL}); err != nil {
		return nil, err
	}

	if mode == types.ModeFull {
		return d.Dispatch(ctx, command.Request{Action: command.ActionSaveFullPage})
	}

	active := true
	if _, err := d.Dispatch(ctx, command.Request{Action: command.ActionToggleSelectMode, Active: &active}); err != nil {
		return nil, err
	}
	for _, sel := range selectors {
		resp, err := d.Dispatch(ctx, command.Request{Action: command.ActionClick, Selector: sel})
		if err != nil {
			return nil, err
		}
		if resp.Handled == nil || !*resp.Handled {
			return nil, fmt.Errorf("%w: %s", ErrNoMatch, sel)
		}
	}
	return d.Dispatch(ctx, command.Request{Action: command.ActionSaveSelection})
}

// ConvertAction sends one saved snapshot to the PDF service and prints
// the service response.
func ConvertAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return ErrMissingInput
	}
	htmlPath, err := filepath.Abs(c.Args().First())
	if err != nil {
		return err
	}

	logger, err := newLogger(c.Bool("verbose"))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	output := c.String("output")
	if output == "" {
		output = delivery.PDFFilename(filepath.Base(htmlPath))
	}

	cfg := pdfclient.Config{Enabled: true, Endpoint: c.String("endpoint"), Timeout: c.Duration("timeout")}
	if err := cfg.Validate(); err != nil {
		return err
	}

	result, err := pdfclient.New(cfg, logger).Convert(c.Context, htmlPath, output)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, result)
	return err
}

// snapshotConfig loads --config when given and applies the flag overrides.
func snapshotConfig(c *cli.Context, logger *zap.Logger) (*config.SnapshotConfig, error) {
	var cfg *config.SnapshotConfig
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadSnapshotConfig(path, logger)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		def := config.DefaultSnapshotConfig()
		def.PDF.Enabled = false
		cfg = &def
	}

	if c.IsSet("chrome") || c.String("config") == "" {
		cfg.Chrome.Enabled = c.Bool("chrome")
	}
	if out := c.String("out"); out != "" {
		cfg.Delivery.DownloadsDir = out
	}
	if endpoint := c.String("pdf"); endpoint != "" {
		cfg.PDF.Enabled = true
		cfg.PDF.Endpoint = endpoint
	}
	cfg.Server.Timeout = types.Duration(c.Duration("timeout"))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return cfg, nil
}

// newLogger keeps stdout for results.
func newLogger(verbose bool) (*zap.Logger, error) {
	level := configtypes.LogLevelWarn
	if verbose {
		level = configtypes.LogLevelDebug
	}
	dl, err := logutil.NewLogger(configtypes.LogConfig{
		Level: level,
		Console: configtypes.ConsoleLogConfig{
			Enabled: true,
			Format:  configtypes.LogFormatConsole,
			Output:  configtypes.LogOutputStderr,
		},
	})
	if err != nil {
		return nil, err
	}
	return dl.Logger, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
