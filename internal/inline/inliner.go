// Package inline embeds a snapshot's external images, backgrounds and
// stylesheets so the saved document renders without the network.
//
// Nothing here returns an error past the package boundary: every resource
// ends as embedded data, a relinked URL, a placeholder, or untouched.
package inline

import (
	"context"

	"go.uber.org/zap"

	"github.com/edgecomet/pagesaver/pkg/types"
)

// Page is the live page a clone came from.
type Page struct {
	URL   string
	Title string
}

// Saver writes a resource next to the snapshot and returns where it went.
type Saver interface {
	SaveResource(ctx context.Context, relPath string, data []byte) (string, error)
}

// Recorder receives one outcome per resource.
type Recorder interface {
	RecordEmbed(kind types.ResourceKind, outcome types.EmbedKind)
}

type Option func(*Inliner)

func WithRedrawer(r Redrawer) Option {
	return func(in *Inliner) { in.redrawer = r }
}

func WithProber(p Prober) Option {
	return func(in *Inliner) { in.prober = p }
}

// WithSaver enables saving background images that cannot be embedded.
func WithSaver(s Saver) Option {
	return func(in *Inliner) { in.saver = s }
}

func WithRecorder(r Recorder) Option {
	return func(in *Inliner) { in.recorder = r }
}

type Inliner struct {
	config   Config
	fetcher  Fetcher
	redrawer Redrawer
	prober   Prober
	saver    Saver
	recorder Recorder
	logger   *zap.Logger
}

// New builds an Inliner. The raster redrawer and load prober are backed by
// fetcher unless replaced by options.
func New(config Config, fetcher Fetcher, logger *zap.Logger, opts ...Option) *Inliner {
	in := &Inliner{
		config:  config,
		fetcher: fetcher,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.redrawer == nil {
		in.redrawer = NewRasterRedrawer(fetcher, config.RedrawTimeout, logger)
	}
	if in.prober == nil {
		in.prober = NewLoadProber(fetcher, config.ProbeTimeout, logger)
	}
	return in
}

func (in *Inliner) record(kind types.ResourceKind, outcome types.EmbedKind) {
	if in.recorder != nil {
		in.recorder.RecordEmbed(kind, outcome)
	}
}
