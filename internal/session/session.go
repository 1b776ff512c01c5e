// Package session owns the live document for one page together with its
// selection tracker, and runs the save actions against it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andybalholm/cascadia"
	"go.uber.org/zap"

	"github.com/edgecomet/pagesaver/internal/assemble"
	"github.com/edgecomet/pagesaver/internal/capture"
	"github.com/edgecomet/pagesaver/internal/selection"
	"github.com/edgecomet/pagesaver/pkg/types"
)

type Assembler interface {
	AssembleFull(ctx context.Context, live *capture.LiveDocument) (*types.AssembledDocument, error)
	AssembleSelection(ctx context.Context, live *capture.LiveDocument, sel assemble.Selection) (*types.AssembledDocument, error)
}

type Deliverer interface {
	Deliver(ctx context.Context, doc *types.AssembledDocument) types.DeliveryOutcome
}

// Recorder receives snapshot metrics.
type Recorder interface {
	RecordSnapshot(mode types.Mode, status string, duration time.Duration)
	UpdateSelectionSize(n int)
}

// SaveResult pairs the delivered filename with the outcome.
type SaveResult struct {
	Filename string
	Outcome  types.DeliveryOutcome
}

type Option func(*Session)

func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

type Session struct {
	capturer  capture.Capturer
	assembler Assembler
	delivery  Deliverer
	recorder  Recorder
	logger    *zap.Logger

	// mu guards the live tree and the objects bound to it.
	mu      sync.Mutex
	live    *capture.LiveDocument
	overlay *selection.DOMOverlay
	bus     *selection.Bus
	tracker *selection.Tracker

	// saveMu runs one save at a time.
	saveMu sync.Mutex
}

func New(capturer capture.Capturer, assembler Assembler, delivery Deliverer, logger *zap.Logger, opts ...Option) *Session {
	s := &Session{
		capturer:  capturer,
		assembler: assembler,
		delivery:  delivery,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Navigate captures pageURL and replaces the live document. The previous
// selection does not survive.
func (s *Session) Navigate(ctx context.Context, pageURL string) error {
	live, err := s.capturer.Capture(ctx, pageURL)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", pageURL, err)
	}
	s.Attach(live)
	return nil
}

// Attach binds an already captured document.
func (s *Session) Attach(live *capture.LiveDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tracker != nil {
		s.tracker.Disable()
	}
	s.live = live
	s.overlay = selection.NewDOMOverlay(live.Doc, live)
	s.bus = selection.NewBus()
	s.tracker = selection.NewTracker(live, s.overlay, s.bus, s.logger.With(zap.String("url", live.URL)))
	s.updateSelectionSize(0)

	s.logger.Info("Page attached",
		zap.String("url", live.URL),
		zap.String("title", live.Title()),
		zap.Int("boxes", len(live.Geometry)))
}

// URL is empty before the first navigation.
func (s *Session) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live == nil {
		return ""
	}
	return s.live.URL
}

func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live != nil
}

func (s *Session) SelectMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker != nil && s.tracker.Active()
}

// SetSelectMode enables or disables selection mode.
func (s *Session) SetSelectMode(active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return ErrNoPage
	}
	if active {
		s.tracker.Enable()
		s.updateSelectionSize(0)
	} else {
		s.tracker.Disable()
	}
	return nil
}

func (s *Session) ClearSelection() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return ErrNoPage
	}
	s.tracker.Clear()
	s.updateSelectionSize(0)
	return nil
}

// SelectionSize counts selected elements that are still attached.
func (s *Session) SelectionSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return 0
	}
	return len(s.tracker.Selected())
}

// PointerMove feeds a synthetic pointer event.
func (s *Session) PointerMove(x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bus == nil {
		return ErrNoPage
	}
	s.bus.Dispatch(selection.Event{Kind: selection.PointerMove, X: x, Y: y})
	return nil
}

// Click feeds a synthetic click. It reports whether the default action was
// suppressed.
func (s *Session) Click(x, y float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bus == nil {
		return false, ErrNoPage
	}
	handled := s.bus.Dispatch(selection.Event{Kind: selection.Click, X: x, Y: y})
	s.updateSelectionSize(s.tracker.Len())
	return handled, nil
}

// ClickSelector toggles every element matching sel and returns how many
// were toggled.
func (s *Session) ClickSelector(sel string) (int, error) {
	matcher, err := cascadia.ParseGroup(sel)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrInvalidSelector, sel, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return 0, ErrNoPage
	}
	if !s.tracker.Active() {
		return 0, ErrNotSelecting
	}

	toggled := 0
	for _, n := range cascadia.QueryAll(s.live.Root(), matcher) {
		if s.tracker.ClickElement(n) {
			toggled++
		}
	}
	s.updateSelectionSize(s.tracker.Len())
	return toggled, nil
}

func (s *Session) SaveFullPage(ctx context.Context) (*SaveResult, error) {
	return s.save(ctx, types.ModeFull)
}

// SaveSelection fails with assemble.ErrEmptySelection before any delivery
// when nothing is selected.
func (s *Session) SaveSelection(ctx context.Context) (*SaveResult, error) {
	return s.save(ctx, types.ModeSelection)
}

func (s *Session) save(ctx context.Context, mode types.Mode) (*SaveResult, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	start := time.Now()
	doc, err := s.assemble(ctx, mode)
	if err != nil {
		status := "error"
		if errors.Is(err, assemble.ErrEmptySelection) {
			status = "empty"
		}
		s.recordSnapshot(mode, status, start)
		return nil, err
	}
	s.recordSnapshot(mode, "success", start)

	outcome := s.delivery.Deliver(ctx, doc)
	s.logger.Info("Snapshot delivered",
		zap.String("mode", string(mode)),
		zap.String("filename", doc.SuggestedFilename),
		zap.Bool("saved", outcome.Saved),
		zap.String("tier", string(outcome.Tier)),
		zap.String("path", outcome.Path))
	return &SaveResult{Filename: doc.SuggestedFilename, Outcome: outcome}, nil
}

// assemble holds the tree lock while the live document is read.
func (s *Session) assemble(ctx context.Context, mode types.Mode) (*types.AssembledDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live == nil {
		return nil, ErrNoPage
	}
	if mode == types.ModeSelection {
		return s.assembler.AssembleSelection(ctx, s.live, s.tracker)
	}
	return s.assembler.AssembleFull(ctx, s.live)
}

func (s *Session) recordSnapshot(mode types.Mode, status string, start time.Time) {
	if s.recorder != nil {
		s.recorder.RecordSnapshot(mode, status, time.Since(start))
	}
}

func (s *Session) updateSelectionSize(n int) {
	if s.recorder != nil {
		s.recorder.UpdateSelectionSize(n)
	}
}
