// Package command maps named actions onto a page session.
package command

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/edgecomet/pagesaver/internal/session"
)

// Action names.
const (
	ActionPing             = "ping"
	ActionGetSelectMode    = "getSelectMode"
	ActionToggleSelectMode = "toggleSelectMode"
	ActionSaveFullPage     = "saveFullPage"
	ActionSaveSelection    = "saveSelection"
	ActionClearSelection   = "clearSelection"
	ActionNavigate         = "navigate"
	ActionPointerMove      = "pointerMove"
	ActionClick            = "click"
)

// Session is the page state the dispatcher drives.
type Session interface {
	Navigate(ctx context.Context, pageURL string) error
	URL() string
	SelectMode() bool
	SetSelectMode(active bool) error
	ClearSelection() error
	SelectionSize() int
	PointerMove(x, y float64) error
	Click(x, y float64) (bool, error)
	ClickSelector(sel string) (int, error)
	SaveFullPage(ctx context.Context) (*session.SaveResult, error)
	SaveSelection(ctx context.Context) (*session.SaveResult, error)
}

type Recorder interface {
	RecordCommand(action, status string)
}

type Request struct {
	Action   string   `json:"action"`
	Active   *bool    `json:"active,omitempty"`
	URL      string   `json:"url,omitempty"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Selector string   `json:"selector,omitempty"`
	// Async makes save actions return before delivery finishes.
	Async bool `json:"async,omitempty"`
}

type Response struct {
	Success *bool  `json:"success,omitempty"`
	Active  *bool  `json:"active,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`

	URL      string `json:"url,omitempty"`
	Selected *int   `json:"selected,omitempty"`
	Handled  *bool  `json:"handled,omitempty"`
	Pending  bool   `json:"pending,omitempty"`

	Filename string `json:"filename,omitempty"`
	Path     string `json:"path,omitempty"`
	Tier     string `json:"tier,omitempty"`
	Guessed  bool   `json:"guessed,omitempty"`
	PDF      string `json:"pdf,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// ErrorResponse renders err for a caller.
func ErrorResponse(err error) *Response {
	return &Response{Success: boolPtr(false), Error: err.Error(), Code: Code(err)}
}

type Dispatcher struct {
	session  Session
	recorder Recorder
	logger   *zap.Logger

	// background saves outlive the request that started them
	base context.Context
	wg   sync.WaitGroup
}

func NewDispatcher(base context.Context, s Session, recorder Recorder, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		session:  s,
		recorder: recorder,
		logger:   logger,
		base:     base,
	}
}

// Dispatch runs one command. Unknown actions fail with ErrUnknownAction
// and a message naming the action.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Response, error) {
	resp, err := d.dispatch(ctx, req)
	status := "ok"
	if err != nil {
		status = Code(err)
		d.logger.Debug("Command failed",
			zap.String("action", req.Action),
			zap.String("code", status),
			zap.Error(err))
	}
	if d.recorder != nil {
		action := req.Action
		if status == CodeUnknownAction {
			action = "unknown"
		}
		d.recorder.RecordCommand(action, status)
	}
	return resp, err
}

func (d *Dispatcher) dispatch(ctx context.Context, req Request) (*Response, error) {
	switch req.Action {
	case ActionPing:
		return &Response{Active: boolPtr(true), URL: d.session.URL()}, nil

	case ActionGetSelectMode:
		return &Response{Active: boolPtr(d.session.SelectMode())}, nil

	case ActionToggleSelectMode:
		if req.Active == nil {
			return nil, fmt.Errorf("%w: active", ErrMissingField)
		}
		if err := d.session.SetSelectMode(*req.Active); err != nil {
			return nil, err
		}
		return &Response{Success: boolPtr(true), Active: boolPtr(*req.Active)}, nil

	case ActionClearSelection:
		if err := d.session.ClearSelection(); err != nil {
			return nil, err
		}
		return &Response{Success: boolPtr(true)}, nil

	case ActionSaveFullPage:
		return d.save(ctx, req, d.session.SaveFullPage)

	case ActionSaveSelection:
		// report an empty selection synchronously even for async saves
		if req.Async && d.session.SelectionSize() == 0 {
			_, err := d.session.SaveSelection(ctx)
			return nil, err
		}
		return d.save(ctx, req, d.session.SaveSelection)

	case ActionNavigate:
		if req.URL == "" {
			return nil, fmt.Errorf("%w: url", ErrMissingField)
		}
		if err := d.session.Navigate(ctx, req.URL); err != nil {
			return nil, err
		}
		return &Response{Success: boolPtr(true), URL: d.session.URL()}, nil

	case ActionPointerMove:
		if req.X == nil || req.Y == nil {
			return nil, fmt.Errorf("%w: x, y", ErrMissingField)
		}
		if err := d.session.PointerMove(*req.X, *req.Y); err != nil {
			return nil, err
		}
		return &Response{Success: boolPtr(true)}, nil

	case ActionClick:
		return d.click(req)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, req.Action)
	}
}

func (d *Dispatcher) click(req Request) (*Response, error) {
	if req.Selector != "" {
		n, err := d.session.ClickSelector(req.Selector)
		if err != nil {
			return nil, err
		}
		selected := d.session.SelectionSize()
		return &Response{Success: boolPtr(true), Handled: boolPtr(n > 0), Selected: &selected}, nil
	}
	if req.X == nil || req.Y == nil {
		return nil, fmt.Errorf("%w: selector or x, y", ErrMissingField)
	}
	handled, err := d.session.Click(*req.X, *req.Y)
	if err != nil {
		return nil, err
	}
	selected := d.session.SelectionSize()
	return &Response{Success: boolPtr(true), Handled: boolPtr(handled), Selected: &selected}, nil
}

type saveFunc func(ctx context.Context) (*session.SaveResult, error)

func (d *Dispatcher) save(ctx context.Context, req Request, fn saveFunc) (*Response, error) {
	if !req.Async {
		res, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return saveResponse(res), nil
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		res, err := fn(d.base)
		if err != nil {
			d.logger.Warn("Background save failed", zap.String("action", req.Action), zap.Error(err))
			return
		}
		d.logger.Info("Background save finished",
			zap.String("action", req.Action),
			zap.Bool("saved", res.Outcome.Saved),
			zap.String("path", res.Outcome.Path))
	}()
	return &Response{Success: boolPtr(true), Pending: true}, nil
}

// Wait blocks until background saves finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func saveResponse(res *session.SaveResult) *Response {
	out := res.Outcome
	return &Response{
		Success:  boolPtr(out.Saved),
		Filename: res.Filename,
		Path:     out.Path,
		Tier:     string(out.Tier),
		Guessed:  out.PathGuessed,
		PDF:      out.PDF,
		Reason:   out.Reason,
	}
}

func boolPtr(b bool) *bool { return &b }
