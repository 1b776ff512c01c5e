package delivery

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/go-rod/rod/lib/launcher"
	"go.uber.org/zap"
)

// ManualSaveMessage is the instruction returned with a manual-save outcome.
const ManualSaveMessage = "Please save manually: the snapshot was opened from a temporary file, press Ctrl+S in that window to keep it"

// ManualSaver makes the document available for the user to save by hand.
type ManualSaver interface {
	Present(ctx context.Context, filename string, data []byte) (string, error)
}

// TempFileOpener writes a temporary copy and, when enabled, opens it in the
// desktop browser.
type TempFileOpener struct {
	dir    string
	open   bool
	opener func(string)
	logger *zap.Logger
}

func NewTempFileOpener(dir string, open bool, logger *zap.Logger) *TempFileOpener {
	return &TempFileOpener{
		dir:    dir,
		open:   open,
		opener: launcher.Open,
		logger: logger,
	}
}

func (m *TempFileOpener) Present(ctx context.Context, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := m.dir
	if dir == "" {
		dir = os.TempDir()
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	f, err := os.CreateTemp(dir, "pagesaver-*-"+filepath.Base(filename))
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	if m.open {
		u := url.URL{Scheme: "file", Path: filepath.ToSlash(f.Name())}
		m.opener(u.String())
		m.logger.Info("Opened snapshot for manual save", zap.String("path", f.Name()))
	}
	return f.Name(), nil
}

func manualReason(path string) string {
	return fmt.Sprintf("%s (%s)", ManualSaveMessage, path)
}
