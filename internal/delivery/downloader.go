package delivery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/edgecomet/pagesaver/internal/common/requestid"
)

type DownloadID string

type DownloadState int

const (
	DownloadInProgress DownloadState = iota
	DownloadComplete
	DownloadInterrupted
)

func (s DownloadState) String() string {
	switch s {
	case DownloadComplete:
		return "complete"
	case DownloadInterrupted:
		return "interrupted"
	default:
		return "in_progress"
	}
}

type ConflictAction string

const (
	ConflictUniquify  ConflictAction = "uniquify"
	ConflictOverwrite ConflictAction = "overwrite"
)

type DownloadRequest struct {
	Data     []byte
	Filename string
	Conflict ConflictAction
	// Prompt asks for a save dialog. Downloaders here never show one.
	Prompt bool
}

// Downloader is the privileged download primitive: it starts a download and
// reports its state until it completes or is interrupted.
type Downloader interface {
	Download(ctx context.Context, req DownloadRequest) (DownloadID, error)
	State(ctx context.Context, id DownloadID) (DownloadState, string, error)
}

type download struct {
	state DownloadState
	path  string
	err   error
}

// FileDownloader writes downloads asynchronously into one directory.
// It also saves snapshot resources below that directory.
type FileDownloader struct {
	dir    string
	logger *zap.Logger

	mu        sync.Mutex
	downloads map[DownloadID]*download
	wg        sync.WaitGroup
}

func NewFileDownloader(dir string, logger *zap.Logger) *FileDownloader {
	return &FileDownloader{
		dir:       dir,
		logger:    logger,
		downloads: make(map[DownloadID]*download),
	}
}

func (d *FileDownloader) Dir() string {
	return d.dir
}

// Download registers the download and writes it in the background.
func (d *FileDownloader) Download(ctx context.Context, req DownloadRequest) (DownloadID, error) {
	if req.Prompt {
		return "", ErrPromptRequested
	}
	if err := checkFilename(req.Filename); err != nil {
		return "", err
	}

	id := DownloadID(requestid.New(req.Filename))
	d.mu.Lock()
	d.downloads[id] = &download{state: DownloadInProgress}
	d.mu.Unlock()

	d.logger.Debug("Download started",
		zap.String("id", string(id)),
		zap.String("filename", req.Filename),
		zap.Int("bytes", len(req.Data)))

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		path, err := d.write(req)

		d.mu.Lock()
		defer d.mu.Unlock()
		dl := d.downloads[id]
		if err != nil {
			dl.state, dl.err = DownloadInterrupted, err
			d.logger.Warn("Download interrupted", zap.String("id", string(id)), zap.Error(err))
			return
		}
		dl.state, dl.path = DownloadComplete, path
		d.logger.Debug("Download complete", zap.String("id", string(id)), zap.String("path", path))
	}()

	return id, nil
}

func (d *FileDownloader) State(_ context.Context, id DownloadID) (DownloadState, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dl, ok := d.downloads[id]
	if !ok {
		return DownloadInterrupted, "", fmt.Errorf("%w: %s", ErrUnknownDownload, id)
	}
	if dl.state == DownloadInterrupted {
		return dl.state, "", dl.err
	}
	return dl.state, dl.path, nil
}

// Wait blocks until every started download has finished.
func (d *FileDownloader) Wait() {
	d.wg.Wait()
}

func (d *FileDownloader) write(req DownloadRequest) (string, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", err
	}
	if req.Conflict == ConflictOverwrite {
		path := filepath.Join(d.dir, req.Filename)
		return path, os.WriteFile(path, req.Data, 0o644)
	}

	f, err := createUnique(d.dir, req.Filename)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(req.Data); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// SaveResource writes data to relPath below the downloads directory and
// returns the absolute path.
func (d *FileDownloader) SaveResource(_ context.Context, relPath string, data []byte) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(relPath))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, relPath)
	}
	path := filepath.Join(d.dir, clean)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	d.logger.Debug("Resource saved", zap.String("path", path), zap.Int("bytes", len(data)))
	return path, nil
}

// createUnique creates name in dir, or "stem (N).ext" for the first free N.
func createUnique(dir, name string) (*os.File, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; i < 10000; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		f, err := os.OpenFile(filepath.Join(dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: no free name for %q", ErrDownloadFailed, name)
}

func checkFilename(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return nil
}
