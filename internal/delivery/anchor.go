package delivery

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// AnchorSaver hands the document to a plain download that reports nothing
// back: no id, no state, no final path.
type AnchorSaver interface {
	Save(ctx context.Context, filename string, data []byte) error
}

// AnchorWriter writes the file into a directory without conflict handling,
// like a browser anchor download into the default downloads folder.
type AnchorWriter struct {
	dir    string
	logger *zap.Logger
}

func NewAnchorWriter(dir string, logger *zap.Logger) *AnchorWriter {
	return &AnchorWriter{dir: dir, logger: logger}
}

func (a *AnchorWriter) Save(ctx context.Context, filename string, data []byte) error {
	if err := checkFilename(filename); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(a.dir, filename), data, 0o644); err != nil {
		return err
	}
	a.logger.Debug("Anchor download written", zap.String("filename", filename))
	return nil
}

// copyDir copies the regular files below src into dst, creating
// directories as needed. Existing files are overwritten.
func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
