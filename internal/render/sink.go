package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Sink delivers a rendered document and reports where it went.
type Sink interface {
	Deliver(ctx context.Context, doc Document) (string, error)
}

// FileSink writes documents into Dir. A reader never sees a partial file:
// bytes go to a temp file that is renamed into place.
type FileSink struct {
	Dir string
}

// Deliver implements Sink.
func (s FileSink) Deliver(ctx context.Context, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.Dir, ".export-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	if _, err := tmp.Write(doc.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", doc.Filename, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", doc.Filename, err)
	}
	dst := filepath.Join(s.Dir, filepath.Base(doc.Filename))
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("rename %s: %w", doc.Filename, err)
	}
	return dst, nil
}
