// Package file serves frames from an image file on disk. The file is decoded
// again only when its modification time changes.
package file

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"sync"
	"time"

	"screen-guide/internal/application/port/output"
	"screen-guide/internal/infrastructure/capture"

	"github.com/disintegration/imaging"
)

var _ output.CaptureSource = (*Source)(nil)

type Source struct {
	path string

	mu      sync.Mutex
	frame   image.Image
	modTime time.Time
}

func New(path string) *Source {
	return &Source{path: path}
}

func (s *Source) Capture(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", s.path, capture.ErrNoFrame)
		}
		return nil, fmt.Errorf("stat frame: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frame != nil && info.ModTime().Equal(s.modTime) {
		return s.frame, nil
	}

	img, err := imaging.Open(s.path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("open frame %s: %w", s.path, err)
	}
	s.frame = img
	s.modTime = info.ModTime()
	return img, nil
}
