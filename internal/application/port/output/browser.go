package output

import (
	"context"
	"image"
)

// CaptureSource yields a pixel buffer for the current display.
type CaptureSource interface {
	Capture(ctx context.Context) (image.Image, error)
}

// BrowserPort is a capture source backed by a browser viewport.
type BrowserPort interface {
	CaptureSource

	Navigate(ctx context.Context, url string) error
	CurrentURL() string
	Close()
}
