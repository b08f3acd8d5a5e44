package file

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"screen-guide/internal/infrastructure/capture"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource_Capture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screen.png")
	require.NoError(t, imaging.Save(imaging.New(64, 32, color.White), path))

	src := New(path)
	img, err := src.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 32), img.Bounds())

	again, err := src.Capture(context.Background())
	require.NoError(t, err)
	assert.Same(t, img, again)
}

func TestSource_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screen.png")
	require.NoError(t, imaging.Save(imaging.New(64, 32, color.White), path))

	src := New(path)
	_, err := src.Capture(context.Background())
	require.NoError(t, err)

	require.NoError(t, imaging.Save(imaging.New(10, 10, color.Black), path))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	img, err := src.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())
}

func TestSource_Missing(t *testing.T) {
	src := New(filepath.Join(t.TempDir(), "missing.png"))
	_, err := src.Capture(context.Background())
	assert.ErrorIs(t, err, capture.ErrNoFrame)
}

func TestSource_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New("unused.png").Capture(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
