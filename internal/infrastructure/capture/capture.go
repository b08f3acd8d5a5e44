// Package capture holds what the capture sources share.
package capture

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ErrNoFrame means the source could not produce a frame right now. The
// guidance loop skips the cycle and tries again later.
var ErrNoFrame = errors.New("no frame available")

func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty frame: %w", ErrNoFrame)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

// EncodeJPEG fits img inside maxSide (0 keeps the size) and returns it as
// base64 JPEG plus the factor that maps encoded pixels back to img.
func EncodeJPEG(img image.Image, maxSide, quality int) (string, float64, error) {
	b := img.Bounds()
	scale := 1.0
	src := img
	if maxSide > 0 && (b.Dx() > maxSide || b.Dy() > maxSide) {
		fitted := imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
		scale = float64(b.Dx()) / float64(fitted.Bounds().Dx())
		src = fitted
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, src, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return "", 0, fmt.Errorf("encode frame: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), scale, nil
}
