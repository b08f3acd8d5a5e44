package output

import (
	"context"
	"image"

	"screen-guide/internal/domain/entity"
)

// Detector finds interactive elements in a frame. A returned error is a soft
// failure: callers treat it as "no detections from this detector".
type Detector interface {
	Name() string
	Detect(ctx context.Context, img image.Image, minConfidence float64, maxResults int) ([]entity.Detection, error)
}
