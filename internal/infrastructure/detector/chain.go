package detector

import (
	"context"
	"errors"
	"image"
	"strings"

	"screen-guide/internal/application/port/output"
	"screen-guide/internal/domain/entity"
)

var _ output.Detector = (*Chain)(nil)

// Chain asks each detector in turn and answers with the first non-empty
// result. Failures fall through to the next detector.
type Chain struct {
	detectors []output.Detector
}

func NewChain(detectors ...output.Detector) *Chain {
	return &Chain{detectors: detectors}
}

func (c *Chain) Name() string {
	names := make([]string, 0, len(c.detectors))
	for _, d := range c.detectors {
		names = append(names, d.Name())
	}
	return strings.Join(names, "+")
}

func (c *Chain) Detect(ctx context.Context, img image.Image, minConfidence float64, maxResults int) ([]entity.Detection, error) {
	var errs []error
	for _, d := range c.detectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dets, err := Safely(d.Name(), func() ([]entity.Detection, error) {
			return d.Detect(ctx, img, minConfidence, maxResults)
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		dets = FilterConfidence(dets, minConfidence)
		if len(dets) > 0 {
			return Limit(dets, maxResults), nil
		}
	}
	if len(errs) == len(c.detectors) && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, nil
}
