package basic

import (
	"context"
	"image"

	"screen-guide/internal/application/port/output"
	"screen-guide/internal/domain/entity"
	"screen-guide/internal/infrastructure/detector"
	"screen-guide/internal/infrastructure/vision"
)

var _ output.Detector = (*Detector)(nil)

type Config struct {
	MaxWidth      int
	EdgeThreshold uint8
	DarkThreshold uint8
	MaxButtons    int
	MaxInputs     int
	MaxPatterns   int
}

func DefaultConfig() Config {
	return Config{
		MaxWidth:      1280,
		EdgeThreshold: 60,
		DarkThreshold: 100,
		MaxButtons:    5,
		MaxInputs:     3,
		MaxPatterns:   3,
	}
}

// Detector is the last-resort tier: coarse shape rules with fixed
// confidences and no ranking beyond per-category caps.
type Detector struct {
	cfg Config
}

func New(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

func (d *Detector) Name() string {
	return "basic"
}

func (d *Detector) Detect(ctx context.Context, img image.Image, minConfidence float64, maxResults int) ([]entity.Detection, error) {
	return detector.Safely(d.Name(), func() ([]entity.Detection, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		small, scale := vision.Downscale(img, d.cfg.MaxWidth)
		gray := vision.Gray(small)
		area := func(r image.Rectangle) float64 {
			return float64(vision.Area(r)) * scale * scale
		}

		var out []entity.Detection
		out = append(out, d.buttons(small, area)...)
		out = append(out, d.inputs(gray, scale, area)...)
		out = append(out, d.patterns(gray, area)...)

		out = detector.FilterConfidence(out, minConfidence)
		out = detector.Limit(out, maxResults)

		origin := img.Bounds().Min
		for i := range out {
			out[i].Box = vision.ScaleRect(out[i].Box, scale).Add(origin)
		}
		return out, nil
	})
}

func (d *Detector) buttons(img image.Image, area func(image.Rectangle) float64) []entity.Detection {
	var out []entity.Detection
	for _, r := range vision.Regions(vision.Edges(img, d.cfg.EdgeThreshold)) {
		a, ar := area(r), vision.Aspect(r)
		if a <= 500 || a >= 50000 || ar <= 0.3 || ar >= 5 {
			continue
		}
		out = append(out, entity.Detection{
			Label:      "Button",
			Box:        r,
			Action:     "Click this button",
			Confidence: 0.6,
			Kind:       entity.KindButton,
		})
		if len(out) == d.cfg.MaxButtons {
			break
		}
	}
	return out
}

// inputs merges dark text runs into bars with a wide closing kernel; wide
// bars are taken as text inputs.
func (d *Detector) inputs(gray *image.Gray, scale float64, area func(image.Rectangle) float64) []entity.Detection {
	kw := max(int(20/scale), 1)
	kh := max(int(5/scale), 1)
	bars := vision.Close(vision.Threshold(gray, d.cfg.DarkThreshold, true), kw, kh)

	var out []entity.Detection
	for _, r := range vision.Regions(bars) {
		a := area(r)
		if a <= 1000 || a >= 20000 || vision.Aspect(r) <= 2 {
			continue
		}
		out = append(out, entity.Detection{
			Label:      "Text Input",
			Box:        r,
			Action:     "Click to enter text",
			Confidence: 0.5,
			Kind:       entity.KindTextField,
		})
		if len(out) == d.cfg.MaxInputs {
			break
		}
	}
	return out
}

// patterns finds roughly square blobs after Otsu binarisation.
func (d *Detector) patterns(gray *image.Gray, area func(image.Rectangle) float64) []entity.Detection {
	mask := vision.Threshold(gray, vision.Otsu(gray), false)

	var out []entity.Detection
	for _, r := range vision.Regions(mask) {
		a, ar := area(r), vision.Aspect(r)
		if a <= 200 || a >= 5000 || ar <= 0.7 || ar >= 1.3 {
			continue
		}
		out = append(out, entity.Detection{
			Label:      "Clickable Element",
			Box:        r,
			Action:     "Click this element",
			Confidence: 0.4,
			Kind:       entity.KindGeneric,
		})
		if len(out) == d.cfg.MaxPatterns {
			break
		}
	}
	return out
}
