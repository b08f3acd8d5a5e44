package objectmodel

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"screen-guide/internal/application/port/output"
	"screen-guide/internal/domain/entity"
	"screen-guide/internal/infrastructure/detector"
	"screen-guide/internal/infrastructure/vision"
)

var _ output.Detector = (*Detector)(nil)

// Prediction is one object reported by a pretrained model.
type Prediction struct {
	Class      string
	Box        image.Rectangle
	Confidence float64
}

// Model runs a pretrained object detector over a frame.
type Model interface {
	Predict(ctx context.Context, img image.Image, minConfidence float64) ([]Prediction, error)
}

type ModelFunc func(ctx context.Context, img image.Image, minConfidence float64) ([]Prediction, error)

func (f ModelFunc) Predict(ctx context.Context, img image.Image, minConfidence float64) ([]Prediction, error) {
	return f(ctx, img, minConfidence)
}

// relevantClasses are model classes worth pointing at on a desktop.
var relevantClasses = map[string]bool{
	"laptop":     true,
	"mouse":      true,
	"keyboard":   true,
	"cell phone": true,
	"tv":         true,
	"monitor":    true,
	"book":       true,
	"clock":      true,
	"remote":     true,
	"scissors":   true,
}

type Config struct {
	MaxWidth      int
	MaxResults    int
	IoUThreshold  float64
	EdgeThreshold uint8
}

func DefaultConfig() Config {
	return Config{
		MaxWidth:      1280,
		MaxResults:    10,
		IoUThreshold:  0.5,
		EdgeThreshold: 60,
	}
}

// Detector combines an optional object model with fixed color and shape
// templates for browser chrome.
type Detector struct {
	cfg      Config
	model    Model
	logger   output.LoggerPort
	warnOnce sync.Once
}

func New(cfg Config, model Model, logger output.LoggerPort) *Detector {
	return &Detector{
		cfg:    cfg,
		model:  model,
		logger: logger,
	}
}

func (d *Detector) Name() string {
	return "objectmodel"
}

// HasModel reports whether predictions come from a pretrained model rather
// than the templates alone.
func (d *Detector) HasModel() bool {
	return d.model != nil
}

func (d *Detector) Detect(ctx context.Context, img image.Image, minConfidence float64, maxResults int) ([]entity.Detection, error) {
	return detector.Safely(d.Name(), func() ([]entity.Detection, error) {
		var all []entity.Detection

		preds, err := d.predict(ctx, img, minConfidence)
		if err != nil {
			return nil, err
		}
		all = append(all, preds...)

		small, scale := vision.Downscale(img, d.cfg.MaxWidth)
		var templates []entity.Detection
		templates = append(templates, d.closeButtons(small, scale)...)
		templates = append(templates, d.addressBars(small, scale)...)
		templates = append(templates, d.commonButtons(small, scale)...)

		origin := img.Bounds().Min
		for i := range templates {
			templates[i].Box = vision.ScaleRect(templates[i].Box, scale).Add(origin)
		}
		all = append(all, templates...)

		limit := d.cfg.MaxResults
		if maxResults > 0 && maxResults < limit {
			limit = maxResults
		}

		all = detector.FilterConfidence(all, minConfidence)
		detector.SortByConfidence(all)
		all = detector.Suppress(all, d.cfg.IoUThreshold, entity.IoU)
		return detector.Limit(all, limit), nil
	})
}

func (d *Detector) predict(ctx context.Context, img image.Image, minConfidence float64) ([]entity.Detection, error) {
	if d.model == nil {
		d.warnOnce.Do(func() {
			if d.logger != nil {
				d.logger.Warn("No object model configured, using templates only")
			}
		})
		return nil, nil
	}

	preds, err := d.model.Predict(ctx, img, minConfidence)
	if err != nil {
		return nil, fmt.Errorf("object model predict: %w", err)
	}

	out := make([]entity.Detection, 0, len(preds))
	for _, p := range preds {
		class := strings.ToLower(strings.TrimSpace(p.Class))
		if !relevantClasses[class] {
			continue
		}
		out = append(out, entity.Detection{
			Label:      class + "_icon",
			Box:        p.Box,
			Action:     "Click on " + class,
			Confidence: p.Confidence,
			Kind:       entity.KindIcon,
		})
	}
	return out, nil
}

var (
	redLow  = vision.HSV{H: 0, S: 100, V: 100}
	redHigh = vision.HSV{H: 10, S: 255, V: 255}
)

// closeButtons looks for a red blob in the top-right 150x50 strip.
func (d *Detector) closeButtons(img image.Image, scale float64) []entity.Detection {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	stripW, stripH := min(int(150/scale), w), min(int(50/scale), h)
	strip := image.Rect(w-stripW, 0, w, stripH)

	red := vision.InRange(img, redLow, redHigh)

	var out []entity.Detection
	for _, r := range vision.RegionsIn(red, strip) {
		a := float64(vision.Area(r)) * scale * scale
		if a <= 50 || a >= 500 {
			continue
		}
		out = append(out, entity.Detection{
			Label:      "close_button",
			Box:        r,
			Action:     "Close window",
			Confidence: 0.8,
			Kind:       entity.KindWindowControl,
		})
	}
	return out
}

// addressBars looks for a wide light strip in the top 100 rows.
func (d *Detector) addressBars(img image.Image, scale float64) []entity.Detection {
	b := img.Bounds()
	top := image.Rect(0, 0, b.Dx(), min(int(100/scale), b.Dy()))
	light := vision.Threshold(vision.Gray(img), 200, false)

	var out []entity.Detection
	for _, r := range vision.RegionsIn(light, top) {
		a := float64(vision.Area(r)) * scale * scale
		if a <= 1000 || vision.Aspect(r) <= 5 || float64(r.Dy())*scale >= 50 {
			continue
		}
		out = append(out, entity.Detection{
			Label:      "address_bar",
			Box:        r,
			Action:     "Click to enter URL",
			Confidence: 0.6,
			Kind:       entity.KindTextField,
		})
	}
	return out
}

func (d *Detector) commonButtons(img image.Image, scale float64) []entity.Detection {
	var out []entity.Detection
	for _, r := range vision.Regions(vision.Edges(img, d.cfg.EdgeThreshold)) {
		a, ar := float64(vision.Area(r))*scale*scale, vision.Aspect(r)
		if a <= 500 || a >= 10000 || ar <= 0.5 || ar >= 5 {
			continue
		}
		out = append(out, entity.Detection{
			Label:      "button",
			Box:        r,
			Action:     "Click button",
			Confidence: 0.5,
			Kind:       entity.KindButton,
		})
	}
	return out
}
