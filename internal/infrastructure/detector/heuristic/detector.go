package heuristic

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
	MaxWidth          int
	MaxResults        int
	OverlapThreshold  float64
	EdgeThreshold     uint8
	IconEdgeThreshold uint8
	LightThreshold    uint8
}

func DefaultConfig() Config {
	return Config{
		MaxWidth:          1280,
		MaxResults:        8,
		OverlapThreshold:  0.3,
		EdgeThreshold:     60,
		IconEdgeThreshold: 120,
		LightThreshold:    200,
	}
}

// Detector finds buttons, text fields, icons, links and window controls
// from edges, brightness and color alone.
type Detector struct {
	cfg Config
}

func New(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

func (d *Detector) Name() string {
	return "heuristic"
}

func (d *Detector) Detect(ctx context.Context, img image.Image, minConfidence float64, maxResults int) ([]entity.Detection, error) {
	return detector.Safely(d.Name(), func() ([]entity.Detection, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		small, scale := vision.Downscale(img, d.cfg.MaxWidth)
		f := frame{img: small, gray: vision.Gray(small), scale: scale}

		var all []entity.Detection
		all = append(all, d.buttons(f)...)
		all = append(all, d.textFields(f)...)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		all = append(all, d.icons(f)...)
		all = append(all, d.links(f)...)
		all = append(all, d.windowControls(f)...)

		limit := d.cfg.MaxResults
		if maxResults > 0 && maxResults < limit {
			limit = maxResults
		}

		all = detector.FilterConfidence(all, minConfidence)
		detector.SortByScore(all)
		all = detector.Suppress(all, d.cfg.OverlapThreshold, detector.OverlapOfSmaller)
		all = detector.Limit(all, limit)

		origin := img.Bounds().Min
		for i := range all {
			all[i].Box = vision.ScaleRect(all[i].Box, scale).Add(origin)
		}
		return all, nil
	})
}

// frame carries a downscaled image. Size thresholds are expressed in
// full-resolution pixels and converted through scale.
type frame struct {
	img   image.Image
	gray  *image.Gray
	scale float64
}

func (f frame) area(r image.Rectangle) float64 {
	return float64(vision.Area(r)) * f.scale * f.scale
}

func (f frame) height(r image.Rectangle) float64 {
	return float64(r.Dy()) * f.scale
}

func (f frame) px(n int) int {
	return int(float64(n) / f.scale)
}

func (d *Detector) buttons(f frame) []entity.Detection {
	edges := vision.Dilate(vision.Edges(f.img, d.cfg.EdgeThreshold), 3, 3)

	var out []entity.Detection
	for _, r := range vision.Regions(edges) {
		a, ar := f.area(r), vision.Aspect(r)
		if a <= 1000 || a >= 50000 || ar <= 0.3 || ar >= 10 {
			continue
		}
		if !looksLikeButton(f.gray, r) {
			continue
		}
		out = append(out, entity.Detection{
			Label:      "button",
			Box:        r,
			Action:     "Click button",
			Confidence: 0.7,
			Kind:       entity.KindButton,
		})
	}
	return out
}

// looksLikeButton requires visible texture: text or a non-flat fill.
func looksLikeButton(g *image.Gray, r image.Rectangle) bool {
	sd, distinct := vision.Stats(g, r)
	return sd > 20 && distinct > 5
}

func (d *Detector) textFields(f frame) []entity.Detection {
	light := vision.Threshold(f.gray, d.cfg.LightThreshold, false)

	var out []entity.Detection
	for _, r := range vision.Regions(light) {
		a, ar := f.area(r), vision.Aspect(r)
		if a <= 2000 || a >= 100000 || ar <= 2 || f.height(r) >= 100 {
			continue
		}
		out = append(out, entity.Detection{
			Label:      "text_field",
			Box:        r,
			Action:     "Click to type text",
			Confidence: 0.6,
			Kind:       entity.KindTextField,
		})
	}
	return out
}

func (d *Detector) icons(f frame) []entity.Detection {
	edges := vision.Edges(f.img, d.cfg.IconEdgeThreshold)

	var out []entity.Detection
	for _, r := range vision.Regions(edges) {
		a, ar := f.area(r), vision.Aspect(r)
		if a <= 100 || a >= 5000 || ar <= 0.5 || ar >= 2 {
			continue
		}
		out = append(out, entity.Detection{
			Label:      "icon",
			Box:        r,
			Action:     "Click icon",
			Confidence: 0.5,
			Kind:       entity.KindIcon,
		})
	}
	return out
}

var (
	linkLow  = vision.HSV{H: 100, S: 50, V: 50}
	linkHigh = vision.HSV{H: 130, S: 255, V: 255}
)

func (d *Detector) links(f frame) []entity.Detection {
	blue := vision.InRange(f.img, linkLow, linkHigh)

	var out []entity.Detection
	for _, r := range vision.Regions(blue) {
		a := f.area(r)
		if a <= 50 || a >= 10000 || vision.Aspect(r) <= 1 {
			continue
		}
		out = append(out, entity.Detection{
			Label:      "link",
			Box:        r,
			Action:     "Click link",
			Confidence: 0.6,
			Kind:       entity.KindLink,
		})
	}
	return out
}

// windowControls looks for small squares in the top-right 100x50 strip and
// names them by horizontal position, rightmost being close.
func (d *Detector) windowControls(f frame) []entity.Detection {
	b := f.gray.Bounds()
	stripW, stripH := f.px(100), f.px(50)
	if b.Dx() <= stripW || b.Dy() <= stripH {
		return nil
	}
	strip := image.Rect(b.Dx()-stripW, 0, b.Dx(), stripH)
	edges := vision.Edges(f.img, d.cfg.EdgeThreshold)

	var out []entity.Detection
	for _, r := range vision.RegionsIn(edges, strip) {
		a, ar := f.area(r), vision.Aspect(r)
		if a <= 50 || a >= 1000 || ar <= 0.5 || ar >= 2 {
			continue
		}

		label, action := "minimize_button", "Minimize window"
		switch {
		case r.Min.X > b.Dx()-f.px(50):
			label, action = "close_button", "Close window"
		case r.Min.X > b.Dx()-f.px(80):
			label, action = "maximize_button", "Maximize window"
		}

		out = append(out, entity.Detection{
			Label:      label,
			Box:        r,
			Action:     action,
			Confidence: 0.8,
			Kind:       entity.KindWindowControl,
		})
	}
	return out
}
