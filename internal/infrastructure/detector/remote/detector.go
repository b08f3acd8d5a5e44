package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"screen-guide/internal/application/port/output"
	"screen-guide/internal/domain/entity"
	"screen-guide/internal/infrastructure/capture"
	"screen-guide/internal/infrastructure/detector"
	"screen-guide/internal/infrastructure/resilience"
)

var _ output.Detector = (*Detector)(nil)

var (
	ErrCircuitOpen = errors.New("remote detection circuit open")
	ErrStatus      = errors.New("remote detection bad status")
)

type Config struct {
	BaseURL      string
	Path         string
	Timeout      time.Duration
	JPEGQuality  int
	MaxSide      int
	RequestFloor float64
}

func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		Path:         "/detect",
		Timeout:      6 * time.Second,
		JPEGQuality:  85,
		MaxSide:      1920,
		RequestFloor: 0.5,
	}
}

// Detector sends frames to the detection service and maps the answer back
// into capture coordinates.
type Detector struct {
	cfg     Config
	httpc   *http.Client
	breaker *resilience.CircuitBreaker
	logger  output.LoggerPort
}

func New(cfg Config, breaker *resilience.CircuitBreaker, logger output.LoggerPort) *Detector {
	return &Detector{
		cfg:     cfg,
		httpc:   &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		logger:  logger,
	}
}

func (d *Detector) Name() string {
	return "remote"
}

func (d *Detector) Detect(ctx context.Context, img image.Image, minConfidence float64, maxResults int) ([]entity.Detection, error) {
	if d.breaker != nil && !d.breaker.Allow() {
		return nil, ErrCircuitOpen
	}

	dets, err := detector.Safely(d.Name(), func() ([]entity.Detection, error) {
		return d.detect(ctx, img, minConfidence, maxResults)
	})
	if d.breaker != nil && !errors.Is(err, context.Canceled) {
		d.breaker.RecordResult(err)
	}
	return dets, err
}

func (d *Detector) detect(ctx context.Context, img image.Image, minConfidence float64, maxResults int) ([]entity.Detection, error) {
	encoded, scale, err := d.encode(img)
	if err != nil {
		return nil, err
	}

	confidence := minConfidence
	if confidence <= 0 {
		confidence = d.cfg.RequestFloor
	}
	if maxResults <= 0 {
		maxResults = entity.DefaultMaxDetections
	}

	payload, err := json.Marshal(Request{
		Image:         encoded,
		Confidence:    confidence,
		MaxDetections: maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal detect request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	url := strings.TrimRight(d.cfg.BaseURL, "/") + d.cfg.Path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build detect request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := d.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: %d: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode detect response: %w", err)
	}

	if d.logger != nil {
		d.logger.Debug("Remote detection finished",
			"count", len(out.Detections),
			"elapsed", time.Since(start).String(),
			"serverTime", out.ProcessingTime,
		)
	}

	origin := img.Bounds().Min
	dets := make([]entity.Detection, 0, len(out.Detections))
	for _, w := range out.Detections {
		if len(w.Box) != 4 {
			continue
		}
		box := image.Rect(
			int(float64(w.Box[0])*scale),
			int(float64(w.Box[1])*scale),
			int(float64(w.Box[2])*scale),
			int(float64(w.Box[3])*scale),
		).Add(origin)
		dets = append(dets, entity.Detection{
			Label:      w.Label,
			Box:        box,
			Action:     w.Action,
			Confidence: w.Confidence,
			Kind:       entity.KindFromLabel(w.Label),
		})
	}
	return dets, nil
}

func (d *Detector) encode(img image.Image) (string, float64, error) {
	return capture.EncodeJPEG(img, d.cfg.MaxSide, d.cfg.JPEGQuality)
}
