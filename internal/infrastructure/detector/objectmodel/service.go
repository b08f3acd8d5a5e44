package objectmodel

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
	"screen-guide/internal/infrastructure/capture"
)

var _ Model = (*ServiceModel)(nil)

var ErrModelStatus = errors.New("object model service bad status")

// PredictRequest is the body of POST <URL>/predict.
type PredictRequest struct {
	Image      string  `json:"image"`
	Confidence float64 `json:"confidence"`
}

// WirePrediction carries a box as [x1, y1, x2, y2] in the pixel space of
// the submitted image.
type WirePrediction struct {
	Class      string  `json:"class"`
	Box        []int   `json:"box"`
	Confidence float64 `json:"confidence"`
}

type PredictResponse struct {
	Predictions []WirePrediction `json:"predictions"`
}

type ServiceConfig struct {
	URL         string
	Path        string
	Timeout     time.Duration
	JPEGQuality int
	MaxSide     int
}

func DefaultServiceConfig(url string) ServiceConfig {
	return ServiceConfig{
		URL:         url,
		Path:        "/predict",
		Timeout:     3 * time.Second,
		JPEGQuality: 85,
		MaxSide:     640,
	}
}

// ServiceModel asks a pretrained object detector served over HTTP, such as
// a YOLO model behind a small inference server.
type ServiceModel struct {
	cfg    ServiceConfig
	httpc  *http.Client
	logger output.LoggerPort
}

func NewServiceModel(cfg ServiceConfig, logger output.LoggerPort) *ServiceModel {
	if cfg.Path == "" {
		cfg.Path = "/predict"
	}
	return &ServiceModel{
		cfg:    cfg,
		httpc:  &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (m *ServiceModel) Predict(ctx context.Context, img image.Image, minConfidence float64) ([]Prediction, error) {
	encoded, scale, err := capture.EncodeJPEG(img, m.cfg.MaxSide, m.cfg.JPEGQuality)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(PredictRequest{Image: encoded, Confidence: minConfidence})
	if err != nil {
		return nil, fmt.Errorf("marshal predict request: %w", err)
	}

	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
	}

	url := strings.TrimRight(m.cfg.URL, "/") + m.cfg.Path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := m.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("predict request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: %d: %s", ErrModelStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out PredictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode predict response: %w", err)
	}
	if m.logger != nil {
		m.logger.Debug("Object model answered", "count", len(out.Predictions), "elapsed", time.Since(start).String())
	}

	origin := img.Bounds().Min
	preds := make([]Prediction, 0, len(out.Predictions))
	for _, p := range out.Predictions {
		if len(p.Box) != 4 {
			continue
		}
		preds = append(preds, Prediction{
			Class: p.Class,
			Box: image.Rect(
				int(float64(p.Box[0])*scale),
				int(float64(p.Box[1])*scale),
				int(float64(p.Box[2])*scale),
				int(float64(p.Box[3])*scale),
			).Add(origin),
			Confidence: p.Confidence,
		})
	}
	return preds, nil
}
