package httpserver

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"screen-guide/internal/application/port/output"
	"screen-guide/internal/domain/entity"
	"screen-guide/internal/infrastructure/capture"
	"screen-guide/internal/infrastructure/detector/remote"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/rs/zerolog"
)

const maxImageBytes = 32 << 20

var ErrNoImage = errors.New("image is required")

type detectHandler struct {
	detector output.Detector
	version  string
}

// NewDetectRouter serves the remote detection protocol on top of a local
// detector.
func NewDetectRouter(det output.Detector, version string, logger zerolog.Logger) http.Handler {
	h := &detectHandler{detector: det, version: version}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(httplog.RequestLogger(logger))

	r.Get("/health", h.health)
	r.Post("/detect", h.detect)
	return r
}

func (h *detectHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, remote.HealthResponse{Status: "healthy", Version: h.version})
}

func (h *detectHandler) detect(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req remote.Request
	if err := json.NewDecoder(io.LimitReader(r.Body, maxImageBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	data, err := decodeImage(req.Image)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	img, err := capture.Decode(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	confidence := req.Confidence
	if confidence <= 0 {
		confidence = 0.5
	}
	limit := req.MaxDetections
	if limit <= 0 {
		limit = entity.DefaultMaxDetections
	}

	dets, err := h.detector.Detect(r.Context(), img, confidence, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	origin := img.Bounds().Min
	out := remote.Response{Detections: make([]remote.WireDetection, 0, len(dets))}
	for _, d := range dets {
		box := d.Box.Sub(origin)
		out.Detections = append(out.Detections, remote.WireDetection{
			Label:      d.Label,
			Box:        []int{box.Min.X, box.Min.Y, box.Max.X, box.Max.Y},
			Action:     d.Action,
			Confidence: d.Confidence,
		})
	}
	out.ProcessingTime = time.Since(start).Seconds()
	writeJSON(w, http.StatusOK, out)
}

// decodeImage accepts plain base64 or a data URL.
func decodeImage(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrNoImage
	}
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return data, nil
}
