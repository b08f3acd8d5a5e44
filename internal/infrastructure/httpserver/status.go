package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"screen-guide/internal/application/port/input"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var errMissingQuestion = errors.New("question is required")

type helpRequest struct {
	Question string `json:"question"`
}

type statusHandler struct {
	ctrl input.GuidanceController
}

// NewStatusRouter exposes the guidance session over HTTP: a read-only status
// view, Prometheus metrics and the same controls the console offers.
func NewStatusRouter(ctrl input.GuidanceController, registry *prometheus.Registry, logger zerolog.Logger) http.Handler {
	h := &statusHandler{ctrl: ctrl}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(httplog.RequestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Get("/status", h.status)
	r.Post("/pause", h.command(ctrl.Pause))
	r.Post("/resume", h.command(ctrl.Resume))
	r.Post("/stop", h.command(ctrl.Stop))
	r.Post("/reset", h.command(ctrl.Reset))
	r.Post("/clicks/{id}", h.click)
	r.Post("/help", h.help)
	return r
}

func (h *statusHandler) status(w http.ResponseWriter, r *http.Request) {
	snap, err := h.ctrl.Status(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *statusHandler) command(fn func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(); err != nil {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func (h *statusHandler) click(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.HandleClick(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *statusHandler) help(w http.ResponseWriter, r *http.Request) {
	var req helpRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, errMissingQuestion)
		return
	}
	if err := h.ctrl.RequestHelp(req.Question); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
