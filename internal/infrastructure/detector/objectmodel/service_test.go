package objectmodel

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"screen-guide/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceModel_Predict(t *testing.T) {
	var got PredictRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(PredictResponse{Predictions: []WirePrediction{
			{Class: "laptop", Box: []int{10, 20, 110, 80}, Confidence: 0.82},
			{Class: "person", Box: []int{1, 2}, Confidence: 0.9},
		}})
	}))
	defer srv.Close()

	m := NewServiceModel(DefaultServiceConfig(srv.URL), logger.NewNop())
	preds, err := m.Predict(context.Background(), screen(320, 200, color.White), 0.3)
	require.NoError(t, err)

	assert.NotEmpty(t, got.Image)
	assert.InDelta(t, 0.3, got.Confidence, 1e-9)
	require.Len(t, preds, 1)
	assert.Equal(t, "laptop", preds[0].Class)
	assert.Equal(t, image.Rect(10, 20, 110, 80), preds[0].Box)
	assert.InDelta(t, 0.82, preds[0].Confidence, 1e-9)
}

func TestServiceModel_ScalesBoxesBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(PredictResponse{Predictions: []WirePrediction{
			{Class: "mouse", Box: []int{100, 50, 200, 100}, Confidence: 0.7},
		}})
	}))
	defer srv.Close()

	cfg := DefaultServiceConfig(srv.URL)
	cfg.MaxSide = 640
	m := NewServiceModel(cfg, logger.NewNop())

	preds, err := m.Predict(context.Background(), screen(1280, 800, color.White), 0.3)
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.Equal(t, image.Rect(200, 100, 400, 200), preds[0].Box)
}

func TestServiceModel_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow/predict" {
			time.Sleep(200 * time.Millisecond)
		}
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	m := NewServiceModel(DefaultServiceConfig(srv.URL), logger.NewNop())
	_, err := m.Predict(context.Background(), screen(64, 64, color.White), 0.3)
	assert.ErrorIs(t, err, ErrModelStatus)
	assert.Contains(t, err.Error(), "model not loaded")

	cfg := DefaultServiceConfig(srv.URL + "/slow")
	cfg.Timeout = 20 * time.Millisecond
	_, err = NewServiceModel(cfg, logger.NewNop()).Predict(context.Background(), screen(64, 64, color.White), 0.3)
	assert.Error(t, err)
}

func TestDetector_WithServiceModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(PredictResponse{Predictions: []WirePrediction{
			{Class: "Keyboard", Box: []int{20, 120, 300, 190}, Confidence: 0.75},
		}})
	}))
	defer srv.Close()

	d := New(DefaultConfig(), NewServiceModel(DefaultServiceConfig(srv.URL), logger.NewNop()), logger.NewNop())
	assert.True(t, d.HasModel())
	assert.False(t, New(DefaultConfig(), nil, logger.NewNop()).HasModel())

	dets, err := d.Detect(context.Background(), screen(320, 200, color.Black), 0.3, 10)
	require.NoError(t, err)
	kb, ok := find(dets, "keyboard_icon")
	require.True(t, ok)
	assert.Equal(t, image.Rect(20, 120, 300, 190), kb.Box)
}
