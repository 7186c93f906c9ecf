package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivf-outcome-server/internal/domain"
	"github.com/ivf-outcome-server/internal/engine"
	"github.com/ivf-outcome-server/internal/service"
)

type memoryStore struct {
	records map[string]*domain.PredictionRecord
	order   []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]*domain.PredictionRecord)}
}

func (s *memoryStore) SavePrediction(_ context.Context, rec *domain.PredictionRecord) error {
	s.records[rec.ID] = rec
	s.order = append(s.order, rec.ID)
	return nil
}

func (s *memoryStore) GetPrediction(_ context.Context, id string) (*domain.PredictionRecord, error) {
	rec, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

func (s *memoryStore) ListPredictions(_ context.Context, limit, offset int) ([]*domain.PredictionRecord, error) {
	var out []*domain.PredictionRecord
	for i := len(s.order) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.records[s.order[i]])
	}
	return out, nil
}

func (s *memoryStore) CountPredictions(_ context.Context) (int64, error) {
	return int64(len(s.records)), nil
}

func testConfig() *domain.Config {
	return &domain.Config{
		Server: domain.ServerConfig{
			Host:         "127.0.0.1",
			Port:         0,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
		Logging:   domain.LoggingConfig{Level: "error", Format: "json"},
		RateLimit: domain.RateLimitConfig{Enabled: false},
	}
}

func newTestServer(t *testing.T) (*Server, *memoryStore) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := newMemoryStore()
	predictor, err := service.NewPredictor(engine.NewEngine(logger), store, nil, logger)
	require.NoError(t, err)

	return NewServer(testConfig(), predictor, logger), store
}

func postJSON(t *testing.T, srv *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	srv.Router().ServeHTTP(w, req)
	return w
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func euploidRequest() map[string]any {
	return map[string]any{
		"oocyte_age":     33,
		"embryo_day":     5,
		"expansion":      5,
		"icm":            "A",
		"te":             "A",
		"genetic_status": "EUPLOID",
		"transfer_type":  "FROZEN",
	}
}

func TestCreatePrediction_Euploid(t *testing.T) {
	srv, store := newTestServer(t)

	w := postJSON(t, srv, "/api/v1/predictions", euploidRequest())

	require.Equal(t, http.StatusCreated, w.Code)

	var rec domain.PredictionRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.NotEmpty(t, rec.ID)
	assert.InDelta(t, 0.688, rec.Estimate.LiveBirthRate, 1e-9)
	assert.Equal(t, domain.CONFIDENCE_HIGH, rec.Estimate.Confidence)
	assert.NotEmpty(t, rec.Estimate.References)
	assert.Len(t, store.records, 1)
}

func TestCreatePrediction_OutOfRangeAgeReturnsSentinel(t *testing.T) {
	srv, _ := newTestServer(t)

	req := euploidRequest()
	req["oocyte_age"] = 19
	w := postJSON(t, srv, "/api/v1/predictions", req)

	// Out-of-range age is a domain outcome, not a request error.
	require.Equal(t, http.StatusCreated, w.Code)

	var rec domain.PredictionRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.True(t, rec.Estimate.Invalid())
	assert.Zero(t, rec.Estimate.LiveBirthRate)
	assert.Equal(t, domain.CONFIDENCE_LOW, rec.Estimate.Confidence)
}

func TestCreatePrediction_MalformedJSON(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predictions", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, domain.ErrCodeInvalidInput, apiErr.Code)
	assert.NotEmpty(t, apiErr.CorrelationID)
}

func TestCreatePrediction_InvalidCategoricals(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"mosaic level on euploid", func(m map[string]any) { m["mosaic_level"] = "LOW_LEVEL" }},
		{"unknown genetic status", func(m map[string]any) { m["genetic_status"] = "TRIPLOID" }},
		{"bad embryo day", func(m map[string]any) { m["embryo_day"] = 4 }},
		{"bad expansion", func(m map[string]any) { m["expansion"] = 7 }},
		{"bad grade", func(m map[string]any) { m["icm"] = "D" }},
		{"bad transfer type", func(m map[string]any) { m["transfer_type"] = "THAWED" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := euploidRequest()
			tt.mutate(req)
			w := postJSON(t, srv, "/api/v1/predictions", req)

			require.Equal(t, http.StatusUnprocessableEntity, w.Code)

			var apiErr domain.APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
			assert.Equal(t, domain.ErrCodeValidation, apiErr.Code)
		})
	}
}

func TestCreatePrediction_MosaicWithLevel(t *testing.T) {
	srv, _ := newTestServer(t)

	req := euploidRequest()
	req["genetic_status"] = "MOSAIC"
	req["mosaic_level"] = "LOW_LEVEL"
	req["oocyte_age"] = 36
	req["icm"] = "B"
	req["te"] = "B"
	w := postJSON(t, srv, "/api/v1/predictions", req)

	require.Equal(t, http.StatusCreated, w.Code)

	var rec domain.PredictionRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, domain.MOSAIC, rec.GeneticStatus)
	assert.Equal(t, domain.LOW_LEVEL, rec.MosaicLevel)
	assert.InDelta(t, 0.450, rec.Estimate.LiveBirthRate, 1e-9)
}

func TestGetPrediction(t *testing.T) {
	srv, _ := newTestServer(t)

	created := postJSON(t, srv, "/api/v1/predictions", euploidRequest())
	var rec domain.PredictionRecord
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &rec))

	w := get(t, srv, "/api/v1/predictions/"+rec.ID)
	require.Equal(t, http.StatusOK, w.Code)

	var loaded domain.PredictionRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loaded))
	assert.Equal(t, rec.ID, loaded.ID)
}

func TestGetPrediction_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	w := get(t, srv, "/api/v1/predictions/no-such-id")
	require.Equal(t, http.StatusNotFound, w.Code)

	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, domain.ErrCodeNotFound, apiErr.Code)
}

func TestListPredictions(t *testing.T) {
	srv, _ := newTestServer(t)

	for i := 0; i < 3; i++ {
		postJSON(t, srv, "/api/v1/predictions", euploidRequest())
	}

	w := get(t, srv, "/api/v1/predictions?limit=2")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Predictions []*domain.PredictionRecord `json:"predictions"`
		Total       int64                      `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Predictions, 2)
	assert.Equal(t, int64(3), resp.Total)
}

func TestStats(t *testing.T) {
	srv, _ := newTestServer(t)

	postJSON(t, srv, "/api/v1/predictions", euploidRequest())

	sentinel := euploidRequest()
	sentinel["oocyte_age"] = 55
	postJSON(t, srv, "/api/v1/predictions", sentinel)

	w := get(t, srv, "/api/v1/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var summary struct {
		Count    int     `json:"count"`
		Excluded int     `json:"excluded"`
		Mean     float64 `json:"mean"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.Count)
	assert.Equal(t, 1, summary.Excluded)
	assert.InDelta(t, 0.688, summary.Mean, 1e-9)
}

func TestReferences(t *testing.T) {
	srv, _ := newTestServer(t)

	w := get(t, srv, "/api/v1/references")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		EngineVersion string   `json:"engine_version"`
		Methodology   string   `json:"methodology"`
		References    []string `json:"references"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.EngineVersion, resp.EngineVersion)
	assert.NotEmpty(t, resp.Methodology)
	assert.NotEmpty(t, resp.References)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	w := get(t, srv, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestHealth_DegradedDependency(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.WithHealthCheck("database", func(context.Context) error {
		return errors.New("connection refused")
	})

	w := get(t, srv, "/health")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
}
