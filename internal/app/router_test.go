package app

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stockline-erp/stockline/internal/observability"
	"github.com/stockline-erp/stockline/internal/stock"
	"github.com/stockline-erp/stockline/jobs"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetrics()
	store := stock.NewMemoryStore()
	service := stock.NewService(store, nil, nil, nil)
	return NewRouter(RouterParams{
		Logger:       logger,
		Config:       &Config{AppRequestTimeout: 0, RateLimitPerMinute: 10000},
		StockHandler: stock.NewHandler(logger, service, metrics),
		JobsHandler:  jobs.NewHandler(nil, logger),
		Metrics:      metrics,
	})
}

func TestRouterServesHealthz(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouterMountsJobsHealth(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Queue   string `json:"queue"`
		Pending int    `json:"pending"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "default", body.Queue)
	require.Zero(t, body.Pending)
}

func TestRouterServesMetrics(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
