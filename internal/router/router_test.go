package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"retro/internal/config"
	"retro/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder := metrics.NewPrometheus(reg)
	recorder.CardCreated()
	recorder.EventRateLimited("card:create")

	r := NewRouter(zap.NewNop(), &config.Config{Env: "dev", FrontendURLs: []string{"http://localhost:3000"}})
	r.RegisterMetricsRoutes(reg)

	rec := httptest.NewRecorder()
	r.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "retro_cards_created_total 1")
	assert.Contains(t, rec.Body.String(), `retro_events_rate_limited_total{event="card:create"} 1`)
}

func TestUnknownRouteIs404(t *testing.T) {
	r := NewRouter(zap.NewNop(), &config.Config{Env: "dev"})
	rec := httptest.NewRecorder()
	r.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
