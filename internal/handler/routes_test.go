package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"stockchat-proxy/internal/client"
	"stockchat-proxy/internal/cors"
	"stockchat-proxy/internal/metrics"
	"stockchat-proxy/internal/service"
)

func TestRegisterRoutes_Wiring(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	cfg := testConfig(upstream.URL)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := service.NewProxyService(client.NewBackendClient(cfg, logger, nil), cfg, logger)
	if err != nil {
		t.Fatalf("NewProxyService: %v", err)
	}

	proxy := NewProxyHandler(svc, cors.NewPolicy(cfg), nil, logger)
	health := NewHealthHandler(cfg, "test")

	e := echo.New()
	RegisterRoutes(e, proxy, health)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"GET /healthz", http.MethodGet, "/healthz", http.StatusOK},
		{"GET /proxy/status", http.MethodGet, "/proxy/status", http.StatusOK},
		{"GET /api/proxy", http.MethodGet, "/api/proxy?path=stock/AAPL", http.StatusOK},
		{"POST /api/proxy", http.MethodPost, "/api/proxy?path=parse-stock-query", http.StatusOK},
		{"PUT /api/proxy", http.MethodPut, "/api/proxy?path=x", http.StatusOK},
		{"DELETE /api/proxy", http.MethodDelete, "/api/proxy?path=x", http.StatusOK},
		{"OPTIONS /api/proxy", http.MethodOptions, "/api/proxy", http.StatusOK},
		{"GET /api/proxy without path", http.MethodGet, "/api/proxy", http.StatusBadRequest},
		{"GET /metrics disabled", http.MethodGet, "/metrics", http.StatusNotFound},
		{"GET /unknown", http.MethodGet, "/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRegisterMetrics(t *testing.T) {
	cfg := testConfig("http://backend.internal")
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/custom-metrics"

	m := metrics.New()
	m.Outcome(metrics.OutcomeForwarded)

	e := echo.New()
	RegisterMetrics(e, cfg, m)

	req := httptest.NewRequest(http.MethodGet, "/custom-metrics", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `stockchat_proxy_outcomes_total{outcome="forwarded"} 1`) {
		t.Errorf("scrape output missing outcome counter:\n%s", rec.Body.String())
	}
}
