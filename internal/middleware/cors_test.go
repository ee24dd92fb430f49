package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"stockchat-proxy/internal/config"
	"stockchat-proxy/internal/cors"
)

func testPolicy(origins ...string) *cors.Policy {
	return cors.NewPolicy(&config.Config{
		CORS: config.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders: []string{"Content-Type", "Authorization"},
		},
	})
}

func TestCORS_AddsHeaders(t *testing.T) {
	e := echo.New()
	e.Use(CORS(testPolicy("*")))
	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if v := rec.Header().Get("Access-Control-Allow-Origin"); v != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", v, "*")
	}
	if v := rec.Header().Get("Access-Control-Allow-Methods"); v != "GET, POST, PUT, DELETE, OPTIONS" {
		t.Errorf("Access-Control-Allow-Methods = %q", v)
	}
	if v := rec.Header().Get("Access-Control-Allow-Headers"); v != "Content-Type, Authorization" {
		t.Errorf("Access-Control-Allow-Headers = %q", v)
	}
}

func TestCORS_OnHandlerError(t *testing.T) {
	e := echo.New()
	e.Use(CORS(testPolicy("*")))
	e.POST("/test", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "too big")
	})

	req := httptest.NewRequest(http.MethodPost, "/test", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
	if v := rec.Header().Get("Access-Control-Allow-Headers"); v != "Content-Type, Authorization" {
		t.Errorf("Access-Control-Allow-Headers = %q on 413", v)
	}
}

func TestCORS_OnRouterNotFound(t *testing.T) {
	e := echo.New()
	e.Use(CORS(testPolicy("*")))

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if v := rec.Header().Get("Access-Control-Allow-Origin"); v != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q on 404", v, "*")
	}
}

func TestCORS_Allowlist(t *testing.T) {
	e := echo.New()
	e.Use(CORS(testPolicy("https://chat.example")))
	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set("Origin", "https://chat.example")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if v := rec.Header().Get("Access-Control-Allow-Origin"); v != "https://chat.example" {
		t.Errorf("Access-Control-Allow-Origin = %q, want reflected origin", v)
	}

	req = httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set("Origin", "https://other.example")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if v := rec.Header().Get("Access-Control-Allow-Origin"); v != "" {
		t.Errorf("Access-Control-Allow-Origin = %q, want empty for unlisted origin", v)
	}
}
