package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestSecurityHeaders_AddsHeaders(t *testing.T) {
	e := echo.New()
	e.Use(SecurityHeaders())
	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	}
	for name, v := range want {
		if got := rec.Result().Header.Get(name); got != v {
			t.Errorf("%s = %q, want %q", name, got, v)
		}
	}
}

func TestSecurityHeaders_OnErrorResponse(t *testing.T) {
	e := echo.New()
	e.Use(SecurityHeaders())
	e.GET("/test", func(_ echo.Context) error {
		return echo.NewHTTPError(http.StatusBadGateway)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if v := rec.Result().Header.Get("X-Content-Type-Options"); v != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want %q", v, "nosniff")
	}
}

func TestSecurityHeaders_HandlerMayOverride(t *testing.T) {
	e := echo.New()
	e.Use(SecurityHeaders())
	e.GET("/test", func(c echo.Context) error {
		c.Response().Header().Set("X-Frame-Options", "SAMEORIGIN")
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if v := rec.Result().Header.Get("X-Frame-Options"); v != "SAMEORIGIN" {
		t.Errorf("X-Frame-Options = %q, want handler value", v)
	}
}

func TestSecurityHeaders_StripsHopByHop(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		gone   []string
		kept   []string
	}{
		{
			name:   "fixed list",
			header: map[string]string{"Connection": "keep-alive", "Proxy-Authorization": "Basic abc", "Content-Type": "application/json"},
			gone:   []string{"Connection", "Proxy-Authorization"},
			kept:   []string{"Content-Type"},
		},
		{
			name:   "named in connection",
			header: map[string]string{"Connection": "X-Trace, close", "X-Trace": "1", "Origin": "https://app.example.com"},
			gone:   []string{"Connection", "X-Trace"},
			kept:   []string{"Origin"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.Use(SecurityHeaders())

			var got http.Header
			e.GET("/test", func(c echo.Context) error {
				got = c.Request().Header.Clone()
				return c.String(http.StatusOK, "ok")
			})

			req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			e.ServeHTTP(httptest.NewRecorder(), req)

			for _, name := range tt.gone {
				if v := got.Get(name); v != "" {
					t.Errorf("%s should be stripped, got %q", name, v)
				}
			}
			for _, name := range tt.kept {
				if v := got.Get(name); v != tt.header[name] {
					t.Errorf("%s = %q, want %q", name, v, tt.header[name])
				}
			}
		})
	}
}
