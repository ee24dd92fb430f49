package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"stockchat-proxy/internal/contenttype"
	"stockchat-proxy/internal/cors"
	"stockchat-proxy/internal/metrics"
	"stockchat-proxy/internal/model"
	"stockchat-proxy/internal/service"
)

// Forwarder is the part of service.ProxyService the handler depends on.
type Forwarder interface {
	Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error)
}

// ProxyHandler relays browser requests to the backend API.
type ProxyHandler struct {
	service Forwarder
	cors    *cors.Policy
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewProxyHandler creates a ProxyHandler. m may be nil.
func NewProxyHandler(svc *service.ProxyService, policy *cors.Policy, m *metrics.Metrics, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		cors:    policy,
		metrics: m,
		logger:  logger.With("component", "proxy_handler"),
	}
}

// Handle forwards the request named by the path query parameter and writes
// the backend's answer back with CORS headers.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()
	header := c.Response().Header()

	if req.Method == http.MethodOptions {
		h.cors.Apply(header, req.Header.Get(echo.HeaderOrigin))
		h.metrics.Outcome(metrics.OutcomePreflight)
		return c.NoContent(http.StatusOK)
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		// Body limit violations surface as *echo.HTTPError (413).
		var he *echo.HTTPError
		if errors.As(err, &he) {
			h.cors.Apply(header, req.Header.Get(echo.HeaderOrigin))
			return he
		}
		return h.mapError(c, err)
	}

	resp, err := h.service.Forward(&model.ProxyRequest{
		Ctx:    req.Context(),
		Method: req.Method,
		Query:  c.QueryParams(),
		Header: req.Header,
		Body:   body,
	})
	if err != nil {
		return h.mapError(c, err)
	}
	h.metrics.Outcome(metrics.OutcomeForwarded)

	for key, vals := range resp.Header {
		header[key] = vals
	}
	h.cors.Apply(header, req.Header.Get(echo.HeaderOrigin))

	switch resp.Kind {
	case contenttype.JSON:
		return c.JSON(resp.StatusCode, resp.JSON)
	case contenttype.Text, contenttype.Unknown, contenttype.Multipart:
		ct := resp.Header.Get(echo.HeaderContentType)
		if ct == "" {
			ct = echo.MIMETextPlainCharsetUTF8
		}
		return c.Blob(resp.StatusCode, ct, resp.Raw)
	}
	return c.Blob(resp.StatusCode, echo.MIMEOctetStream, resp.Raw)
}

func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	h.cors.Apply(c.Response().Header(), c.Request().Header.Get(echo.HeaderOrigin))

	switch {
	case errors.Is(err, service.ErrMissingPath):
		h.metrics.Outcome(metrics.OutcomeRejectedNoPath)
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Path parameter is required",
		})

	case errors.Is(err, service.ErrMultipartUnsupported):
		h.metrics.Outcome(metrics.OutcomeRejectedMultipart)
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error":   "Multipart form data not supported through proxy",
			"message": "Please use direct backend endpoint for file uploads",
		})

	case errors.Is(err, service.ErrInvalidJSONBody):
		h.metrics.Outcome(metrics.OutcomeRejectedJSON)
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error":   "Invalid JSON body",
			"message": err.Error(),
		})
	}

	h.metrics.Outcome(metrics.OutcomeFailure)
	h.logger.Error("proxy error",
		"err", err,
		"method", c.Request().Method,
		"api_path", c.QueryParam(service.PathParam),
	)
	return c.JSON(http.StatusInternalServerError, map[string]string{
		"error":   "Proxy error",
		"message": err.Error(),
	})
}
