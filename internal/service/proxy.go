// Package service implements the core proxy forwarding logic.
package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"stockchat-proxy/internal/client"
	"stockchat-proxy/internal/config"
	"stockchat-proxy/internal/contenttype"
	"stockchat-proxy/internal/cors"
	"stockchat-proxy/internal/model"
)

// Validation errors. None of them reach the backend.
var (
	ErrMissingPath          = errors.New("path parameter is required")
	ErrMultipartUnsupported = errors.New("multipart form data not supported through proxy")
	ErrInvalidJSONBody      = errors.New("request body is not valid JSON")
)

// PathParam is the query parameter naming the backend API path.
const PathParam = "path"

// apiPrefix is prepended to every forwarded path.
const apiPrefix = "/api/"

const userAgent = "stockchat-proxy/1.0"

// droppedResponseHeaders describe the backend's framing of its own body and
// become wrong once the proxy re-encodes it.
var droppedResponseHeaders = map[string]bool{
	"Content-Length":     true,
	"Connection":         true,
	"Keep-Alive":         true,
	"Proxy-Authenticate": true,
	"Te":                 true,
	"Trailer":            true,
	"Transfer-Encoding":  true,
	"Upgrade":            true,
}

// ProxyService handles the forwarding logic for proxy requests.
type ProxyService struct {
	client  *client.BackendClient
	logger  *slog.Logger
	baseURL *url.URL
}

// NewProxyService creates a ProxyService for the configured backend.
func NewProxyService(c *client.BackendClient, cfg *config.Config, logger *slog.Logger) (*ProxyService, error) {
	u, err := url.Parse(cfg.Backend.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend base_url: %w", err)
	}

	return &ProxyService{
		client:  c,
		logger:  logger.With("component", "proxy_service"),
		baseURL: u,
	}, nil
}

// Forward validates pr, sends it to the backend and rebuilds the response.
// Validation errors are returned before any network call is made.
func (s *ProxyService) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	apiPath, err := joinPath(pr.Query[PathParam])
	if err != nil {
		return nil, err
	}

	target := s.buildTargetURL(apiPath, pr.Query)
	header := buildRequestHeaders(pr.Header)

	body, err := encodeBody(pr.Method, header.Get("Content-Type"), pr.Body)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("forwarding request",
		"method", pr.Method,
		"api_path", apiPath,
	)

	resp, err := s.client.Send(pr.Ctx, pr.Method, target, header, body)
	if err != nil {
		return nil, fmt.Errorf("forward to backend: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	out, err := decodeResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("read backend response: %w", err)
	}
	return out, nil
}

// joinPath joins repeated path values with "/" in the order received.
func joinPath(values []string) (string, error) {
	p := strings.Join(values, "/")
	if p == "" {
		return "", ErrMissingPath
	}
	return p, nil
}

// buildTargetURL returns <base>/api/<apiPath> with every non-path query
// parameter appended, skipping empty values.
func (s *ProxyService) buildTargetURL(apiPath string, query url.Values) string {
	u := *s.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + apiPrefix + apiPath
	u.RawPath = ""

	q := make(url.Values)
	for k, vals := range query {
		if k == PathParam {
			continue
		}
		for _, v := range vals {
			if v != "" {
				q.Add(k, v)
			}
		}
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// buildRequestHeaders keeps only Content-Type from the inbound request.
func buildRequestHeaders(src http.Header) http.Header {
	dst := make(http.Header)
	dst.Set("User-Agent", userAgent)
	if ct := src.Get("Content-Type"); ct != "" {
		dst.Set("Content-Type", ct)
	}
	return dst
}

// encodeBody decides what body, if any, goes to the backend.
func encodeBody(method, contentType string, body []byte) ([]byte, error) {
	if method == http.MethodGet || method == http.MethodHead || len(body) == 0 {
		return nil, nil
	}

	switch contenttype.Classify(contentType) {
	case contenttype.Multipart:
		return nil, ErrMultipartUnsupported
	case contenttype.JSON:
		var buf bytes.Buffer
		if err := json.Compact(&buf, body); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidJSONBody, err)
		}
		return buf.Bytes(), nil
	case contenttype.Text, contenttype.Unknown:
		return body, nil
	}
	return body, nil
}

// decodeResponse reads the backend body and classifies it. An empty body is
// always treated as text, since there is nothing to decode.
func decodeResponse(resp *model.BackendResponse) (*model.ProxyResponse, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	out := &model.ProxyResponse{
		StatusCode: resp.StatusCode,
		Header:     filterResponseHeaders(resp.Header),
		Kind:       contenttype.Text,
		Raw:        raw,
	}

	if contenttype.Classify(resp.Header.Get("Content-Type")) != contenttype.JSON || len(raw) == 0 {
		return out, nil
	}

	v, err := decodeJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decode json body: %w", err)
	}
	out.Kind = contenttype.JSON
	out.JSON = v
	out.Raw = nil
	return out, nil
}

// decodeJSON decodes exactly one JSON value, keeping numbers as json.Number
// so large integers survive re-encoding.
func decodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level value")
	}
	return v, nil
}

func filterResponseHeaders(src http.Header) http.Header {
	dst := make(http.Header)
	for key, vals := range src {
		if cors.IsCORSHeader(key) || droppedResponseHeaders[http.CanonicalHeaderKey(key)] {
			continue
		}
		dst[key] = append([]string(nil), vals...)
	}
	return dst
}
