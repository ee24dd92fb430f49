// Package model defines the request-scoped values passed between proxy layers.
package model

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"stockchat-proxy/internal/contenttype"
)

// ProxyRequest is an inbound request to be forwarded to the backend.
// Query still carries the path parameter.
type ProxyRequest struct {
	Ctx    context.Context
	Method string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// BackendResponse is the raw backend response as returned by the client.
type BackendResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// ProxyResponse is the backend response rebuilt for the caller.
// Kind is either contenttype.JSON, with the decoded value in JSON, or
// contenttype.Text, with the body bytes in Raw.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Kind       contenttype.Kind
	JSON       any
	Raw        []byte
}
