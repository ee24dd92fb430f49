// Package cors holds the cross-origin policy the proxy stamps on responses.
package cors

import (
	"net/http"
	"strings"

	"stockchat-proxy/internal/config"
)

const (
	HeaderAllowOrigin  = "Access-Control-Allow-Origin"
	HeaderAllowMethods = "Access-Control-Allow-Methods"
	HeaderAllowHeaders = "Access-Control-Allow-Headers"

	wildcard = "*"
	prefix   = "access-control-"
)

// Policy decides the CORS header values for a response.
type Policy struct {
	allowAll bool
	origins  map[string]bool
	methods  string
	headers  string
}

// NewPolicy builds a Policy from the [cors] config section.
func NewPolicy(cfg *config.Config) *Policy {
	p := &Policy{
		origins: make(map[string]bool, len(cfg.CORS.AllowOrigins)),
		methods: strings.Join(cfg.CORS.AllowMethods, ", "),
		headers: strings.Join(cfg.CORS.AllowHeaders, ", "),
	}
	for _, o := range cfg.CORS.AllowOrigins {
		if o == wildcard {
			p.allowAll = true
		}
		p.origins[o] = true
	}
	return p
}

// Apply overwrites the CORS headers in h. origin is the request's Origin
// header; with a restricted allowlist, an unlisted origin gets no
// Allow-Origin header at all.
func (p *Policy) Apply(h http.Header, origin string) {
	switch {
	case p.allowAll:
		h.Set(HeaderAllowOrigin, wildcard)
	case origin != "" && p.origins[origin]:
		h.Set(HeaderAllowOrigin, origin)
		h.Add("Vary", "Origin")
	default:
		h.Del(HeaderAllowOrigin)
	}
	h.Set(HeaderAllowMethods, p.methods)
	h.Set(HeaderAllowHeaders, p.headers)
}

// IsCORSHeader reports whether name is an Access-Control-* header.
func IsCORSHeader(name string) bool {
	return strings.HasPrefix(strings.ToLower(name), prefix)
}
