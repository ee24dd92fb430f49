// Package contenttype classifies Content-Type header values into the body
// kinds the proxy treats differently.
package contenttype

import "strings"

// Kind is the body classification derived from a Content-Type header.
type Kind int

const (
	// Unknown means no Content-Type was given.
	Unknown Kind = iota
	// JSON covers any media type containing application/json.
	JSON
	// Multipart covers multipart/form-data uploads.
	Multipart
	// Text is every other declared media type, handled as opaque bytes.
	Text
)

const (
	jsonMarker      = "application/json"
	multipartMarker = "multipart/form-data"
)

// Classify maps a raw Content-Type header value to its Kind.
// Matching is case-insensitive and tolerates parameters such as charset.
func Classify(header string) Kind {
	v := strings.ToLower(strings.TrimSpace(header))
	switch {
	case v == "":
		return Unknown
	case strings.Contains(v, jsonMarker):
		return JSON
	case strings.Contains(v, multipartMarker):
		return Multipart
	default:
		return Text
	}
}

func (k Kind) String() string {
	switch k {
	case JSON:
		return "json"
	case Multipart:
		return "multipart"
	case Text:
		return "text"
	case Unknown:
		return "unknown"
	}
	return "invalid"
}
