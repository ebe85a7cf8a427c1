package types

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Page kinds carried in Request.Tag.
const (
	TagHome     = "home"
	TagCategory = "category"
	TagDetail   = "detail"
)

// Request is a single page fetch.
type Request struct {
	// URL is the absolute page URL.
	URL *url.URL

	// Headers are sent in addition to the fetcher defaults.
	Headers http.Header

	// Timeout overrides the configured request timeout when non-zero.
	Timeout time.Duration

	// Tag names the page kind (home, category, detail).
	Tag string
}

// NewRequest parses rawURL into a GET request.
func NewRequest(rawURL, tag string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, rawURL)
	}
	return &Request{
		URL:     u,
		Headers: make(http.Header),
		Tag:     tag,
	}, nil
}

// URLString returns the string representation of the request URL.
func (r *Request) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}
