package types

import (
	"bytes"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Page is a fetched HTML document.
type Page struct {
	Request     *Request
	StatusCode  int
	Headers     http.Header
	Body        []byte
	ContentType string

	// FinalURL is the URL after any redirects; relative links resolve against it.
	FinalURL string

	FetchDuration time.Duration
	FetchedAt     time.Time

	doc *goquery.Document
}

// NewPage creates a Page from an http.Response whose body was already read.
func NewPage(req *Request, httpResp *http.Response, body []byte, duration time.Duration) *Page {
	return &Page{
		Request:       req,
		StatusCode:    httpResp.StatusCode,
		Headers:       httpResp.Header,
		Body:          body,
		ContentType:   httpResp.Header.Get("Content-Type"),
		FinalURL:      httpResp.Request.URL.String(),
		FetchDuration: duration,
		FetchedAt:     time.Now(),
	}
}

// NewRenderedPage creates a Page from headless browser output.
func NewRenderedPage(req *Request, body []byte, finalURL string, duration time.Duration) *Page {
	return &Page{
		Request:       req,
		StatusCode:    http.StatusOK,
		Headers:       make(http.Header),
		Body:          body,
		ContentType:   "text/html",
		FinalURL:      finalURL,
		FetchDuration: duration,
		FetchedAt:     time.Now(),
	}
}

// Document returns the parsed goquery document, parsing it on first use.
func (p *Page) Document() (*goquery.Document, error) {
	if p.doc != nil {
		return p.doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return nil, &ParseError{URL: p.URL(), Err: err}
	}
	p.doc = doc
	return doc, nil
}

// URL returns the final page URL, falling back to the requested one.
func (p *Page) URL() string {
	if p.FinalURL != "" {
		return p.FinalURL
	}
	if p.Request != nil {
		return p.Request.URLString()
	}
	return ""
}

// IsSuccess returns true if the status is 2xx.
func (p *Page) IsSuccess() bool {
	return p.StatusCode >= 200 && p.StatusCode < 300
}
