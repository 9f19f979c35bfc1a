package model

import (
	"net/http"
	"time"
)

// RawCapture is the raw, unmodified result of fetching a page.
// A RawCapture is complete or absent: the fetcher never hands out a
// partially read capture.
type RawCapture struct {
	// URL is the address that was requested.
	URL string `json:"url"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"statusCode"`

	// Headers contains the HTTP response headers.
	Headers http.Header `json:"headers"`

	// Body is the response body decoded to UTF-8.
	Body string `json:"-"`

	// Raw is the response body exactly as received. It is what gets
	// archived, so the stored capture round-trips byte for byte.
	Raw []byte `json:"-"`

	// FetchedAt is when the response was received.
	FetchedAt time.Time `json:"fetchedAt"`

	// ByteLength is len(Raw).
	ByteLength int `json:"byteLength"`
}

// NewRawCapture builds a capture from a response body.
// When body is not valid UTF-8, decoded should hold the converted text;
// pass an empty decoded string to use raw as-is.
func NewRawCapture(url string, status int, headers http.Header, raw []byte, decoded string, fetchedAt time.Time) *RawCapture {
	if decoded == "" {
		decoded = string(raw)
	}
	return &RawCapture{
		URL:        url,
		StatusCode: status,
		Headers:    headers,
		Body:       decoded,
		Raw:        raw,
		FetchedAt:  fetchedAt,
		ByteLength: len(raw),
	}
}

// CaptureMeta is the part of a RawCapture that a report needs.
type CaptureMeta struct {
	URL        string
	StatusCode int
	FetchedAt  time.Time
	ByteLength int
}

// Meta returns the capture's metadata without the body.
func (c *RawCapture) Meta() CaptureMeta {
	return CaptureMeta{
		URL:        c.URL,
		StatusCode: c.StatusCode,
		FetchedAt:  c.FetchedAt,
		ByteLength: c.ByteLength,
	}
}

// Timestamp returns the capture time in Unix milliseconds.
// Artifact filenames embed this value.
func (c *RawCapture) Timestamp() int64 {
	return c.FetchedAt.UnixMilli()
}
