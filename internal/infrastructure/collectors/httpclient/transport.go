// Package httpclient builds the outbound HTTP client the feed drivers
// share. It advertises brotli and gzip on every request and decodes
// whichever encoding the feed answers with, since several of the
// advisory sites serve brotli to clients that accept it.
package httpclient

import (
	"compress/gzip"
	"io"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
)

// New returns an http.Client with the decoding transport installed.
func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: NewTransport(nil),
	}
}

// NewTransport wraps base (http.DefaultTransport when nil) with
// content-encoding negotiation and decoding.
func NewTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &decodingTransport{base: base}
}

type decodingTransport struct {
	base http.RoundTripper
}

func (t *decodingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Setting Accept-Encoding ourselves disables net/http's transparent
	// gzip handling, so both encodings are decoded here.
	if req.Header.Get("Accept-Encoding") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", "br, gzip")
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	switch resp.Header.Get("Content-Encoding") {
	case "br":
		resp.Body = &decodedBody{reader: brotli.NewReader(resp.Body), underlying: resp.Body}
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		resp.Body = &decodedBody{reader: gz, underlying: resp.Body}
	default:
		return resp, nil
	}

	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return resp, nil
}

// decodedBody reads through the decoder but closes the network body.
type decodedBody struct {
	reader     io.Reader
	underlying io.ReadCloser
}

func (b *decodedBody) Read(p []byte) (int, error) { return b.reader.Read(p) }

func (b *decodedBody) Close() error {
	if c, ok := b.reader.(io.Closer); ok {
		c.Close()
	}
	return b.underlying.Close()
}
