// Package httpclient builds the *http.Client used for repository.Exists
// HEAD probes; go-git's clone and fetch traffic does not go through it.
// Adapted from the teacher's pkg/api/http_client.go layered-RoundTripper
// stack, trimmed to what a HEAD-probe client needs: no bearer-token header (there is
// no central registry to authenticate against in a decentralized
// package manager) and no request/response body sanitizer (a HEAD
// probe has no body to sanitize). zstd response decompression and the
// httpretty debug-log tap are kept as-is.
package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/henvic/httpretty"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
)

const headerUserAgent = "User-Agent"

var zstdDecoderPool = sync.Pool{
	New: func() any {
		d, err := zstd.NewReader(nil)
		if err != nil {
			panic(fmt.Sprintf("failed to create zstd reader: %v", err))
		}
		return d
	},
}

// Options configures New.
type Options struct {
	// UserAgent is sent on every request unless the caller already set
	// one explicitly.
	UserAgent string

	// Timeout bounds the whole request, matching net/http.Client's own
	// field.
	Timeout time.Duration

	// Log, if non-nil and logrus is at DebugLevel, receives a full
	// request/response trace via httpretty.
	Log         io.Writer
	LogColorize bool
}

// New builds an *http.Client with header injection, zstd decompression,
// and optional debug logging layered over the default transport, same
// shape as the teacher's NewHTTPClient.
func New(opts Options) *http.Client {
	base := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
		DisableCompression:  true,
	}

	var rt http.RoundTripper = base

	if opts.Log != nil && logrus.GetLevel() == logrus.DebugLevel {
		logger := &httpretty.Logger{
			Time:           true,
			Colors:         opts.LogColorize,
			RequestHeader:  true,
			RequestBody:    false,
			ResponseHeader: true,
			ResponseBody:   false,
		}
		logger.SetOutput(opts.Log)
		rt = logger.RoundTripper(rt)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "uppm-cli"
	}
	rt = headerRoundTripper{userAgent: userAgent, rt: rt}
	rt = decompressingRoundTripper{rt: rt}

	return &http.Client{Transport: rt, Timeout: opts.Timeout}
}

type headerRoundTripper struct {
	userAgent string
	rt        http.RoundTripper
}

func (h headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	reqCopy := req.Clone(req.Context())
	reqCopy.Header.Set("Accept-Encoding", "zstd")
	if reqCopy.Header.Get(headerUserAgent) == "" {
		reqCopy.Header.Set(headerUserAgent, h.userAgent)
	}
	return h.rt.RoundTrip(reqCopy)
}

type decompressingRoundTripper struct {
	rt http.RoundTripper
}

func (d decompressingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := d.rt.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.Header.Get("Content-Encoding") == "zstd" {
		decoder := zstdDecoderPool.Get().(*zstd.Decoder)
		if err := decoder.Reset(resp.Body); err != nil {
			resp.Body.Close()
			zstdDecoderPool.Put(decoder)
			return nil, fmt.Errorf("failed to reset zstd reader: %w", err)
		}

		resp.Body = &zstdReadCloser{decoder: decoder, body: resp.Body}
		resp.Header.Del("Content-Encoding")
		resp.Header.Del("Content-Length")
		resp.ContentLength = -1
	}

	return resp, nil
}

type zstdReadCloser struct {
	decoder *zstd.Decoder
	body    io.ReadCloser
}

func (z *zstdReadCloser) Read(p []byte) (int, error) {
	return z.decoder.Read(p)
}

func (z *zstdReadCloser) Close() error {
	err := z.body.Close()
	zstdDecoderPool.Put(z.decoder)
	return err
}
