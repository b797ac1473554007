package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nao1215/zorah/internal/model"
)

// Shared request headers sent with every fetch.
const (
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"
	DefaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8"
	DefaultAcceptLanguage = "en-US,en;q=0.9"

	// acceptEncoding lists the encodings decodeBody understands.
	acceptEncoding = "gzip, deflate, br"
)

// DefaultMaxBodySize caps how much of an HTML body is read.
const DefaultMaxBodySize int64 = 10 * 1024 * 1024

// BodyState tells whether a Result holds a body.
type BodyState int

const (
	// BodyDiscarded means the body was closed without being read.
	BodyDiscarded BodyState = iota

	// BodyMaterialized means the body was read in full (up to the cap)
	// and decoded to UTF-8.
	BodyMaterialized
)

// String returns a short name for logging.
func (s BodyState) String() string {
	if s == BodyMaterialized {
		return "materialized"
	}
	return "discarded"
}

// Result is the outcome of one successful fetch.
type Result struct {
	// Meta describes the final response after redirects.
	Meta model.ResponseMeta

	// State tells whether the body was read.
	State BodyState

	// Truncated is set when the body exceeded the size cap.
	Truncated bool

	body []byte
}

// Body returns the materialized body. The second result is false when
// the body was discarded.
func (r *Result) Body() ([]byte, bool) {
	if r.State != BodyMaterialized {
		return nil, false
	}
	return r.body, true
}

// Materialized returns a Result holding body.
func Materialized(meta model.ResponseMeta, body []byte) *Result {
	return &Result{Meta: meta, State: BodyMaterialized, body: body}
}

// Discarded returns a Result whose body was never read.
func Discarded(meta model.ResponseMeta) *Result {
	return &Result{Meta: meta, State: BodyDiscarded}
}

// Fetcher retrieves a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Result, error)
}

// HTTPFetcher is the Fetcher used for real crawls.
type HTTPFetcher struct {
	client      *http.Client
	headers     http.Header
	maxBodySize int64
	logger      *slog.Logger
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithHeader overrides one shared request header.
func WithHeader(name, value string) Option {
	return func(f *HTTPFetcher) {
		f.headers.Set(name, value)
	}
}

// WithMaxBodySize caps the bytes read from an HTML body.
// Values <= 0 keep the default.
func WithMaxBodySize(size int64) Option {
	return func(f *HTTPFetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(f *HTTPFetcher) {
		f.logger = logger
	}
}

// NewHTTPFetcher returns a fetcher sending requests through client,
// which is normally built by transport.NewHTTPClient.
func NewHTTPFetcher(client *http.Client, opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:      client,
		headers:     make(http.Header),
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.New(slog.DiscardHandler),
	}
	f.headers.Set("User-Agent", DefaultUserAgent)
	f.headers.Set("Accept", DefaultAccept)
	f.headers.Set("Accept-Language", DefaultAcceptLanguage)
	f.headers.Set("Accept-Encoding", acceptEncoding)

	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch issues a GET for rawURL. Errors wrap ErrConnectionFailed or
// ErrLocalProcessing; in both cases the response body has been closed.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrConnectionFailed, err)
	}
	req.Header = f.headers.Clone()

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	meta := model.NewResponseMeta(resp)
	if !meta.IsHTML() {
		f.logger.Debug("discarding non-html body",
			"url", rawURL,
			"status", resp.StatusCode,
			"content_type", meta.ContentType)
		return Discarded(meta), nil
	}

	body, truncated, err := decodeBody(resp, f.maxBodySize)
	if err != nil {
		return nil, err
	}
	if truncated {
		f.logger.Debug("html body truncated", "url", rawURL, "limit", f.maxBodySize)
	}

	result := Materialized(meta, body)
	result.Truncated = truncated

	f.logger.Debug("fetched page",
		"url", rawURL,
		"status", resp.StatusCode,
		"bytes", len(body))
	return result, nil
}
