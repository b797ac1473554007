package fetch

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// wireReader remembers whether the network side of a body failed, so
// that a broken connection is not mistaken for corrupt compression.
type wireReader struct {
	r   io.Reader
	err error
}

func (w *wireReader) Read(p []byte) (int, error) {
	n, err := w.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		w.err = err
	}
	return n, err
}

// decodeBody reads at most limit decoded bytes from resp, undoes the
// Content-Encoding and converts the text to UTF-8.
func decodeBody(resp *http.Response, limit int64) ([]byte, bool, error) {
	wire := &wireReader{r: resp.Body}

	// An empty body has no compression framing to decode.
	buffered := bufio.NewReader(wire)
	if _, err := buffered.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return []byte{}, false, nil
		}
		return nil, false, classifyReadError(wire, err)
	}

	reader, closeFn, err := contentDecoder(resp.Header.Get("Content-Encoding"), buffered)
	if err != nil {
		return nil, false, classifyReadError(wire, err)
	}
	defer closeFn()

	raw, err := io.ReadAll(io.LimitReader(reader, limit+1))
	if err != nil {
		return nil, false, classifyReadError(wire, err)
	}

	truncated := int64(len(raw)) > limit
	if truncated {
		raw = raw[:limit]
	}

	body, err := toUTF8(raw, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, false, fmt.Errorf("%w: charset: %w", ErrLocalProcessing, err)
	}
	return body, truncated, nil
}

// contentDecoder wraps r according to a Content-Encoding header value.
func contentDecoder(encoding string, r io.Reader) (io.Reader, func(), error) {
	noop := func() {}

	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return r, noop, nil
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, noop, fmt.Errorf("gzip: %w", err)
		}
		return gz, func() { _ = gz.Close() }, nil
	case "br":
		return brotli.NewReader(r), noop, nil
	case "deflate":
		fl := flate.NewReader(r)
		return fl, func() { _ = fl.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unsupported content-encoding %q", encoding)
	}
}

// classifyReadError maps a body read failure to the fetch taxonomy.
func classifyReadError(wire *wireReader, err error) error {
	if wire.err != nil {
		return fmt.Errorf("%w: read body: %w", ErrConnectionFailed, err)
	}
	return fmt.Errorf("%w: decode body: %w", ErrLocalProcessing, err)
}

// toUTF8 converts an HTML body to UTF-8 using the Content-Type charset,
// a BOM or a <meta charset>, in that order of preference.
func toUTF8(body []byte, contentType string) ([]byte, error) {
	enc, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" {
		return body, nil
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return nil, err
	}
	return out, nil
}
