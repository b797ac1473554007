package scope

import "errors"

var (
	// ErrNoHost is returned when a URL has no parseable host.
	ErrNoHost = errors.New("url has no host")

	// ErrInvalidURL is returned when a URL cannot be parsed at all.
	ErrInvalidURL = errors.New("invalid url")
)
