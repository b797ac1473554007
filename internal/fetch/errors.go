package fetch

import "errors"

var (
	// ErrConnectionFailed covers every failure to get a complete response:
	// DNS, TLS, timeouts, resets, unusable URLs and interrupted body reads.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrLocalProcessing covers failures to process a body that did
	// arrive, such as corrupt compression.
	ErrLocalProcessing = errors.New("local processing failed")
)
