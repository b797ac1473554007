package model

import (
	"errors"
	"fmt"
)

// ErrUnknownResultType is returned when a string does not name a ResultType.
var ErrUnknownResultType = errors.New("unknown result type")

// ResultType is the outcome category of one crawled URL.
// Every record produced by a crawl carries exactly one of these values.
type ResultType int

const (
	// ResultTypePage is a 2xx HTML response whose links are followed.
	ResultTypePage ResultType = iota

	// ResultTypeFile is a 2xx response that is not HTML.
	// Its body is never downloaded and it is never fingerprinted.
	ResultTypeFile

	// ResultTypeRedirect is a 3xx response that was not followed further
	// (redirect cap reached or no usable Location header).
	ResultTypeRedirect

	// ResultTypeError covers 4xx and 5xx responses, unknown status codes,
	// transport failures and local processing failures.
	ResultTypeError

	// ResultTypeBlocked is a response whose content matched a known
	// anti-bot challenge phrase. It overrides the status-based type.
	ResultTypeBlocked
)

// resultTypeNames maps each ResultType to its wire name.
var resultTypeNames = map[ResultType]string{
	ResultTypePage:     "Page",
	ResultTypeFile:     "File",
	ResultTypeRedirect: "Redirect",
	ResultTypeError:    "Error",
	ResultTypeBlocked:  "Blocked",
}

// AllResultTypes returns every ResultType in declaration order.
func AllResultTypes() []ResultType {
	return []ResultType{
		ResultTypePage,
		ResultTypeFile,
		ResultTypeRedirect,
		ResultTypeError,
		ResultTypeBlocked,
	}
}

// String returns the wire name of the result type.
func (t ResultType) String() string {
	if name, ok := resultTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// IsValid reports whether t is one of the declared result types.
func (t ResultType) IsValid() bool {
	_, ok := resultTypeNames[t]
	return ok
}

// MarshalText implements encoding.TextMarshaler, so JSON output carries
// the name ("Page") rather than the number.
func (t ResultType) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownResultType, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ResultType) UnmarshalText(text []byte) error {
	parsed, err := ParseResultType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseResultType converts a wire name back into a ResultType.
func ParseResultType(s string) (ResultType, error) {
	for t, name := range resultTypeNames {
		if name == s {
			return t, nil
		}
	}
	return ResultTypeError, fmt.Errorf("%w: %q", ErrUnknownResultType, s)
}
