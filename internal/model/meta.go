package model

import (
	"net/http"
	"strings"
)

// ResponseMeta is everything the classifier may look at besides the body.
// It lives only for the duration of one fetch.
type ResponseMeta struct {
	// StatusCode is the HTTP status of the final response.
	StatusCode int

	// Reason is the reason phrase ("Not Found"), without the code.
	Reason string

	// Headers maps lower-cased header names to lower-cased values.
	// Repeated headers are joined with ", ".
	Headers map[string]string

	// ContentType is the Content-Type header exactly as sent.
	ContentType string

	// Cookies are the cookies set by the final response.
	Cookies []*http.Cookie

	// FinalURL is the URL of the final response after redirects.
	FinalURL string
}

// NewResponseMeta builds ResponseMeta from a response's header block.
// The body is not touched.
func NewResponseMeta(resp *http.Response) ResponseMeta {
	meta := ResponseMeta{
		StatusCode:  resp.StatusCode,
		Reason:      reasonPhrase(resp),
		Headers:     LowerHeaders(resp.Header),
		ContentType: resp.Header.Get("Content-Type"),
		Cookies:     resp.Cookies(),
	}
	if resp.Request != nil && resp.Request.URL != nil {
		meta.FinalURL = resp.Request.URL.String()
	}
	return meta
}

// LowerHeaders flattens an http.Header into a lower-cased map.
func LowerHeaders(h http.Header) map[string]string {
	lowered := make(map[string]string, len(h))
	for name, values := range h {
		lowered[strings.ToLower(name)] = strings.ToLower(strings.Join(values, ", "))
	}
	return lowered
}

// reasonPhrase extracts "Not Found" from "404 Not Found".
func reasonPhrase(resp *http.Response) string {
	_, reason, found := strings.Cut(resp.Status, " ")
	if found && reason != "" {
		return reason
	}
	return http.StatusText(resp.StatusCode)
}

// Header returns the lower-cased value of the named header, or "".
func (m ResponseMeta) Header(name string) string {
	return m.Headers[strings.ToLower(name)]
}

// HasHeader reports whether the named header was present at all.
func (m ResponseMeta) HasHeader(name string) bool {
	_, ok := m.Headers[strings.ToLower(name)]
	return ok
}

// Server returns the lower-cased Server header.
func (m ResponseMeta) Server() string {
	return m.Header("server")
}

// IsHTML reports whether the content type announces HTML.
func (m ResponseMeta) IsHTML() bool {
	return strings.Contains(strings.ToLower(m.ContentType), "text/html")
}

// CookieString renders the response cookies as lower-cased
// "name=value; name=value" text for substring checks.
func (m ResponseMeta) CookieString() string {
	parts := make([]string, 0, len(m.Cookies))
	for _, c := range m.Cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.ToLower(strings.Join(parts, "; "))
}
