package scope

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Domain returns the registrable domain (eTLD+1) of the URL's host.
//
// IP literals and single-label hosts such as "localhost" have no public
// suffix; for those the lower-cased host itself is the scope domain.
// Ports never take part in the result.
func Domain(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	return HostDomain(u.Hostname())
}

// HostDomain is Domain for a bare host name.
//
// Only ICANN suffixes count: private registrations such as "github.io"
// are ordinary domains, so "foo.github.io" and "bar.github.io" share the
// scope "github.io".
func HostDomain(host string) (string, error) {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return "", ErrNoHost
	}

	if net.ParseIP(host) != nil || !strings.Contains(host, ".") {
		return host, nil
	}
	if strings.HasPrefix(host, ".") || strings.Contains(host, "..") {
		return "", fmt.Errorf("%w: %s: empty label", ErrNoHost, host)
	}

	suffix := icannSuffix(host)
	if suffix == host {
		// The host is itself a public suffix ("co.uk").
		return "", fmt.Errorf("%w: %s: host is a public suffix", ErrNoHost, host)
	}

	rest := strings.TrimSuffix(host, "."+suffix)
	return rest[strings.LastIndex(rest, ".")+1:] + "." + suffix, nil
}

// icannSuffix returns the longest ICANN public suffix of host, skipping
// the private section of the list. Unlisted TLDs are their own suffix.
func icannSuffix(host string) string {
	suffix, icann := publicsuffix.PublicSuffix(host)
	for !icann {
		i := strings.Index(suffix, ".")
		if i < 0 {
			return suffix
		}
		suffix, icann = publicsuffix.PublicSuffix(suffix[i+1:])
	}
	return suffix
}

// Scope is the registrable domain a crawl run is confined to.
type Scope struct {
	domain string
}

// New computes the scope of a seed URL.
func New(seed string) (Scope, error) {
	domain, err := Domain(seed)
	if err != nil {
		return Scope{}, err
	}
	return Scope{domain: domain}, nil
}

// Domain returns the scope's registrable domain.
func (s Scope) Domain() string {
	return s.domain
}

// Contains reports whether rawURL shares the scope's registrable domain.
// A URL whose domain cannot be computed is out of scope.
func (s Scope) Contains(rawURL string) bool {
	if s.domain == "" {
		return false
	}
	domain, err := Domain(rawURL)
	if err != nil {
		return false
	}
	return domain == s.domain
}
