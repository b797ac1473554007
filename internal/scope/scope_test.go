package scope

import (
	"errors"
	"testing"
)

func TestDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		rawURL  string
		want    string
		wantErr error
	}{
		{name: "plain domain", rawURL: "http://example.com/", want: "example.com"},
		{name: "subdomain", rawURL: "https://www.shop.example.com/a?b=c", want: "example.com"},
		{name: "multi-label suffix", rawURL: "https://shop.example.co.uk/", want: "example.co.uk"},
		{name: "port ignored", rawURL: "http://example.com:8080/x", want: "example.com"},
		{name: "upper case host", rawURL: "http://WWW.Example.COM/", want: "example.com"},
		{name: "ipv4 literal", rawURL: "http://127.0.0.1:8080/", want: "127.0.0.1"},
		{name: "ipv6 literal", rawURL: "http://[::1]:8080/", want: "::1"},
		{name: "single label", rawURL: "http://localhost/", want: "localhost"},
		{name: "empty", rawURL: "", wantErr: ErrNoHost},
		{name: "no host", rawURL: "/relative/path", wantErr: ErrNoHost},
		{name: "public suffix only", rawURL: "http://co.uk/", wantErr: ErrNoHost},
		{name: "private suffix apex", rawURL: "http://github.io/", want: "github.io"},
		{name: "under private suffix", rawURL: "https://foo.github.io/repo", want: "github.io"},
		{name: "deep under private suffix", rawURL: "https://a.b.blogspot.com/", want: "blogspot.com"},
		{name: "private apex herokuapp", rawURL: "http://herokuapp.com/", want: "herokuapp.com"},
		{name: "unlisted tld", rawURL: "http://printer.home.lan/", want: "home.lan"},
		{name: "empty label", rawURL: "http://a..example.com/", wantErr: ErrNoHost},
		{name: "unparseable", rawURL: "http://[::1", wantErr: ErrInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Domain(tt.rawURL)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v (domain %q)", tt.wantErr, err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScopeContains(t *testing.T) {
	t.Parallel()

	s, err := New("https://www.example.com/start")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Domain() != "example.com" {
		t.Fatalf("expected example.com, got %q", s.Domain())
	}

	tests := []struct {
		rawURL string
		want   bool
	}{
		{"https://example.com/", true},
		{"http://blog.example.com/post", true},
		{"https://example.com:8443/", true},
		{"https://example.org/", false},
		{"https://notexample.com/", false},
		{"https://example.com.evil.net/", false},
		{"mailto:someone@example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.rawURL, func(t *testing.T) {
			t.Parallel()
			if got := s.Contains(tt.rawURL); got != tt.want {
				t.Errorf("Contains(%q) = %v, want %v", tt.rawURL, got, tt.want)
			}
		})
	}

	t.Run("private suffix siblings share scope", func(t *testing.T) {
		t.Parallel()
		pages, err := New("https://foo.github.io/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !pages.Contains("https://bar.github.io/") {
			t.Error("bar.github.io should be in the scope of foo.github.io")
		}
		if pages.Contains("https://github.com/") {
			t.Error("github.com should not be in the scope of foo.github.io")
		}
	})

	t.Run("zero scope contains nothing", func(t *testing.T) {
		t.Parallel()
		var zero Scope
		if zero.Contains("http://example.com/") {
			t.Error("zero Scope should not contain any URL")
		}
	})
}
