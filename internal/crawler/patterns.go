package crawler

import (
	"net/url"
	"path"
	"strings"
)

// allowedPath applies ignore and follow patterns to a URL path.
// An ignore match always rejects. When follow patterns are set, the
// path must match at least one of them.
func allowedPath(u *url.URL, ignore, follow []string) bool {
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}

	for _, pattern := range ignore {
		if matchPattern(pattern, p) {
			return false
		}
	}
	if len(follow) == 0 {
		return true
	}
	for _, pattern := range follow {
		if matchPattern(pattern, p) {
			return true
		}
	}
	return false
}

// matchPattern matches a URL path against a glob pattern.
//
//   - "/admin/*" matches "/admin" and everything below it
//   - "*.pdf" matches any path ending in ".pdf"
//   - other patterns use path.Match, and patterns without a slash are
//     also tried against the last path segment
func matchPattern(pattern, p string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}

	if ext, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(ext, ".") && !strings.ContainsAny(ext, "*?[") {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}

	if matched, err := path.Match(pattern, p); err == nil && matched {
		return true
	}

	if strings.ContainsAny(pattern, "*?") && !strings.Contains(pattern, "/") {
		if matched, err := path.Match(pattern, path.Base(p)); err == nil && matched {
			return true
		}
	}
	return false
}
