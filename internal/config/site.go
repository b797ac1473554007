package config

import "maps"

// SiteConfig customizes crawling of one scope domain.
type SiteConfig struct {
	// Cookie is a raw Cookie header value ("a=1; b=2"), for example a
	// clearance cookie obtained in a browser.
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra request headers. They override the shared
	// browser headers of the same name.
	Headers map[string]string `yaml:"headers,omitempty"`

	// MaxPages overrides the global visit budget when non-zero.
	MaxPages int `yaml:"maxPages,omitempty"`

	// IgnorePatterns are path globs that are never enqueued.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns, when set, restrict enqueued paths to matches.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// File is the structure of a .zorah file.
type File struct {
	// Defaults apply to every site.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Sites are keyed by scope domain ("example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`
}

// GetSiteConfig merges the defaults with the entry for scopeDomain.
// Site headers are added to the default headers; every other non-empty
// site field replaces the default.
func (cf *File) GetSiteConfig(scopeDomain string) SiteConfig {
	if cf == nil {
		return SiteConfig{}
	}

	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)

	site, ok := cf.Sites[scopeDomain]
	if !ok {
		return result
	}
	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if site.MaxPages != 0 {
		result.MaxPages = site.MaxPages
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(site.Headers))
		}
		maps.Copy(result.Headers, site.Headers)
	}
	if len(site.IgnorePatterns) > 0 {
		result.IgnorePatterns = site.IgnorePatterns
	}
	if len(site.FollowPatterns) > 0 {
		result.FollowPatterns = site.FollowPatterns
	}
	return result
}
