// Package log provides slog loggers that mask secrets before they reach
// the output.
//
// A crawl touches several kinds of secrets: cookies passed with --cookie
// or from a site config, the clearance cookies anti-bot vendors hand out
// (cf_clearance, datadome, incap_ses_*, ak_bmsc and friends), and proxy
// credentials embedded in URLs. SecureHandler masks all of them, in text
// and JSON output alike, even in verbose mode.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("fetching", "url", u, "cookie", cookie) // cookie is masked
//
// The returned *slog.Logger can be handed to tornago as well.
package log
