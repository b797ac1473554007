// Package config holds zorah's runtime configuration: defaults, the
// values layered on top from flags and ZORAH_* environment variables,
// and the optional .zorah YAML file with per-site crawl settings.
package config
