// Package main provides the entry point for the zorah CLI.
//
// zorah crawls a web site within its registrable domain, classifies
// every response as a page, file, redirect, error or anti-bot block, and
// fingerprints the CDN and WAF vendors in front of it.
//
// Usage:
//
//	zorah crawl <url>...
//	zorah serve --listen 127.0.0.1:8080
//
// See --help for all available options.
package main

func main() {
	Execute()
}
