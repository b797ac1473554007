// Package server exposes crawling over HTTP.
//
//	POST /crawl   {"url": "https://example.com/"}  -> 200 [records...]
//	GET  /health                                   -> 200 {"status": "ok"}
//
// Every request runs its own crawl with a fresh crawler, and the
// response carries the records in visit order. Errors are JSON objects
// with a single "error" field.
package server
