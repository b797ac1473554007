// Package database archives finished crawl runs in SQLite.
//
// Each run is one row in runs and one row per record in results, keyed
// by the run's UUID. The archive is write-only from the crawler's point
// of view: runs never read earlier runs, so archiving cannot change what
// a crawl finds. The history and compare commands read it back.
//
// The driver is modernc.org/sqlite, which needs no cgo.
package database
