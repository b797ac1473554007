// Package batch crawls several seeds at once.
//
// Each seed gets its own Crawler from a factory, so per-site settings
// (cookies, headers, page budgets) and crawl state never leak between
// runs. Concurrency applies across seeds only: a single run still visits
// its URLs one at a time.
package batch
