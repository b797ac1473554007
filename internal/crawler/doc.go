// Package crawler walks a site breadth-first from a seed URL and records
// a classified result for every URL it visits.
//
// # Architecture
//
// Spider holds the configuration shared by all runs: the fetcher, the
// parser, the page budget and path filters. Each call to Crawl creates a
// private run that owns the FIFO frontier, the visited set and the
// report, so concurrent Crawl calls on one Spider never share state.
//
// One URL is fetched, parsed and classified at a time. A failure on one
// URL becomes an Error record and the loop moves on; only an unusable
// seed or a cancelled context ends a run early.
//
// # Scope
//
// Discovered links are followed only when they are http or https, share
// the seed's registrable domain and pass the optional ignore/follow path
// patterns. Links are followed only from pages classified as Page.
//
// # Usage
//
//	spider := crawler.NewSpider(fetcher, crawler.WithMaxPages(100))
//	report, err := spider.Crawl(ctx, "https://example.com/")
package crawler
