// Package model defines the data structures shared by the crawler, the
// classifier, the report writers and the archive.
//
// The main types are:
//   - ResponseMeta: status, headers and cookies of one response
//   - Classification: the classifier's verdict for one response
//   - Result: one crawl record (URL plus classification)
//   - CrawlReport: every record of one run, in visit order
//
// ResultType and StatusCode carry their own JSON encoding so that records
// serialize as {"type":"Page","status":200} or {"status":"N/A"}.
package model
