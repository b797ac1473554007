// Package report renders crawl reports.
//
//   - SimpleWriter: a terminal table of records plus a coloured summary
//   - JSONWriter: the records array, the default machine format
//   - FullJSONWriter: the whole run with metadata and tallies
//   - MarkdownWriter: a shareable document with vendor tables and a chart
//
// Writers implement Writer and can be combined with MultiWriter.
package report
