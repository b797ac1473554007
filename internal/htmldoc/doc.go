// Package htmldoc parses downloaded HTML into the read-only view the
// classifier and the crawler need: title lookups, lower-cased visible
// text, element marker search and raw hyperlink enumeration.
//
// Parsing uses golang.org/x/net/html, which never rejects malformed
// markup; queries run through goquery on top of the parsed tree.
package htmldoc
