// Package classify turns one HTTP response into a crawl verdict.
//
// Classify is a pure function of the response metadata and the parsed
// page. It runs in a fixed order:
//
//  1. hybrid CDN+WAF detectors, each of which may overwrite the last
//  2. CDN-only detectors, first match wins, only while no CDN is known
//  3. WAF-only detectors, last match wins, only while no WAF is known
//  4. defaults for whatever is still unknown
//  5. anti-bot phrase detection, which forces a Blocked verdict
//  6. status-code classification
//
// The order matters: later steps read fields written by earlier ones,
// so detectors are kept in ordered slices rather than maps.
package classify
