// Package fetch downloads one URL and decides from the response headers
// alone whether its body is worth reading.
//
// HTML bodies are materialized (decompressed and converted to UTF-8);
// every other body is closed unread so large binaries never cross the
// wire in full. The outcome is carried explicitly by Result.State, and
// Result.Body refuses to hand out a body that was discarded.
package fetch
