package crawler

import "errors"

// ErrInvalidSeed is returned by Crawl when the seed URL is empty or has
// no registrable domain. No records are produced in that case.
var ErrInvalidSeed = errors.New("invalid seed url")
