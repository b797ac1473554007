// Package scope decides which URLs belong to the site being crawled.
//
// A crawl is confined to the registrable domain of its seed: the public
// suffix plus one label ("example.co.uk" for "shop.example.co.uk").
// Subdomains of the seed's registrable domain are in scope; anything
// else is not.
//
// The public suffix list comes from golang.org/x/net/publicsuffix, which
// embeds a snapshot of the list at build time.
package scope
