// Package transport builds the HTTP client every crawl fetch goes through.
//
// The client is deliberately lax about the sites it talks to: TLS
// certificates are not verified, redirects are followed up to a cap,
// and no cookie jar is kept, so every fetch stands on its own. Traffic
// can optionally be routed through a SOCKS5 or HTTP proxy, including an
// embedded Tor daemon managed by EmbeddedTor.
//
// # Usage
//
//	client, err := transport.NewHTTPClient(
//		transport.WithTimeout(5*time.Second),
//		transport.WithProxy("socks5://127.0.0.1:9050"),
//	)
package transport
