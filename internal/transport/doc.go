// Package transport builds the HTTP clients a crawl fetches pages with.
//
// A client can go out directly, through a SOCKS5 proxy, or through an
// embedded Tor daemon started with tornago. Site-specific cookies and
// headers are injected into every request, redirects included.
//
//	client, err := transport.NewHTTPClient(transport.Options{
//	    Timeout:      30 * time.Second,
//	    ProxyAddress: "127.0.0.1:9050",
//	    Headers:      map[string]string{"Accept-Language": "en"},
//	})
package transport
