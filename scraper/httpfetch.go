package scraper

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	tls "github.com/refraction-networking/utls"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// browserHeaders is the full Chrome header set. The Sec-Fetch-* entries are
// the ones bot detectors check most often; sending the whole battery keeps
// the fetch indistinguishable from a real navigation at the header layer.
// Accept-Encoding is left to the transport so gzip is decoded transparently.
var browserHeaders = map[string]string{
	"User-Agent":                chromeUA,
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.9",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
	"Sec-CH-UA":                 `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`,
	"Sec-CH-UA-Mobile":          "?0",
	"Sec-CH-UA-Platform":        `"Windows"`,
	"Cache-Control":             "max-age=0",
	"Referer":                   "https://www.google.com/",
}

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to
// http/1.1 only, computed once and reused for every connection. The h2
// entry must go: utls would negotiate HTTP/2 that Go's http.Transport
// cannot frame over the wrapped connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// fetchResult is a raw HTTP response: status plus bounded body. Non-2xx
// statuses are data, not errors; the orchestrator decides what they mean.
type fetchResult struct {
	Status int
	Body   []byte
}

// fetcher issues GET requests with a Chrome TLS fingerprint and browser
// headers. One fetcher is shared by the plain page fetch and the vendor
// JSON probes so both present the same client identity.
type fetcher struct {
	client *http.Client
}

func newFetcher() *fetcher {
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("httpfetch: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: false,
	}

	return &fetcher{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
}

// Get fetches the URL within the given timeout. The 10 MB body cap keeps a
// hostile response from exhausting memory.
func (f *fetcher) Get(ctx context.Context, url string, timeout time.Duration) (*fetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("httpfetch: build request: %w", err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	const maxBody = 10 << 20
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("httpfetch: read body: %w", err)
	}

	return &fetchResult{Status: resp.StatusCode, Body: body}, nil
}
