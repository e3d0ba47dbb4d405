package scraper

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// maxBodyBytes caps how much of a response body is read into memory.
const maxBodyBytes = 32 << 20

// DefaultHeaders is the fixed header set sent with every request. It mimics
// a desktop Chrome browser.
var DefaultHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"Accept-Encoding":           "gzip, deflate",
	"DNT":                       "1",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
}

// Response is the outcome of a single fetch that reached the server.
type Response struct {
	StatusCode int
	Body       []byte
}

// Fetcher performs one GET through the given proxy endpoint. An empty proxy
// means a direct connection. Implementations return a Response for any HTTP
// status and an error only for transport faults.
type Fetcher interface {
	Fetch(ctx context.Context, url, proxy string) (*Response, error)
}

// HTTPFetcher is the plain net/http Fetcher. One client is kept per proxy
// endpoint so connections are reused between attempts through the same
// egress.
type HTTPFetcher struct {
	Headers map[string]string

	mu      sync.Mutex
	clients map[string]*http.Client
}

// NewHTTPFetcher returns an HTTPFetcher sending DefaultHeaders.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Headers: DefaultHeaders,
		clients: make(map[string]*http.Client),
	}
}

func (f *HTTPFetcher) client(proxy string) (*http.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.clients[proxy]; ok {
		return c, nil
	}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.Proxy = nil
	if proxy != "" {
		u, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy %q: %w", proxy, err)
		}
		tr.Proxy = http.ProxyURL(u)
	}

	c := &http.Client{Transport: tr}
	if f.clients == nil {
		f.clients = make(map[string]*http.Client)
	}
	f.clients[proxy] = c
	return c, nil
}

// Fetch issues the GET. The deadline comes from ctx.
func (f *HTTPFetcher) Fetch(ctx context.Context, target, proxy string) (*Response, error) {
	c, err := f.client(proxy)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	headers := f.Headers
	if headers == nil {
		headers = DefaultHeaders
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// readBody decodes gzip and deflate bodies. Setting Accept-Encoding by hand
// turns off the transport's transparent decompression.
func readBody(resp *http.Response) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		return io.ReadAll(io.LimitReader(zr, maxBodyBytes))
	case "deflate":
		// Servers disagree on whether deflate means zlib-wrapped or raw.
		if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			defer zr.Close()
			return io.ReadAll(io.LimitReader(zr, maxBodyBytes))
		}
		fr := flate.NewReader(bytes.NewReader(raw))
		defer fr.Close()
		return io.ReadAll(io.LimitReader(fr, maxBodyBytes))
	default:
		return raw, nil
	}
}
