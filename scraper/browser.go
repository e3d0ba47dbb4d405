package scraper

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/chromedp/chromedp"
)

// BrowserFetcher renders pages in headless Chrome. Chrome takes its proxy
// as a launch flag, so one browser allocator is started per egress endpoint
// and reused for later attempts through the same endpoint.
type BrowserFetcher struct {
	execPath string

	mu     sync.Mutex
	allocs map[string]allocator
}

type allocator struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewBrowserFetcher creates a BrowserFetcher. An empty chromeBin means the
// binary is looked up on the PATH and in the usual install locations.
func NewBrowserFetcher(chromeBin string) *BrowserFetcher {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	return &BrowserFetcher{
		execPath: chromeBin,
		allocs:   make(map[string]allocator),
	}
}

func (b *BrowserFetcher) allocatorFor(proxy string) context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()

	if a, ok := b.allocs[proxy]; ok {
		return a.ctx
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(DefaultHeaders["User-Agent"]),
	)
	if b.execPath != "" {
		opts = append(opts, chromedp.ExecPath(b.execPath))
	}
	if proxy != "" {
		opts = append(opts, chromedp.ProxyServer(proxy))
	}

	ctx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	b.allocs[proxy] = allocator{ctx: ctx, cancel: cancel}
	return ctx
}

// Fetch navigates to target and returns the rendered document together with
// the status of the main navigation response.
func (b *BrowserFetcher) Fetch(ctx context.Context, target, proxy string) (*Response, error) {
	taskCtx, cancel := chromedp.NewContext(b.allocatorFor(proxy),
		chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancel()

	// The allocator outlives ctx, so the caller's deadline is forwarded by hand.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	resp, err := chromedp.RunResponse(taskCtx, chromedp.Navigate(target))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("chromedp navigate: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("chromedp navigate: no response for %s", target)
	}

	var html string
	if err := chromedp.Run(taskCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("chromedp outer html: %w", err)
	}

	return &Response{StatusCode: int(resp.Status), Body: []byte(html)}, nil
}

// Close shuts down every browser started by the fetcher.
func (b *BrowserFetcher) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, a := range b.allocs {
		a.cancel()
		delete(b.allocs, k)
	}
}

// findChromeBinary locates a Chrome or Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
