package zillow

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"zillow-scraper/models"
	"zillow-scraper/scraper"
	"zillow-scraper/services"
	"zillow-scraper/storage"
	"zillow-scraper/utils"
)

// Reasons a pagination run stops.
const (
	StopFetchFailed  = "fetch-failed"
	StopParseFailed  = "parse-failed"
	StopEndOfCatalog = "end-of-catalog"
	StopPageCap      = "page-cap"
)

// DefaultBaseURL is the Nebraska search catalog.
const DefaultBaseURL = "https://www.zillow.com/ne"

// Fetcher returns the body of a successfully fetched URL. scraper.Client
// is the production implementation.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// WalkerConfig controls the pagination run. MaxPages <= 0 walks until the
// catalog runs out.
type WalkerConfig struct {
	BaseURL   string
	MaxPages  int
	PageDelay time.Duration
}

// Walker fetches search pages in order and appends their listings to the
// base dataset.
type Walker struct {
	client  Fetcher
	sink    storage.PageSink
	mirror  storage.Mirror
	cleaner *services.Cleaner
	cfg     WalkerConfig
	logger  *utils.Logger
}

// NewWalker creates a Walker.
func NewWalker(client Fetcher, sink storage.PageSink, cfg WalkerConfig, logger *utils.Logger) *Walker {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Walker{
		client:  client,
		sink:    sink,
		cleaner: services.NewCleaner(logger),
		cfg:     cfg,
		logger:  logger,
	}
}

// WithMirror also inserts every written page into m.
func (w *Walker) WithMirror(m storage.Mirror) *Walker {
	w.mirror = m
	return w
}

// PageURL returns the catalog URL of a 1-based page number.
func PageURL(base string, page int) string {
	if page <= 1 {
		return base
	}
	return fmt.Sprintf("%s/%d_p", strings.TrimRight(base, "/"), page)
}

// Run walks the catalog. Fetch and parse failures end the run normally with
// the pages written so far intact; only sink failures and cancellation are
// returned as errors.
func (w *Walker) Run(ctx context.Context) (models.WalkSummary, error) {
	var summary models.WalkSummary

	base, err := url.Parse(w.cfg.BaseURL)
	if err != nil {
		return summary, fmt.Errorf("pages: bad base URL %q: %w", w.cfg.BaseURL, err)
	}
	seen := utils.NewURLSet()

	for page := 1; ; page++ {
		target := PageURL(w.cfg.BaseURL, page)
		w.logger.Info("[pages] Scraping page %d: %s", page, target)

		body, err := w.client.Fetch(ctx, target)
		if err != nil {
			if !errors.Is(err, scraper.ErrTerminal) {
				return summary, err
			}
			w.logger.Error("[pages] Failed to fetch data from page %d. Stopping.", page)
			summary.StopReason = StopFetchFailed
			return summary, nil
		}

		entries, err := ParseSearchPage(body)
		if err != nil {
			w.logger.Error("[pages] Failed to parse data from page %d: %v. Stopping.", page, err)
			summary.StopReason = StopParseFailed
			return summary, nil
		}

		if len(entries) == 0 {
			w.logger.Info("[pages] No more results found on page %d. Stopping.", page)
			if page == 1 {
				if err := w.sink.WritePage(nil, true); err != nil {
					return summary, fmt.Errorf("pages: write header: %w", err)
				}
			}
			summary.StopReason = StopEndOfCatalog
			return summary, nil
		}

		rows := make([]models.Listing, 0, len(entries))
		for i, entry := range entries {
			l, err := MapListing(entry, base)
			if err != nil {
				w.logger.Error("[pages] Error processing entry %d on page %d: %v", i, page, err)
				summary.Skipped++
				continue
			}
			rows = append(rows, l)
		}
		rows, dups := w.cleaner.Clean(rows, seen)
		summary.Duplicates += dups

		if err := w.sink.WritePage(rows, page == 1); err != nil {
			return summary, fmt.Errorf("pages: write page %d: %w", page, err)
		}
		summary.Pages++
		summary.Listings += len(rows)
		w.logger.Info("[pages] Data from page %d has been saved (%d listings, %d total)", page, len(rows), summary.Listings)

		if w.mirror != nil && len(rows) > 0 {
			if err := w.mirror.WriteListings(ctx, rows); err != nil {
				w.logger.Warn("[pages] Mirror write for page %d failed: %v", page, err)
			}
		}

		if w.cfg.MaxPages > 0 && page >= w.cfg.MaxPages {
			w.logger.Info("[pages] Reached page cap (%d). Stopping.", w.cfg.MaxPages)
			summary.StopReason = StopPageCap
			return summary, nil
		}

		if err := utils.Sleep(ctx, w.cfg.PageDelay); err != nil {
			return summary, err
		}
	}
}
