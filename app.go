package main

import (
	"context"
	"fmt"
	"os"

	"zillow-scraper/config"
	"zillow-scraper/models"
	"zillow-scraper/proxy"
	"zillow-scraper/scraper"
	"zillow-scraper/scraper/zillow"
	"zillow-scraper/services"
	"zillow-scraper/storage"
	"zillow-scraper/utils"
)

// app wires the configured components for one command.
type app struct {
	cfg    *config.Config
	logger *utils.Logger

	client  *scraper.Client
	browser *scraper.BrowserFetcher
	mirror  *storage.PostgresWriter
}

func newApp(cfg *config.Config, logger *utils.Logger) *app {
	return &app{cfg: cfg, logger: logger}
}

func (a *app) close() {
	if a.browser != nil {
		a.browser.Close()
	}
	if a.mirror != nil {
		_ = a.mirror.Close()
	}
}

func (a *app) fetchClient() (*scraper.Client, error) {
	if a.client != nil {
		return a.client, nil
	}

	pool, err := proxy.Load(a.cfg.ProxyFile, a.cfg.Proxy)
	if err != nil {
		return nil, err
	}
	if pool.Size() == 0 {
		a.logger.Warn("[proxy] No proxies configured, fetching directly")
	} else {
		a.logger.Info("[proxy] Loaded %d proxy endpoints", pool.Size())
		for _, ep := range pool.Endpoints() {
			a.logger.Debug("[proxy] endpoint %s", proxy.Redact(ep))
		}
	}

	var fetcher scraper.Fetcher
	if a.cfg.FetchMode == config.FetchBrowser {
		a.browser = scraper.NewBrowserFetcher(a.cfg.ChromeBin)
		fetcher = a.browser
	} else {
		fetcher = scraper.NewHTTPFetcher()
	}

	a.client = scraper.NewClient(fetcher, pool, scraper.ClientOptions{
		MaxAttempts:  a.cfg.MaxRetries,
		Timeout:      a.cfg.RequestTimeout,
		MinDelay:     a.cfg.RetryDelayMin,
		MaxDelay:     a.cfg.RetryDelayMax,
		RateLimitRPS: a.cfg.RateLimitRPS,
	}, a.logger)
	return a.client, nil
}

// postgres returns the mirror, or nil when it is disabled or unreachable.
func (a *app) postgres(ctx context.Context) *storage.PostgresWriter {
	if !a.cfg.PostgresEnabled {
		return nil
	}
	if a.mirror != nil {
		return a.mirror
	}
	pw, err := storage.NewPostgresWriter(ctx, a.cfg.DSN(), a.logger)
	if err != nil {
		a.logger.Warn("[postgres] Mirror disabled: %v", err)
		return nil
	}
	a.mirror = pw
	return pw
}

func (a *app) pages(ctx context.Context) error {
	client, err := a.fetchClient()
	if err != nil {
		return err
	}
	sink, err := storage.NewBaseCSV(a.cfg.BaseCSVPath)
	if err != nil {
		return err
	}

	w := zillow.NewWalker(client, sink, zillow.WalkerConfig{
		BaseURL:   a.cfg.BaseURL,
		MaxPages:  a.cfg.MaxPages,
		PageDelay: a.cfg.PageDelay,
	}, a.logger)
	if m := a.postgres(ctx); m != nil {
		w.WithMirror(m)
	}

	summary, err := w.Run(ctx)
	a.logger.Info("[pages] Scraping completed: %d pages, %d listings, %d skipped, %d duplicates, stop reason %s",
		summary.Pages, summary.Listings, summary.Skipped, summary.Duplicates, orDash(summary.StopReason))
	return err
}

func (a *app) details(ctx context.Context) error {
	inputs, err := storage.ReadListings(a.cfg.BaseCSVPath)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		a.logger.Warn("[details] Base dataset %s is empty or missing; run \"pages\" first", a.cfg.BaseCSVPath)
		return nil
	}

	client, err := a.fetchClient()
	if err != nil {
		return err
	}
	store, err := a.checkpointStore()
	if err != nil {
		return err
	}
	defer store.Close()

	e := zillow.NewEnricher(client, store, zillow.EnricherConfig{
		PaceMin: a.cfg.PaceDelayMin,
		PaceMax: a.cfg.PaceDelayMax,
	}, a.logger)
	if m := a.postgres(ctx); m != nil {
		e.WithMirror(m)
	}

	summary, err := e.Run(ctx, inputs)
	a.logger.Info("[details] Enrichment finished: %d input, %d resumed, %d enriched, %d failed, %d duplicate",
		summary.Input, summary.Resumed, summary.Enriched, summary.Failed, summary.Duplicate)
	if err != nil {
		return err
	}
	if as, ok := store.(*storage.AppendStore); ok && as.Recovered > 0 {
		a.logger.Warn("[details] Dropped %d incomplete rows left by an earlier run", as.Recovered)
	}

	rows, err := storage.ReadEnriched(a.cfg.EnrichedCSVPath)
	if err != nil {
		return err
	}
	a.printReport(rows)
	return nil
}

func (a *app) checkpointStore() (storage.CheckpointStore, error) {
	if a.cfg.CheckpointMode == config.CheckpointAppend {
		a.logger.Info("[details] Append checkpoint with index %s", a.cfg.CheckpointIndexPath)
		return storage.NewAppendStore(a.cfg.EnrichedCSVPath, a.cfg.CheckpointIndexPath)
	}
	return storage.NewRewriteStore(a.cfg.EnrichedCSVPath)
}

func (a *app) report(ctx context.Context, source string) error {
	var (
		rows []models.Enriched
		err  error
	)
	if source == "postgres" {
		a.cfg.PostgresEnabled = true
		pw := a.postgres(ctx)
		if pw == nil {
			return fmt.Errorf("report: postgres is unreachable")
		}
		rows, err = pw.FetchEnriched(ctx)
	} else {
		rows, err = storage.ReadEnriched(a.cfg.EnrichedCSVPath)
	}
	if err != nil {
		return err
	}
	a.printReport(rows)
	return nil
}

func (a *app) printReport(rows []models.Enriched) {
	svc := services.NewInsightService(a.logger)
	svc.Print(os.Stdout, svc.Generate(rows))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
