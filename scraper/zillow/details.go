package zillow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zillow-scraper/models"
	"zillow-scraper/scraper"
	"zillow-scraper/storage"
	"zillow-scraper/utils"
)

// EnricherConfig sets the random pause taken after each processed record.
type EnricherConfig struct {
	PaceMin time.Duration
	PaceMax time.Duration
}

// Enricher fetches the detail page of every base listing not yet present in
// the checkpoint store and persists each merged row as soon as it is ready.
type Enricher struct {
	client Fetcher
	store  storage.CheckpointStore
	mirror storage.Mirror
	cfg    EnricherConfig
	logger *utils.Logger
}

// NewEnricher creates an Enricher.
func NewEnricher(client Fetcher, store storage.CheckpointStore, cfg EnricherConfig, logger *utils.Logger) *Enricher {
	return &Enricher{client: client, store: store, cfg: cfg, logger: logger}
}

// WithMirror also upserts every persisted row into m.
func (e *Enricher) WithMirror(m storage.Mirror) *Enricher {
	e.mirror = m
	return e
}

// Run enriches inputs in order. Listings already in the store are skipped
// without a fetch. A listing whose fetch fails terminally stays absent and
// is picked up by the next run. Store failures and cancellation are
// returned; nothing persisted before them is lost.
func (e *Enricher) Run(ctx context.Context, inputs []models.Listing) (models.EnrichSummary, error) {
	summary := models.EnrichSummary{Input: len(inputs)}

	existing, err := e.store.Load()
	if err != nil {
		return summary, fmt.Errorf("details: load checkpoint: %w", err)
	}
	done := utils.NewURLSet()
	for _, row := range existing {
		done.Add(row.URL)
	}

	queued := utils.NewURLSet()
	todo := make([]models.Listing, 0, len(inputs))
	for _, in := range inputs {
		switch {
		case in.URL == "":
			e.logger.Warn("[details] Skipping base row without URL: %s", in.FullAddress)
		case done.Contains(in.URL):
			summary.Resumed++
		case !queued.Add(in.URL):
			summary.Duplicate++
		default:
			todo = append(todo, in)
		}
	}
	e.logger.Info("[details] %d listings in base dataset, %d already enriched, %d to process",
		len(inputs), summary.Resumed, len(todo))

	for i, in := range todo {
		body, err := e.client.Fetch(ctx, in.URL)
		switch {
		case err == nil:
			if err := e.persist(ctx, in, body); err != nil {
				return summary, err
			}
			summary.Enriched++
		case errors.Is(err, scraper.ErrTerminal):
			e.logger.Error("[details] Skipping %s: %v", in.URL, err)
			summary.Failed++
		default:
			return summary, err
		}

		e.logger.Info("[details] Processed %d/%d", i+1, len(todo))

		if i < len(todo)-1 {
			if err := utils.Sleep(ctx, utils.Jitter(e.cfg.PaceMin, e.cfg.PaceMax)); err != nil {
				return summary, err
			}
		}
	}

	return summary, nil
}

func (e *Enricher) persist(ctx context.Context, in models.Listing, body []byte) error {
	detail, err := ParseDetail(body)
	if err != nil {
		e.logger.Warn("[details] Failed to find content for %s: %v", in.URL, err)
	}

	row := models.Enriched{Listing: in, Detail: detail}
	if err := e.store.Append(row); err != nil {
		return fmt.Errorf("details: persist %s: %w", in.URL, err)
	}

	if e.mirror != nil {
		if err := e.mirror.UpsertEnriched(ctx, row); err != nil {
			e.logger.Warn("[details] Mirror upsert for %s failed: %v", in.URL, err)
		}
	}
	return nil
}
