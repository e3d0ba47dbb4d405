package storage

import (
	"context"

	"zillow-scraper/models"
)

// PageSink receives the mapped listings of one search page. The first page
// truncates the dataset; later pages append.
type PageSink interface {
	WritePage(rows []models.Listing, truncate bool) error
}

// CheckpointStore is the enriched dataset. The URLs of the rows it holds are
// the resumption state of the enrichment runner.
type CheckpointStore interface {
	// Load returns the rows already persisted.
	Load() ([]models.Enriched, error)
	// Append durably adds one row before returning.
	Append(row models.Enriched) error
	Close() error
}

// Mirror is an optional secondary copy of the datasets. Its failures never
// affect the CSV files.
type Mirror interface {
	WriteListings(ctx context.Context, rows []models.Listing) error
	UpsertEnriched(ctx context.Context, row models.Enriched) error
	Close() error
}
