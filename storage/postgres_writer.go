package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"zillow-scraper/models"
	"zillow-scraper/utils"
)

var (
	listingColumns = []string{
		"url", "photo_urls", "price", "full_address", "street", "city", "state",
		"zip_code", "bedrooms", "bathrooms", "house_size", "lot_size", "house_type",
	}
	detailColumns = []string{
		"year_built", "description", "listing_date", "days_on_zillow", "total_views",
		"total_saved", "realtor_name", "realtor_contact", "agency",
		"co_realtor_name", "co_realtor_contact", "co_realtor_agency",
	}
)

// PostgresWriter mirrors both datasets into PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, waits for it to accept
// connections, runs schema migrations, and returns a ready-to-use
// PostgresWriter.
func NewPostgresWriter(ctx context.Context, dsn string, logger *utils.Logger) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	ping := &utils.RetryConfig{MaxAttempts: 6, BaseDelay: time.Second, Logger: logger}
	if err := ping.Do(ctx, "postgres ping", func(int) error { return db.PingContext(ctx) }); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS listings (
			id           SERIAL PRIMARY KEY,
			url          TEXT UNIQUE NOT NULL,
			photo_urls   TEXT NOT NULL DEFAULT '',
			price        TEXT NOT NULL DEFAULT '',
			full_address TEXT NOT NULL DEFAULT '',
			street       TEXT NOT NULL DEFAULT '',
			city         TEXT NOT NULL DEFAULT '',
			state        TEXT NOT NULL DEFAULT '',
			zip_code     TEXT NOT NULL DEFAULT '',
			bedrooms     TEXT NOT NULL DEFAULT '',
			bathrooms    TEXT NOT NULL DEFAULT '',
			house_size   TEXT NOT NULL DEFAULT '',
			lot_size     TEXT NOT NULL DEFAULT '',
			house_type   TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS enriched_listings (
			url                TEXT PRIMARY KEY,
			photo_urls         TEXT NOT NULL DEFAULT '',
			price              TEXT NOT NULL DEFAULT '',
			full_address       TEXT NOT NULL DEFAULT '',
			street             TEXT NOT NULL DEFAULT '',
			city               TEXT NOT NULL DEFAULT '',
			state              TEXT NOT NULL DEFAULT '',
			zip_code           TEXT NOT NULL DEFAULT '',
			bedrooms           TEXT NOT NULL DEFAULT '',
			bathrooms          TEXT NOT NULL DEFAULT '',
			house_size         TEXT NOT NULL DEFAULT '',
			lot_size           TEXT NOT NULL DEFAULT '',
			house_type         TEXT NOT NULL DEFAULT '',
			year_built         TEXT NOT NULL DEFAULT 'N/A',
			description        TEXT NOT NULL DEFAULT 'N/A',
			listing_date       TEXT NOT NULL DEFAULT 'N/A',
			days_on_zillow     TEXT NOT NULL DEFAULT 'N/A',
			total_views        TEXT NOT NULL DEFAULT 'N/A',
			total_saved        TEXT NOT NULL DEFAULT 'N/A',
			realtor_name       TEXT NOT NULL DEFAULT 'N/A',
			realtor_contact    TEXT NOT NULL DEFAULT 'N/A',
			agency             TEXT NOT NULL DEFAULT 'N/A',
			co_realtor_name    TEXT NOT NULL DEFAULT 'N/A',
			co_realtor_contact TEXT NOT NULL DEFAULT 'N/A',
			co_realtor_agency  TEXT NOT NULL DEFAULT 'N/A',
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_listings_city      ON listings(city);
		CREATE INDEX IF NOT EXISTS idx_listings_type      ON listings(house_type);
		CREATE INDEX IF NOT EXISTS idx_enriched_city      ON enriched_listings(city);
		CREATE INDEX IF NOT EXISTS idx_enriched_agency    ON enriched_listings(agency);
	`)
	return err
}

// WriteListings batch-inserts one page of base listings. URLs already in the
// table are left untouched.
func (pw *PostgresWriter) WriteListings(ctx context.Context, listings []models.Listing) error {
	const batchSize = 50
	for i := 0; i < len(listings); i += batchSize {
		end := i + batchSize
		if end > len(listings) {
			end = len(listings)
		}
		if err := pw.insertBatch(ctx, listings[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (pw *PostgresWriter) insertBatch(ctx context.Context, batch []models.Listing) error {
	n := len(listingColumns)
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*n)

	for idx, l := range batch {
		valueStrings = append(valueStrings, placeholders(idx*n, n))
		for _, v := range l.Record() {
			valueArgs = append(valueArgs, v)
		}
	}

	query := fmt.Sprintf(`
		INSERT INTO listings (%s)
		VALUES %s
		ON CONFLICT (url) DO NOTHING
	`, strings.Join(listingColumns, ", "), strings.Join(valueStrings, ","))

	if _, err := pw.db.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("postgres: insert listings: %w", err)
	}
	return nil
}

// UpsertEnriched inserts or replaces one enriched row.
func (pw *PostgresWriter) UpsertEnriched(ctx context.Context, e models.Enriched) error {
	cols := append(append([]string(nil), listingColumns...), detailColumns...)
	sets := make([]string, 0, len(cols)-1)
	for _, c := range cols[1:] {
		sets = append(sets, c+" = EXCLUDED."+c)
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf(`
		INSERT INTO enriched_listings (%s)
		VALUES %s
		ON CONFLICT (url) DO UPDATE SET %s
	`, strings.Join(cols, ", "), placeholders(0, len(cols)), strings.Join(sets, ", "))

	rec := e.Record()
	args := make([]interface{}, len(rec))
	for i, v := range rec {
		args[i] = v
	}
	if _, err := pw.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: upsert %s: %w", e.URL, err)
	}
	return nil
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// FetchEnriched retrieves every mirrored enriched row, used by the report.
func (pw *PostgresWriter) FetchEnriched(ctx context.Context) ([]models.Enriched, error) {
	cols := append(append([]string(nil), listingColumns...), detailColumns...)
	rows, err := pw.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM enriched_listings ORDER BY url`, strings.Join(cols, ", ")))
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch enriched: %w", err)
	}
	defer rows.Close()

	var out []models.Enriched
	for rows.Next() {
		vals := make([]string, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}

		header := models.EnrichedHeader()
		get := func(col string) string {
			for i, h := range header {
				if h == col {
					return vals[i]
				}
			}
			return ""
		}
		out = append(out, models.Enriched{
			Listing: models.ListingFromColumns(get),
			Detail:  models.DetailFromColumns(get),
		})
	}
	return out, rows.Err()
}

// placeholders renders "($offset+1,...,$offset+n)".
func placeholders(offset, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", offset+i+1)
	}
	return "(" + strings.Join(parts, ",") + ")"
}
