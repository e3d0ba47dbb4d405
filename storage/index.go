package storage

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed index_schema.sql
var indexSchema string

// Index records which enriched rows were completely written. A URL is
// committed only after its CSV row has been synced to disk.
type Index struct {
	db *sqlx.DB
}

// OpenIndex opens (or creates) the SQLite index at path.
func OpenIndex(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("index: create directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("index: connect: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(indexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("index: migrate: %w", err)
	}
	return &Index{db: db}, nil
}

// Commit marks url as durably written.
func (i *Index) Commit(url string) error {
	if _, err := i.db.Exec(`INSERT OR IGNORE INTO committed (url) VALUES (?)`, url); err != nil {
		return fmt.Errorf("index: commit %s: %w", url, err)
	}
	return nil
}

// URLs returns every committed URL.
func (i *Index) URLs() (map[string]struct{}, error) {
	var urls []string
	if err := i.db.Select(&urls, `SELECT url FROM committed`); err != nil {
		return nil, fmt.Errorf("index: list: %w", err)
	}
	set := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		set[u] = struct{}{}
	}
	return set, nil
}

// Retain replaces the committed set with urls.
func (i *Index) Retain(urls []string) error {
	tx, err := i.db.Beginx()
	if err != nil {
		return fmt.Errorf("index: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM committed`); err != nil {
		return fmt.Errorf("index: clear: %w", err)
	}
	stmt, err := tx.Preparex(`INSERT OR IGNORE INTO committed (url) VALUES (?)`)
	if err != nil {
		return fmt.Errorf("index: prepare: %w", err)
	}
	defer stmt.Close()
	for _, u := range urls {
		if _, err := stmt.Exec(u); err != nil {
			return fmt.Errorf("index: retain %s: %w", u, err)
		}
	}
	return tx.Commit()
}

func (i *Index) Close() error {
	return i.db.Close()
}
