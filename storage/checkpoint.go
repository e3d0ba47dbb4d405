package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"zillow-scraper/models"
)

// RewriteStore persists the enriched dataset by rewriting the whole file
// after every new row. The rewrite goes through a synced temp file and a
// rename, so the file on disk is always a complete dataset.
type RewriteStore struct {
	path   string
	rows   []models.Enriched
	loaded bool
}

// NewRewriteStore returns a store for path.
func NewRewriteStore(path string) (*RewriteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("checkpoint: create output dir: %w", err)
	}
	return &RewriteStore{path: path}, nil
}

// Load reads the existing dataset. A URL present more than once keeps its
// first row.
func (s *RewriteStore) Load() ([]models.Enriched, error) {
	rows, err := ReadEnriched(s.path)
	if err != nil {
		return nil, err
	}
	s.rows = firstPerURL(rows)
	s.loaded = true
	return append([]models.Enriched(nil), s.rows...), nil
}

// Append adds row and rewrites the dataset.
func (s *RewriteStore) Append(row models.Enriched) error {
	if !s.loaded {
		if _, err := s.Load(); err != nil {
			return err
		}
	}
	s.rows = append(s.rows, row)
	return writeEnrichedAtomic(s.path, s.rows)
}

func (s *RewriteStore) Close() error { return nil }

// AppendStore appends one synced row per success and commits its URL to a
// SQLite index afterwards. Every complete row on disk counts as persisted;
// the index only decides the fate of the last row, which is dropped when a
// crash left it written but not committed.
type AppendStore struct {
	path   string
	index  *Index
	loaded bool
	// Recovered counts rows dropped by the last Load.
	Recovered int
}

// NewAppendStore opens the index at indexPath for the dataset at path.
func NewAppendStore(path, indexPath string) (*AppendStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("checkpoint: create output dir: %w", err)
	}
	idx, err := OpenIndex(indexPath)
	if err != nil {
		return nil, err
	}
	return &AppendStore{path: path, index: idx}, nil
}

// Load returns the persisted rows. A torn tail is dropped, and so is the
// last complete row when the index is tracking the file but never committed
// it. Rows found without an index entry otherwise are adopted, which covers
// a dataset written in rewrite mode or a lost index file. If anything was
// dropped the file is compacted; the index is then synced to the kept rows.
func (s *AppendStore) Load() ([]models.Enriched, error) {
	t, err := readTable(s.path, true)
	if err != nil {
		return nil, err
	}
	committed, err := s.index.URLs()
	if err != nil {
		return nil, err
	}

	var all []models.Enriched
	torn := false
	if t != nil {
		all = t.enriched()
		torn = t.torn
	}
	if n := len(all); n > 0 && len(committed) > 0 {
		if _, ok := committed[all[n-1].URL]; !ok {
			all = all[:n-1]
		}
	}
	kept := firstPerURL(all)

	s.Recovered = 0
	if t != nil && (torn || len(kept) != len(t.rows)) {
		s.Recovered = len(t.rows) - len(kept)
		if torn {
			s.Recovered++
		}
		if err := writeEnrichedAtomic(s.path, kept); err != nil {
			return nil, err
		}
	}

	if !sameURLs(kept, committed) {
		urls := make([]string, len(kept))
		for i, e := range kept {
			urls[i] = e.URL
		}
		if err := s.index.Retain(urls); err != nil {
			return nil, err
		}
	}

	s.loaded = true
	return kept, nil
}

func sameURLs(rows []models.Enriched, set map[string]struct{}) bool {
	if len(rows) != len(set) {
		return false
	}
	for _, r := range rows {
		if _, ok := set[r.URL]; !ok {
			return false
		}
	}
	return true
}

// Append writes row, syncs the file, then commits the URL.
func (s *AppendStore) Append(row models.Enriched) error {
	if !s.loaded {
		if _, err := s.Load(); err != nil {
			return err
		}
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("checkpoint: open %q: %w", s.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("checkpoint: stat %q: %w", s.path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(models.EnrichedHeader()); err != nil {
			_ = f.Close()
			return fmt.Errorf("checkpoint: write header: %w", err)
		}
	}
	if err := w.Write(row.Record()); err != nil {
		_ = f.Close()
		return fmt.Errorf("checkpoint: write row: %w", err)
	}
	if err := syncAndClose(f, w); err != nil {
		return err
	}

	return s.index.Commit(row.URL)
}

func (s *AppendStore) Close() error { return s.index.Close() }

func firstPerURL(rows []models.Enriched) []models.Enriched {
	seen := make(map[string]struct{}, len(rows))
	out := rows[:0:0]
	for _, r := range rows {
		if _, dup := seen[r.URL]; dup {
			continue
		}
		seen[r.URL] = struct{}{}
		out = append(out, r)
	}
	return out
}

// writeEnrichedAtomic replaces path with the given rows.
func writeEnrichedAtomic(path string, rows []models.Enriched) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("checkpoint: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := csv.NewWriter(tmp)
	if err := w.Write(models.EnrichedHeader()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("checkpoint: write header: %w", err)
	}
	for _, r := range rows {
		if err := w.Write(r.Record()); err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
			return fmt.Errorf("checkpoint: write row: %w", err)
		}
	}
	if err := syncAndClose(tmp, w); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("checkpoint: replace %q: %w", path, err)
	}
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
