package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"zillow-scraper/models"
)

// BaseCSV is the base dataset written page by page by the pagination walker.
type BaseCSV struct {
	path string
}

// NewBaseCSV returns a sink for path. Intermediate directories are created
// automatically.
func NewBaseCSV(path string) (*BaseCSV, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}
	return &BaseCSV{path: path}, nil
}

// WritePage writes one page of rows and syncs the file. With truncate the
// file is recreated with a header row. Appending to a missing or empty file
// also writes the header first.
func (b *BaseCSV) WritePage(rows []models.Listing, truncate bool) error {
	flags := os.O_CREATE | os.O_WRONLY
	if truncate {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
	}

	f, err := os.OpenFile(b.path, flags, 0644)
	if err != nil {
		return fmt.Errorf("csv: open %q: %w", b.path, err)
	}

	needHeader := truncate
	if !needHeader {
		info, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return fmt.Errorf("csv: stat %q: %w", b.path, err)
		}
		needHeader = info.Size() == 0
	}

	w := csv.NewWriter(f)
	if needHeader {
		if err := w.Write(models.BaseHeader()); err != nil {
			_ = f.Close()
			return fmt.Errorf("csv: write header: %w", err)
		}
	}
	for _, r := range rows {
		if err := w.Write(r.Record()); err != nil {
			_ = f.Close()
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	return syncAndClose(f, w)
}

func syncAndClose(f *os.File, w *csv.Writer) error {
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("csv: flush: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("csv: sync: %w", err)
	}
	return f.Close()
}

// table is a CSV file read into memory with its header indexed by name.
type table struct {
	columns map[string]int
	rows    [][]string
	// torn is set when reading stopped early at an unparseable record.
	torn bool
}

func (t *table) getter(row []string) func(string) string {
	return func(col string) string {
		i, ok := t.columns[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
}

// readTable loads path. A missing or empty file yields a nil table. With
// lenient set, a malformed record, one with the wrong number of fields, or a
// last record without its line terminator ends the read instead of failing
// it.
func readTable(path string, lenient bool) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header of %q: %w", path, err)
	}

	t := &table{columns: make(map[string]int, len(header))}
	for i, h := range header {
		t.columns[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	if _, ok := t.columns[models.ColURL]; !ok {
		return nil, fmt.Errorf("csv: %q has no %q column", path, models.ColURL)
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if lenient {
				t.torn = true
				break
			}
			return nil, fmt.Errorf("csv: read %q: %w", path, err)
		}
		if len(rec) != len(header) {
			if lenient {
				t.torn = true
				break
			}
			return nil, fmt.Errorf("csv: %q: record has %d fields, want %d", path, len(rec), len(header))
		}
		t.rows = append(t.rows, rec)
	}

	if lenient && !t.torn && len(t.rows) > 0 {
		terminated, err := endsWithNewline(f)
		if err != nil {
			return nil, fmt.Errorf("csv: read %q: %w", path, err)
		}
		if !terminated {
			t.rows = t.rows[:len(t.rows)-1]
			t.torn = true
		}
	}
	return t, nil
}

// endsWithNewline reports whether the last byte of f is a line terminator.
// A record cut short inside its last field still parses with the right
// number of fields, so the terminator is the only sign it is incomplete.
func endsWithNewline(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, err
	}
	return last[0] == '\n', nil
}

// ReadListings loads the base dataset. Rows without a URL are dropped, and
// so is a tail torn by an interrupted page write.
func ReadListings(path string) ([]models.Listing, error) {
	t, err := readTable(path, true)
	if err != nil || t == nil {
		return nil, err
	}

	out := make([]models.Listing, 0, len(t.rows))
	for _, row := range t.rows {
		l := models.ListingFromColumns(t.getter(row))
		if l.URL == "" {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// ReadEnriched loads the enriched dataset. A missing or empty file is an
// empty dataset.
func ReadEnriched(path string) ([]models.Enriched, error) {
	t, err := readTable(path, false)
	if err != nil || t == nil {
		return nil, err
	}
	return t.enriched(), nil
}

func (t *table) enriched() []models.Enriched {
	out := make([]models.Enriched, 0, len(t.rows))
	for _, row := range t.rows {
		get := t.getter(row)
		e := models.Enriched{
			Listing: models.ListingFromColumns(get),
			Detail:  models.DetailFromColumns(get),
		}
		if e.URL == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}
