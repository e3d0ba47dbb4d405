package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"zillow-scraper/models"
)

func listing(url string) models.Listing {
	return models.Listing{
		URL:       url,
		PhotoURLs: []string{"https://photos.example/1.jpg", "https://photos.example/2.jpg"},
		Price:     "$250,000",
		City:      "Omaha",
		State:     "NE",
		HomeType:  "SINGLE FAMILY",
	}
}

func TestBaseCSVTruncateThenAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "base.csv")
	sink, err := NewBaseCSV(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := sink.WritePage([]models.Listing{listing("u1"), listing("u2")}, true); err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if err := sink.WritePage([]models.Listing{listing("u3")}, false); err != nil {
		t.Fatalf("page 2: %v", err)
	}

	got, err := ReadListings(path)
	if err != nil {
		t.Fatalf("ReadListings: %v", err)
	}
	if len(got) != 3 || got[2].URL != "u3" {
		t.Fatalf("rows: got %+v", got)
	}
	if len(got[0].PhotoURLs) != 2 {
		t.Errorf("photo urls should round-trip, got %v", got[0].PhotoURLs)
	}

	// A fresh first page replaces the previous run.
	if err := sink.WritePage([]models.Listing{listing("u9")}, true); err != nil {
		t.Fatal(err)
	}
	got, _ = ReadListings(path)
	if len(got) != 1 || got[0].URL != "u9" {
		t.Errorf("truncate: got %+v", got)
	}
}

func TestBaseCSVHeaderOnlyPage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "base.csv")
	sink, _ := NewBaseCSV(path)
	if err := sink.WritePage(nil, true); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "HOUSE URL,PHOTO URLs,PRICE") {
		t.Errorf("header missing: %q", data)
	}
	rows, err := ReadListings(path)
	if err != nil || len(rows) != 0 {
		t.Errorf("expected empty dataset, got %v, %v", rows, err)
	}
}

func TestReadListingsDropsTornPage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "base.csv")
	sink, _ := NewBaseCSV(path)
	if err := sink.WritePage([]models.Listing{listing("u1"), listing("u2")}, true); err != nil {
		t.Fatal(err)
	}

	// Page 2 killed mid-write: one full row, then a row cut inside a quote.
	f, _ := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	f.WriteString("u3" + strings.Repeat(",", len(models.BaseHeader())-1) + "\n")
	f.WriteString(`u4,"https://photos.example/4.jpg,https://pho`)
	f.Close()

	rows, err := ReadListings(path)
	if err != nil {
		t.Fatalf("ReadListings: %v", err)
	}
	if len(rows) != 3 || rows[2].URL != "u3" {
		t.Errorf("rows: got %+v", rows)
	}

	// A row cut inside its last field has every column but no terminator.
	os.WriteFile(path, []byte(strings.Join(models.BaseHeader(), ",")+"\nu1"+
		strings.Repeat(",", len(models.BaseHeader())-1)+"SINGLE FAM"), 0644)
	rows, err = ReadListings(path)
	if err != nil || len(rows) != 0 {
		t.Errorf("unterminated row should be dropped, got %+v, %v", rows, err)
	}
}

func TestReadEnrichedMissingAndEmpty(t *testing.T) {
	dir := t.TempDir()
	rows, err := ReadEnriched(filepath.Join(dir, "missing.csv"))
	if err != nil || rows != nil {
		t.Errorf("missing file: got %v, %v", rows, err)
	}

	empty := filepath.Join(dir, "empty.csv")
	os.WriteFile(empty, nil, 0644)
	rows, err = ReadEnriched(empty)
	if err != nil || rows != nil {
		t.Errorf("empty file: got %v, %v", rows, err)
	}
}

func TestReadEnrichedRequiresURLColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	os.WriteFile(path, []byte("PRICE,CITY\n$1,Omaha\n"), 0644)
	if _, err := ReadEnriched(path); err == nil {
		t.Error("expected error for header without HOUSE URL")
	}
}

func TestPlaceholders(t *testing.T) {
	if got := placeholders(13, 3); got != "($14,$15,$16)" {
		t.Errorf("placeholders: got %q", got)
	}
}
