package services

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"zillow-scraper/models"
)

func row(url, price, city, homeType, agency, agent string) models.Enriched {
	d := models.EmptyDetail()
	d.Agency = agency
	d.AgentName = agent
	return models.Enriched{
		Listing: models.Listing{URL: url, Price: price, City: city, HomeType: homeType, FullAddress: url + " address"},
		Detail:  d,
	}
}

func sampleRows() []models.Enriched {
	return []models.Enriched{
		row("u1", "$200,000", "Omaha", "SINGLE FAMILY", "Acme Realty", "Jane Doe"),
		row("u2", "$50,000", "Omaha", "LOT", "Acme Realty", models.NotAvailable),
		row("u3", "$120,000", "Lincoln", "CONDO", "Prairie Homes", "Sam Roe"),
		row("u4", "$300,000", "Kearney", "SINGLE FAMILY", models.NotAvailable, "Al Poe"),
		row("u5", "", "Lincoln", "TOWNHOUSE", "Prairie Homes", "Jo Yu"),
	}
}

func TestInsightCounts(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleRows())
	if r.TotalListings != 5 {
		t.Errorf("TotalListings: got %d, want 5", r.TotalListings)
	}
	if r.PricedListings != 4 {
		t.Errorf("PricedListings: got %d, want 4", r.PricedListings)
	}
	if r.MissingAgent != 1 {
		t.Errorf("MissingAgent: got %d, want 1", r.MissingAgent)
	}
	if r.MissingYear != 5 {
		t.Errorf("MissingYear: got %d, want 5", r.MissingYear)
	}
}

func TestInsightPrices(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleRows())
	if r.AveragePrice != 167500 {
		t.Errorf("AveragePrice: got %.2f, want 167500", r.AveragePrice)
	}
	if r.MinPrice != 50000 {
		t.Errorf("MinPrice: got %.2f, want 50000", r.MinPrice)
	}
	if r.MaxPrice != 300000 {
		t.Errorf("MaxPrice: got %.2f, want 300000", r.MaxPrice)
	}
	if r.MostExpensive == nil || r.MostExpensive.URL != "u4" {
		t.Errorf("MostExpensive: got %+v, want u4", r.MostExpensive)
	}
}

func TestInsightGrouping(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleRows())
	if r.ListingsByCity["Omaha"] != 2 || r.ListingsByCity["Lincoln"] != 2 {
		t.Errorf("city counts: got %v", r.ListingsByCity)
	}
	if r.ListingsByType["SINGLE FAMILY"] != 2 {
		t.Errorf("type counts: got %v", r.ListingsByType)
	}
	if len(r.TopAgencies) != 2 {
		t.Fatalf("TopAgencies: got %v", r.TopAgencies)
	}
	if r.TopAgencies[0].Agency != "Acme Realty" || r.TopAgencies[0].Count != 2 {
		t.Errorf("TopAgencies[0]: got %+v", r.TopAgencies[0])
	}
}

func TestInsightEmptyInput(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(nil)
	if r.TotalListings != 0 || r.MostExpensive != nil {
		t.Errorf("expected empty report for empty input")
	}
}

func TestInsightPrint(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	var buf bytes.Buffer
	svc.Print(&buf, svc.Generate(sampleRows()))
	out := buf.String()
	for _, want := range []string{"Acme Realty", "Omaha", "$167500.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"Omaha", 10, "Omaha"},
		{"Sotheby's International Realty", 12, "Sotheby's..."},
		{"Ñandú Réalty Ünïted Brokers", 8, "Ñandú..."},
		{"Ñandú", 5, "Ñandú"},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.max)
		if got != tt.want {
			t.Errorf("truncate(%q, %d): got %q, want %q", tt.in, tt.max, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) split a rune: %q", tt.in, tt.max, got)
		}
	}
}
