package models

import "strings"

// NotAvailable is written for any detail field that could not be extracted.
const NotAvailable = "N/A"

// Listing is one catalog entry as written to the base dataset. URL is the
// identity across every dataset the scraper produces.
type Listing struct {
	URL         string
	PhotoURLs   []string
	Price       string
	FullAddress string
	Street      string
	City        string
	State       string
	Zip         string
	Bedrooms    string
	Bathrooms   string
	LivingArea  string
	LotSize     string
	HomeType    string
}

// Detail holds the secondary attributes read from a listing's detail page.
type Detail struct {
	YearBuilt      string
	Description    string
	ListingDate    string
	DaysOnZillow   string
	Views          string
	Saves          string
	AgentName      string
	AgentContact   string
	Agency         string
	CoAgentName    string
	CoAgentContact string
	CoAgency       string
}

// Enriched is a Listing joined with its Detail.
type Enriched struct {
	Listing
	Detail
}

// EmptyDetail returns a Detail with every field set to NotAvailable.
func EmptyDetail() Detail {
	return Detail{
		YearBuilt:      NotAvailable,
		Description:    NotAvailable,
		ListingDate:    NotAvailable,
		DaysOnZillow:   NotAvailable,
		Views:          NotAvailable,
		Saves:          NotAvailable,
		AgentName:      NotAvailable,
		AgentContact:   NotAvailable,
		Agency:         NotAvailable,
		CoAgentName:    NotAvailable,
		CoAgentContact: NotAvailable,
		CoAgency:       NotAvailable,
	}
}

// Column names shared by the CSV files and the Postgres mirror.
const (
	ColURL = "HOUSE URL"
)

// BaseHeader is the column order of the base dataset.
func BaseHeader() []string {
	return []string{
		ColURL, "PHOTO URLs", "PRICE", "FULL ADDRESS",
		"STREET", "CITY", "STATE", "ZIP CODE",
		"NUMBER OF BEDROOMS", "NUMBER OF BATHROOMS",
		"HOUSE SIZE", "LOT SIZE", "HOUSE TYPE",
	}
}

// DetailHeader is the column order of the detail attributes.
func DetailHeader() []string {
	return []string{
		"YEAR BUILT", "DESCRIPTION", "LISTING DATE",
		"DAYS ON ZILLOW", "TOTAL VIEWS", "TOTAL SAVED",
		"REALTOR NAME", "REALTOR CONTACT NO", "AGENCY",
		"CO-REALTOR NAME", "CO-REALTOR CONTACT NO", "CO-REALTOR AGENCY",
	}
}

// EnrichedHeader is the column order of the enriched dataset.
func EnrichedHeader() []string {
	return append(BaseHeader(), DetailHeader()...)
}

// Record returns the Listing in BaseHeader order.
func (l Listing) Record() []string {
	return []string{
		l.URL,
		strings.Join(l.PhotoURLs, ","),
		l.Price,
		l.FullAddress,
		l.Street,
		l.City,
		l.State,
		l.Zip,
		l.Bedrooms,
		l.Bathrooms,
		l.LivingArea,
		l.LotSize,
		l.HomeType,
	}
}

// Record returns the Detail in DetailHeader order.
func (d Detail) Record() []string {
	return []string{
		d.YearBuilt,
		d.Description,
		d.ListingDate,
		d.DaysOnZillow,
		d.Views,
		d.Saves,
		d.AgentName,
		d.AgentContact,
		d.Agency,
		d.CoAgentName,
		d.CoAgentContact,
		d.CoAgency,
	}
}

// Record returns the row in EnrichedHeader order.
func (e Enriched) Record() []string {
	return append(e.Listing.Record(), e.Detail.Record()...)
}

// ListingFromColumns builds a Listing from a column lookup. Missing columns
// read as empty strings.
func ListingFromColumns(get func(col string) string) Listing {
	var photos []string
	if raw := strings.TrimSpace(get("PHOTO URLs")); raw != "" {
		photos = strings.Split(raw, ",")
	}
	return Listing{
		URL:         strings.TrimSpace(get(ColURL)),
		PhotoURLs:   photos,
		Price:       get("PRICE"),
		FullAddress: get("FULL ADDRESS"),
		Street:      get("STREET"),
		City:        get("CITY"),
		State:       get("STATE"),
		Zip:         get("ZIP CODE"),
		Bedrooms:    get("NUMBER OF BEDROOMS"),
		Bathrooms:   get("NUMBER OF BATHROOMS"),
		LivingArea:  get("HOUSE SIZE"),
		LotSize:     get("LOT SIZE"),
		HomeType:    get("HOUSE TYPE"),
	}
}

// DetailFromColumns builds a Detail from a column lookup.
func DetailFromColumns(get func(col string) string) Detail {
	return Detail{
		YearBuilt:      get("YEAR BUILT"),
		Description:    get("DESCRIPTION"),
		ListingDate:    get("LISTING DATE"),
		DaysOnZillow:   get("DAYS ON ZILLOW"),
		Views:          get("TOTAL VIEWS"),
		Saves:          get("TOTAL SAVED"),
		AgentName:      get("REALTOR NAME"),
		AgentContact:   get("REALTOR CONTACT NO"),
		Agency:         get("AGENCY"),
		CoAgentName:    get("CO-REALTOR NAME"),
		CoAgentContact: get("CO-REALTOR CONTACT NO"),
		CoAgency:       get("CO-REALTOR AGENCY"),
	}
}

// WalkSummary reports how a pagination run ended.
type WalkSummary struct {
	Pages      int
	Listings   int
	Skipped    int
	Duplicates int
	StopReason string
}

// EnrichSummary reports the outcome of an enrichment run.
type EnrichSummary struct {
	Input     int
	Resumed   int
	Enriched  int
	Failed    int
	Duplicate int
}

// InsightReport holds the computed analytics over the enriched dataset.
type InsightReport struct {
	TotalListings  int
	PricedListings int
	AveragePrice   float64
	MinPrice       float64
	MaxPrice       float64
	MostExpensive  *Enriched
	ListingsByCity map[string]int
	ListingsByType map[string]int
	TopAgencies    []AgencyCount
	MissingAgent   int
	MissingYear    int
}

// AgencyCount is one row of the top-agencies table.
type AgencyCount struct {
	Agency string
	Count  int
}
