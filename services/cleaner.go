package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"zillow-scraper/models"
	"zillow-scraper/utils"
)

// priceRegexp captures the first number in a price label and an optional
// K/M multiplier ("$1.25M", "$850K", "$349,900").
var priceRegexp = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*([KkMm])?`)

// Cleaner tidies mapped listings before they reach the base dataset.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean collapses stray whitespace in the text fields and drops rows whose
// URL is empty or already in seen. Kept URLs are added to seen. It returns
// the kept rows and how many were duplicates.
func (c *Cleaner) Clean(rows []models.Listing, seen *utils.URLSet) ([]models.Listing, int) {
	result := make([]models.Listing, 0, len(rows))
	duplicates := 0

	for _, r := range rows {
		r.URL = strings.TrimSpace(r.URL)
		if r.URL == "" {
			c.logger.Warn("[cleaner] Dropping listing with empty URL: %s", r.FullAddress)
			continue
		}
		if !seen.Add(r.URL) {
			c.logger.Debug("[cleaner] Duplicate URL skipped: %s", r.URL)
			duplicates++
			continue
		}

		r.FullAddress = normaliseText(r.FullAddress)
		r.Street = normaliseText(r.Street)
		r.City = normaliseText(r.City)
		r.State = normaliseText(r.State)
		r.Zip = normaliseText(r.Zip)
		r.HomeType = normaliseText(r.HomeType)

		result = append(result, r)
	}

	if dropped := len(rows) - len(result); dropped > 0 {
		c.logger.Info("[cleaner] Cleaned %d → %d listings (dropped %d)", len(rows), len(result), dropped)
	}
	return result, duplicates
}

// ParsePrice reads a display price such as "$349,900" or "$1.2M". The
// second result is false when no number is present.
func ParsePrice(raw string) (float64, bool) {
	m := priceRegexp.FindStringSubmatch(raw)
	if m == nil {
		return 0, false
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToUpper(m[2]) {
	case "K":
		v *= 1e3
	case "M":
		v *= 1e6
	}
	return v, true
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
