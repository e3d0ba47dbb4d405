package zillow

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"zillow-scraper/models"
)

// ErrNoDetailContent means the page lacks the main detail container. The
// Detail returned alongside it is still usable; missing fields hold
// models.NotAvailable.
var ErrNoDetailContent = errors.New("zillow: detail content container not found")

var builtInRegexp = regexp.MustCompile(`Built in\s+(\d{4})`)

// detailStep fills one group of Detail fields. A panic inside a step only
// costs that step's fields.
type detailStep func(root *goquery.Selection, d *models.Detail)

var detailSteps = []detailStep{
	yearBuilt,
	description,
	listingDate,
	engagement,
	func(root *goquery.Selection, d *models.Detail) {
		d.AgentName, d.AgentContact = splitAttribution(attribution(root, "LISTING_AGENT"))
	},
	func(root *goquery.Selection, d *models.Detail) {
		d.Agency = orNA(stripCommas(attribution(root, "BROKER")))
	},
	func(root *goquery.Selection, d *models.Detail) {
		d.CoAgentName, d.CoAgentContact = splitAttribution(attribution(root, "CO_LISTING_AGENT"))
	},
	func(root *goquery.Selection, d *models.Detail) {
		d.CoAgency = orNA(stripCommas(attribution(root, "CO_LISTING_AGENT_OFFICE")))
	},
}

// ParseDetail parses a detail page. When the content container is missing
// the whole document is searched and ErrNoDetailContent is returned with
// whatever could be found.
func ParseDetail(body []byte) (models.Detail, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return models.EmptyDetail(), fmt.Errorf("%w: %v", ErrNoDetailContent, err)
	}

	root := doc.Find("div.ds-data-view-list").First()
	if root.Length() == 0 {
		return MapDetail(doc.Selection), ErrNoDetailContent
	}
	return MapDetail(root), nil
}

// MapDetail extracts the detail attributes below root.
func MapDetail(root *goquery.Selection) models.Detail {
	d := models.EmptyDetail()
	for _, step := range detailSteps {
		runStep(step, root, &d)
	}
	return d
}

func runStep(step detailStep, root *goquery.Selection, d *models.Detail) {
	scratch := *d
	defer func() {
		if r := recover(); r == nil {
			*d = scratch
		}
	}()
	step(root, &scratch)
}

func yearBuilt(root *goquery.Selection, d *models.Detail) {
	root.Find("span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := builtInRegexp.FindStringSubmatch(s.Text()); m != nil {
			d.YearBuilt = m[1]
			return false
		}
		return true
	})
}

func description(root *goquery.Selection, d *models.Detail) {
	el := root.Find(`div[data-testid="description"]`).First()
	if el.Length() == 0 {
		return
	}
	d.Description = orNA(strings.TrimSpace(strings.ReplaceAll(el.Text(), "Show more", "")))
}

func listingDate(root *goquery.Selection, d *models.Detail) {
	root.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if !strings.Contains(text, "Listing updated") {
			return true
		}
		date, _, _ := strings.Cut(text, " at ")
		d.ListingDate = orNA(strings.TrimSpace(strings.ReplaceAll(date, "Listing updated: ", "")))
		return false
	})
}

// engagement reads the overview counters. They render as value/label
// elements ("3 days", "on Zillow", "120", "views", ...). A pair starts only
// at a numeric value and the label decides which field it fills, so stray
// headings, reordered or missing counters do not shift the others.
func engagement(root *goquery.Selection, d *models.Detail) {
	var texts []string
	root.Find("dt, dd").Each(func(_ int, s *goquery.Selection) {
		texts = append(texts, strings.TrimSpace(s.Text()))
	})

	for i := 0; i+1 < len(texts); i++ {
		value, label := texts[i], strings.ToLower(texts[i+1])
		if !startsWithDigit(value) {
			continue
		}
		switch {
		case strings.Contains(label, "view"):
			setOnce(&d.Views, value)
		case strings.Contains(label, "save"):
			setOnce(&d.Saves, value)
		case strings.Contains(label, "zillow"), strings.Contains(label, "day"):
			setOnce(&d.DaysOnZillow, value)
		default:
			continue
		}
		i++
	}
}

func startsWithDigit(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsDigit(r)
}

func setOnce(field *string, value string) {
	if *field == models.NotAvailable {
		*field = value
	}
}

// attribution returns the text of an attribution paragraph, or "" when the
// page has none.
func attribution(root *goquery.Selection, kind string) string {
	el := root.Find(`p[data-testid="attribution-` + kind + `"]`).First()
	if el.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

// splitAttribution separates an agent line into name and contact number.
// "Jane Doe M: 402-555-0100" splits on the "M:" marker; otherwise the last
// whitespace-separated token is the contact.
func splitAttribution(text string) (name, contact string) {
	text = stripCommas(text)
	if text == "" {
		return models.NotAvailable, models.NotAvailable
	}

	if before, after, ok := strings.Cut(text, "M:"); ok {
		return orNA(strings.TrimSpace(before)), orNA(strings.TrimSpace(after))
	}

	idx := strings.LastIndexFunc(text, unicode.IsSpace)
	if idx < 0 {
		return text, models.NotAvailable
	}
	_, size := utf8.DecodeRuneInString(text[idx:])
	return orNA(strings.TrimSpace(text[:idx])), orNA(strings.TrimSpace(text[idx+size:]))
}

func stripCommas(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
}

func orNA(s string) string {
	if s == "" {
		return models.NotAvailable
	}
	return s
}
