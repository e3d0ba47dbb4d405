package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"zillow-scraper/models"
	"zillow-scraper/utils"
)

const topAgencies = 5

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

func (s *InsightService) Generate(rows []models.Enriched) *models.InsightReport {
	report := &models.InsightReport{
		ListingsByCity: make(map[string]int),
		ListingsByType: make(map[string]int),
	}

	if len(rows) == 0 {
		return report
	}

	report.TotalListings = len(rows)
	agencies := make(map[string]int)
	var total float64

	for i := range rows {
		e := &rows[i]

		if e.City != "" {
			report.ListingsByCity[e.City]++
		}
		if e.HomeType != "" {
			report.ListingsByType[e.HomeType]++
		}
		if e.Agency != "" && e.Agency != models.NotAvailable {
			agencies[e.Agency]++
		}
		if e.AgentName == "" || e.AgentName == models.NotAvailable {
			report.MissingAgent++
		}
		if e.YearBuilt == "" || e.YearBuilt == models.NotAvailable {
			report.MissingYear++
		}

		price, ok := ParsePrice(e.Price)
		if !ok || price <= 0 {
			continue
		}
		if report.PricedListings == 0 || price < report.MinPrice {
			report.MinPrice = price
		}
		if report.PricedListings == 0 || price > report.MaxPrice {
			report.MaxPrice = price
			report.MostExpensive = e
		}
		report.PricedListings++
		total += price
	}

	if report.PricedListings > 0 {
		report.AveragePrice = round2(total / float64(report.PricedListings))
		report.MinPrice = round2(report.MinPrice)
		report.MaxPrice = round2(report.MaxPrice)
	}

	for agency, n := range agencies {
		report.TopAgencies = append(report.TopAgencies, models.AgencyCount{Agency: agency, Count: n})
	}
	sort.Slice(report.TopAgencies, func(i, j int) bool {
		a, b := report.TopAgencies[i], report.TopAgencies[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Agency < b.Agency
	})
	if len(report.TopAgencies) > topAgencies {
		report.TopAgencies = report.TopAgencies[:topAgencies]
	}

	s.logger.Debug("[insights] %d rows, %d priced, %d agencies", report.TotalListings, report.PricedListings, len(agencies))
	return report
}

func (s *InsightService) Print(w io.Writer, r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 ZILLOW LISTING INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Enriched listings      : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  With a parsable price  : \033[1m%d\033[0m\n", r.PricedListings)
	fmt.Fprintf(w, "  Missing realtor name   : \033[1m%d\033[0m\n", r.MissingAgent)
	fmt.Fprintf(w, "  Missing year built     : \033[1m%d\033[0m\n", r.MissingYear)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Price Statistics\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.PricedListings > 0 {
		fmt.Fprintf(w, "  Average price : \033[1;32m$%.2f\033[0m\n", r.AveragePrice)
		fmt.Fprintf(w, "  Minimum price : \033[1;32m$%.2f\033[0m\n", r.MinPrice)
		fmt.Fprintf(w, "  Maximum price : \033[1;32m$%.2f\033[0m\n", r.MaxPrice)
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	if r.MostExpensive != nil {
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Listing\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.MostExpensive.FullAddress, 50))
		fmt.Fprintf(w, "  Type  : %s\n", r.MostExpensive.HomeType)
		fmt.Fprintf(w, "  Price : \033[1;31m%s\033[0m\n", r.MostExpensive.Price)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Top %d Agencies\033[0m\n", topAgencies)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopAgencies) == 0 {
		fmt.Fprintf(w, "  No agency data\n")
	} else {
		for i, a := range r.TopAgencies {
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-40s \033[1;32m%d\033[0m\n", i+1, truncate(a.Agency, 38), a.Count)
		}
	}
	fmt.Fprintln(w)

	printCounts(w, "Listings by City", r.ListingsByCity, thin)
	printCounts(w, "Listings by Home Type", r.ListingsByType, thin)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func printCounts(w io.Writer, title string, counts map[string]int, thin string) {
	fmt.Fprintf(w, "\033[1;33m  %s\033[0m\n", title)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(counts) == 0 {
		fmt.Fprintf(w, "  No data\n\n")
		return
	}

	type keyCount struct {
		key   string
		count int
	}
	var list []keyCount
	for k, n := range counts {
		list = append(list, keyCount{k, n})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].count != list[j].count {
			return list[i].count > list[j].count
		}
		return list[i].key < list[j].key
	})
	for _, kc := range list {
		bar := strings.Repeat("█", min(kc.count, 40))
		fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(kc.key, 28), bar, kc.count)
	}
	fmt.Fprintln(w)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

// truncate shortens s to max runes.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
