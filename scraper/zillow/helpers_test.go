package zillow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"zillow-scraper/scraper"
	"zillow-scraper/utils"
)

// fakeFetcher serves canned bodies by URL. URLs listed in fail return a
// terminal error; unknown URLs fail the same way.
type fakeFetcher struct {
	pages map[string]string
	fail  map[string]bool
	calls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.calls = append(f.calls, url)
	body, ok := f.pages[url]
	if !ok || f.fail[url] {
		return nil, &scraper.TerminalError{URL: url, Attempts: 3, Err: &scraper.StatusError{StatusCode: 403}}
	}
	return []byte(body), nil
}

func quietLogger() *utils.Logger { return utils.NewLogger(io.Discard) }

// searchPage renders a catalog page whose listResults holds entries.
func searchPage(entries ...map[string]any) string {
	if entries == nil {
		entries = []map[string]any{}
	}
	tree := map[string]any{
		"props": map[string]any{
			"pageProps": map[string]any{
				"searchPageState": map[string]any{
					"cat1": map[string]any{
						"searchResults": map[string]any{"listResults": entries},
					},
				},
			},
		},
	}
	data, _ := json.Marshal(tree)
	return `<html><head><script id="__NEXT_DATA__" type="application/json">` + string(data) + `</script></head><body></body></html>`
}

func entry(id int) map[string]any {
	return map[string]any{
		"detailUrl":      fmt.Sprintf("https://www.zillow.com/homedetails/%d_zpid/", id),
		"price":          "$250,000",
		"address":        "1 Main St, Omaha, NE 68102",
		"addressStreet":  "1 Main St",
		"addressCity":    "Omaha",
		"addressState":   "NE",
		"addressZipcode": "68102",
		"carouselPhotos": []any{map[string]any{"url": "https://photos.zillowstatic.com/a.jpg"}},
		"hdpData": map[string]any{
			"homeInfo": map[string]any{
				"bedrooms":     3,
				"bathrooms":    2.5,
				"livingArea":   1850,
				"lotAreaValue": 0.25,
				"lotAreaUnit":  "acres",
				"homeType":     "SINGLE_FAMILY",
			},
		},
	}
}

const detailPage = `<html><body>
<div class="ds-data-view-list">
  <span class="Text-c11n">Built in 1994</span>
  <div data-testid="description">A bright ranch home near the park. Show more</div>
  <p class="Text-c11n">Listing updated: 10/14/2024 at 5:12pm</p>
  <dl>
    <dt><strong>12 days</strong></dt><dt>on Zillow</dt>
    <dt><strong>1,204</strong></dt><dt>views</dt>
    <dt><strong>37</strong></dt><dt>saves</dt>
  </dl>
  <p data-testid="attribution-LISTING_AGENT">Jane Doe, M: 402-555-0100,</p>
  <p data-testid="attribution-BROKER">Acme Realty, LLC</p>
  <p data-testid="attribution-CO_LISTING_AGENT">Sam Roe 402-555-0199</p>
  <p data-testid="attribution-CO_LISTING_AGENT_OFFICE">Prairie Homes, Inc</p>
</div>
</body></html>`
