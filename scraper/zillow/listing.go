package zillow

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"zillow-scraper/models"
)

// ErrMissingURL is returned for an entry without a detailUrl.
var ErrMissingURL = errors.New("zillow: entry has no detailUrl")

// MapListing converts one listResults entry into a Listing. Relative detail
// URLs are resolved against base.
func MapListing(entry any, base *url.URL) (models.Listing, error) {
	obj, ok := entry.(map[string]any)
	if !ok {
		return models.Listing{}, fmt.Errorf("zillow: entry is %T, not an object", entry)
	}

	detail := strings.TrimSpace(str(obj["detailUrl"]))
	if detail == "" {
		return models.Listing{}, ErrMissingURL
	}
	if base != nil {
		ref, err := url.Parse(detail)
		if err != nil {
			return models.Listing{}, fmt.Errorf("zillow: bad detailUrl %q: %w", detail, err)
		}
		detail = base.ResolveReference(ref).String()
	}

	home := object(object(obj["hdpData"])["homeInfo"])

	var photos []string
	if list, ok := obj["carouselPhotos"].([]any); ok {
		for _, p := range list {
			photos = append(photos, str(object(p)["url"]))
		}
	}

	return models.Listing{
		URL:         detail,
		PhotoURLs:   photos,
		Price:       str(obj["price"]),
		FullAddress: str(obj["address"]),
		Street:      str(obj["addressStreet"]),
		City:        str(obj["addressCity"]),
		State:       str(obj["addressState"]),
		Zip:         str(obj["addressZipcode"]),
		Bedrooms:    str(home["bedrooms"]),
		Bathrooms:   str(home["bathrooms"]),
		LivingArea:  str(home["livingArea"]),
		LotSize:     strings.TrimSpace(str(home["lotAreaValue"]) + " " + str(home["lotAreaUnit"])),
		HomeType:    strings.ReplaceAll(str(home["homeType"]), "_", " "),
	}, nil
}

func object(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// str renders a decoded JSON value the way the catalog displays it.
func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
