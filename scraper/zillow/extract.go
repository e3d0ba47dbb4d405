// Package zillow walks the Zillow search catalog and enriches listings with
// data from their detail pages.
package zillow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrNoDataBlock means the page carries no __NEXT_DATA__ script.
	ErrNoDataBlock = errors.New("zillow: __NEXT_DATA__ block not found")
	// ErrMalformedData means the block exists but is not valid JSON.
	ErrMalformedData = errors.New("zillow: __NEXT_DATA__ block is malformed")
	// ErrNoResultsPath means the decoded tree lacks the search results list.
	ErrNoResultsPath = errors.New("zillow: search results path missing")
)

// resultsPath locates the listing array inside the page data.
var resultsPath = []string{"props", "pageProps", "searchPageState", "cat1", "searchResults", "listResults"}

// ExtractNextData finds the embedded __NEXT_DATA__ script and decodes it.
func ExtractNextData(body []byte) (map[string]any, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedData, err)
	}

	script := doc.Find(`script#__NEXT_DATA__`).First()
	if script.Length() == 0 {
		return nil, ErrNoDataBlock
	}

	raw := strings.TrimSpace(script.Text())
	if raw == "" {
		return nil, ErrNoDataBlock
	}

	var tree map[string]any
	if err := json.Unmarshal([]byte(raw), &tree); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedData, err)
	}
	return tree, nil
}

// ListResults returns the listing entries of a search page. An empty slice
// with a nil error is the end-of-catalog signal.
func ListResults(tree map[string]any) ([]any, error) {
	var node any = tree
	for _, key := range resultsPath {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not an object", ErrNoResultsPath, key)
		}
		node, ok = obj[key]
		if !ok {
			return nil, fmt.Errorf("%w: key %q", ErrNoResultsPath, key)
		}
	}

	switch v := node.(type) {
	case []any:
		return v, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: listResults is %T", ErrNoResultsPath, node)
	}
}

// ParseSearchPage combines ExtractNextData and ListResults.
func ParseSearchPage(body []byte) ([]any, error) {
	tree, err := ExtractNextData(body)
	if err != nil {
		return nil, err
	}
	return ListResults(tree)
}
