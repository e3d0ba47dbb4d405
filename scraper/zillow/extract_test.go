package zillow

import (
	"errors"
	"testing"
)

func TestParseSearchPage(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantErr error
	}{
		{"two entries", searchPage(entry(1), entry(2)), 2, nil},
		{"empty results", searchPage(), 0, nil},
		{"no script", `<html><body>blocked</body></html>`, 0, ErrNoDataBlock},
		{"empty script", `<script id="__NEXT_DATA__"></script>`, 0, ErrNoDataBlock},
		{"bad json", `<script id="__NEXT_DATA__">{"props":</script>`, 0, ErrMalformedData},
		{"missing path", `<script id="__NEXT_DATA__">{"props":{"pageProps":{}}}</script>`, 0, ErrNoResultsPath},
		{"results not a list", `<script id="__NEXT_DATA__">{"props":{"pageProps":{"searchPageState":{"cat1":{"searchResults":{"listResults":"x"}}}}}}</script>`, 0, ErrNoResultsPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSearchPage([]byte(tt.body))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error: got %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("entries: got %d, want %d", len(got), tt.want)
			}
		})
	}
}
