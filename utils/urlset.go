package utils

import "strings"

// URLSet tracks listing URLs that have already been handled. Keys are
// compared exactly after trimming surrounding whitespace.
type URLSet struct {
	seen map[string]struct{}
}

// NewURLSet creates a URLSet seeded with the given URLs.
func NewURLSet(urls ...string) *URLSet {
	s := &URLSet{seen: make(map[string]struct{}, len(urls))}
	for _, u := range urls {
		s.Add(u)
	}
	return s
}

// Add returns true if the URL was newly added, false if already present or
// blank.
func (s *URLSet) Add(url string) bool {
	url = strings.TrimSpace(url)
	if url == "" {
		return false
	}
	if _, exists := s.seen[url]; exists {
		return false
	}
	s.seen[url] = struct{}{}
	return true
}

// Contains reports whether the URL has already been handled.
func (s *URLSet) Contains(url string) bool {
	_, exists := s.seen[strings.TrimSpace(url)]
	return exists
}

// Size returns the number of unique URLs tracked.
func (s *URLSet) Size() int {
	return len(s.seen)
}
