package proxy

import (
	"bufio"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"os"
	"strings"
)

// Pool is the set of egress endpoints a fetch attempt may go through. It is
// loaded once at start and never mutated afterwards.
type Pool struct {
	endpoints []string
}

// New builds a Pool from raw endpoint strings. Blank entries and exact
// duplicates are dropped.
func New(raw ...string) *Pool {
	p := &Pool{}
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		ep := Normalize(r)
		if ep == "" {
			continue
		}
		if _, dup := seen[ep]; dup {
			continue
		}
		seen[ep] = struct{}{}
		p.endpoints = append(p.endpoints, ep)
	}
	return p
}

// Load combines the single endpoint from the PROXY variable with the
// newline-delimited pool file. A missing file is not an error when path is
// empty; lines starting with '#' are ignored.
func Load(path, envValue string) (*Pool, error) {
	raw := []string{envValue}

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("proxy: pool file %q not found", path)
			}
			return nil, fmt.Errorf("proxy: open pool file: %w", err)
		}
		defer f.Close()

		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			raw = append(raw, line)
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("proxy: read pool file: %w", err)
		}
	}

	return New(raw...), nil
}

// Normalize trims the endpoint and prefixes http:// when no scheme is given.
func Normalize(raw string) string {
	ep := strings.TrimSpace(raw)
	if ep == "" {
		return ""
	}
	if !strings.Contains(ep, "://") {
		ep = "http://" + ep
	}
	return ep
}

// Pick returns an endpoint chosen uniformly at random, or "" for a direct
// connection when the pool is empty.
func (p *Pool) Pick() string {
	if p == nil || len(p.endpoints) == 0 {
		return ""
	}
	return p.endpoints[rand.IntN(len(p.endpoints))]
}

// Size returns the number of endpoints.
func (p *Pool) Size() int {
	if p == nil {
		return 0
	}
	return len(p.endpoints)
}

// Endpoints returns a copy of the pool contents.
func (p *Pool) Endpoints() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.endpoints...)
}

// Redact renders an endpoint for log lines with its password hidden. The
// empty endpoint is reported as "direct".
func Redact(ep string) string {
	if ep == "" {
		return "direct"
	}
	u, err := url.Parse(ep)
	if err != nil {
		return ep
	}
	return u.Redacted()
}
