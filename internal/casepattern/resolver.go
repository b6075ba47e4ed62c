// Package casepattern maps raw filenames and caller hints to case
// identifiers using an ordered registry of known docket-number formats.
package casepattern

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"evd-go/internal/evd"
)

// Pattern is one identifier format: a regular expression with a priority.
// Lower priority values are tried first. If the expression contains a
// capture group named "case", the group's text becomes the identifier;
// otherwise the whole match does.
type Pattern struct {
	Name     string
	Regex    string
	Priority int
}

type compiledPattern struct {
	name     string
	re       *regexp.Regexp
	caseIdx  int // index of the "case" capture group, -1 if absent
	priority int
}

// Resolver applies patterns in priority order; first match wins. It is a
// pure lookup over a table built once at construction.
type Resolver struct {
	patterns []compiledPattern
}

// DefaultPatterns covers the identifier formats seen in real intake:
// federal docket numbers, state criminal/civil numbers, and agency
// reference codes.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Name: "federal-docket", Regex: `(?P<case>\d:\d{2}-(?:cv|cr|mc|mj)-\d{5})`, Priority: 10},
		{Name: "state-criminal", Regex: `(?P<case>CR-\d{4}-\d{4,6})`, Priority: 20},
		{Name: "state-civil", Regex: `(?P<case>CV-\d{4}-\d{4,6})`, Priority: 20},
		{Name: "agency-ref", Regex: `(?P<case>[A-Z]{2,5}-REF-\d{4,8})`, Priority: 30},
	}
}

// New compiles the pattern table. Invalid expressions fail construction so
// a bad config surfaces at startup, not mid-intake.
func New(patterns []Pattern) (*Resolver, error) {
	compiled := make([]compiledPattern, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return nil, fmt.Errorf("compiling pattern %q: %w", p.Name, err)
		}
		caseIdx := -1
		for i, name := range re.SubexpNames() {
			if name == "case" {
				caseIdx = i
				break
			}
		}
		compiled = append(compiled, compiledPattern{
			name:     p.Name,
			re:       re,
			caseIdx:  caseIdx,
			priority: p.Priority,
		})
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].priority < compiled[j].priority
	})

	return &Resolver{patterns: compiled}, nil
}

var _ evd.Resolver = (*Resolver)(nil)

// Resolve returns the case identifier for a raw string, or
// evd.UnassignedCase when no pattern matches. No match is a normal,
// loggable outcome; files are never dropped for lacking an identifier.
func (r *Resolver) Resolve(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return evd.UnassignedCase
	}

	for _, p := range r.patterns {
		m := p.re.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		if p.caseIdx >= 0 && p.caseIdx < len(m) && m[p.caseIdx] != "" {
			return m[p.caseIdx]
		}
		return m[0]
	}

	return evd.UnassignedCase
}
