// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/paper-reconciler/pkg/types"
)

// Lookup is an authoritative bibliographic index. Search tries the titles
// in order and returns the first non-empty hit set, or an empty set when
// no title matched.
type Lookup interface {
	Search(ctx context.Context, titles []string) ([]types.AuthoritativeHit, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, titles []string) ([]types.AuthoritativeHit, error)

// Search calls f.
func (f LookupFunc) Search(ctx context.Context, titles []string) ([]types.AuthoritativeHit, error) {
	return f(ctx, titles)
}

// Authority queries the lookup with the non-empty candidate titles in
// priority order. When the hit set has more than one entry it is narrowed
// to the entries whose link contains pdfPath, if any do. The first
// remaining hit becomes an authoritative record. The boolean is false when
// there were no titles to query or nothing matched.
func Authority(ctx context.Context, lookup Lookup, candidates []Candidate, pdfPath string) (types.ExtractionRecord, bool, error) {
	if lookup == nil {
		return types.ExtractionRecord{}, false, nil
	}
	var titles []string
	for _, c := range ordered(candidates) {
		titles = append(titles, c.Title)
	}
	if len(titles) == 0 {
		return types.ExtractionRecord{}, false, nil
	}

	hits, err := lookup.Search(ctx, titles)
	if err != nil {
		return types.ExtractionRecord{}, false, fmt.Errorf("authoritative lookup: %w", err)
	}
	if len(hits) == 0 {
		return types.ExtractionRecord{}, false, nil
	}

	count := len(hits)
	hits = narrow(hits, pdfPath)
	hit := hits[0]

	rec := types.ExtractionRecord{
		Source:         types.SourceAuthoritative,
		Title:          hit.Title,
		CandidateCount: count,
		Link:           hit.Link,
	}
	for _, name := range hit.Authors {
		rec.Authors = append(rec.Authors, types.Author{Name: name})
	}
	return rec, true, nil
}

// narrow keeps the hits whose link contains pdfPath when there is more than
// one hit and at least one matches. Otherwise hits is returned as is.
func narrow(hits []types.AuthoritativeHit, pdfPath string) []types.AuthoritativeHit {
	if len(hits) < 2 || pdfPath == "" {
		return hits
	}
	var matched []types.AuthoritativeHit
	for _, h := range hits {
		if strings.Contains(h.Link, pdfPath) {
			matched = append(matched, h)
		}
	}
	if len(matched) == 0 {
		return hits
	}
	return matched
}
