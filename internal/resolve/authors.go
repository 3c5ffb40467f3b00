// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"fmt"

	"github.com/pdiddy/paper-reconciler/internal/normalize"
	"github.com/pdiddy/paper-reconciler/internal/similarity"
	"github.com/pdiddy/paper-reconciler/pkg/types"
)

// Conflict records a merge that could not be decided and was left empty.
type Conflict struct {
	Author string
	Field  string
	Detail string
}

func (c Conflict) String() string {
	if c.Author == "" {
		return fmt.Sprintf("%s: %s", c.Field, c.Detail)
	}
	return fmt.Sprintf("%s of %q: %s", c.Field, c.Author, c.Detail)
}

// AuthorResult is the resolved roster plus the conflicts hit on the way.
type AuthorResult struct {
	Authors   []types.Author
	Conflicts []Conflict
}

// AuthorResolver merges author rosters from the extraction sources.
type AuthorResolver struct {
	Policy Policy
}

// NewAuthorResolver returns a resolver using DefaultPolicy.
func NewAuthorResolver() *AuthorResolver {
	return &AuthorResolver{Policy: DefaultPolicy}
}

// sourceSet picks the first record of each source.
type sourceSet struct {
	a, b, llm, auth *types.ExtractionRecord
}

func pickSources(records []types.ExtractionRecord) sourceSet {
	var s sourceSet
	for i := range records {
		r := &records[i]
		switch r.Source {
		case types.SourceStructuralA:
			if s.a == nil {
				s.a = r
			}
		case types.SourceStructuralB:
			if s.b == nil {
				s.b = r
			}
		case types.SourceLLM:
			if s.llm == nil {
				s.llm = r
			}
		case types.SourceAuthoritative:
			if s.auth == nil {
				s.auth = r
			}
		}
	}
	return s
}

func authorsOf(r *types.ExtractionRecord) []types.Author {
	if r == nil {
		return nil
	}
	return r.Authors
}

func namesOf(authors []types.Author) []string {
	names := make([]string, len(authors))
	for i, a := range authors {
		names[i] = a.Name
	}
	return names
}

// Resolve builds the canonical roster.
//
// An authoritative roster fixes the names and their order; each structural
// source contributes the data of its best name match (threshold 80).
// Without one, two structural rosters that agree in length and cover each
// other (threshold 70) are paired by position, falling back to the best name
// match when the names at a position differ, and any other pair is
// reduced to the names both report. The LLM source is folded in last,
// matched by name, and supplies the roster itself only when neither
// structural source reported any authors. Duplicates are removed.
func (r *AuthorResolver) Resolve(records []types.ExtractionRecord) AuthorResult {
	src := pickSources(records)
	var res AuthorResult

	var roster []types.Author
	if auth := authorsOf(src.auth); len(auth) > 0 {
		roster = r.fromAuthority(auth, authorsOf(src.a), authorsOf(src.b), &res)
	} else {
		roster = r.fromStructural(authorsOf(src.a), authorsOf(src.b), &res)
	}

	if llm := authorsOf(src.llm); len(llm) > 0 {
		if len(roster) == 0 && len(authorsOf(src.a)) == 0 && len(authorsOf(src.b)) == 0 && len(authorsOf(src.auth)) == 0 {
			roster = cloneAuthors(llm)
		} else {
			roster = r.foldLLM(roster, llm, &res)
		}
	}

	res.Authors = Dedup(roster)
	return res
}

func (r *AuthorResolver) fromAuthority(names []types.Author, a, b []types.Author, res *AuthorResult) []types.Author {
	namesA, namesB := namesOf(a), namesOf(b)
	roster := make([]types.Author, 0, len(names))
	for _, n := range names {
		var x, y *types.Author
		if i, _ := similarity.BestMatch(n.Name, namesA, similarity.NameThreshold); i >= 0 {
			x = &a[i]
		}
		if i, _ := similarity.BestMatch(n.Name, namesB, similarity.NameThreshold); i >= 0 {
			y = &b[i]
		}
		roster = append(roster, r.mergePair(n.Name, x, y, res))
	}
	return roster
}

func (r *AuthorResolver) fromStructural(a, b []types.Author, res *AuthorResult) []types.Author {
	switch {
	case len(a) == 0 && len(b) == 0:
		return nil
	case len(b) == 0:
		return cloneAuthors(a)
	case len(a) == 0:
		return cloneAuthors(b)
	}

	if namesB := namesOf(b); similarity.SameRoster(namesOf(a), namesB, similarity.AffiliationThreshold) {
		roster := make([]types.Author, 0, len(a))
		for i := range a {
			roster = append(roster, r.mergePair(a[i].Name, &a[i], &b[partner(a[i].Name, namesB, i)], res))
		}
		return roster
	}

	var roster []types.Author
	for i := range a {
		key := normalize.NameKey(a[i].Name)
		for j := range b {
			if normalize.NameKey(b[j].Name) == key {
				roster = append(roster, r.mergePair(a[i].Name, &a[i], &b[j], res))
				break
			}
		}
	}
	if len(roster) == 0 {
		res.Conflicts = append(res.Conflicts, Conflict{
			Field:  "authors",
			Detail: fmt.Sprintf("structural rosters share no names (%d vs %d authors)", len(a), len(b)),
		})
	}
	return roster
}

// partner returns the index in names of the author matching name: the same
// position when that name still matches, else the best match. The rosters
// cover each other, so a match always exists.
func partner(name string, names []string, pos int) int {
	if similarity.TokenSetRatio(name, names[pos]) >= similarity.AffiliationThreshold {
		return pos
	}
	if j, _ := similarity.BestMatch(name, names, similarity.AffiliationThreshold); j >= 0 {
		return j
	}
	return pos
}

// mergePair merges the data two sources report for one canonical name.
// Either side may be nil.
func (r *AuthorResolver) mergePair(name string, x, y *types.Author, res *AuthorResult) types.Author {
	var affX, affY, emX, emY []string
	if x != nil {
		affX, emX = x.Affiliations, x.Emails
	}
	if y != nil {
		affY, emY = y.Affiliations, y.Emails
	}
	return r.merge(name, affX, affY, emX, emY, res)
}

func (r *AuthorResolver) merge(name string, affX, affY, emX, emY []string, res *AuthorResult) types.Author {
	affs, ok := r.Policy.MergeAffiliations(affX, affY)
	if !ok {
		res.Conflicts = append(res.Conflicts, Conflict{
			Author: name,
			Field:  "affiliations",
			Detail: fmt.Sprintf("%q vs %q", affX, affY),
		})
	}
	return types.Author{
		Name:         name,
		Affiliations: affs,
		Emails:       r.Policy.MergeEmails(emX, emY),
	}
}

func (r *AuthorResolver) foldLLM(roster, llm []types.Author, res *AuthorResult) []types.Author {
	names := namesOf(llm)
	out := make([]types.Author, 0, len(roster))
	for _, a := range roster {
		i, _ := similarity.BestMatch(a.Name, names, similarity.NameThreshold)
		if i < 0 {
			out = append(out, a)
			continue
		}
		out = append(out, r.merge(a.Name, a.Affiliations, llm[i].Affiliations, a.Emails, llm[i].Emails, res))
	}
	return out
}

// Dedup drops authors equal to one already kept. Order is preserved.
func Dedup(authors []types.Author) []types.Author {
	out := make([]types.Author, 0, len(authors))
	for _, a := range authors {
		dup := false
		for _, kept := range out {
			if kept.Equal(a) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, a)
		}
	}
	return out
}

func cloneAuthors(in []types.Author) []types.Author {
	out := make([]types.Author, len(in))
	for i, a := range in {
		out[i] = types.Author{
			Name:         a.Name,
			Affiliations: append([]string(nil), a.Affiliations...),
			Emails:       append([]string(nil), a.Emails...),
		}
	}
	return out
}
