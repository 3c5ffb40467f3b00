// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve reconciles the titles and author rosters reported by
// independent extraction sources for one paper.
//
// Resolution is deterministic and never guesses: when the rules do not
// produce a confident answer the result is an explicit empty value that
// callers surface for manual review. Nothing here keeps state between
// calls.
package resolve

import (
	"slices"
	"strings"

	"github.com/pdiddy/paper-reconciler/internal/normalize"
	"github.com/pdiddy/paper-reconciler/internal/similarity"
	"github.com/pdiddy/paper-reconciler/pkg/types"
)

// Candidate is one source's title.
type Candidate struct {
	Source types.SourceID
	Title  string
}

// Candidates collects the title candidates from records, skipping
// authoritative ones.
func Candidates(records []types.ExtractionRecord) []Candidate {
	var out []Candidate
	for _, r := range records {
		if r.Source == types.SourceAuthoritative {
			continue
		}
		out = append(out, Candidate{Source: r.Source, Title: r.Title})
	}
	return out
}

// ordered drops candidates whose normalized title is empty and sorts the
// rest by source priority. Equal priorities keep input order.
func ordered(candidates []Candidate) []Candidate {
	var out []Candidate
	for _, c := range candidates {
		if normalize.Normalize(c.Title) == "" {
			continue
		}
		out = append(out, c)
	}
	slices.SortStableFunc(out, func(a, b Candidate) int {
		return a.Source.Priority() - b.Source.Priority()
	})
	return out
}

// TitleRule names the rule that decided a title.
type TitleRule string

const (
	RuleNone            TitleRule = "none"
	RuleSingle          TitleRule = "single"
	RuleAuthoritative   TitleRule = "authoritative"
	RuleNormalizedEqual TitleRule = "normalized_equal"
	RuleSpellingEqual   TitleRule = "spelling_equal"
	RuleContained       TitleRule = "contained"
	RuleContains        TitleRule = "contains"
	RuleFuzzy           TitleRule = "fuzzy"
	RuleUnresolved      TitleRule = "unresolved"
)

// TitleResult is the resolved title and the rule of the last merge step.
// Conflicts lists pairwise merges that did not resolve, including ones a
// later candidate recovered from.
type TitleResult struct {
	Title     string
	Rule      TitleRule
	Conflicts []string
}

// Unresolved reports whether the title needs manual review.
func (r TitleResult) Unresolved() bool {
	return r.Title == ""
}

// TitleResolver merges title candidates.
type TitleResolver struct {
	speller normalize.Speller
}

// NewTitleResolver returns a resolver that uses sp for the spelling rule.
// A nil speller uses the embedded dictionary.
func NewTitleResolver(sp normalize.Speller) *TitleResolver {
	if sp == nil {
		sp = normalize.DefaultDictionary()
	}
	return &TitleResolver{speller: sp}
}

// Resolve merges candidates into one title. Empty candidates are dropped
// and a single remaining candidate is the result. With none left the
// authoritative title, if any, is used. Otherwise an authoritative record
// with a title wins outright. Failing that the
// candidates are folded pairwise in priority order, so the two structural
// sources merge first and the result then merges with the derived source.
// An unresolved pair contributes nothing to the next step of the fold.
func (r *TitleResolver) Resolve(candidates []Candidate, authority *types.ExtractionRecord) TitleResult {
	cs := ordered(candidates)
	switch len(cs) {
	case 0:
		if authority != nil && authority.Title != "" {
			return TitleResult{Title: authority.Title, Rule: RuleAuthoritative}
		}
		return TitleResult{Rule: RuleNone}
	case 1:
		return TitleResult{Title: cs[0].Title, Rule: RuleSingle}
	}
	if authority != nil && authority.Title != "" {
		return TitleResult{Title: authority.Title, Rule: RuleAuthoritative}
	}

	res := TitleResult{Title: cs[0].Title, Rule: RuleSingle}
	for _, c := range cs[1:] {
		if res.Title == "" {
			res.Title, res.Rule = c.Title, RuleSingle
			continue
		}
		title, rule := r.pair(res.Title, c.Title)
		if rule == RuleUnresolved {
			res.Conflicts = append(res.Conflicts, res.Title+" | "+c.Title)
		}
		res.Title, res.Rule = title, rule
	}
	return res
}

// pair applies the merge rules in fixed order. a is the higher-priority
// side and wins every symmetric rule.
func (r *TitleResolver) pair(a, b string) (string, TitleRule) {
	na, nb := normalize.Normalize(a), normalize.Normalize(b)
	if na == nb {
		return a, RuleNormalizedEqual
	}
	ca, cb := r.speller.Correct(na), r.speller.Correct(nb)
	if ca == cb {
		return a, RuleSpellingEqual
	}
	if strings.Contains(nb, na) || strings.Contains(cb, ca) {
		return a, RuleContained
	}
	if strings.Contains(na, nb) || strings.Contains(ca, cb) {
		return b, RuleContains
	}
	if similarity.TokenSetRatio(a, b) > similarity.TitleThreshold {
		return a, RuleFuzzy
	}
	return "", RuleUnresolved
}
