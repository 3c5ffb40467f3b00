// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package similarity scores fuzzy string agreement between sources.
//
// TokenSetRatio compares the word-token sets of two strings and is robust
// to reordering and partial overlap. The list helpers decide whether one
// source's list of names or affiliations is covered by another's.
package similarity

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/pdiddy/paper-reconciler/internal/normalize"
)

// Match thresholds. These are empirically tuned and must not be derived.
const (
	// NameThreshold gates cross-source author name matching.
	NameThreshold = 80
	// AffiliationThreshold gates affiliation subset tests and author roster
	// equivalence.
	AffiliationThreshold = 70
	// TitleThreshold is the residual title gate. A pair matches only when
	// the score is strictly greater.
	TitleThreshold = 85
)

// TokenSetRatio returns a symmetric similarity in [0,100]. Identical
// strings always score 100. Non-ASCII runes are dropped and every other
// non-alphanumeric rune separates tokens before comparison.
func TokenSetRatio(a, b string) int {
	if a == b {
		return 100
	}
	pa, pb := process(a), process(b)
	if pa == "" || pb == "" {
		return 0
	}

	ta, tb := tokenSet(pa), tokenSet(pb)
	var sect, onlyA, onlyB []string
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			sect = append(sect, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range tb {
		if _, ok := ta[tok]; !ok {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(sect)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	sorted := strings.Join(sect, " ")
	combinedA := strings.TrimSpace(sorted + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(sorted + " " + strings.Join(onlyB, " "))

	return max(Ratio(sorted, combinedA), Ratio(sorted, combinedB), Ratio(combinedA, combinedB))
}

// Ratio is the normalized indel similarity 2*LCS/(len(a)+len(b)) scaled to
// [0,100] and rounded half to even. Equal strings score 100; otherwise an
// empty side scores 0.
func Ratio(a, b string) int {
	if a == b {
		return 100
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	lcs := lcsLen(ra, rb)
	return int(math.RoundToEven(100 * 2 * float64(lcs) / float64(len(ra)+len(rb))))
}

func lcsLen(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// process keeps ASCII only, turns non-word runes into spaces, lowercases
// and trims.
func process(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r > unicode.MaxASCII:
			return -1
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			return unicode.ToLower(r)
		default:
			return ' '
		}
	}, s)
	return strings.TrimSpace(s)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}

// IsApproxSubsetList reports whether every element of a, with ASCII
// punctuation removed, has a partner in b (also cleaned) scoring at least
// threshold. An empty a is a subset of anything.
func IsApproxSubsetList(a, b []string, threshold int) bool {
	return covers(normalize.StripPunctuationAll(a), normalize.StripPunctuationAll(b), threshold)
}

// IsApproxEqualList reports whether every element of a has a partner in b
// scoring at least threshold. Elements are compared as given. Callers that
// need equivalence check both directions.
func IsApproxEqualList(a, b []string, threshold int) bool {
	return covers(a, b, threshold)
}

// SameRoster reports whether two name lists have the same length and cover
// each other at threshold in both directions.
func SameRoster(a, b []string, threshold int) bool {
	return len(a) == len(b) && IsApproxEqualList(a, b, threshold) && IsApproxEqualList(b, a, threshold)
}

func covers(a, b []string, threshold int) bool {
	for _, x := range a {
		found := false
		for _, y := range b {
			if TokenSetRatio(x, y) >= threshold {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// BestMatch returns the index and score of the candidate scoring highest
// against target, provided the score is at least threshold. The earliest
// candidate wins ties. It returns -1 when nothing qualifies.
func BestMatch(target string, candidates []string, threshold int) (int, int) {
	best, bestScore := -1, -1
	for i, c := range candidates {
		score := TokenSetRatio(target, c)
		if score >= threshold && score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return -1, 0
	}
	return best, bestScore
}
