// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"slices"
	"strings"

	"github.com/pdiddy/paper-reconciler/internal/similarity"
)

// SubsetPolicy decides which side wins when one list is contained in the
// other.
type SubsetPolicy int

const (
	// KeepCorroborated keeps the contained side: every element of it is
	// confirmed by the other source.
	KeepCorroborated SubsetPolicy = iota
	// KeepSuperset keeps the containing side.
	KeepSuperset
)

// AmbiguityPolicy decides the affiliation result when neither side is a
// subset of the other.
type AmbiguityPolicy int

const (
	// AffiliationsUnresolved yields an empty list and flags the author for
	// manual review.
	AffiliationsUnresolved AmbiguityPolicy = iota
	// AffiliationsPreferFirst keeps the higher-priority side. Still flagged.
	AffiliationsPreferFirst
)

// Pinned merge policies.
const (
	SubsetRule           = KeepCorroborated
	AmbiguousAffiliation = AffiliationsUnresolved
)

// Policy groups the merge policies.
type Policy struct {
	Subset    SubsetPolicy
	Ambiguous AmbiguityPolicy
}

// DefaultPolicy is the policy used unless a caller overrides it.
var DefaultPolicy = Policy{Subset: SubsetRule, Ambiguous: AmbiguousAffiliation}

// MergeAffiliations merges two sources' affiliation lists for one author.
// x is the higher-priority side. An empty side yields the other. When one
// side is an approximate subset of the other (threshold 70, punctuation
// ignored) the policy picks the winner; mutual subsets keep x. The boolean
// is false when neither side contains the other, which is an ambiguous
// merge. The result is always one of the inputs, never new text.
func (p Policy) MergeAffiliations(x, y []string) ([]string, bool) {
	if len(x) == 0 {
		return slices.Clone(y), true
	}
	if len(y) == 0 {
		return slices.Clone(x), true
	}

	xInY := similarity.IsApproxSubsetList(x, y, similarity.AffiliationThreshold)
	yInX := similarity.IsApproxSubsetList(y, x, similarity.AffiliationThreshold)
	switch {
	case xInY && yInX:
		return slices.Clone(x), true
	case xInY:
		return slices.Clone(p.pickSubset(x, y)), true
	case yInX:
		return slices.Clone(p.pickSubset(y, x)), true
	}

	if p.Ambiguous == AffiliationsPreferFirst {
		return slices.Clone(x), false
	}
	return []string{}, false
}

// MergeEmails merges two sources' email lists for one author. x is the
// higher-priority side. The rules apply in a fixed order: an empty side
// yields the other; a side whose addresses all validate beats one that
// does not; a subset side is picked by the policy; otherwise x wins.
func (p Policy) MergeEmails(x, y []string) []string {
	if len(x) == 0 {
		return slices.Clone(y)
	}
	if len(y) == 0 {
		return slices.Clone(x)
	}

	if vx, vy := ValidEmails(x), ValidEmails(y); vx != vy {
		if vx {
			return slices.Clone(x)
		}
		return slices.Clone(y)
	}

	xInY, yInX := emailSubset(x, y), emailSubset(y, x)
	switch {
	case xInY && yInX:
		return slices.Clone(x)
	case xInY:
		return slices.Clone(p.pickSubset(x, y))
	case yInX:
		return slices.Clone(p.pickSubset(y, x))
	}
	return slices.Clone(x)
}

func (p Policy) pickSubset(sub, super []string) []string {
	if p.Subset == KeepSuperset {
		return super
	}
	return sub
}

// emailSubset reports whether every address in a appears in b, ignoring
// case and surrounding space.
func emailSubset(a, b []string) bool {
	set := make(map[string]struct{}, len(b))
	for _, e := range b {
		set[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}
	for _, e := range a {
		if _, ok := set[strings.ToLower(strings.TrimSpace(e))]; !ok {
			return false
		}
	}
	return true
}

// MergeAffiliations merges with DefaultPolicy.
func MergeAffiliations(x, y []string) ([]string, bool) {
	return DefaultPolicy.MergeAffiliations(x, y)
}

// MergeEmails merges with DefaultPolicy.
func MergeEmails(x, y []string) []string {
	return DefaultPolicy.MergeEmails(x, y)
}
