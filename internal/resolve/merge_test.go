package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeAffiliationsEmptySide(t *testing.T) {
	lists := [][]string{
		{"MIT"},
		{"MIT", "CSAIL"},
		{"Univ. of Bonn, Germany", "Fraunhofer IAIS"},
	}
	for _, l := range lists {
		got, ok := MergeAffiliations(nil, l)
		assert.True(t, ok)
		assert.Equal(t, l, got)

		got, ok = MergeAffiliations(l, []string{})
		assert.True(t, ok)
		assert.Equal(t, l, got)
	}
}

func TestMergeAffiliationsSubset(t *testing.T) {
	got, ok := MergeAffiliations([]string{"MIT", "CSAIL"}, []string{"MIT"})
	assert.True(t, ok)
	assert.Equal(t, []string{"MIT"}, got)

	got, ok = MergeAffiliations([]string{"MIT"}, []string{"MIT", "CSAIL"})
	assert.True(t, ok)
	assert.Equal(t, []string{"MIT"}, got)
}

func TestMergeAffiliationsKeepSuperset(t *testing.T) {
	p := Policy{Subset: KeepSuperset, Ambiguous: AmbiguousAffiliation}
	got, ok := p.MergeAffiliations([]string{"MIT", "CSAIL"}, []string{"MIT"})
	assert.True(t, ok)
	assert.Equal(t, []string{"MIT", "CSAIL"}, got)
}

func TestMergeAffiliationsMutualSubsetKeepsFirst(t *testing.T) {
	got, ok := MergeAffiliations([]string{"M.I.T."}, []string{"MIT"})
	assert.True(t, ok)
	assert.Equal(t, []string{"M.I.T."}, got)
}

func TestMergeAffiliationsAmbiguous(t *testing.T) {
	got, ok := MergeAffiliations([]string{"MIT"}, []string{"Stanford"})
	assert.False(t, ok)
	assert.Empty(t, got)

	p := Policy{Subset: SubsetRule, Ambiguous: AffiliationsPreferFirst}
	got, ok = p.MergeAffiliations([]string{"MIT"}, []string{"Stanford"})
	assert.False(t, ok)
	assert.Equal(t, []string{"MIT"}, got)
}

func TestMergeAffiliationsDoesNotAlias(t *testing.T) {
	in := []string{"MIT"}
	got, _ := MergeAffiliations(in, nil)
	got[0] = "changed"
	assert.Equal(t, "MIT", in[0])
}

func TestMergeEmails(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		x, y   []string
		want   []string
	}{
		{"empty first", DefaultPolicy, nil, []string{"a@x.edu"}, []string{"a@x.edu"}},
		{"empty second", DefaultPolicy, []string{"a@x.edu"}, nil, []string{"a@x.edu"}},
		{"valid side wins", DefaultPolicy, []string{"a(at)x.edu"}, []string{"a@x.edu", "b@x.edu"}, []string{"a@x.edu", "b@x.edu"}},
		{"validity before subset", Policy{Subset: KeepSuperset}, []string{"a@x.edu", "broken"}, []string{"a@x.edu"}, []string{"a@x.edu"}},
		{"subset corroborated", DefaultPolicy, []string{"a@x.edu", "b@x.edu"}, []string{"A@x.edu"}, []string{"A@x.edu"}},
		{"subset superset policy", Policy{Subset: KeepSuperset}, []string{"a@x.edu"}, []string{"a@x.edu", "b@x.edu"}, []string{"a@x.edu", "b@x.edu"}},
		{"disjoint falls back to first", DefaultPolicy, []string{"a@x.edu"}, []string{"b@y.org"}, []string{"a@x.edu"}},
		{"both invalid falls back to first", DefaultPolicy, []string{"a@x"}, []string{"b@y"}, []string{"a@x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.MergeEmails(tt.x, tt.y))
		})
	}
}

func TestValidEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"jane@uni.edu", true},
		{"jane.doe+ceur@cs.uni-bonn.de", true},
		{"Jane <jane@uni.edu>", false},
		{"jane@localhost", false},
		{"jane(at)uni.edu", false},
		{"a b@x.edu", false},
		{"jane@uni.edu.", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidEmail(tt.in))
		})
	}
	assert.False(t, ValidEmails(nil))
	assert.True(t, ValidEmails([]string{"a@x.edu", "b@x.edu"}))
	assert.False(t, ValidEmails([]string{"a@x.edu", "b"}))
}
