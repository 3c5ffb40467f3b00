package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-reconciler/pkg/types"
)

func pairOf(a, b string) []Candidate {
	return []Candidate{
		{Source: types.SourceStructuralA, Title: a},
		{Source: types.SourceStructuralB, Title: b},
	}
}

func TestResolveTitleIdenticalUnchanged(t *testing.T) {
	r := NewTitleResolver(nil)
	titles := []string{
		"Deep Learning for X",
		"  Odd   spacing kept ",
		"Ontology-Based Data Access: A Survey",
		"Über Wissensgraphen",
	}
	for _, title := range titles {
		got := r.Resolve(pairOf(title, title), nil)
		assert.Equal(t, title, got.Title)
		assert.Equal(t, RuleNormalizedEqual, got.Rule)
	}
}

func TestResolveTitleKeepsHigherPriorityCasing(t *testing.T) {
	r := NewTitleResolver(nil)
	got := r.Resolve(pairOf("Deep Learning for X", "deep learning for x"), nil)
	assert.Equal(t, "Deep Learning for X", got.Title)
	assert.Equal(t, RuleNormalizedEqual, got.Rule)
}

func TestResolveTitleRules(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		want     string
		wantRule TitleRule
	}{
		{"spelling", "Deep Lerning for Knowlege Graphs", "Deep Learning for Knowledge Graphs", "Deep Lerning for Knowlege Graphs", RuleSpellingEqual},
		{"first contained in second", "Knowledge Graphs", "Knowledge Graphs: A Survey", "Knowledge Graphs", RuleContained},
		{"second contained in first", "Knowledge Graphs: A Survey", "Knowledge Graphs", "Knowledge Graphs", RuleContains},
		{"fuzzy", "Learning Embeddings of Knowledge Graphs", "Knowledge Graph Embeddings Learning", "Learning Embeddings of Knowledge Graphs", RuleFuzzy},
		{"unresolved", "Deep Learning", "Quantum Chemistry Methods", "", RuleUnresolved},
	}
	r := NewTitleResolver(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(pairOf(tt.a, tt.b), nil)
			assert.Equal(t, tt.want, got.Title)
			assert.Equal(t, tt.wantRule, got.Rule)
		})
	}
}

func TestResolveTitleUnresolvedIsReported(t *testing.T) {
	got := NewTitleResolver(nil).Resolve(pairOf("Deep Learning", "Quantum Chemistry Methods"), nil)
	assert.True(t, got.Unresolved())
	assert.Len(t, got.Conflicts, 1)
}

func TestResolveTitleSingleCandidate(t *testing.T) {
	r := NewTitleResolver(nil)
	got := r.Resolve([]Candidate{
		{Source: types.SourceStructuralA, Title: ""},
		{Source: types.SourceStructuralB, Title: " .- "},
		{Source: types.SourceLLM, Title: "A Title"},
	}, &types.ExtractionRecord{Source: types.SourceAuthoritative, Title: "Other"})
	assert.Equal(t, "A Title", got.Title)
	assert.Equal(t, RuleSingle, got.Rule)

	got = r.Resolve(nil, nil)
	assert.Equal(t, "", got.Title)
	assert.Equal(t, RuleNone, got.Rule)
}

func TestResolveTitleAuthorityFillsEmptyCandidates(t *testing.T) {
	auth := &types.ExtractionRecord{Source: types.SourceAuthoritative, Title: "Deep Learning for X"}
	got := NewTitleResolver(nil).Resolve(pairOf("", "  "), auth)
	assert.Equal(t, "Deep Learning for X", got.Title)
	assert.Equal(t, RuleAuthoritative, got.Rule)

	got = NewTitleResolver(nil).Resolve(pairOf("", ""), &types.ExtractionRecord{Source: types.SourceAuthoritative})
	assert.Empty(t, got.Title)
	assert.Equal(t, RuleNone, got.Rule)
}

func TestResolveTitleAuthoritativeWins(t *testing.T) {
	auth := &types.ExtractionRecord{Source: types.SourceAuthoritative, Title: "Deep Learning for X"}
	got := NewTitleResolver(nil).Resolve(pairOf("Deep Learnin for X", "Quantum Chemistry"), auth)
	assert.Equal(t, "Deep Learning for X", got.Title)
	assert.Equal(t, RuleAuthoritative, got.Rule)
}

func TestResolveTitleFoldOrder(t *testing.T) {
	r := NewTitleResolver(nil)
	// Candidates arrive out of priority order; the structural pair still
	// merges first.
	got := r.Resolve([]Candidate{
		{Source: types.SourceLLM, Title: "Deep Learning for X: Extended"},
		{Source: types.SourceStructuralB, Title: "deep learning for x"},
		{Source: types.SourceStructuralA, Title: "Deep Learning for X"},
	}, nil)
	assert.Equal(t, "Deep Learning for X", got.Title)
	assert.Equal(t, RuleContained, got.Rule)
}

func TestResolveTitleDerivedSourceRecoversUnresolvedPair(t *testing.T) {
	got := NewTitleResolver(nil).Resolve([]Candidate{
		{Source: types.SourceStructuralA, Title: "Deep Learning"},
		{Source: types.SourceStructuralB, Title: "Quantum Chemistry Methods"},
		{Source: types.SourceLLM, Title: "Deep Learning for Chemistry"},
	}, nil)
	assert.Equal(t, "Deep Learning for Chemistry", got.Title)
	assert.Len(t, got.Conflicts, 1)
}

type fakeLookup struct {
	hits    []types.AuthoritativeHit
	err     error
	queried [][]string
}

func (f *fakeLookup) Search(_ context.Context, titles []string) ([]types.AuthoritativeHit, error) {
	f.queried = append(f.queried, titles)
	return f.hits, f.err
}

func TestAuthorityQueriesInPriorityOrder(t *testing.T) {
	lk := &fakeLookup{hits: []types.AuthoritativeHit{{Title: "T", Authors: []string{"Jane Doe"}, Link: "https://ceur-ws.org/Vol-1/paper1.pdf"}}}
	rec, ok, err := Authority(context.Background(), lk, []Candidate{
		{Source: types.SourceLLM, Title: "llm title"},
		{Source: types.SourceStructuralB, Title: ""},
		{Source: types.SourceStructuralA, Title: "grobid title"},
	}, "Vol-1/paper1.pdf")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, [][]string{{"grobid title", "llm title"}}, lk.queried)
	assert.Equal(t, types.SourceAuthoritative, rec.Source)
	assert.Equal(t, "T", rec.Title)
	assert.Equal(t, []types.Author{{Name: "Jane Doe"}}, rec.Authors)
	assert.Equal(t, 1, rec.CandidateCount)
	assert.NoError(t, rec.Validate())
}

func TestAuthorityNarrowsByPDFPath(t *testing.T) {
	lk := &fakeLookup{hits: []types.AuthoritativeHit{
		{Title: "Workshop version", Link: "https://doi.org/10.1/abc"},
		{Title: "CEUR version", Link: "https://ceur-ws.org/Vol-3498/paper1.pdf"},
	}}
	rec, ok, err := Authority(context.Background(), lk, pairOf("t", ""), "Vol-3498/paper1.pdf")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "CEUR version", rec.Title)
	assert.Equal(t, 2, rec.CandidateCount)
	assert.Equal(t, "https://ceur-ws.org/Vol-3498/paper1.pdf", rec.Link)
}

func TestAuthorityNoLinkMatchKeepsFirst(t *testing.T) {
	lk := &fakeLookup{hits: []types.AuthoritativeHit{{Title: "first"}, {Title: "second"}}}
	rec, ok, err := Authority(context.Background(), lk, pairOf("t", ""), "Vol-9/paper9.pdf")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", rec.Title)
}

func TestAuthorityNoCandidatesSkipsLookup(t *testing.T) {
	lk := &fakeLookup{}
	_, ok, err := Authority(context.Background(), lk, pairOf("", " "), "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, lk.queried)

	_, ok, err = Authority(context.Background(), nil, pairOf("t", ""), "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthorityError(t *testing.T) {
	boom := errors.New("boom")
	lk := LookupFunc(func(context.Context, []string) ([]types.AuthoritativeHit, error) { return nil, boom })
	_, ok, err := Authority(context.Background(), lk, pairOf("t", ""), "")
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
}
