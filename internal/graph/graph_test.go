package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-reconciler/pkg/types"
)

func samplePaper() types.CanonicalPaper {
	return types.CanonicalPaper{
		ID:    "Vol-3498/paper1",
		Title: "Deep Learning for X",
		URL:   "https://ceur-ws.org/Vol-3498/paper1.pdf",
		Authors: []types.Author{
			{Name: "Jane Doe", Affiliations: []string{"MIT", "CSAIL", "MIT"}, Emails: []string{"jane@mit.edu", "jd@csail.mit.edu"}},
			{Name: "John Roe", Affiliations: []string{"MIT"}},
		},
		Proceeding: "Proceedings of the Test Workshop",
		Event:      "TEST 2023",
	}
}

func TestPlanOrder(t *testing.T) {
	ops := Plan(samplePaper())
	var got []string
	for _, op := range ops {
		got = append(got, op.String())
	}
	assert.Equal(t, []string{
		`MERGE (:Paper {title: "Deep Learning for X", url: "https://ceur-ws.org/Vol-3498/paper1.pdf"})`,
		`MERGE (:Proceeding {proceeding: "Proceedings of the Test Workshop"})`,
		`MERGE (:Event {event: "TEST 2023"})`,
		`MERGE (:Author {name: "Jane Doe"}) SET email = "jane@mit.edu, jd@csail.mit.edu"`,
		`MERGE (:Affiliation {affiliation: "MIT"})`,
		`MERGE (:Affiliation {affiliation: "CSAIL"})`,
		`MERGE (:Author {name: "Jane Doe"})-[:AUTHORED]->(:Paper {title: "Deep Learning for X", url: "https://ceur-ws.org/Vol-3498/paper1.pdf"})`,
		`MERGE (:Author {name: "Jane Doe"})-[:AFFILIATED_WITH]->(:Affiliation {affiliation: "MIT"})`,
		`MERGE (:Author {name: "Jane Doe"})-[:AFFILIATED_WITH]->(:Affiliation {affiliation: "CSAIL"})`,
		`MERGE (:Author {name: "Jane Doe"})-[:PRESENTED_AT]->(:Proceeding {proceeding: "Proceedings of the Test Workshop"})`,
		`MERGE (:Author {name: "Jane Doe"})-[:PARTICIPATED_IN]->(:Event {event: "TEST 2023"})`,
		`MERGE (:Author {name: "John Roe"})`,
		`MERGE (:Affiliation {affiliation: "MIT"})`,
		`MERGE (:Author {name: "John Roe"})-[:AUTHORED]->(:Paper {title: "Deep Learning for X", url: "https://ceur-ws.org/Vol-3498/paper1.pdf"})`,
		`MERGE (:Author {name: "John Roe"})-[:AFFILIATED_WITH]->(:Affiliation {affiliation: "MIT"})`,
		`MERGE (:Author {name: "John Roe"})-[:PRESENTED_AT]->(:Proceeding {proceeding: "Proceedings of the Test Workshop"})`,
		`MERGE (:Author {name: "John Roe"})-[:PARTICIPATED_IN]->(:Event {event: "TEST 2023"})`,
	}, got)
}

func TestPlanSkipsEmptyVenueAndNames(t *testing.T) {
	p := types.CanonicalPaper{
		Title:   "T",
		URL:     "u",
		Authors: []types.Author{{Name: " "}, {Name: "Jane Doe", Affiliations: []string{""}}},
	}
	ops := Plan(p)
	require.Len(t, ops, 3)
	assert.Equal(t, LabelPaper, ops[0].Node.Label)
	assert.Equal(t, LabelAuthor, ops[1].Node.Label)
	assert.Empty(t, ops[1].Set)
	assert.Equal(t, RelAuthored, ops[2].Rel)
}

func TestProjectIdempotent(t *testing.T) {
	ctx := context.Background()
	once := NewMemoryStore()
	require.NoError(t, Project(ctx, once, samplePaper()))

	twice := NewMemoryStore()
	require.NoError(t, Project(ctx, twice, samplePaper()))
	require.NoError(t, Project(ctx, twice, samplePaper()))

	assert.Equal(t, once.Snapshot(), twice.Snapshot())
	assert.Equal(t, 7, twice.NodeCount(""))
	assert.Equal(t, 2, twice.NodeCount(LabelAuthor))
	assert.Equal(t, 2, twice.NodeCount(LabelAffiliation))
	assert.Equal(t, 2, twice.EdgeCount(RelAuthored))
	assert.Equal(t, 3, twice.EdgeCount(RelAffiliatedWith))
	assert.Equal(t, 9, twice.EdgeCount(""))

	email, ok := twice.Property(NodeRef{Label: LabelAuthor, Key: []Prop{{"name", "Jane Doe"}}}, "email")
	assert.True(t, ok)
	assert.Equal(t, "jane@mit.edu, jd@csail.mit.edu", email)
}

func TestProjectSharedNodesAcrossPapers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	p1 := samplePaper()
	p2 := samplePaper()
	p2.ID, p2.Title, p2.URL = "Vol-3498/paper2", "Another Paper", "https://ceur-ws.org/Vol-3498/paper2.pdf"

	require.NoError(t, Project(ctx, store, p1))
	require.NoError(t, Project(ctx, store, p2))

	assert.Equal(t, 2, store.NodeCount(LabelPaper))
	assert.Equal(t, 1, store.NodeCount(LabelProceeding))
	assert.Equal(t, 2, store.NodeCount(LabelAuthor))
	assert.Equal(t, 4, store.EdgeCount(RelAuthored))
	assert.Equal(t, 2, store.EdgeCount(RelPresentedAt))

	require.NoError(t, store.DeleteAll(ctx))
	assert.Equal(t, 0, store.NodeCount(""))
}

func TestMemoryStoreSkipsDanglingEdge(t *testing.T) {
	store := NewMemoryStore()
	a := NodeRef{Label: LabelAuthor, Key: []Prop{{"name", "Jane Doe"}}}
	p := NodeRef{Label: LabelPaper, Key: []Prop{{"title", "T"}, {"url", "u"}}}
	require.NoError(t, store.Apply(context.Background(), []Op{
		{Kind: EnsureNode, Node: a},
		edge(a, RelAuthored, p),
	}))
	assert.Equal(t, 0, store.EdgeCount(""))
}

func TestCypherNode(t *testing.T) {
	q, params := Cypher(Op{
		Kind: EnsureNode,
		Node: NodeRef{Label: LabelAuthor, Key: []Prop{{"name", "Jane Doe"}}},
		Set:  []Prop{{"email", "jane@mit.edu"}},
	})
	assert.Equal(t, "MERGE (n:Author {name: $name}) SET n.email = $set_email", q)
	assert.Equal(t, map[string]any{"name": "Jane Doe", "set_email": "jane@mit.edu"}, params)
}

func TestCypherEdge(t *testing.T) {
	q, params := Cypher(edge(
		NodeRef{Label: LabelAuthor, Key: []Prop{{"name", "Jane Doe"}}},
		RelAuthored,
		NodeRef{Label: LabelPaper, Key: []Prop{{"title", "T"}, {"url", "u"}}},
	))
	assert.Equal(t, "MATCH (a:Author {name: $from_name}) MATCH (b:Paper {title: $to_title, url: $to_url}) MERGE (a)-[:AUTHORED]->(b)", q)
	assert.Equal(t, map[string]any{"from_name": "Jane Doe", "to_title": "T", "to_url": "u"}, params)
}
