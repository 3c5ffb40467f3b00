// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package graph projects canonical papers into a property graph.
//
// Plan turns a paper into a fixed sequence of merge-if-absent operations.
// A Store applies one paper's plan as a unit, so projecting the same paper
// again changes nothing.
//
// Schema:
//
//	(:Paper {title, url})
//	(:Proceeding {proceeding})
//	(:Event {event})
//	(:Author {name}) with property email
//	(:Affiliation {affiliation})
//	(Author)-[:AUTHORED]->(Paper)
//	(Author)-[:AFFILIATED_WITH]->(Affiliation)
//	(Author)-[:PRESENTED_AT]->(Proceeding)
//	(Author)-[:PARTICIPATED_IN]->(Event)
package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/paper-reconciler/pkg/types"
)

// Node labels.
const (
	LabelPaper       = "Paper"
	LabelProceeding  = "Proceeding"
	LabelEvent       = "Event"
	LabelAuthor      = "Author"
	LabelAffiliation = "Affiliation"
)

// Relationship types.
const (
	RelAuthored       = "AUTHORED"
	RelAffiliatedWith = "AFFILIATED_WITH"
	RelPresentedAt    = "PRESENTED_AT"
	RelParticipatedIn = "PARTICIPATED_IN"
)

// OpKind distinguishes node and edge upserts.
type OpKind string

const (
	EnsureNode OpKind = "ensure_node"
	EnsureEdge OpKind = "ensure_edge"
)

// Prop is one property name/value pair. Slices of Prop keep key order
// stable for query text and display.
type Prop struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// NodeRef identifies a node by label and key properties.
type NodeRef struct {
	Label string `json:"label" yaml:"label"`
	Key   []Prop `json:"key" yaml:"key"`
}

func (n NodeRef) String() string {
	parts := make([]string, len(n.Key))
	for i, p := range n.Key {
		parts[i] = fmt.Sprintf("%s: %q", p.Name, p.Value)
	}
	return fmt.Sprintf("(:%s {%s})", n.Label, strings.Join(parts, ", "))
}

// Op is one upsert. Node ops use Node and Set; edge ops use Rel, From and
// To.
type Op struct {
	Kind OpKind `json:"kind" yaml:"kind"`

	Node NodeRef `json:"node,omitempty" yaml:"node,omitempty"`
	// Set lists properties written after the node is merged.
	Set []Prop `json:"set,omitempty" yaml:"set,omitempty"`

	Rel  string  `json:"rel,omitempty" yaml:"rel,omitempty"`
	From NodeRef `json:"from,omitempty" yaml:"from,omitempty"`
	To   NodeRef `json:"to,omitempty" yaml:"to,omitempty"`
}

func (o Op) String() string {
	if o.Kind == EnsureEdge {
		return fmt.Sprintf("MERGE %s-[:%s]->%s", o.From, o.Rel, o.To)
	}
	s := "MERGE " + o.Node.String()
	for _, p := range o.Set {
		s += fmt.Sprintf(" SET %s = %q", p.Name, p.Value)
	}
	return s
}

// Store applies a paper's plan. Implementations must apply the whole plan
// or nothing and must merge nodes and edges by key.
type Store interface {
	Apply(ctx context.Context, ops []Op) error
}

// Project writes paper to store.
func Project(ctx context.Context, store Store, paper types.CanonicalPaper) error {
	if err := store.Apply(ctx, Plan(paper)); err != nil {
		return fmt.Errorf("projecting %s: %w", paper.ID, err)
	}
	return nil
}

// Plan returns the upsert sequence for paper: the paper, proceeding and
// event nodes, then per author its node, its distinct affiliation nodes,
// and its edges. Empty proceeding or event names produce neither node nor
// edge. Authors with empty names are skipped.
func Plan(paper types.CanonicalPaper) []Op {
	paperNode := NodeRef{Label: LabelPaper, Key: []Prop{{"title", paper.Title}, {"url", paper.URL}}}
	ops := []Op{{Kind: EnsureNode, Node: paperNode}}

	var proceeding, event *NodeRef
	if paper.Proceeding != "" {
		proceeding = &NodeRef{Label: LabelProceeding, Key: []Prop{{"proceeding", paper.Proceeding}}}
		ops = append(ops, Op{Kind: EnsureNode, Node: *proceeding})
	}
	if paper.Event != "" {
		event = &NodeRef{Label: LabelEvent, Key: []Prop{{"event", paper.Event}}}
		ops = append(ops, Op{Kind: EnsureNode, Node: *event})
	}

	for _, a := range paper.Authors {
		if strings.TrimSpace(a.Name) == "" {
			continue
		}
		author := NodeRef{Label: LabelAuthor, Key: []Prop{{"name", a.Name}}}
		op := Op{Kind: EnsureNode, Node: author}
		if len(a.Emails) > 0 {
			op.Set = []Prop{{"email", a.EmailText()}}
		}
		ops = append(ops, op)

		var affs []NodeRef
		seen := make(map[string]bool)
		for _, aff := range a.Affiliations {
			if aff == "" || seen[aff] {
				continue
			}
			seen[aff] = true
			n := NodeRef{Label: LabelAffiliation, Key: []Prop{{"affiliation", aff}}}
			affs = append(affs, n)
			ops = append(ops, Op{Kind: EnsureNode, Node: n})
		}

		ops = append(ops, edge(author, RelAuthored, paperNode))
		for _, n := range affs {
			ops = append(ops, edge(author, RelAffiliatedWith, n))
		}
		if proceeding != nil {
			ops = append(ops, edge(author, RelPresentedAt, *proceeding))
		}
		if event != nil {
			ops = append(ops, edge(author, RelParticipatedIn, *event))
		}
	}
	return ops
}

func edge(from NodeRef, rel string, to NodeRef) Op {
	return Op{Kind: EnsureEdge, Rel: rel, From: from, To: to}
}
