package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store with the same merge semantics as the
// Neo4j store: nodes merge by label and key, edges merge by type and
// endpoints, and an edge whose endpoint is missing is not created.
type MemoryStore struct {
	mu    sync.Mutex
	nodes map[string]map[string]string
	edges map[string]struct{}
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[string]map[string]string),
		edges: make(map[string]struct{}),
	}
}

func nodeID(n NodeRef) string {
	return n.String()
}

// Apply applies ops under one lock.
func (m *MemoryStore) Apply(_ context.Context, ops []Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, op := range ops {
		switch op.Kind {
		case EnsureNode:
			id := nodeID(op.Node)
			props, ok := m.nodes[id]
			if !ok {
				props = make(map[string]string)
				m.nodes[id] = props
			}
			for _, p := range op.Set {
				props[p.Name] = p.Value
			}
		case EnsureEdge:
			from, to := nodeID(op.From), nodeID(op.To)
			_, okFrom := m.nodes[from]
			_, okTo := m.nodes[to]
			if okFrom && okTo {
				m.edges[from+"-[:"+op.Rel+"]->"+to] = struct{}{}
			}
		default:
			return fmt.Errorf("unknown op kind %q", op.Kind)
		}
	}
	return nil
}

// DeleteAll clears the store.
func (m *MemoryStore) DeleteAll(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = make(map[string]map[string]string)
	m.edges = make(map[string]struct{})
	return nil
}

// EnsureSchema is a no-op; keys are enforced by construction.
func (m *MemoryStore) EnsureSchema(context.Context) error { return nil }

// NodeCount returns the number of nodes with label, or all nodes when label
// is empty.
func (m *MemoryStore) NodeCount(label string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id := range m.nodes {
		if label == "" || strings.HasPrefix(id, "(:"+label+" ") {
			n++
		}
	}
	return n
}

// EdgeCount returns the number of edges of type rel, or all edges when rel
// is empty.
func (m *MemoryStore) EdgeCount(rel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id := range m.edges {
		if rel == "" || strings.Contains(id, "-[:"+rel+"]->") {
			n++
		}
	}
	return n
}

// Property returns a property set on node.
func (m *MemoryStore) Property(node NodeRef, name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	props, ok := m.nodes[nodeID(node)]
	if !ok {
		return "", false
	}
	v, ok := props[name]
	return v, ok
}

// Snapshot returns a sorted textual dump of the graph.
func (m *MemoryStore) Snapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id, props := range m.nodes {
		keys := make([]string, 0, len(props))
		for k := range props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		line := id
		for _, k := range keys {
			line += fmt.Sprintf(" %s=%q", k, props[k])
		}
		out = append(out, line)
	}
	for id := range m.edges {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
