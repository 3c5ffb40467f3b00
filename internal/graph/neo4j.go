// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/pdiddy/paper-reconciler/internal/logging"
	"github.com/pdiddy/paper-reconciler/pkg/types"
)

// schemaStatements create the uniqueness constraints that make concurrent
// merges by key safe.
var schemaStatements = []string{
	`CREATE CONSTRAINT paper_title_url_unique IF NOT EXISTS FOR (p:Paper) REQUIRE (p.title, p.url) IS UNIQUE`,
	`CREATE CONSTRAINT proceeding_unique IF NOT EXISTS FOR (p:Proceeding) REQUIRE p.proceeding IS UNIQUE`,
	`CREATE CONSTRAINT event_unique IF NOT EXISTS FOR (e:Event) REQUIRE e.event IS UNIQUE`,
	`CREATE CONSTRAINT author_name_unique IF NOT EXISTS FOR (a:Author) REQUIRE a.name IS UNIQUE`,
	`CREATE CONSTRAINT affiliation_unique IF NOT EXISTS FOR (a:Affiliation) REQUIRE a.affiliation IS UNIQUE`,
}

const deleteAllStatement = `MATCH (n) DETACH DELETE n`

// Neo4jStore applies plans to a Neo4j database. Each Apply runs in one
// managed write transaction.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	timeout  time.Duration
	log      *logging.Logger
}

// Open connects to the database in cfg and verifies connectivity.
func Open(ctx context.Context, cfg types.GraphConfig, log *logging.Logger) (*Neo4jStore, error) {
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, fmt.Errorf("graph: no URI configured")
	}
	user := cfg.User
	if user == "" {
		user = "neo4j"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(user, cfg.Password, ""), func(c *neo4j.Config) {
		c.SocketConnectTimeout = timeout
	})
	if err != nil {
		return nil, fmt.Errorf("graph: init driver: %w", err)
	}

	vctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("graph: verify connectivity: %w", err)
	}

	return &Neo4jStore{
		driver:   driver,
		database: cfg.Database,
		timeout:  timeout,
		log:      logging.OrNop(log).With("store", "neo4j"),
	}, nil
}

// Close releases the driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	if s == nil || s.driver == nil {
		return nil
	}
	err := s.driver.Close(ctx)
	s.driver = nil
	return err
}

func (s *Neo4jStore) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
}

// Apply runs all ops in one write transaction.
func (s *Neo4jStore) Apply(ctx context.Context, ops []Op) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, op := range ops {
			query, params := Cypher(op)
			res, err := tx.Run(ctx, query, params)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("graph write: %w", err)
	}
	s.log.Debug("plan applied", "ops", len(ops))
	return nil
}

// EnsureSchema creates the uniqueness constraints if they do not exist.
func (s *Neo4jStore) EnsureSchema(ctx context.Context) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	for _, q := range schemaStatements {
		res, err := session.Run(ctx, q, nil)
		if err != nil {
			return fmt.Errorf("graph schema: %w", err)
		}
		if _, err := res.Consume(ctx); err != nil {
			return fmt.Errorf("graph schema: %w", err)
		}
	}
	s.log.Info("schema ensured", "constraints", len(schemaStatements))
	return nil
}

// DeleteAll removes every node and relationship.
func (s *Neo4jStore) DeleteAll(ctx context.Context) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, deleteAllStatement, nil)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("graph delete: %w", err)
	}
	s.log.Warn("graph cleared")
	return nil
}

// Cypher renders op as a parameterized statement. Labels and relationship
// types come from the fixed schema constants; values are always passed as
// parameters.
func Cypher(op Op) (string, map[string]any) {
	params := make(map[string]any)
	if op.Kind == EnsureEdge {
		from := pattern("a", op.From, "from_", params)
		to := pattern("b", op.To, "to_", params)
		return fmt.Sprintf("MATCH %s MATCH %s MERGE (a)-[:%s]->(b)", from, to, op.Rel), params
	}

	q := "MERGE " + pattern("n", op.Node, "", params)
	if len(op.Set) > 0 {
		sets := make([]string, len(op.Set))
		for i, p := range op.Set {
			name := "set_" + p.Name
			params[name] = p.Value
			sets[i] = fmt.Sprintf("n.%s = $%s", p.Name, name)
		}
		q += " SET " + strings.Join(sets, ", ")
	}
	return q, params
}

func pattern(variable string, n NodeRef, prefix string, params map[string]any) string {
	props := make([]string, len(n.Key))
	for i, p := range n.Key {
		name := prefix + p.Name
		params[name] = p.Value
		props[i] = fmt.Sprintf("%s: $%s", p.Name, name)
	}
	return fmt.Sprintf("(%s:%s {%s})", variable, n.Label, strings.Join(props, ", "))
}
