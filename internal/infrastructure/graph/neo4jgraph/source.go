// Package neo4jgraph loads the entity graph from a Neo4j database.
package neo4jgraph

import (
	"context"
	"fmt"
	"regexp"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

var labelPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Config struct {
	URI      string
	Username string
	Password string
	Database string
	// Label is the node label of entities. Defaults to Entity.
	Label string
}

type Source struct {
	driver   neo4j.DriverWithContext
	database string
	label    string
}

func New(cfg Config) (*Source, error) {
	if cfg.Database == "" {
		cfg.Database = "neo4j"
	}
	if cfg.Label == "" {
		cfg.Label = "Entity"
	}
	if !labelPattern.MatchString(cfg.Label) {
		return nil, fmt.Errorf("invalid neo4j label %q", cfg.Label)
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	return &Source{driver: driver, database: cfg.Database, label: cfg.Label}, nil
}

func (s *Source) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

func (s *Source) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Source) LoadGraph(ctx context.Context) ([]domain.Entity, []domain.Relationship, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database, AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	nodeRecords, err := s.collect(ctx, session, nodesQuery(s.label))
	if err != nil {
		return nil, nil, domain.WrapError(domain.ErrStoreLoad, "load neo4j nodes", err)
	}
	edgeRecords, err := s.collect(ctx, session, edgesQuery(s.label))
	if err != nil {
		return nil, nil, domain.WrapError(domain.ErrStoreLoad, "load neo4j relationships", err)
	}

	nodes := make([]domain.Entity, 0, len(nodeRecords))
	for _, rec := range nodeRecords {
		e, ok := entityFromRecord(rec)
		if !ok {
			continue
		}
		nodes = append(nodes, e)
	}
	edges := make([]domain.Relationship, 0, len(edgeRecords))
	for _, rec := range edgeRecords {
		r, ok := relationshipFromRecord(rec)
		if !ok {
			continue
		}
		edges = append(edges, r)
	}
	return nodes, edges, nil
}

func (s *Source) collect(ctx context.Context, session neo4j.SessionWithContext, query string) ([]*db.Record, error) {
	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	records, ok := result.([]*db.Record)
	if !ok {
		return nil, fmt.Errorf("unexpected neo4j result type %T", result)
	}
	return records, nil
}

func nodesQuery(label string) string {
	return fmt.Sprintf(`
		MATCH (n:%s)
		RETURN coalesce(n.id, n.name) AS id, n.name AS name, n.type AS type, n.description AS description
	`, label)
}

func edgesQuery(label string) string {
	return fmt.Sprintf(`
		MATCH (a:%[1]s)-[r]->(b:%[1]s)
		RETURN coalesce(a.id, a.name) AS source, coalesce(b.id, b.name) AS target,
			coalesce(r.relationship, type(r)) AS relationship, r.description AS description, r.weight AS weight
	`, label)
}

func entityFromRecord(rec *db.Record) (domain.Entity, bool) {
	id := stringField(rec, "id")
	if id == "" {
		return domain.Entity{}, false
	}
	name := stringField(rec, "name")
	if name == "" {
		name = id
	}
	return domain.Entity{
		ID:          id,
		Name:        name,
		Type:        stringField(rec, "type"),
		Description: stringField(rec, "description"),
	}, true
}

func relationshipFromRecord(rec *db.Record) (domain.Relationship, bool) {
	source, target := stringField(rec, "source"), stringField(rec, "target")
	if source == "" || target == "" {
		return domain.Relationship{}, false
	}
	weight := 1.0
	if raw, ok := rec.Get("weight"); ok {
		switch w := raw.(type) {
		case float64:
			weight = w
		case int64:
			weight = float64(w)
		}
	}
	return domain.Relationship{
		SourceID:     source,
		TargetID:     target,
		Relationship: stringField(rec, "relationship"),
		Description:  stringField(rec, "description"),
		Weight:       weight,
	}, true
}

func stringField(rec *db.Record, key string) string {
	raw, ok := rec.Get(key)
	if !ok || raw == nil {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return v
	case int64:
		return fmt.Sprint(v)
	default:
		return fmt.Sprint(v)
	}
}
