// Package graph holds the in-memory knowledge graph used for neighborhood
// expansion during local search.
package graph

import "github.com/kirillkom/graphrag-search/internal/core/domain"

// Edge is one adjacency entry as seen from a node.
type Edge struct {
	Neighbor     string
	Relationship string
	Weight       float64
}

// Graph is an undirected entity graph. It is never mutated after New.
type Graph struct {
	nodes map[string]domain.Entity
	order []string
	adj   map[string][]Edge
	edges int
}

// New builds a graph from entities and relationships. Relationships whose
// endpoints are not among the entities are dropped and counted. Repeated
// pairs keep the first relationship.
func New(entities []domain.Entity, relationships []domain.Relationship) (*Graph, int) {
	g := &Graph{
		nodes: make(map[string]domain.Entity, len(entities)),
		order: make([]string, 0, len(entities)),
		adj:   make(map[string][]Edge, len(entities)),
	}
	for _, e := range entities {
		if e.ID == "" {
			continue
		}
		if _, ok := g.nodes[e.ID]; ok {
			continue
		}
		g.nodes[e.ID] = e
		g.order = append(g.order, e.ID)
	}

	dropped := 0
	seen := make(map[[2]string]struct{}, len(relationships))
	for _, rel := range relationships {
		_, okSource := g.nodes[rel.SourceID]
		_, okTarget := g.nodes[rel.TargetID]
		if !okSource || !okTarget {
			dropped++
			continue
		}
		if rel.SourceID == rel.TargetID {
			continue
		}
		key := pairKey(rel.SourceID, rel.TargetID)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		g.adj[rel.SourceID] = append(g.adj[rel.SourceID], Edge{Neighbor: rel.TargetID, Relationship: rel.Relationship, Weight: rel.Weight})
		g.adj[rel.TargetID] = append(g.adj[rel.TargetID], Edge{Neighbor: rel.SourceID, Relationship: rel.Relationship, Weight: rel.Weight})
		g.edges++
	}
	return g, dropped
}

func pairKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

func (g *Graph) Entity(id string) (domain.Entity, bool) {
	e, ok := g.nodes[id]
	return e, ok
}

// Edges returns the adjacency list of id in insertion order.
func (g *Graph) Edges(id string) []Edge {
	return g.adj[id]
}

func (g *Graph) Neighbors(id string) []string {
	edges := g.adj[id]
	out := make([]string, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.Neighbor)
	}
	return out
}

func (g *Graph) Degree(id string) int {
	return len(g.adj[id])
}

func (g *Graph) NodeCount() int { return len(g.order) }

func (g *Graph) EdgeCount() int { return g.edges }

// Context summarizes the immediate neighborhood of id.
func (g *Graph) Context(id string, maxNeighbors, maxRelationships int) domain.GraphContext {
	edges := g.adj[id]
	gc := domain.GraphContext{
		Neighbors:     []string{},
		Relationships: []domain.NeighborLink{},
		Degree:        len(edges),
	}
	for i, e := range edges {
		name := g.nodes[e.Neighbor].Name
		if name == "" {
			name = e.Neighbor
		}
		if i < maxNeighbors {
			gc.Neighbors = append(gc.Neighbors, name)
		}
		if i < maxRelationships {
			gc.Relationships = append(gc.Relationships, domain.NeighborLink{Neighbor: name, Relationship: e.Relationship})
		}
	}
	return gc
}

func (g *Graph) Stats() domain.GraphStats {
	n := len(g.order)
	stats := domain.GraphStats{Nodes: n, Edges: g.edges}
	if n == 0 {
		return stats
	}
	if n > 1 {
		stats.Density = float64(2*g.edges) / float64(n*(n-1))
	}
	stats.AvgDegree = float64(2*g.edges) / float64(n)

	visited := make(map[string]bool, n)
	for _, id := range g.order {
		if visited[id] {
			continue
		}
		stats.Components++
		queue := []string{id}
		visited[id] = true
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			for _, e := range g.adj[current] {
				if !visited[e.Neighbor] {
					visited[e.Neighbor] = true
					queue = append(queue, e.Neighbor)
				}
			}
		}
	}
	return stats
}
