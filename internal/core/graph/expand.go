package graph

// Expand returns the ids reachable from seeds within hops edges, seeds
// included, in breadth-first discovery order. Seeds that are not in the
// graph are skipped and reported in missing.
func (g *Graph) Expand(seeds []string, hops int) (reached []string, missing []string) {
	if hops < 0 {
		hops = 0
	}
	type item struct {
		id       string
		distance int
	}

	visited := make(map[string]bool)
	queue := make([]item, 0, len(seeds))
	for _, seed := range seeds {
		if !g.HasNode(seed) {
			missing = append(missing, seed)
			continue
		}
		if visited[seed] {
			continue
		}
		visited[seed] = true
		queue = append(queue, item{id: seed})
		reached = append(reached, seed)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current.distance >= hops {
			continue
		}
		for _, e := range g.adj[current.id] {
			if visited[e.Neighbor] {
				continue
			}
			visited[e.Neighbor] = true
			reached = append(reached, e.Neighbor)
			queue = append(queue, item{id: e.Neighbor, distance: current.distance + 1})
		}
	}
	return reached, missing
}
