package domain

// Chunk is a unit of source text produced by ingestion.
type Chunk struct {
	ID     string         `json:"id"`
	Text   string         `json:"text"`
	Source map[string]any `json:"source,omitempty"`
}

type Entity struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

type Relationship struct {
	SourceID     string  `json:"source"`
	TargetID     string  `json:"target"`
	Relationship string  `json:"relationship,omitempty"`
	Description  string  `json:"description,omitempty"`
	Weight       float64 `json:"weight"`
}

type Community struct {
	ID        string   `json:"id"`
	EntityIDs []string `json:"entity_ids"`
	Level     int      `json:"level"`
}

// CommunityReport is the embedded summary of one community.
type CommunityReport struct {
	CommunityID string   `json:"community_id"`
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Entities    []string `json:"entities,omitempty"`
	NumEntities int      `json:"num_entities"`
	Rank        float64  `json:"rank"`
	Level       int      `json:"level"`
}

type GraphStats struct {
	Nodes      int     `json:"num_nodes"`
	Edges      int     `json:"num_edges"`
	Density    float64 `json:"density"`
	Components int     `json:"num_components"`
	AvgDegree  float64 `json:"avg_degree"`
}
