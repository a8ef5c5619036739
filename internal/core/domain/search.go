package domain

type ResultType string

const (
	ResultChunk     ResultType = "chunk"
	ResultEntity    ResultType = "entity"
	ResultCommunity ResultType = "community"
)

// KnownResultTypes is the number of result variants used by type diversity.
const KnownResultTypes = 3

func (t ResultType) Valid() bool {
	switch t {
	case ResultChunk, ResultEntity, ResultCommunity:
		return true
	default:
		return false
	}
}

type SearchMode string

const (
	SearchLocal  SearchMode = "local"
	SearchGlobal SearchMode = "global"
	SearchHybrid SearchMode = "hybrid"
	SearchAuto   SearchMode = "auto"
)

func ParseSearchMode(raw string) (SearchMode, bool) {
	switch SearchMode(raw) {
	case SearchLocal, SearchGlobal, SearchHybrid, SearchAuto:
		return SearchMode(raw), true
	case "":
		return SearchLocal, true
	default:
		return "", false
	}
}

// GraphContext describes an entity's immediate neighborhood.
type GraphContext struct {
	Neighbors     []string       `json:"neighbors"`
	Relationships []NeighborLink `json:"relationships"`
	Degree        int            `json:"degree"`
}

type NeighborLink struct {
	Neighbor     string `json:"neighbor"`
	Relationship string `json:"relationship"`
}

// ResultMetadata holds the optional fields of each result variant. Chunk
// results fill Source; entity results fill Entity and GraphContext;
// community results fill Community and Entities.
type ResultMetadata struct {
	Source         map[string]any   `json:"source,omitempty"`
	Entity         *Entity          `json:"entity,omitempty"`
	GraphContext   *GraphContext    `json:"graph_context,omitempty"`
	GraphNeighbors []string         `json:"graph_neighbors,omitempty"`
	Community      *CommunityReport `json:"community,omitempty"`
	Entities       []string         `json:"entities,omitempty"`
}

type SearchResult struct {
	ID       string         `json:"id"`
	Type     ResultType     `json:"type"`
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	Metadata ResultMetadata `json:"metadata"`
}

type SearchRequest struct {
	Query           string     `json:"query"`
	TopK            int        `json:"top_k"`
	SearchType      SearchMode `json:"search_type"`
	GenerateAnswer  bool       `json:"generate_answer"`
	GroundTruth     string     `json:"ground_truth,omitempty"`
	IncludeEntities bool       `json:"include_entities,omitempty"`
	IncludeGraph    bool       `json:"include_graph,omitempty"`
	Evaluate        bool       `json:"evaluate,omitempty"`
}

type SearchTimings struct {
	SearchSeconds     float64 `json:"search_seconds"`
	GenerationSeconds float64 `json:"generation_seconds"`
	TotalSeconds      float64 `json:"total_seconds"`
}

type SearchResponse struct {
	Query      string         `json:"query"`
	SearchType SearchMode     `json:"search_type"`
	Results    []SearchResult `json:"results"`
	Answer     string         `json:"answer,omitempty"`
	Metrics    *MetricsResult `json:"metrics,omitempty"`
	Timings    SearchTimings  `json:"timings"`
	Warnings   []string       `json:"warnings,omitempty"`
}
