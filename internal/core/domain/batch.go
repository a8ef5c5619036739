package domain

import "time"

type BatchStatus string

const (
	BatchQueued    BatchStatus = "queued"
	BatchRunning   BatchStatus = "running"
	BatchCompleted BatchStatus = "completed"
	BatchFailed    BatchStatus = "failed"
)

// BatchJob runs a fixed list of queries through one or more search modes.
type BatchJob struct {
	ID        string       `json:"id"`
	Queries   []string     `json:"queries"`
	Modes     []SearchMode `json:"modes"`
	TopK      int          `json:"top_k"`
	Status    BatchStatus  `json:"status"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// EvaluationRun is one scored query execution.
type EvaluationRun struct {
	ID         string        `json:"id"`
	BatchID    string        `json:"batch_id,omitempty"`
	Query      string        `json:"query"`
	SearchType SearchMode    `json:"search_type"`
	NumResults int           `json:"num_results"`
	Metrics    MetricsResult `json:"metrics"`
	Timings    SearchTimings `json:"timings"`
	// Failed marks a run whose search aborted; Error then holds the cause.
	// Degraded runs keep Failed false and list warnings in Error.
	Failed    bool      `json:"failed"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ModeSummary struct {
	SearchType      SearchMode    `json:"search_type"`
	Runs            int           `json:"runs"`
	AvgTotalSeconds float64       `json:"avg_total_seconds"`
	AvgMetrics      MetricsResult `json:"avg_metrics"`
}

type BatchReport struct {
	Job       BatchJob        `json:"job"`
	Runs      []EvaluationRun `json:"runs"`
	Summaries []ModeSummary   `json:"summaries"`
}
