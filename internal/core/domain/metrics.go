package domain

type MetricsResult struct {
	Relevance    float64 `json:"relevance"`
	Coverage     float64 `json:"coverage"`
	Quality      float64 `json:"quality"`
	Faithfulness float64 `json:"faithfulness"`
	Overall      float64 `json:"overall"`
}
