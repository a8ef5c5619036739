// Package evaluation scores a generated answer and the results it was built
// from with relevance, coverage, quality and faithfulness metrics.
package evaluation

import (
	"strings"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

// Options bounds the input each metric looks at.
type Options struct {
	// ResultCap is how many top results feed relevance and faithfulness.
	ResultCap int
	// PairSample is how many top results are compared pairwise for
	// content diversity.
	PairSample int
	// ContentChars caps each result text used for content diversity.
	ContentChars int
	// ContextChars caps each result text used as answer context.
	ContextChars int
	// AnswerChars caps the answer text used for token analysis.
	AnswerChars int
	// MaxSentences caps sentences used for coherence and entity extraction.
	MaxSentences int
}

func DefaultOptions() Options {
	return Options{
		ResultCap:    5,
		PairSample:   5,
		ContentChars: 500,
		ContextChars: 1000,
		AnswerChars:  2000,
		MaxSentences: 10,
	}
}

func (o Options) normalize() Options {
	def := DefaultOptions()
	if o.ResultCap <= 0 {
		o.ResultCap = def.ResultCap
	}
	if o.PairSample <= 1 {
		o.PairSample = def.PairSample
	}
	if o.ContentChars <= 0 {
		o.ContentChars = def.ContentChars
	}
	if o.ContextChars <= 0 {
		o.ContextChars = def.ContextChars
	}
	if o.AnswerChars <= 0 {
		o.AnswerChars = def.AnswerChars
	}
	if o.MaxSentences <= 0 {
		o.MaxSentences = def.MaxSentences
	}
	return o
}

// Evaluator is stateless and safe for concurrent use.
type Evaluator struct {
	opts Options
}

func New(opts Options) *Evaluator {
	return &Evaluator{opts: opts.normalize()}
}

// Evaluate computes all metrics. An empty answer scores 0 for quality and
// faithfulness, and overall averages relevance and coverage only.
func (e *Evaluator) Evaluate(query string, results []domain.SearchResult, answer, groundTruth string) domain.MetricsResult {
	out := domain.MetricsResult{
		Relevance: e.Relevance(query, results),
		Coverage:  e.Coverage(results),
	}
	if strings.TrimSpace(answer) == "" {
		out.Overall = (out.Relevance + out.Coverage) / 2
		return out
	}

	out.Quality = e.Quality(query, answer, groundTruth)
	out.Faithfulness = e.Faithfulness(answer, results)
	out.Overall = (out.Relevance + out.Coverage + out.Quality + out.Faithfulness) / 4
	return out
}

// Relevance = 0.7 * mean score + 0.3 * query token overlap, over the top
// ResultCap results.
func (e *Evaluator) Relevance(query string, results []domain.SearchResult) float64 {
	capped := e.capResults(results)
	if len(capped) == 0 {
		return 0
	}

	var sum float64
	for _, r := range capped {
		sum += clamp01(r.Score)
	}
	meanScore := sum / float64(len(capped))

	overlap := overlapRatio(tokenSet(query), tokenSet(e.contextText(capped)))
	return clamp01(0.7*meanScore + 0.3*overlap)
}

func (e *Evaluator) capResults(results []domain.SearchResult) []domain.SearchResult {
	if len(results) > e.opts.ResultCap {
		return results[:e.opts.ResultCap]
	}
	return results
}

func (e *Evaluator) contextText(capped []domain.SearchResult) string {
	parts := make([]string, 0, len(capped))
	for _, r := range capped {
		parts = append(parts, truncate(r.Content, e.opts.ContextChars))
	}
	return strings.Join(parts, " ")
}
