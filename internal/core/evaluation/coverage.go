package evaluation

import (
	"strings"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

// Coverage = 0.4 * entity diversity + 0.3 * content diversity + 0.3 * type
// diversity.
func (e *Evaluator) Coverage(results []domain.SearchResult) float64 {
	if len(results) == 0 {
		return 0
	}
	return combineCoverage(
		entityDiversity(results),
		e.contentDiversity(results),
		typeDiversity(results),
	)
}

func combineCoverage(entityDiv, contentDiv, typeDiv float64) float64 {
	return clamp01(0.4*entityDiv + 0.3*contentDiv + 0.3*typeDiv)
}

// entityDiversity is unique entity names / (2 * results), capped at 1. It is
// 0 when no result carries entity metadata.
func entityDiversity(results []domain.SearchResult) float64 {
	names := make(map[string]struct{})
	for _, r := range results {
		for _, name := range resultEntityNames(r) {
			if key := strings.ToLower(strings.TrimSpace(name)); key != "" {
				names[key] = struct{}{}
			}
		}
	}
	return clamp01(float64(len(names)) / float64(2*len(results)))
}

func resultEntityNames(r domain.SearchResult) []string {
	md := r.Metadata
	names := make([]string, 0, len(md.Entities)+1)
	names = append(names, md.Entities...)
	if md.Entity != nil {
		names = append(names, md.Entity.Name)
	}
	if md.GraphContext != nil {
		names = append(names, md.GraphContext.Neighbors...)
	}
	return names
}

// contentDiversity is 1 - mean pairwise overlap among the first PairSample
// results, where overlap(i, j) = |Ti ∩ Tj| / max(|Ti|, |Tj|). A single result
// has no diversity; a sample with no comparable pair scores 0.5.
func (e *Evaluator) contentDiversity(results []domain.SearchResult) float64 {
	if len(results) <= 1 {
		return 0
	}
	n := min(e.opts.PairSample, len(results))
	sets := make([]map[string]struct{}, n)
	for i := 0; i < n; i++ {
		sets[i] = tokenSet(truncate(results[i].Content, e.opts.ContentChars))
	}

	var sum float64
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if len(sets[i]) == 0 || len(sets[j]) == 0 {
				continue
			}
			denom := max(len(sets[i]), len(sets[j]))
			sum += float64(intersectionSize(sets[i], sets[j])) / float64(denom)
			pairs++
		}
	}
	if pairs == 0 {
		return 0.5
	}
	return clamp01(1 - sum/float64(pairs))
}

func typeDiversity(results []domain.SearchResult) float64 {
	types := make(map[domain.ResultType]struct{}, domain.KnownResultTypes)
	for _, r := range results {
		if r.Type.Valid() {
			types[r.Type] = struct{}{}
		}
	}
	return clamp01(float64(len(types)) / domain.KnownResultTypes)
}
