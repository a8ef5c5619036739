package usecase

import (
	"strings"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

var (
	localQueryKeywords = []string{
		"who", "what is", "where", "when", "specific", "detail",
		"example", "how does", "define", "describe",
	}
	globalQueryKeywords = []string{
		"overview", "summary", "general", "main themes", "compare",
		"contrast", "relationship between", "what are all", "list all", "categorize",
	}
)

// ClassifyQuery picks local or global search for auto mode by keyword
// counts. Ties go global for queries longer than ten words.
func ClassifyQuery(query string) domain.SearchMode {
	lower := strings.ToLower(query)
	localHits := countKeywordHits(lower, localQueryKeywords)
	globalHits := countKeywordHits(lower, globalQueryKeywords)

	switch {
	case globalHits > localHits:
		return domain.SearchGlobal
	case localHits > globalHits:
		return domain.SearchLocal
	case len(strings.Fields(query)) > 10:
		return domain.SearchGlobal
	default:
		return domain.SearchLocal
	}
}

func countKeywordHits(lower string, keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	return hits
}
