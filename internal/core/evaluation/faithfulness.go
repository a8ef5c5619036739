package evaluation

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

// Faithfulness = 0.7 * token grounding + 0.3 * entity grounding against the
// top ResultCap results. An answer without named entities has entity
// grounding 1.
func (e *Evaluator) Faithfulness(answer string, results []domain.SearchResult) float64 {
	if strings.TrimSpace(answer) == "" {
		return 0
	}
	capped := e.capResults(results)
	if len(capped) == 0 {
		return 0
	}

	sample := truncate(answer, e.opts.AnswerChars)
	contextText := e.contextText(capped)

	tokenGrounding := overlapRatio(tokenSet(sample), tokenSet(contextText))
	entityGrounding := entityGrounding(
		answerEntities(splitSentences(sample), e.opts.MaxSentences),
		strings.ToLower(contextText),
	)
	return clamp01(0.7*tokenGrounding + 0.3*entityGrounding)
}

func entityGrounding(entities []string, lowerContext string) float64 {
	if len(entities) == 0 {
		return 1
	}
	grounded := 0
	for _, entity := range entities {
		if strings.Contains(lowerContext, entity) {
			grounded++
		}
	}
	return float64(grounded) / float64(len(entities))
}

// answerEntities treats capitalized words of two or more runes as named
// entities. Results are lower-cased, unique and in first-seen order.
func answerEntities(sentences []string, maxSentences int) []string {
	if len(sentences) > maxSentences {
		sentences = sentences[:maxSentences]
	}
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, sentence := range sentences {
		for _, word := range strings.Fields(sentence) {
			word = strings.TrimFunc(word, func(r rune) bool {
				return unicode.IsPunct(r) || unicode.IsSymbol(r)
			})
			first, _ := utf8.DecodeRuneInString(word)
			if utf8.RuneCountInString(word) < 2 || !unicode.IsUpper(first) {
				continue
			}
			key := strings.ToLower(word)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, key)
		}
	}
	return out
}
