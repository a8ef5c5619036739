package evaluation

import (
	"math"
	"strings"
)

// Quality = 0.4 * completeness + 0.3 * informativeness + 0.3 * coherence over
// the answer alone. A ground truth, when given, contributes a token F1 that is
// averaged with that score.
func (e *Evaluator) Quality(query, answer, groundTruth string) float64 {
	if strings.TrimSpace(answer) == "" {
		return 0
	}
	sample := truncate(answer, e.opts.AnswerChars)
	answerTokens := tokenSet(sample)

	completeness := overlapRatio(tokenSet(query), answerTokens)
	info := informativeness(len(strings.Fields(answer)))
	coh := coherence(splitSentences(sample), e.opts.MaxSentences)
	score := 0.4*completeness + 0.3*info + 0.3*coh

	if strings.TrimSpace(groundTruth) != "" {
		score = (score + tokenF1(answerTokens, tokenSet(truncate(groundTruth, e.opts.AnswerChars)))) / 2
	}
	return clamp01(score)
}

// informativeness ramps linearly up to 50 words, stays at 1 through 500 and
// loses up to half its value between 500 and 1000 words.
func informativeness(words int) float64 {
	switch {
	case words < 50:
		return float64(words) / 50
	case words > 500:
		return 1 - math.Min(float64(words-500)/500, 0.5)
	default:
		return 1
	}
}

// coherence rewards an average sentence length of 10 to 25 words and some
// spread of lengths across sentences.
func coherence(sentences []string, maxSentences int) float64 {
	if len(sentences) == 0 {
		return 0
	}
	if len(sentences) > maxSentences {
		sentences = sentences[:maxSentences]
	}

	lengths := make([]float64, len(sentences))
	var sum float64
	for i, s := range sentences {
		lengths[i] = float64(len(strings.Fields(s)))
		sum += lengths[i]
	}
	avg := sum / float64(len(lengths))

	var variance float64
	for _, l := range lengths {
		variance += (l - avg) * (l - avg)
	}
	std := math.Sqrt(variance / float64(len(lengths)))

	return 0.6*sentenceLengthQuality(avg) + 0.4*math.Min(std/5, 1)
}

func sentenceLengthQuality(avg float64) float64 {
	switch {
	case avg < 10:
		return avg / 10
	case avg > 25:
		return 1 - math.Min((avg-25)/25, 1)
	default:
		return 1
	}
}

func tokenF1(answer, truth map[string]struct{}) float64 {
	if len(answer) == 0 || len(truth) == 0 {
		return 0
	}
	common := float64(intersectionSize(answer, truth))
	if common == 0 {
		return 0
	}
	precision := common / float64(len(answer))
	recall := common / float64(len(truth))
	return 2 * precision * recall / (precision + recall)
}
