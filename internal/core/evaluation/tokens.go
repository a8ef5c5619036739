package evaluation

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const minTokenRunes = 3

// tokenize lower-cases s, treats every rune that is not a letter, digit,
// underscore or space as a separator and keeps tokens of at least three runes.
func tokenize(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		if token := b.String(); utf8.RuneCountInString(token) >= minTokenRunes {
			tokens = append(tokens, token)
		}
		b.Reset()
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}
	flush()
	return tokens
}

func tokenSet(s string) map[string]struct{} {
	tokens := tokenize(s)
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}

func intersectionSize(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for token := range a {
		if _, ok := b[token]; ok {
			n++
		}
	}
	return n
}

// overlapRatio is |a ∩ b| / |a|, 0 when a is empty.
func overlapRatio(a, b map[string]struct{}) float64 {
	if len(a) == 0 {
		return 0
	}
	return float64(intersectionSize(a, b)) / float64(len(a))
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func splitSentences(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
