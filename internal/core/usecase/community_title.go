package usecase

import (
	"strings"
	"unicode"
)

// ParseTitleEntities extracts representative entity names from a community
// report title such as "Protein, Creatine and 12 others". Names are trimmed,
// in title order, without duplicates; "N others" style tails are dropped.
// The input is a generated title, so the result is a best-effort heuristic.
func ParseTitleEntities(title string) []string {
	normalized := strings.ReplaceAll(title, " and ", ", ")
	names := make([]string, 0, 4)
	seen := make(map[string]struct{})
	for _, part := range strings.Split(normalized, ",") {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, "and ")
		part = strings.TrimFunc(part, func(r rune) bool {
			return unicode.IsSpace(r) || r == '.' || r == ';' || r == ':'
		})
		if part == "" || isOthersTail(part) {
			continue
		}
		key := strings.ToLower(part)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, part)
	}
	return names
}

func isOthersTail(part string) bool {
	fields := strings.Fields(strings.ToLower(part))
	switch fields[len(fields)-1] {
	case "others", "other", "more":
		return true
	default:
		return false
	}
}
