package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

const contextTruncatedMarker = "\n\n[Context truncated...]"

// ContextBuilder renders search results into prompt context text.
type ContextBuilder struct {
	maxChars int
}

// NewContextBuilder bounds context at roughly maxTokens tokens (4 characters
// per token).
func NewContextBuilder(maxTokens int) *ContextBuilder {
	if maxTokens <= 0 {
		maxTokens = 4000
	}
	return &ContextBuilder{maxChars: maxTokens * 4}
}

func (b *ContextBuilder) Build(mode domain.SearchMode, results []domain.SearchResult) string {
	switch mode {
	case domain.SearchGlobal:
		return b.Global(results)
	case domain.SearchHybrid:
		var local, global []domain.SearchResult
		for _, r := range results {
			if r.Type == domain.ResultCommunity {
				global = append(global, r)
			} else {
				local = append(local, r)
			}
		}
		return b.Hybrid(local, global)
	default:
		return b.Local(results)
	}
}

func (b *ContextBuilder) Local(results []domain.SearchResult) string {
	parts := make([]string, 0, len(results))
	for i, r := range results {
		switch r.Type {
		case domain.ResultChunk:
			parts = append(parts, fmt.Sprintf("[Source %d]\n%s", i+1, r.Content))
		case domain.ResultEntity:
			var sb strings.Builder
			name := ""
			if r.Metadata.Entity != nil {
				name = r.Metadata.Entity.Name
			}
			fmt.Fprintf(&sb, "[Entity: %s]\n%s\n", name, r.Content)
			if gc := r.Metadata.GraphContext; gc != nil && len(gc.Relationships) > 0 {
				sb.WriteString("Related to:\n")
				for _, rel := range gc.Relationships[:min(3, len(gc.Relationships))] {
					fmt.Fprintf(&sb, "- %s (%s)\n", rel.Neighbor, rel.Relationship)
				}
			}
			parts = append(parts, sb.String())
		case domain.ResultCommunity:
			parts = append(parts, communityContext(i, r))
		}
	}
	return b.truncate(strings.Join(parts, "\n\n"))
}

func (b *ContextBuilder) Global(results []domain.SearchResult) string {
	parts := make([]string, 0, len(results))
	for i, r := range results {
		parts = append(parts, communityContext(i, r))
	}
	return b.truncate(strings.Join(parts, "\n\n"))
}

// Hybrid puts up to three community summaries before up to five local results.
func (b *ContextBuilder) Hybrid(local, global []domain.SearchResult) string {
	parts := make([]string, 0, 4)
	if len(global) > 0 {
		parts = append(parts, "## High-Level Context (Communities)", b.Global(global[:min(3, len(global))]))
	}
	if len(local) > 0 {
		parts = append(parts, "\n## Specific Details (Documents & Entities)", b.Local(local[:min(5, len(local))]))
	}
	return strings.Join(parts, "\n\n")
}

func communityContext(i int, r domain.SearchResult) string {
	title, summary, numEntities := "", r.Content, 0
	if c := r.Metadata.Community; c != nil {
		title, numEntities = c.Title, c.NumEntities
		if c.Summary != "" {
			summary = c.Summary
		}
	}
	return fmt.Sprintf("[Community %d: %s]\n%s\n(Contains %d entities)", i+1, title, summary, numEntities)
}

func (b *ContextBuilder) truncate(text string) string {
	if len(text) <= b.maxChars {
		return text
	}
	cut := b.maxChars
	for cut > 0 && !isRuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + contextTruncatedMarker
}

func isRuneStart(c byte) bool {
	return c&0xC0 != 0x80
}

// Source is a citation entry for a result.
type Source struct {
	ID      string            `json:"id"`
	Type    domain.ResultType `json:"type"`
	Content string            `json:"content"`
}

func FormatSources(results []domain.SearchResult) []Source {
	out := make([]Source, 0, len(results))
	for i, r := range results {
		src := Source{ID: fmt.Sprint(i + 1), Type: r.Type, Content: r.Content}
		switch r.Type {
		case domain.ResultChunk:
			if len(r.Content) > 200 {
				src.Content = strings.ToValidUTF8(r.Content[:200], "") + "..."
			}
		case domain.ResultCommunity:
			if r.Metadata.Community != nil {
				src.Content = r.Metadata.Community.Title
			}
		}
		out = append(out, src)
	}
	return out
}
