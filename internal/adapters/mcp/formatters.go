package mcpadapter

import (
	"fmt"
	"strings"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

const previewChars = 400

func formatSearchResponse(resp *domain.SearchResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s search for %q (%d results)\n\n", resp.SearchType, resp.Query, len(resp.Results))

	if len(resp.Results) == 0 {
		sb.WriteString("No results found.\n")
	}
	for i, r := range resp.Results {
		fmt.Fprintf(&sb, "### %d. %s `%s` (score %.4f)\n", i+1, r.Type, r.ID, r.Score)
		if r.Metadata.Community != nil && r.Metadata.Community.Title != "" {
			fmt.Fprintf(&sb, "**Community:** %s\n", r.Metadata.Community.Title)
		}
		if len(r.Metadata.Entities) > 0 {
			fmt.Fprintf(&sb, "**Entities:** %s\n", strings.Join(r.Metadata.Entities, ", "))
		}
		if len(r.Metadata.GraphNeighbors) > 0 {
			fmt.Fprintf(&sb, "**Graph neighbors:** %s\n", strings.Join(r.Metadata.GraphNeighbors, ", "))
		}
		sb.WriteString("\n")
		sb.WriteString(preview(r.Content))
		sb.WriteString("\n\n")
	}

	if resp.Answer != "" {
		sb.WriteString("## Answer\n\n")
		sb.WriteString(resp.Answer)
		sb.WriteString("\n\n")
	}
	for _, w := range resp.Warnings {
		fmt.Fprintf(&sb, "> warning: %s\n", w)
	}
	if resp.Metrics != nil {
		sb.WriteString("\n")
		sb.WriteString(formatMetrics(*resp.Metrics))
	}
	return sb.String()
}

func formatMetrics(m domain.MetricsResult) string {
	var sb strings.Builder
	sb.WriteString("| Metric | Score |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Relevance | %.4f |\n", m.Relevance)
	fmt.Fprintf(&sb, "| Coverage | %.4f |\n", m.Coverage)
	fmt.Fprintf(&sb, "| Quality | %.4f |\n", m.Quality)
	fmt.Fprintf(&sb, "| Faithfulness | %.4f |\n", m.Faithfulness)
	fmt.Fprintf(&sb, "| Overall | %.4f |\n", m.Overall)
	return sb.String()
}

func formatGraphStats(s domain.GraphStats) string {
	return fmt.Sprintf("Nodes: %d\nEdges: %d\nDensity: %.6f\nComponents: %d\nAverage degree: %.3f\n",
		s.Nodes, s.Edges, s.Density, s.Components, s.AvgDegree)
}

func preview(s string) string {
	runes := []rune(s)
	if len(runes) <= previewChars {
		return s
	}
	return string(runes[:previewChars]) + "..."
}
