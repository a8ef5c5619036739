package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

var (
	heading = color.New(color.Bold, color.FgCyan)
	muted   = color.New(color.Faint)
)

func scoreColor(v float64) *color.Color {
	switch {
	case v >= 0.7:
		return color.New(color.FgGreen)
	case v >= 0.4:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func renderSearch(w io.Writer, resp *domain.SearchResponse) {
	heading.Fprintf(w, "%s search: %s\n", strings.ToUpper(string(resp.SearchType)), resp.Query)
	muted.Fprintf(w, "%d results, search %.3fs, generation %.3fs, total %.3fs\n",
		len(resp.Results), resp.Timings.SearchSeconds, resp.Timings.GenerationSeconds, resp.Timings.TotalSeconds)

	for i, r := range resp.Results {
		fmt.Fprintf(w, "\n[%d] %s %s  score=%s\n", i+1, r.Type, r.ID, scoreColor(r.Score).Sprintf("%.4f", r.Score))
		fmt.Fprintf(w, "    %s\n", preview(r.Content, 200))
		if r.Metadata.Community != nil && len(r.Metadata.Entities) > 0 {
			muted.Fprintf(w, "    entities: %s\n", strings.Join(r.Metadata.Entities, ", "))
		}
		if len(r.Metadata.GraphNeighbors) > 0 {
			muted.Fprintf(w, "    neighbors: %s\n", strings.Join(r.Metadata.GraphNeighbors, ", "))
		}
	}

	if resp.Answer != "" {
		heading.Fprintln(w, "\nAnswer")
		fmt.Fprintln(w, resp.Answer)
	}
	for _, warning := range resp.Warnings {
		color.New(color.FgYellow).Fprintf(w, "warning: %s\n", warning)
	}
	if resp.Metrics != nil {
		fmt.Fprintln(w)
		renderMetrics(w, "", *resp.Metrics)
	}
}

func renderMetrics(w io.Writer, indent string, m domain.MetricsResult) {
	rows := []struct {
		name  string
		value float64
	}{
		{"Relevance", m.Relevance},
		{"Coverage", m.Coverage},
		{"Quality", m.Quality},
		{"Faithfulness", m.Faithfulness},
		{"Overall", m.Overall},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s%-14s %s\n", indent, row.name+":", scoreColor(row.value).Sprintf("%.4f", row.value))
	}
}

func renderSummaries(w io.Writer, summaries []domain.ModeSummary) {
	for _, s := range summaries {
		heading.Fprintf(w, "GRAPHRAG %s", strings.ToUpper(string(s.SearchType)))
		muted.Fprintf(w, " (%d runs, avg %.3fs)\n", s.Runs, s.AvgTotalSeconds)
		renderMetrics(w, "  ", s.AvgMetrics)
	}
}

func renderStats(w io.Writer, stats domain.GraphStats) {
	heading.Fprintln(w, "Knowledge graph")
	fmt.Fprintf(w, "  Nodes:       %d\n", stats.Nodes)
	fmt.Fprintf(w, "  Edges:       %d\n", stats.Edges)
	fmt.Fprintf(w, "  Density:     %.6f\n", stats.Density)
	fmt.Fprintf(w, "  Components:  %d\n", stats.Components)
	fmt.Fprintf(w, "  Avg degree:  %.3f\n", stats.AvgDegree)
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
