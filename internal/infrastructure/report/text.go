// Package report renders batch comparison reports as text and as an xlsx
// workbook.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

var rule = strings.Repeat("=", 80)

// WriteText renders the report in the plain layout of the batch comparison
// tool: per-query blocks followed by per-mode averages.
func WriteText(w io.Writer, rep *domain.BatchReport, generated time.Time) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...any) {
		fmt.Fprintf(bw, format+"\n", args...)
	}

	p("%s", rule)
	p("BATCH COMPARISON METRICS")
	p("%s", rule)
	p("Generated: %s", generated.Format("2006-01-02 15:04:05"))
	if rep.Job.ID != "" {
		p("Batch: %s (%s)", rep.Job.ID, rep.Job.Status)
	}
	p("Total Queries: %d", len(rep.Job.Queries))
	p("%s", rule)
	p("")

	byQuery := groupRuns(rep.Runs)
	for i, query := range rep.Job.Queries {
		p("\n%s", rule)
		p("Query %d: %s", i+1, query)
		p("%s", rule)
		p("")
		for _, run := range byQuery[query] {
			p("%s:", modeTitle(run.SearchType))
			if run.Failed {
				p("  Failed:            %s", run.Error)
				p("")
				continue
			}
			p("  Search Time:       %.3fs", run.Timings.SearchSeconds)
			p("  Generation Time:   %.3fs", run.Timings.GenerationSeconds)
			p("  Total Time:        %.3fs", run.Timings.TotalSeconds)
			p("  Results Used:      %d", run.NumResults)
			p("  Metrics:")
			writeMetrics(p, "    - ", run.Metrics)
			if run.Error != "" {
				p("  Warnings:          %s", run.Error)
			}
			p("")
		}
	}

	p("\n%s", rule)
	p("SUMMARY STATISTICS")
	p("%s", rule)
	p("")
	for _, s := range rep.Summaries {
		if s.Runs == 0 {
			continue
		}
		p("%s:", modeTitle(s.SearchType))
		p("  Runs:              %d", s.Runs)
		p("  Avg Total Time:    %.3fs", s.AvgTotalSeconds)
		p("  Avg Relevance:     %.4f", s.AvgMetrics.Relevance)
		p("  Avg Coverage:      %.4f", s.AvgMetrics.Coverage)
		p("  Avg Quality:       %.4f", s.AvgMetrics.Quality)
		p("  Avg Faithfulness:  %.4f", s.AvgMetrics.Faithfulness)
		p("  Avg Overall Score: %.4f", s.AvgMetrics.Overall)
		p("")
	}
	p("%s", rule)
	p("END OF REPORT")
	p("%s", rule)

	return bw.Flush()
}

func writeMetrics(p func(string, ...any), indent string, m domain.MetricsResult) {
	p("%sRelevance:     %.4f", indent, m.Relevance)
	p("%sCoverage:      %.4f", indent, m.Coverage)
	p("%sQuality:       %.4f", indent, m.Quality)
	p("%sFaithfulness:  %.4f", indent, m.Faithfulness)
	p("%sOverall Score: %.4f", indent, m.Overall)
}

func modeTitle(mode domain.SearchMode) string {
	return "GRAPHRAG " + strings.ToUpper(string(mode))
}

func groupRuns(runs []domain.EvaluationRun) map[string][]domain.EvaluationRun {
	out := make(map[string][]domain.EvaluationRun)
	for _, run := range runs {
		out[run.Query] = append(out[run.Query], run)
	}
	return out
}
