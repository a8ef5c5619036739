package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

func sampleReport() *domain.BatchReport {
	return &domain.BatchReport{
		Job: domain.BatchJob{
			ID:      "b-1",
			Queries: []string{"protein intake", "sleep"},
			Modes:   []domain.SearchMode{domain.SearchLocal, domain.SearchGlobal},
			Status:  domain.BatchCompleted,
		},
		Runs: []domain.EvaluationRun{
			{Query: "protein intake", SearchType: domain.SearchLocal, NumResults: 4,
				Metrics: domain.MetricsResult{Relevance: 0.5, Overall: 0.61234},
				Timings: domain.SearchTimings{SearchSeconds: 0.1, GenerationSeconds: 1.2, TotalSeconds: 1.3}},
			{Query: "protein intake", SearchType: domain.SearchGlobal, NumResults: 2, Error: "generation: timeout"},
			{Query: "sleep", SearchType: domain.SearchLocal, Failed: true, Error: "store load failed"},
		},
		Summaries: []domain.ModeSummary{
			{SearchType: domain.SearchLocal, Runs: 1, AvgTotalSeconds: 1.3, AvgMetrics: domain.MetricsResult{Overall: 0.61234}},
			{SearchType: domain.SearchGlobal, Runs: 0},
		},
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	generated := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	require.NoError(t, WriteText(&buf, sampleReport(), generated))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, strings.Repeat("=", 80)+"\nBATCH COMPARISON METRICS\n"))
	assert.Contains(t, out, "Generated: 2026-10-18 09:30:00")
	assert.Contains(t, out, "Total Queries: 2")
	assert.Contains(t, out, "Query 1: protein intake")
	assert.Contains(t, out, "GRAPHRAG LOCAL:")
	assert.Contains(t, out, "    - Overall Score: 0.6123")
	assert.Contains(t, out, "  Warnings:          generation: timeout")
	assert.Contains(t, out, "  Failed:            store load failed")
	assert.Contains(t, out, "  Avg Total Time:    1.300s")
	assert.True(t, strings.HasSuffix(out, "END OF REPORT\n"+strings.Repeat("=", 80)+"\n"))

	summary := out[strings.Index(out, "SUMMARY STATISTICS"):]
	assert.NotContains(t, summary, "GRAPHRAG GLOBAL:")
}

func TestWriteWorkbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, sampleReport()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{runsSheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(runsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Query", rows[0][0])
	assert.Equal(t, []string{"protein intake", "local", "4"}, rows[1][:3])
	assert.Equal(t, "degraded", rows[2][11])
	assert.Equal(t, "failed", rows[3][11])

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, "global", summary[2][0])
}
