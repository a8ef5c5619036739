package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

const (
	runsSheet    = "Runs"
	summarySheet = "Summary"
)

var runHeader = []any{
	"Query", "Search Type", "Results",
	"Search Time (s)", "Generation Time (s)", "Total Time (s)",
	"Relevance", "Coverage", "Quality", "Faithfulness", "Overall",
	"Status", "Error",
}

var summaryHeader = []any{
	"Search Type", "Runs", "Avg Total Time (s)",
	"Avg Relevance", "Avg Coverage", "Avg Quality", "Avg Faithfulness", "Avg Overall",
}

// WriteWorkbook writes the report as an xlsx workbook with one row per run
// and one row per mode summary.
func WriteWorkbook(w io.Writer, rep *domain.BatchReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", runsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := writeRows(f, runsSheet, runHeader, runRows(rep.Runs), headerStyle); err != nil {
		return err
	}
	if err := writeRows(f, summarySheet, summaryHeader, summaryRows(rep.Summaries), headerStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(runsSheet, "A", "A", 60); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(runsSheet, "M", "M", 40); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, header []any, rows [][]any, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func runRows(runs []domain.EvaluationRun) [][]any {
	rows := make([][]any, 0, len(runs))
	for _, run := range runs {
		status := "ok"
		switch {
		case run.Failed:
			status = "failed"
		case run.Error != "":
			status = "degraded"
		}
		rows = append(rows, []any{
			run.Query,
			string(run.SearchType),
			run.NumResults,
			run.Timings.SearchSeconds,
			run.Timings.GenerationSeconds,
			run.Timings.TotalSeconds,
			run.Metrics.Relevance,
			run.Metrics.Coverage,
			run.Metrics.Quality,
			run.Metrics.Faithfulness,
			run.Metrics.Overall,
			status,
			run.Error,
		})
	}
	return rows
}

func summaryRows(summaries []domain.ModeSummary) [][]any {
	rows := make([][]any, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []any{
			string(s.SearchType),
			s.Runs,
			s.AvgTotalSeconds,
			s.AvgMetrics.Relevance,
			s.AvgMetrics.Coverage,
			s.AvgMetrics.Quality,
			s.AvgMetrics.Faithfulness,
			s.AvgMetrics.Overall,
		})
	}
	return rows
}
