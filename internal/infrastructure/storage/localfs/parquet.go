package localfs

import (
	"fmt"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

// communityReportRow is the column layout of community_reports.parquet.
type communityReportRow struct {
	CommunityID int64   `parquet:"community_id"`
	Title       string  `parquet:"title"`
	Summary     string  `parquet:"summary"`
	NumEntities int64   `parquet:"num_entities"`
	Rank        float64 `parquet:"rank"`
	Level       int64   `parquet:"level"`
}

func readCommunityReports(path string) ([]domain.CommunityReport, error) {
	rows, err := parquet.ReadFile[communityReportRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	reports := make([]domain.CommunityReport, 0, len(rows))
	for _, row := range rows {
		reports = append(reports, domain.CommunityReport{
			CommunityID: strconv.FormatInt(row.CommunityID, 10),
			Title:       row.Title,
			Summary:     row.Summary,
			NumEntities: int(row.NumEntities),
			Rank:        row.Rank,
			Level:       int(row.Level),
		})
	}
	return reports, nil
}

// WriteCommunityReports writes reports in the parquet layout read by the
// fallback path. Non-numeric community ids are rejected.
func WriteCommunityReports(path string, reports []domain.CommunityReport) error {
	rows := make([]communityReportRow, 0, len(reports))
	for _, r := range reports {
		id, err := strconv.ParseInt(r.CommunityID, 10, 64)
		if err != nil {
			return fmt.Errorf("community id %q: %w", r.CommunityID, err)
		}
		rows = append(rows, communityReportRow{
			CommunityID: id,
			Title:       r.Title,
			Summary:     r.Summary,
			NumEntities: int64(r.NumEntities),
			Rank:        r.Rank,
			Level:       int64(r.Level),
		})
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("write parquet %s: %w", path, err)
	}
	return nil
}
