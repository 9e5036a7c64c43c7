package metrics

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const summarySheet = "Summary"

var (
	metricHeader  = []string{"Recorded At", "Value", "Unit", "Note"}
	summaryHeader = []string{"Metric", "Count", "Latest", "Average", "Min", "Max", "Unit"}
)

// Export writes an xlsx workbook: a summary sheet, then one sheet per
// recorded metric type with its rows and a line chart of value over time.
func (s *Service) Export(ctx context.Context, userID uuid.UUID, r TimeRange, w io.Writer) error {
	items, err := s.Query(ctx, userID, "", r)
	if err != nil {
		return err
	}
	groups, order := byType(items)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := writeHeader(f, summarySheet, summaryHeader, headerStyle); err != nil {
		return err
	}
	if err := f.SetCellValue(summarySheet, "I1", "Range: "+formatRange(r)); err != nil {
		return err
	}
	for i, t := range order {
		sum := summarize(t, groups[t], r)
		row := []interface{}{string(t), sum.Count, *sum.Latest, *sum.Average, *sum.Min, *sum.Max, sum.Unit}
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 26); err != nil {
		return err
	}

	for _, t := range order {
		if err := writeMetricSheet(f, t, groups[t], headerStyle); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	s.logger.Info().Str("user_id", userID.String()).Int("rows", len(items)).Int("sheets", len(order)+1).Msg("metrics exported")
	return nil
}

func writeHeader(f *excelize.File, sheet string, header []string, style int) error {
	for col, h := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("set header style: %w", err)
		}
	}
	return nil
}

func writeMetricSheet(f *excelize.File, t MetricType, items []*HealthMetric, headerStyle int) error {
	sheet := string(t)
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}
	if err := writeHeader(f, sheet, metricHeader, headerStyle); err != nil {
		return err
	}

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 22})
	if err != nil {
		return err
	}
	for i, m := range items {
		note := ""
		if m.Note != nil {
			note = *m.Note
		}
		row := []interface{}{m.RecordedAt.UTC(), m.Value, m.Unit, note}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row: %w", sheet, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, dateStyle); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheet, "A", "A", 20); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "D", "D", 40); err != nil {
		return err
	}

	last := len(items) + 1
	return f.AddChart(sheet, "F2", &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("%s!$B$1", sheet),
			Categories: fmt.Sprintf("%s!$A$2:$A$%d", sheet, last),
			Values:     fmt.Sprintf("%s!$B$2:$B$%d", sheet, last),
		}},
		Title:  []excelize.RichTextRun{{Text: chartTitle(t, items)}},
		Legend: excelize.ChartLegend{Position: "none"},
	})
}

func chartTitle(t MetricType, items []*HealthMetric) string {
	title := strings.ReplaceAll(string(t), "_", " ")
	title = strings.ToUpper(title[:1]) + title[1:]
	if len(items) > 0 {
		title += " (" + items[0].Unit + ")"
	}
	return title
}
