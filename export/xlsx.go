package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/xraph/auditledger/report"
)

// Sheet names in the workbook written by XLSX.
const (
	SummarySheet  = "Summary"
	FindingsSheet = "Findings"
)

var (
	summaryHeader = []any{
		"Report ID", "Project", "Service", "Owner", "Grade", "Created",
		"Public", "Re-audit", "Parent", "Remaining Re-audits", "Findings", "Highest Severity", "Summary",
	}
	findingsHeader = []any{"Report ID", "Project", "#", "Severity", "Title", "Description", "Recommendation"}
)

// XLSX writes a workbook with one summary row per report and one findings
// row per finding.
func XLSX(w io.Writer, reports []*report.ServiceReport) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // in-memory workbook

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if _, err := f.NewSheet(FindingsSheet); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	if err := writeRow(f, SummarySheet, 1, summaryHeader); err != nil {
		return err
	}
	if err := writeRow(f, FindingsSheet, 1, findingsHeader); err != nil {
		return err
	}
	for _, sheet := range []string{SummarySheet, FindingsSheet} {
		if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}

	findingRow := 2
	for i, r := range reports {
		remaining := ""
		if n, ok := r.Remaining(); ok {
			remaining = fmt.Sprint(n)
		}
		parent := ""
		if !r.ParentID.IsNil() {
			parent = r.ParentID.String()
		}

		row := []any{
			r.ID.String(), r.ProjectName, string(r.ServiceType), r.UserID, r.Grade.String(),
			r.CreatedAt.UTC().Format(time.RFC3339), r.IsPublic, r.IsReaudit, parent, remaining,
			len(r.Findings), string(r.HighestSeverity()), r.Summary,
		}
		if err := writeRow(f, SummarySheet, i+2, row); err != nil {
			return err
		}

		for n, fd := range r.Findings {
			row := []any{r.ID.String(), r.ProjectName, n + 1, string(fd.Severity), fd.Title, fd.Description, fd.Recommendation}
			if err := writeRow(f, FindingsSheet, findingRow, row); err != nil {
				return err
			}
			findingRow++
		}
	}

	if err := f.SetColWidth(SummarySheet, "A", "B", 32); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := f.SetColWidth(FindingsSheet, "E", "G", 48); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("export: %s row %d: %w", sheet, row, err)
	}
	return nil
}
