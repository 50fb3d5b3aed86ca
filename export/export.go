// Package export renders reports for download. Both renderers are also
// registered as plugin.ReportExporter so the HTTP layer can look them up
// by format.
package export

import (
	"context"
	"encoding/json"
	"io"

	"github.com/xraph/auditledger/plugin"
	"github.com/xraph/auditledger/report"
)

// Compile-time interface checks
var (
	_ plugin.ReportExporter = JSONExporter{}
	_ plugin.ReportExporter = XLSXExporter{}
)

// JSON writes one report as indented JSON.
func JSON(w io.Writer, r *report.ServiceReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// JSONExporter renders a single report as an object and several as an
// array.
type JSONExporter struct{}

func (JSONExporter) Name() string        { return "export-json" }
func (JSONExporter) Format() string      { return "json" }
func (JSONExporter) ContentType() string { return "application/json" }

func (JSONExporter) Render(_ context.Context, w io.Writer, reports []*report.ServiceReport) error {
	if len(reports) == 1 {
		return JSON(w, reports[0])
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if reports == nil {
		reports = []*report.ServiceReport{}
	}
	return enc.Encode(reports)
}

// XLSXExporter renders reports as a workbook.
type XLSXExporter struct{}

func (XLSXExporter) Name() string   { return "export-xlsx" }
func (XLSXExporter) Format() string { return "xlsx" }
func (XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSXExporter) Render(_ context.Context, w io.Writer, reports []*report.ServiceReport) error {
	return XLSX(w, reports)
}
