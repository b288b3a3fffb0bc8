// Package export writes the merged findings of a report as an XLSX workbook.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/ddr-generator/internal/entity"
)

// Sheet names in workbook order.
const (
	SheetUnified   = "Unified"
	SheetConflicts = "Conflicts"
	SheetGaps      = "Gaps"
	SheetSeverity  = "Severity"
)

const maxCellText = 500

// WorkbookExporter turns a report into a workbook file.
type WorkbookExporter struct {
	logger *slog.Logger
}

func NewWorkbookExporter(logger *slog.Logger) *WorkbookExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookExporter{logger: logger}
}

// Export writes the workbook for rep to outPath through a temp file in the same directory.
func (e *WorkbookExporter) Export(ctx context.Context, rep *entity.DdrReport, outPath string) error {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := e.Build(rep)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".ddr-*.xlsx.tmp")
	if err != nil {
		return fmt.Errorf("xlsx temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("xlsx write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("xlsx close: %w", err)
	}
	if err := ctx.Err(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("xlsx rename: %w", err)
	}

	e.logger.Info("export.xlsx.ok",
		"path", outPath,
		"unified", len(rep.Merged.Unified),
		"conflicts", len(rep.Merged.Conflicts),
		"gaps", len(rep.Merged.Gaps),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Build returns the workbook bytes for rep.
func (e *WorkbookExporter) Build(rep *entity.DdrReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetUnified); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	for _, name := range []string{SheetConflicts, SheetGaps, SheetSeverity} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("xlsx sheet: %w", err)
		}
	}
	f.SetActiveSheet(0)

	m := rep.Merged

	unified := table{f: f, sheet: SheetUnified}
	unified.header("Area", "Sources", "Severity", "Description", "Findings")
	for _, u := range m.Unified {
		unified.row(u.Area, string(u.Tag), string(u.Severity), truncate(u.Description, maxCellText), len(u.Members))
	}
	unified.widths(map[string]float64{"A": 24, "B": 16, "C": 12, "D": 80, "E": 10})

	conflicts := table{f: f, sheet: SheetConflicts}
	conflicts.header("Area", "Reason", "Inspection", "Thermal")
	for _, c := range m.Conflicts {
		conflicts.row(c.Area, c.Reason, describe(c.Inspection), describe(c.Thermal))
	}
	conflicts.widths(map[string]float64{"A": 24, "B": 40, "C": 60, "D": 60})

	gaps := table{f: f, sheet: SheetGaps}
	gaps.header("Area", "Reported By", "Note")
	for _, g := range m.Gaps {
		gaps.row(g.Area, g.ReportedBy.Label(), g.Note)
	}
	gaps.widths(map[string]float64{"A": 24, "B": 14, "C": 60})

	severity := table{f: f, sheet: SheetSeverity}
	severity.header("Area", "Severity", "Reasoning")
	for _, s := range rep.Severity {
		severity.row(s.Area, string(s.Severity), truncate(s.Reasoning, maxCellText))
	}
	severity.widths(map[string]float64{"A": 24, "B": 12, "C": 90})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

type table struct {
	f     *excelize.File
	sheet string
	next  int
}

func (t *table) header(cols ...string) {
	vals := make([]any, len(cols))
	for i, c := range cols {
		vals[i] = c
	}
	t.row(vals...)
	_ = t.f.SetPanes(t.sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func (t *table) row(vals ...any) {
	t.next++
	for i, v := range vals {
		cell, _ := excelize.CoordinatesToCellName(i+1, t.next)
		_ = t.f.SetCellValue(t.sheet, cell, v)
	}
}

func (t *table) widths(cols map[string]float64) {
	for col, w := range cols {
		_ = t.f.SetColWidth(t.sheet, col, col, w)
	}
}

func describe(fs []entity.Finding) string {
	parts := make([]string, 0, len(fs))
	for _, f := range fs {
		parts = append(parts, fmt.Sprintf("%s (%s)", f.Description, f.Severity))
	}
	return truncate(strings.Join(parts, "; "), maxCellText)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
