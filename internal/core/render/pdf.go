// Package render lays out a composed report as an A4 PDF.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/ddr-generator/constants"
	"github.com/joseph-ayodele/ddr-generator/internal/common"
	"github.com/joseph-ayodele/ddr-generator/internal/entity"
)

// Section headings in render order.
const (
	HeadingSummary      = "PROPERTY ISSUE SUMMARY"
	HeadingObservations = "AREA-WISE OBSERVATIONS"
	HeadingRootCause    = "PROBABLE ROOT CAUSE"
	HeadingSeverity     = "SEVERITY ASSESSMENT"
	HeadingActions      = "RECOMMENDED ACTIONS"
	HeadingNotes        = "ADDITIONAL NOTES"
	HeadingMissing      = "MISSING OR UNCLEAR INFORMATION"
	HeadingAppendix     = "APPENDIX: MERGED FINDINGS"
)

const (
	pageMargin = 18.0
	lineHeight = 5.5
	bodyFont   = "Helvetica"
)

// Renderer writes reports to disk.
type Renderer struct {
	logger *slog.Logger
}

func NewRenderer(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{logger: logger}
}

// Render writes rep to outPath. The file only appears at outPath once it is
// complete and valid and ctx is still live. Failures return a RenderError
// except when ctx ended, in which case ctx's error is returned.
func (r *Renderer) Render(ctx context.Context, rep *entity.DdrReport, outPath string) (err error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return common.NewRenderError(outPath, err)
	}
	tmp, err := os.CreateTemp(dir, ".ddr-*.pdf.tmp")
	if err != nil {
		return common.NewRenderError(outPath, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	pdf := layout(rep)
	if err := pdf.Output(tmp); err != nil {
		_ = tmp.Close()
		return common.NewRenderError(outPath, err)
	}
	if err := tmp.Close(); err != nil {
		return common.NewRenderError(outPath, err)
	}

	pages, err := validate(tmpPath)
	if err != nil {
		return common.NewRenderError(outPath, err)
	}

	if err := ctx.Err(); err != nil {
		r.logger.Warn("render.pdf.abandoned", "path", outPath, "error", err)
		return err
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return common.NewRenderError(outPath, err)
	}

	r.logger.Info("render.pdf.ok",
		"path", outPath,
		"pages", pages,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func validate(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return 0, fmt.Errorf("validate output: %w", err)
	}
	if pctx.PageCount < 1 {
		return 0, errors.New("validate output: no pages")
	}
	return pctx.PageCount, nil
}

type writer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func layout(rep *entity.DdrReport) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(rep.Title, true)
	pdf.SetCreator("ddr-generator", true)
	pdf.SetCreationDate(rep.GeneratedAt)
	pdf.SetModificationDate(rep.GeneratedAt)
	pdf.AliasNbPages("")

	w := &writer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(bodyFont, "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})
	pdf.AddPage()

	w.titleBlock(rep)

	w.heading(HeadingSummary)
	w.paragraph(rep.Summary)

	w.heading(HeadingObservations)
	if len(rep.Observations) == 0 {
		w.paragraph("No area-specific observations were reported.")
	}
	for _, o := range rep.Observations {
		w.subheading(o.Area)
		w.labelled("Inspection findings", listOrNone(o.InspectionFindings))
		w.labelled("Thermal findings", listOrNone(o.ThermalFindings))
		if o.Analysis != "" {
			w.labelled("Analysis", o.Analysis)
		}
	}

	w.heading(HeadingRootCause)
	w.paragraph(rep.RootCause)

	w.heading(HeadingSeverity)
	if len(rep.Severity) == 0 {
		w.paragraph("Not Available")
	}
	for _, s := range rep.Severity {
		w.subheading(fmt.Sprintf("%s: %s", s.Area, severityLabel(s.Severity)))
		w.paragraph(s.Reasoning)
	}

	w.heading(HeadingActions)
	w.bullets(rep.Actions)

	w.heading(HeadingNotes)
	w.bullets(rep.AdditionalNotes)

	w.heading(HeadingMissing)
	w.bullets(rep.MissingInfo)

	w.appendix(rep.Merged)
	return pdf
}

func (w *writer) titleBlock(rep *entity.DdrReport) {
	w.pdf.SetFont(bodyFont, "B", 18)
	w.pdf.MultiCell(0, 9, w.tr(rep.Title), "", "C", false)
	w.pdf.Ln(2)
	w.pdf.SetFont(bodyFont, "", 9)
	w.pdf.SetTextColor(80, 80, 80)
	meta := []string{
		"Inspection report: " + filepath.Base(rep.InspectionFile),
		"Thermal report: " + filepath.Base(rep.ThermalFile),
		"Generated: " + rep.GeneratedAt.Format("2006-01-02 15:04:05 MST"),
	}
	for _, line := range meta {
		w.pdf.CellFormat(0, 5, w.tr(line), "", 1, "C", false, 0, "")
	}
	w.pdf.SetTextColor(0, 0, 0)
	w.pdf.Ln(4)
}

func (w *writer) heading(text string) {
	w.pdf.Ln(3)
	w.pdf.SetFont(bodyFont, "B", 12)
	w.pdf.SetFillColor(230, 236, 242)
	w.pdf.CellFormat(0, 8, w.tr(text), "", 1, "L", true, 0, "")
	w.pdf.Ln(1.5)
}

func (w *writer) subheading(text string) {
	w.pdf.SetFont(bodyFont, "B", 10.5)
	w.pdf.MultiCell(0, lineHeight+0.5, w.tr(text), "", "L", false)
}

func (w *writer) paragraph(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		text = "Not Available"
	}
	w.pdf.SetFont(bodyFont, "", 10)
	w.pdf.MultiCell(0, lineHeight, w.tr(text), "", "L", false)
	w.pdf.Ln(1)
}

func (w *writer) labelled(label, text string) {
	w.pdf.SetFont(bodyFont, "B", 10)
	w.pdf.CellFormat(38, lineHeight, w.tr(label+":"), "", 0, "L", false, 0, "")
	w.pdf.SetFont(bodyFont, "", 10)
	w.pdf.MultiCell(0, lineHeight, w.tr(text), "", "L", false)
}

func (w *writer) bullets(items []string) {
	if len(items) == 0 {
		w.paragraph("")
		return
	}
	w.pdf.SetFont(bodyFont, "", 10)
	for _, item := range items {
		w.pdf.CellFormat(6, lineHeight, w.tr("-"), "", 0, "L", false, 0, "")
		w.pdf.MultiCell(0, lineHeight, w.tr(item), "", "L", false)
	}
	w.pdf.Ln(1)
}

func (w *writer) appendix(m entity.MergedFindingSet) {
	w.pdf.AddPage()
	w.heading(HeadingAppendix)

	w.subheading("Unified findings")
	if len(m.Unified) == 0 {
		w.paragraph("None")
	}
	for _, u := range m.Unified {
		w.labelled(u.Area, fmt.Sprintf("[%s, %s] %s", u.Tag, severityLabel(u.Severity), u.Description))
	}
	w.pdf.Ln(2)

	w.subheading("Conflicts")
	if len(m.Conflicts) == 0 {
		w.paragraph("None")
	}
	for _, c := range m.Conflicts {
		w.labelled(c.Area, c.Reason)
		for _, f := range c.Members() {
			w.labelled("  "+f.Source.Label(), fmt.Sprintf("%s (%s)", f.Description, severityLabel(f.Severity)))
		}
	}
	w.pdf.Ln(2)

	w.subheading("Gaps")
	notes := make([]string, 0, len(m.Gaps))
	for _, g := range m.Gaps {
		notes = append(notes, g.Note)
	}
	if len(notes) == 0 {
		w.paragraph("None")
		return
	}
	w.bullets(notes)
}

func severityLabel(s constants.Severity) string {
	if s == "" || s == constants.SeverityUnknown {
		return "Not Available"
	}
	return string(s)
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "None reported"
	}
	return strings.Join(items, "; ")
}
