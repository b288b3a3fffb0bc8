package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ddr-generator/constants"
	"github.com/joseph-ayodele/ddr-generator/internal/common"
	"github.com/joseph-ayodele/ddr-generator/internal/entity"
)

func sampleReport() *entity.DdrReport {
	roof := entity.Finding{Area: "Roof", Description: "moderate leak", Severity: constants.SeverityModerate, Source: constants.SourceInspection}
	wallI := entity.Finding{Area: "Wall", Description: "low severity crack", Severity: constants.SeverityLow, Source: constants.SourceInspection}
	wallT := entity.Finding{Area: "Wall", Description: "high severity thermal anomaly", Severity: constants.SeverityHigh, Source: constants.SourceThermal}
	return &entity.DdrReport{
		Title:   "Detailed Diagnostic Report (DDR)",
		Summary: "The property shows moisture related defects in the roof and wall.\n\nNo structural failure is indicated.",
		Observations: []entity.AreaObservation{
			{Area: "Roof", InspectionFindings: []string{"moderate leak"}, Analysis: "Leak at the ridge."},
			{Area: "Wall", InspectionFindings: []string{"low severity crack"}, ThermalFindings: []string{"high severity thermal anomaly"}},
		},
		RootCause:       "Root cause not explicitly specified in the provided documents.",
		Severity:        []entity.SeverityEntry{{Area: "Roof", Severity: constants.SeverityModerate, Reasoning: "Visible leak."}},
		Actions:         []string{"Repair roof membrane", "Verify wall on site"},
		AdditionalNotes: []string{"Document-based assessment – no site visit."},
		MissingInfo:     []string{"Roof age"},
		GeneratedAt:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		InspectionFile:  "/in/inspection.pdf",
		ThermalFile:     "/in/thermal.pdf",
		Merged: entity.MergedFindingSet{
			Unified:   []entity.UnifiedFinding{{Area: "Roof", Tag: constants.TagInspectionOnly, Severity: constants.SeverityModerate, Description: "moderate leak", Members: []entity.Finding{roof}}},
			Conflicts: []entity.Conflict{{Area: "Wall", Reason: "severity differs", Inspection: []entity.Finding{wallI}, Thermal: []entity.Finding{wallT}}},
			Gaps:      []entity.Gap{{Area: "Roof", ReportedBy: constants.SourceInspection, Note: "Roof reported only by inspection"}},
		},
	}
}

func tempFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			out = append(out, e.Name())
		}
	}
	return out
}

func TestRenderWritesValidPDF(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "output")
	out := filepath.Join(dir, "DDR_test.pdf")

	err := NewRenderer(nil).Render(context.Background(), sampleReport(), out)
	require.NoError(t, err)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(500))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pctx, err := api.ReadValidateAndOptimize(f, conf)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pctx.PageCount, 2)

	assert.Empty(t, tempFiles(t, dir))
}

func TestRenderEmptyReport(t *testing.T) {
	out := filepath.Join(t.TempDir(), "empty.pdf")
	err := NewRenderer(nil).Render(context.Background(), &entity.DdrReport{Title: "Detailed Diagnostic Report (DDR)"}, out)
	require.NoError(t, err)
	assert.FileExists(t, out)
}

func TestRenderUnwritableDirectory(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	out := filepath.Join(blocker, "DDR.pdf")
	err := NewRenderer(nil).Render(context.Background(), sampleReport(), out)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrRender)
	assert.NoFileExists(t, out)
}

func TestRenderCancelledLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "DDR.pdf")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewRenderer(nil).Render(ctx, sampleReport(), out)
	require.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, out)
	assert.Empty(t, tempFiles(t, dir))
}
