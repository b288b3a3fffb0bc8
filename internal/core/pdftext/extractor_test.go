package pdftext

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ddr-generator/constants"
	"github.com/joseph-ayodele/ddr-generator/internal/common"
)

type stubInspector struct {
	structure Structure
	err       error
	calls     int
}

func (s *stubInspector) Inspect(ctx context.Context, path string) (Structure, error) {
	s.calls++
	return s.structure, s.err
}

type stubReader struct {
	pages []string
	err   error
	calls int
}

func (s *stubReader) ReadPages(ctx context.Context, path string) ([]string, error) {
	s.calls++
	return s.pages, s.err
}

func writePDF(t *testing.T, body []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, body, 0o644))
	return path
}

func TestExtractEmptyFileHasNoTextLayer(t *testing.T) {
	inspector := &stubInspector{}
	reader := &stubReader{}
	e := NewExtractor(nil, WithInspector(inspector), WithPageReader(reader))

	_, err := e.Extract(context.Background(), writePDF(t, nil), constants.SourceInspection)

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNoTextLayer)
	assert.Zero(t, inspector.calls, "empty files never reach the parser")
	assert.Zero(t, reader.calls)
}

func TestExtractEmptyFileWithDefaultParsers(t *testing.T) {
	_, err := NewExtractor(nil).Extract(context.Background(), writePDF(t, []byte{}), constants.SourceThermal)
	assert.ErrorIs(t, err, common.ErrNoTextLayer)
}

func TestExtractGarbageIsUnreadable(t *testing.T) {
	path := writePDF(t, []byte("this is definitely not a pdf document"))
	_, err := NewExtractor(nil).Extract(context.Background(), path, constants.SourceInspection)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnreadablePDF)
}

func TestExtractMissingFileIsUnreadable(t *testing.T) {
	_, err := NewExtractor(nil).Extract(context.Background(), filepath.Join(t.TempDir(), "gone.pdf"), constants.SourceInspection)
	assert.ErrorIs(t, err, common.ErrUnreadablePDF)
}

func TestExtractInspectorFailure(t *testing.T) {
	e := NewExtractor(nil,
		WithInspector(&stubInspector{err: errors.New("xref broken")}),
		WithPageReader(&stubReader{pages: []string{"text"}}),
	)
	_, err := e.Extract(context.Background(), writePDF(t, []byte("%PDF-1.4")), constants.SourceInspection)
	assert.ErrorIs(t, err, common.ErrUnreadablePDF)
	assert.Contains(t, err.Error(), "xref broken")
}

func TestExtractImageOnly(t *testing.T) {
	e := NewExtractor(nil,
		WithInspector(&stubInspector{structure: Structure{PageCount: 2, HasImages: true}}),
		WithPageReader(&stubReader{pages: []string{"", "  \n\t "}}),
	)
	_, err := e.Extract(context.Background(), writePDF(t, []byte("%PDF-1.4")), constants.SourceThermal)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNoTextLayer)
	assert.Contains(t, err.Error(), "image-only")
}

func TestExtractBlankPagesWithoutImages(t *testing.T) {
	e := NewExtractor(nil,
		WithInspector(&stubInspector{structure: Structure{PageCount: 1}}),
		WithPageReader(&stubReader{pages: []string{""}}),
	)
	_, err := e.Extract(context.Background(), writePDF(t, []byte("%PDF-1.4")), constants.SourceThermal)
	assert.ErrorIs(t, err, common.ErrNoTextLayer)
	assert.Contains(t, err.Error(), "every page is empty")
}

func TestExtractBuildsPageMarkedText(t *testing.T) {
	e := NewExtractor(nil,
		WithInspector(&stubInspector{structure: Structure{PageCount: 3}}),
		WithPageReader(&stubReader{pages: []string{"Roof:\tmoderate   leak\r\n", "", "Attic: high moisture"}}),
	)
	path := writePDF(t, []byte("%PDF-1.4"))

	doc, err := e.Extract(context.Background(), path, constants.SourceInspection)
	require.NoError(t, err)

	assert.Equal(t, path, doc.Path)
	assert.Equal(t, constants.SourceInspection, doc.Kind)
	assert.Equal(t, 3, doc.PageCount())
	assert.Equal(t, []string{"Roof: moderate leak", "", "Attic: high moisture"}, doc.Pages)
	assert.Equal(t, "--- Page 1 ---\nRoof: moderate leak\n\n--- Page 3 ---\nAttic: high moisture", doc.Text)
}

func TestExtractReaderErrorHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := NewExtractor(nil,
		WithInspector(&stubInspector{}),
		WithPageReader(&stubReader{err: context.Canceled}),
	)
	_, err := e.Extract(ctx, writePDF(t, []byte("%PDF-1.4")), constants.SourceInspection)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, common.ErrUnreadablePDF)
}

// textPDF lays out one line of Helvetica per page.
func textPDF(t *testing.T, lines ...string) string {
	t.Helper()
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCompression(false)
	doc.SetFont("Helvetica", "", 12)
	for _, line := range lines {
		doc.AddPage()
		doc.Cell(0, 10, line)
	}
	path := filepath.Join(t.TempDir(), "inspection.pdf")
	require.NoError(t, doc.OutputFileAndClose(path))
	return path
}

func TestExtractTextPDFWithDefaultParsers(t *testing.T) {
	path := textPDF(t, "Roof moderate leak", "Attic high moisture")

	doc, err := NewExtractor(nil).Extract(context.Background(), path, constants.SourceInspection)
	require.NoError(t, err)

	assert.Equal(t, 2, doc.PageCount())
	assert.Contains(t, doc.Pages[0], "Roof moderate leak")
	assert.Contains(t, doc.Pages[1], "Attic high moisture")
	assert.Contains(t, doc.Text, "--- Page 1 ---")
	assert.Contains(t, doc.Text, "--- Page 2 ---")
	assert.Less(t, strings.Index(doc.Text, "Roof"), strings.Index(doc.Text, "Attic"))
}

func TestInspectTextPDFHasNoImages(t *testing.T) {
	got, err := pdfcpuInspector{}.Inspect(context.Background(), textPDF(t, "Hallway hairline crack"))
	require.NoError(t, err)
	assert.Equal(t, Structure{PageCount: 1}, got)
}
