package pdftext

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joseph-ayodele/ddr-generator/constants"
	"github.com/joseph-ayodele/ddr-generator/internal/common"
	"github.com/joseph-ayodele/ddr-generator/internal/entity"
)

// Extractor turns a PDF on disk into a SourceDocument with per-page text.
type Extractor struct {
	inspector Inspector
	reader    PageReader
	logger    *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithInspector replaces the structural parser.
func WithInspector(i Inspector) Option {
	return func(e *Extractor) { e.inspector = i }
}

// WithPageReader replaces the page text reader.
func WithPageReader(r PageReader) Option {
	return func(e *Extractor) { e.reader = r }
}

func NewExtractor(logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{
		inspector: pdfcpuInspector{},
		reader:    plainTextReader{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads every page of path. It returns an UnreadablePDF error when the file
// cannot be parsed and a NoTextLayer error when no page carries text.
func (e *Extractor) Extract(ctx context.Context, path string, kind constants.SourceKind) (*entity.SourceDocument, error) {
	start := time.Now()
	logger := common.LoggerFromContext(ctx, e.logger).With("path", path, "source", string(kind))
	logger.Debug("pdftext.extract.start")

	info, err := os.Stat(path)
	if err != nil {
		return nil, common.NewUnreadablePDFError(path, err)
	}
	if info.Size() == 0 {
		logger.Warn("pdftext.extract.empty_file")
		return nil, common.NewNoTextLayerError(path, "file is empty")
	}

	structure, err := e.inspector.Inspect(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Error("pdftext.extract.unreadable", "error", err)
		return nil, common.NewUnreadablePDFError(path, err)
	}

	raw, err := e.reader.ReadPages(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Error("pdftext.extract.read_failed", "error", err)
		return nil, common.NewUnreadablePDFError(path, err)
	}

	pages := make([]string, len(raw))
	var b strings.Builder
	textPages := 0
	for i, p := range raw {
		pages[i] = Normalize(p)
		if pages[i] == "" {
			continue
		}
		textPages++
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(fmt.Sprintf(constants.PageMarkerFormat, i+1))
		b.WriteString("\n")
		b.WriteString(pages[i])
	}

	if textPages == 0 {
		detail := "every page is empty"
		if structure.HasImages {
			detail = "image-only document, scanned PDFs are not supported"
		}
		logger.Warn("pdftext.extract.no_text", "pages", len(raw), "has_images", structure.HasImages)
		return nil, common.NewNoTextLayerError(path, detail)
	}

	logger.Info("pdftext.extract.ok",
		"pages", len(pages),
		"text_pages", textPages,
		"chars", b.Len(),
		"has_images", structure.HasImages,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &entity.SourceDocument{
		Path:  path,
		Kind:  kind,
		Pages: pages,
		Text:  b.String(),
	}, nil
}
