package pdftext

import (
	"context"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Structure is what the parser learned about a file before any text is read.
type Structure struct {
	PageCount int
	HasImages bool
}

// Inspector parses a PDF and reports its structure. A parse failure means the file is unreadable.
type Inspector interface {
	Inspect(ctx context.Context, path string) (Structure, error)
}

// PageReader returns the raw text of each page, in page order. Pages without text yield "".
type PageReader interface {
	ReadPages(ctx context.Context, path string) ([]string, error)
}

type pdfcpuInspector struct{}

func (pdfcpuInspector) Inspect(ctx context.Context, path string) (Structure, error) {
	if err := ctx.Err(); err != nil {
		return Structure{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return Structure{}, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return Structure{}, fmt.Errorf("pdfcpu read: %w", err)
	}
	return Structure{PageCount: pctx.PageCount, HasImages: hasImageStreams(pctx)}, nil
}

// hasImageStreams checks page resources first, then falls back to scanning the xref table.
func hasImageStreams(pctx *model.Context) bool {
	if pctx.Optimize != nil {
		for pageNr := 1; pageNr <= pctx.PageCount; pageNr++ {
			if len(pdfcpu.ImageObjNrs(pctx, pageNr)) > 0 {
				return true
			}
		}
	}
	for _, entry := range pctx.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if subtype, found := sd.Find("Subtype"); found {
			if name, isName := subtype.(types.Name); isName && name == "Image" {
				return true
			}
		}
	}
	return false
}

type plainTextReader struct{}

func (plainTextReader) ReadPages(ctx context.Context, path string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdf text reader panicked: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			// one broken content stream should not hide the other pages
			pages = append(pages, "")
			continue
		}
		pages = append(pages, txt)
	}
	return pages, nil
}
