// Package raster renders scanned document pages to PNG images for OCR.
package raster

import (
	"context"
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// Document is one open document with renderable pages. Close releases the
// underlying native resources.
type Document interface {
	NumPages() int
	// Render rasterizes the 1-based page to PNG bytes.
	Render(ctx context.Context, page int) ([]byte, error)
	// Text returns the 1-based page's embedded text layer. Scanned-only
	// pages return an empty string, not an error.
	Text(page int) (string, error)
	Close() error
}

// Rasterizer opens documents for page rendering. The orchestrator depends
// on this interface so tests can run without the native mupdf library.
type Rasterizer interface {
	Open(path string) (Document, error)
}

// DefaultDPI matches the resolution the OCR engines were tuned against.
const DefaultDPI = 350

// FitzRasterizer renders PDF pages through go-fitz (mupdf).
type FitzRasterizer struct {
	dpi float64
}

func NewFitzRasterizer(dpi float64) *FitzRasterizer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &FitzRasterizer{dpi: dpi}
}

func (r *FitzRasterizer) Open(path string) (Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("opening document %s: %w", path, err)
	}
	return &fitzDocument{doc: doc, dpi: r.dpi}, nil
}

type fitzDocument struct {
	doc *fitz.Document
	dpi float64
}

func (d *fitzDocument) NumPages() int { return d.doc.NumPage() }

func (d *fitzDocument) Render(ctx context.Context, page int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if page < 1 || page > d.doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range 1..%d", page, d.doc.NumPage())
	}
	png, err := d.doc.ImagePNG(page-1, d.dpi)
	if err != nil {
		return nil, fmt.Errorf("rendering page %d: %w", page, err)
	}
	return png, nil
}

func (d *fitzDocument) Text(page int) (string, error) {
	if page < 1 || page > d.doc.NumPage() {
		return "", fmt.Errorf("page %d out of range 1..%d", page, d.doc.NumPage())
	}
	text, err := d.doc.Text(page - 1)
	if err != nil {
		return "", fmt.Errorf("extracting text from page %d: %w", page, err)
	}
	return text, nil
}

func (d *fitzDocument) Close() error { return d.doc.Close() }
