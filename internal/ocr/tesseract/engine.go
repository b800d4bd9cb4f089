// Package tesseract implements the local OCR engine on top of gosseract.
package tesseract

import (
	"context"
	"fmt"

	gosseract "github.com/otiai10/gosseract/v2"

	"github.com/mkurosawa/partscan/internal/config"
	"github.com/mkurosawa/partscan/pkg/models"
)

// Engine runs recognition in-process through the tesseract C library.
type Engine struct {
	cfg config.TesseractConfig
}

func NewEngine(cfg config.TesseractConfig) *Engine {
	return &Engine{cfg: cfg}
}

func (e *Engine) Name() string { return "tesseract" }

// Recognize feeds one PNG page to tesseract. Missing language data is an
// installation problem, reported as unavailable so the fallback policy can
// escalate. The cgo call itself cannot be cancelled mid-page; the context
// is honored between calls only.
func (e *Engine) Recognize(ctx context.Context, page models.PageImage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if e.cfg.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(e.cfg.TessdataPrefix); err != nil {
			return "", fmt.Errorf("%w: tessdata prefix %q: %v",
				models.ErrEngineUnavailable, e.cfg.TessdataPrefix, err)
		}
	}
	if len(e.cfg.Languages) > 0 {
		if err := client.SetLanguage(e.cfg.Languages...); err != nil {
			return "", fmt.Errorf("%w: languages %v: %v",
				models.ErrEngineUnavailable, e.cfg.Languages, err)
		}
	}

	if err := client.SetImageFromBytes(page.PNG); err != nil {
		return "", fmt.Errorf("setting page image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract recognition: %w", err)
	}
	return text, nil
}

var _ models.OCREngine = (*Engine)(nil)
