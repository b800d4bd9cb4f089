package ocr

import (
	"fmt"

	"github.com/mkurosawa/partscan/internal/config"
	"github.com/mkurosawa/partscan/internal/ocr/cli"
	"github.com/mkurosawa/partscan/internal/ocr/remote"
	"github.com/mkurosawa/partscan/internal/ocr/tesseract"
	"github.com/mkurosawa/partscan/pkg/models"
)

// NewEngine constructs the named OCR engine from config.
func NewEngine(name string, cfg config.OCRConfig) (models.OCREngine, error) {
	switch name {
	case "tesseract":
		return tesseract.NewEngine(cfg.Tesseract), nil
	case "remote":
		return remote.NewEngine(cfg.Remote, cfg.Timeout), nil
	case "cli":
		return cli.NewEngine(cfg.CLI), nil
	default:
		return nil, fmt.Errorf("%w %q: must be one of remote, tesseract, cli", ErrUnknownBackend, name)
	}
}

// BuildChain assembles the adapter chain for one job run: the requested
// backend first, then the configured alternates in priority order with the
// requested one removed.
func BuildChain(requested string, cfg config.OCRConfig) ([]*Adapter, error) {
	names := make([]string, 0, len(cfg.FallbackOrder)+1)
	names = append(names, requested)
	for _, name := range cfg.FallbackOrder {
		if name != requested {
			names = append(names, name)
		}
	}

	chain := make([]*Adapter, 0, len(names))
	for _, name := range names {
		engine, err := NewEngine(name, cfg)
		if err != nil {
			return nil, err
		}
		chain = append(chain, NewAdapter(engine, cfg.MinTextChars, cfg.Timeout))
	}
	return chain, nil
}
