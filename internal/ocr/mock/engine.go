// Package mock provides a configurable OCR engine for tests.
package mock

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkurosawa/partscan/pkg/models"
)

// Engine satisfies models.OCREngine for testing.
type Engine struct {
	Name_         string
	RecognizeFunc func(ctx context.Context, page models.PageImage) (string, error)
}

func (m *Engine) Name() string { return m.Name_ }

func (m *Engine) Recognize(ctx context.Context, page models.PageImage) (string, error) {
	if m.RecognizeFunc != nil {
		return m.RecognizeFunc(ctx, page)
	}
	return "", nil
}

// NewEngine returns an engine that recognizes every page as text.
func NewEngine(name, text string) *Engine {
	return &Engine{
		Name_: name,
		RecognizeFunc: func(_ context.Context, _ models.PageImage) (string, error) {
			return text, nil
		},
	}
}

// NewUnavailableEngine returns an engine that always reports itself missing.
func NewUnavailableEngine(name string) *Engine {
	return &Engine{
		Name_: name,
		RecognizeFunc: func(_ context.Context, _ models.PageImage) (string, error) {
			return "", fmt.Errorf("%w: %s is not installed", models.ErrEngineUnavailable, name)
		},
	}
}

// NewFailingEngine returns an engine that always returns the given error.
func NewFailingEngine(name string, err error) *Engine {
	return &Engine{
		Name_: name,
		RecognizeFunc: func(_ context.Context, _ models.PageImage) (string, error) {
			return "", err
		},
	}
}

// NewScriptedEngine returns an engine that answers page N with outputs[N],
// erroring on pages outside the script.
func NewScriptedEngine(name string, outputs map[int]string) *Engine {
	return &Engine{
		Name_: name,
		RecognizeFunc: func(_ context.Context, page models.PageImage) (string, error) {
			text, ok := outputs[page.Page]
			if !ok {
				return "", errors.New("no scripted output for page")
			}
			return text, nil
		},
	}
}

// Compile-time check that Engine implements OCREngine.
var _ models.OCREngine = (*Engine)(nil)
