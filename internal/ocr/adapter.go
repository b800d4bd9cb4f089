// Package ocr wraps the OCR engine variants behind a uniform adapter and
// implements the sticky fallback policy that escalates between them.
package ocr

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mkurosawa/partscan/pkg/models"
)

// DefaultMinTextChars is the degraded-output threshold: an engine that
// returns fewer trimmed characters than this for a page did not really read
// it.
const DefaultMinTextChars = 20

// Adapter wraps a single OCR engine, bounds its runtime and classifies the
// result into an outcome. The adapter never retries; escalation between
// backends is the Selector's job.
type Adapter struct {
	engine       models.OCREngine
	minTextChars int
	timeout      time.Duration
}

// NewAdapter wraps engine. A zero minTextChars falls back to
// DefaultMinTextChars; a zero timeout disables the per-call bound.
func NewAdapter(engine models.OCREngine, minTextChars int, timeout time.Duration) *Adapter {
	if minTextChars <= 0 {
		minTextChars = DefaultMinTextChars
	}
	return &Adapter{engine: engine, minTextChars: minTextChars, timeout: timeout}
}

// Name returns the wrapped engine's backend name.
func (a *Adapter) Name() string { return a.engine.Name() }

// Recognize runs one page through the engine and classifies the outcome.
// A deadline expiry counts as unavailable: a hung backend is
// indistinguishable from a missing one.
func (a *Adapter) Recognize(ctx context.Context, page models.PageImage) models.Recognition {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	text, err := a.engine.Recognize(ctx, page)
	rec := models.Recognition{Text: text, Backend: a.engine.Name(), Err: err}

	switch {
	case errors.Is(err, models.ErrEngineUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		rec.Outcome = models.OutcomeUnavailable
	case err != nil:
		rec.Outcome = models.OutcomeError
	// Character count, not bytes: a page of kanji is three bytes per rune.
	case utf8.RuneCountInString(strings.TrimSpace(text)) < a.minTextChars:
		rec.Outcome = models.OutcomeDegraded
	default:
		rec.Outcome = models.OutcomeOK
	}
	return rec
}
