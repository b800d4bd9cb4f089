package models

import (
	"context"
	"errors"
)

// ErrEngineUnavailable marks an OCR engine that is not installed or not
// reachable. Engines wrap it so the adapter can classify the outcome.
var ErrEngineUnavailable = errors.New("ocr engine unavailable")

// PageImage is one rasterized document page, PNG-encoded.
type PageImage struct {
	Document string
	Page     int // 1-based
	PNG      []byte
}

// OCREngine is the capability every OCR integration implements. Given one
// rasterized page it returns the recognized text as a single flat string.
// Never call a specific engine directly from the pipeline — always go
// through the adapter and fallback selector.
type OCREngine interface {
	Recognize(ctx context.Context, page PageImage) (string, error)
	Name() string
}

// Outcome classifies one adapter-level recognition attempt.
type Outcome string

const (
	// OutcomeOK means the engine produced usable text.
	OutcomeOK Outcome = "ok"
	// OutcomeUnavailable means the engine is not installed or not reachable.
	OutcomeUnavailable Outcome = "unavailable"
	// OutcomeDegraded means the engine responded but produced implausibly
	// little text.
	OutcomeDegraded Outcome = "degraded"
	// OutcomeError means the engine raised a runtime fault.
	OutcomeError Outcome = "error"
)

// Recognition is the result of recognizing one page through an adapter.
type Recognition struct {
	Text    string
	Backend string
	Outcome Outcome
	Err     error
}
