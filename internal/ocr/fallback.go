package ocr

import (
	"context"
	"log/slog"

	"github.com/mkurosawa/partscan/pkg/models"
)

// Selector drives the per-run fallback state machine over an adapter chain.
// A fallback decision is sticky: once a page escalates past a backend, no
// later page in the same run attempts that backend again. Not safe for
// concurrent use; each job run owns one Selector.
type Selector struct {
	chain         []*Adapter
	active        int
	lastUsed      string // last backend that produced usable text
	lastAttempted string
}

// NewSelector wraps an adapter chain built by BuildChain.
func NewSelector(chain []*Adapter) *Selector {
	return &Selector{chain: chain}
}

// Recognize runs one page through the active backend, escalating through
// the remaining alternates on any non-ok outcome. Returns ok=false only
// when every configured backend failed for this page; the returned
// Recognition then describes the last attempt.
func (s *Selector) Recognize(ctx context.Context, page models.PageImage) (models.Recognition, bool) {
	var last models.Recognition
	for i := s.active; i < len(s.chain); i++ {
		rec := s.chain[i].Recognize(ctx, page)
		s.lastAttempted = rec.Backend
		if rec.Outcome == models.OutcomeOK {
			if i != s.active {
				slog.Warn("ocr backend escalation is sticky for the rest of the run",
					"from", s.chain[s.active].Name(),
					"to", rec.Backend,
					"document", page.Document,
					"page", page.Page,
				)
			}
			s.active = i
			s.lastUsed = rec.Backend
			return rec, true
		}
		slog.Warn("ocr backend failed for page",
			"backend", rec.Backend,
			"outcome", string(rec.Outcome),
			"error", rec.Err,
			"document", page.Document,
			"page", page.Page,
		)
		last = rec
	}
	// Every backend is exhausted. Stick to the last alternate so later
	// pages still get one attempt instead of failing instantly.
	s.active = len(s.chain) - 1
	return last, false
}

// BackendUsed reports the last backend that produced usable text, or the
// last one attempted when nothing ever succeeded.
func (s *Selector) BackendUsed() string {
	if s.lastUsed != "" {
		return s.lastUsed
	}
	return s.lastAttempted
}
