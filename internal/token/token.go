// Package token canonicalizes raw OCR text fragments into comparable
// identifier tokens and extracts identifier-shaped candidates from OCR
// text blocks.
package token

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

// DefaultMinLength is the threshold below which a normalized fragment is
// considered noise rather than an identifier.
const DefaultMinLength = 3

// DefaultMaxLength bounds extracted candidates; OCR occasionally glues whole
// table rows into one run.
const DefaultMaxLength = 32

// DefaultSeparators are the separator characters recognized inside
// identifiers before canonicalization.
const DefaultSeparators = "-/._"

// Normalization regexes compiled once at package init.
var (
	reSeparatorRun = regexp.MustCompile(`[-/._]+`)
	reDisallowed   = regexp.MustCompile(`[^A-Z0-9\-/._]`)
	reHasDigit     = regexp.MustCompile(`[0-9]`)
)

// Dash variants that width folding does not map to an ASCII hyphen.
var dashes = strings.NewReplacer("–", "-", "—", "-", "−", "-")

// Words that pass the identifier shape filter but are drawing-frame noise,
// not part numbers.
var noiseWords = map[string]struct{}{
	"SCALE": {}, "DATE": {}, "PAGE": {}, "SIZE": {}, "ISO": {}, "DIN": {},
	"MM": {}, "KG": {}, "LOT": {}, "MODEL": {}, "CODE": {}, "FAX": {}, "TEL": {},
}

// Normalize canonicalizes a raw OCR fragment: full-width characters are
// folded to half-width, ASCII letters uppercased, whitespace stripped,
// separator runs collapsed to a single hyphen and everything outside the
// alphanumeric-plus-hyphen allow-list dropped. Unrecognizable or too-short
// input normalizes to the empty sentinel, which the matcher treats as
// unmatchable. Normalize is pure, total and idempotent.
func Normalize(raw string) string {
	return normalize(raw, DefaultMinLength)
}

func normalize(raw string, minLen int) string {
	if raw == "" {
		return ""
	}
	s := width.Fold.String(raw)
	s = dashes.Replace(s)
	s = strings.ToUpper(s)
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, s)
	s = reDisallowed.ReplaceAllString(s, "")
	s = reSeparatorRun.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) < minLen {
		return ""
	}
	return s
}

// Config controls candidate extraction from OCR text blocks.
type Config struct {
	MinLength  int
	MaxLength  int
	Separators string
}

// Extractor pulls identifier-shaped candidates out of a flat OCR text block.
type Extractor struct {
	cfg     Config
	pattern *regexp.Regexp
}

// NewExtractor builds an Extractor from cfg, applying defaults for zero
// values.
func NewExtractor(cfg Config) *Extractor {
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultMinLength
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = DefaultMaxLength
	}
	if cfg.Separators == "" {
		cfg.Separators = DefaultSeparators
	}
	// Leading character is strictly alphanumeric; the tail admits the
	// configured separators. Runs are matched unbounded and over-long ones
	// rejected whole in Extract: capping the quantifier here would chop a
	// glued table row into max-length fragments that can spuriously match.
	tail := `[A-Z0-9` + regexp.QuoteMeta(cfg.Separators) + `]`
	pattern := regexp.MustCompile(fmt.Sprintf(`[A-Z0-9]%s{%d,}`,
		tail, cfg.MinLength-1))
	return &Extractor{cfg: cfg, pattern: pattern}
}

// Extract returns identifier candidates from text in appearance order.
// Candidates must contain at least one digit and must not be a known noise
// word; runs longer than MaxLength are dropped whole, never split.
// Occurrences are not deduplicated: each hit is a distinct observation.
func (e *Extractor) Extract(text string) []string {
	if text == "" {
		return nil
	}
	cleaned := width.Fold.String(text)
	cleaned = dashes.Replace(cleaned)
	cleaned = strings.ToUpper(cleaned)

	var out []string
	for _, cand := range e.pattern.FindAllString(cleaned, -1) {
		// Candidates are ASCII after folding, so len counts characters.
		if len(cand) > e.cfg.MaxLength {
			continue
		}
		if !reHasDigit.MatchString(cand) {
			continue
		}
		if _, noisy := noiseWords[strings.Trim(cand, e.cfg.Separators)]; noisy {
			continue
		}
		if normalize(cand, e.cfg.MinLength) == "" {
			continue
		}
		out = append(out, cand)
	}
	return out
}
