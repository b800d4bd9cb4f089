package models

// Token is one identifier-like fragment observed in OCR output. The
// normalized form is derived once at creation and never mutated. Multiple
// raw forms may normalize to the same value; occurrences are kept distinct.
type Token struct {
	Raw        string `json:"raw"`
	Normalized string `json:"normalized"`
	Document   string `json:"document"`
	Page       int    `json:"page"`
}

// MatchKind classifies the outcome of matching one token.
type MatchKind string

const (
	// MatchExact means the token equals a master record's part number.
	MatchExact MatchKind = "exact"
	// MatchPartial means the token equals a master record's spec attribute.
	MatchPartial MatchKind = "partial"
	// MatchNone means no master record matched. Not an error: these make up
	// the job's failure list.
	MatchNone MatchKind = "none"
)

// MatchResult is produced exactly once per token and is immutable thereafter.
type MatchResult struct {
	Token  Token     `json:"token"`
	Kind   MatchKind `json:"match_kind"`
	PartNo string    `json:"matched_part_no,omitempty"`
	Spec   string    `json:"spec,omitempty"`
	Stock  string    `json:"stock,omitempty"`
}
