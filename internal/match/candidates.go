package match

import (
	"fmt"
	"sort"

	"github.com/agext/levenshtein"

	"github.com/mkurosawa/partscan/internal/token"
)

const (
	// DefaultCandidateLimit caps how many candidate part numbers a retry
	// returns.
	DefaultCandidateLimit = 5
	// DefaultMaxEditDistance is the similarity threshold beyond which a
	// master row is not considered a plausible correction.
	DefaultMaxEditDistance = 3
)

// RankConfig tunes candidate ranking for operator-corrected tokens.
type RankConfig struct {
	Limit           int
	MaxEditDistance int
}

// Rank scores every master row against an operator-corrected token and
// returns up to Limit part numbers ordered by ascending edit distance over
// normalized forms, ties broken by master load order. Ranking is recomputed
// per call.
//
// An empty result with a non-empty reason is "no candidates", never an
// error: malformed input and no-row-within-threshold both land there.
func Rank(corrected string, idx *Index, cfg RankConfig) (ids []string, reason string) {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultCandidateLimit
	}
	if cfg.MaxEditDistance <= 0 {
		cfg.MaxEditDistance = DefaultMaxEditDistance
	}

	norm := token.Normalize(corrected)
	if norm == "" {
		return nil, fmt.Sprintf("corrected token %q is too short or contains no identifier characters", corrected)
	}

	type scored struct {
		order    int
		distance int
	}
	var hits []scored
	for order, key := range idx.keys {
		d := levenshtein.Distance(norm, key, nil)
		if d > cfg.MaxEditDistance {
			continue
		}
		hits = append(hits, scored{order: order, distance: d})
	}
	if len(hits) == 0 {
		return nil, fmt.Sprintf("no master record within edit distance %d of %q", cfg.MaxEditDistance, norm)
	}

	// Stable sort keeps load order on equal distances.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].distance < hits[j].distance })

	if len(hits) > cfg.Limit {
		hits = hits[:cfg.Limit]
	}
	ids = make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, idx.row(idx.primary[idx.keys[h.order]]).PartNo)
	}
	return ids, ""
}
