// Package match compares normalized tokens against the master parts table
// and proposes ranked candidates for operator-corrected tokens.
package match

import (
	"errors"

	"github.com/mkurosawa/partscan/internal/token"
	"github.com/mkurosawa/partscan/pkg/models"
)

// ErrEmptyIndex means the master table contained no usable rows.
var ErrEmptyIndex = errors.New("master table has no usable rows")

// Index holds the per-job lookup structures over the master table. It is
// built once at job start and immutable afterwards, so it is safe to share
// between the runner goroutine and retry calls.
//
// Normalized collisions across master rows are resolved by load order: the
// first-loaded row wins. This is deliberate, documented behavior.
type Index struct {
	rows      []models.MasterRecord
	primary   map[string]int // normalized part number -> row index
	secondary map[string]int // normalized spec attribute -> row index
	keys      []string       // normalized primary keys, load order, unique
}

// NewIndex builds an Index from already-parsed master rows. Rows whose part
// number normalizes to the empty sentinel are skipped; an index with no
// usable rows is an input error.
func NewIndex(rows []models.MasterRecord) (*Index, error) {
	idx := &Index{
		rows:      rows,
		primary:   make(map[string]int, len(rows)),
		secondary: make(map[string]int, len(rows)),
	}
	for i, row := range rows {
		key := token.Normalize(row.PartNo)
		if key == "" {
			continue
		}
		if _, seen := idx.primary[key]; !seen {
			idx.primary[key] = i
			idx.keys = append(idx.keys, key)
		}
		if sec := token.Normalize(row.Spec); sec != "" {
			if _, seen := idx.secondary[sec]; !seen {
				idx.secondary[sec] = i
			}
		}
	}
	if len(idx.primary) == 0 {
		return nil, ErrEmptyIndex
	}
	return idx, nil
}

// Len returns the number of master rows the index was built from.
func (idx *Index) Len() int { return len(idx.rows) }

func (idx *Index) row(i int) models.MasterRecord { return idx.rows[i] }
