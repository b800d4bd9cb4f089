package match

import "github.com/mkurosawa/partscan/pkg/models"

// Match compares one token against the master index. Exact part-number hits
// beat spec-attribute hits; both sides of the comparison are already width-
// and case-normalized. A token with the empty sentinel normalization is
// unmatchable and always yields MatchNone.
func Match(tok models.Token, idx *Index) models.MatchResult {
	res := models.MatchResult{Token: tok, Kind: models.MatchNone}
	if tok.Normalized == "" {
		return res
	}
	if i, ok := idx.primary[tok.Normalized]; ok {
		row := idx.row(i)
		res.Kind = models.MatchExact
		res.PartNo = row.PartNo
		res.Spec = row.Spec
		res.Stock = row.Stock
		return res
	}
	if i, ok := idx.secondary[tok.Normalized]; ok {
		row := idx.row(i)
		res.Kind = models.MatchPartial
		res.PartNo = row.PartNo
		res.Spec = row.Spec
		res.Stock = row.Stock
		return res
	}
	return res
}
