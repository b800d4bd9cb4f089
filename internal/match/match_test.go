package match_test

import (
	"testing"

	"github.com/mkurosawa/partscan/internal/match"
	"github.com/mkurosawa/partscan/internal/token"
	"github.com/mkurosawa/partscan/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func masterRows() []models.MasterRecord {
	return []models.MasterRecord{
		{PartNo: "AB-1234", Spec: "X1", Stock: "100"},
		{PartNo: "AB-1236", Spec: "X2", Stock: "40"},
		{PartNo: "KZ-88/77", Spec: "Y10", Stock: "0"},
	}
}

func tok(raw string) models.Token {
	return models.Token{Raw: raw, Normalized: token.Normalize(raw), Document: "drawing.pdf", Page: 1}
}

func TestNewIndex_Empty(t *testing.T) {
	_, err := match.NewIndex(nil)
	assert.ErrorIs(t, err, match.ErrEmptyIndex)

	_, err = match.NewIndex([]models.MasterRecord{{PartNo: ""}, {PartNo: "--"}})
	assert.ErrorIs(t, err, match.ErrEmptyIndex)
}

func TestMatch_ExactOnEveryLoadedRow(t *testing.T) {
	rows := masterRows()
	idx, err := match.NewIndex(rows)
	require.NoError(t, err)

	for _, row := range rows {
		res := match.Match(tok(row.PartNo), idx)
		assert.Equal(t, models.MatchExact, res.Kind, "row %s", row.PartNo)
		assert.Equal(t, row.PartNo, res.PartNo)
		assert.Equal(t, row.Stock, res.Stock)
	}
}

func TestMatch_FullWidthToken(t *testing.T) {
	idx, err := match.NewIndex(masterRows())
	require.NoError(t, err)

	res := match.Match(tok("ＡＢ－１２３４"), idx)
	assert.Equal(t, models.MatchExact, res.Kind)
	assert.Equal(t, "AB-1234", res.PartNo)
}

func TestMatch_PartialOnSpecAttribute(t *testing.T) {
	idx, err := match.NewIndex([]models.MasterRecord{
		{PartNo: "AB-1234", Spec: "ZX-900", Stock: "5"},
	})
	require.NoError(t, err)

	res := match.Match(tok("ZX-900"), idx)
	assert.Equal(t, models.MatchPartial, res.Kind)
	assert.Equal(t, "AB-1234", res.PartNo)
	assert.Equal(t, "ZX-900", res.Spec)
}

func TestMatch_ExactBeatsPartial(t *testing.T) {
	// "AB-1234" is both a primary key and another row's spec attribute; the
	// primary-key hit must win.
	idx, err := match.NewIndex([]models.MasterRecord{
		{PartNo: "CD-5678", Spec: "AB-1234", Stock: "1"},
		{PartNo: "AB-1234", Spec: "X1", Stock: "2"},
	})
	require.NoError(t, err)

	res := match.Match(tok("AB-1234"), idx)
	assert.Equal(t, models.MatchExact, res.Kind)
	assert.Equal(t, "AB-1234", res.PartNo)
}

func TestMatch_FirstLoadedRowWinsCollision(t *testing.T) {
	// Distinct raw forms that normalize to the same key.
	idx, err := match.NewIndex([]models.MasterRecord{
		{PartNo: "AB/1234", Spec: "first", Stock: "1"},
		{PartNo: "AB-1234", Spec: "second", Stock: "2"},
	})
	require.NoError(t, err)

	res := match.Match(tok("AB-1234"), idx)
	assert.Equal(t, models.MatchExact, res.Kind)
	assert.Equal(t, "AB/1234", res.PartNo)
	assert.Equal(t, "first", res.Spec)
}

func TestMatch_None(t *testing.T) {
	idx, err := match.NewIndex(masterRows())
	require.NoError(t, err)

	res := match.Match(tok("ZZ-9999"), idx)
	assert.Equal(t, models.MatchNone, res.Kind)
	assert.Empty(t, res.PartNo)
}

func TestMatch_SentinelTokenIsUnmatchable(t *testing.T) {
	idx, err := match.NewIndex(masterRows())
	require.NoError(t, err)

	res := match.Match(models.Token{Raw: "!!", Normalized: ""}, idx)
	assert.Equal(t, models.MatchNone, res.Kind)
}

func TestRank_OrdersByDistance(t *testing.T) {
	idx, err := match.NewIndex([]models.MasterRecord{
		{PartNo: "AB-1234"},
		{PartNo: "AB-1236"},
	})
	require.NoError(t, err)

	ids, reason := match.Rank("AB-1234", idx, match.RankConfig{})
	assert.Empty(t, reason)
	assert.Equal(t, []string{"AB-1234", "AB-1236"}, ids)
}

func TestRank_MonotonicInSimilarity(t *testing.T) {
	idx, err := match.NewIndex([]models.MasterRecord{
		{PartNo: "QQ-1111"},
		{PartNo: "AB-1299"},
		{PartNo: "AB-1234"},
		{PartNo: "AB-1235"},
	})
	require.NoError(t, err)

	ids, reason := match.Rank("AB-1234", idx, match.RankConfig{})
	assert.Empty(t, reason)
	require.NotEmpty(t, ids)
	assert.Equal(t, "AB-1234", ids[0])
	// AB-1235 (distance 1) never ranks after AB-1299 (distance 2).
	posClose, posFar := -1, -1
	for i, id := range ids {
		switch id {
		case "AB-1235":
			posClose = i
		case "AB-1299":
			posFar = i
		}
	}
	require.NotEqual(t, -1, posClose)
	require.NotEqual(t, -1, posFar)
	assert.Less(t, posClose, posFar)
}

func TestRank_TiesBreakByLoadOrder(t *testing.T) {
	idx, err := match.NewIndex([]models.MasterRecord{
		{PartNo: "AB-1236"},
		{PartNo: "AB-1235"},
	})
	require.NoError(t, err)

	// Both are distance 1 from AB-1234; load order decides.
	ids, _ := match.Rank("AB-1234", idx, match.RankConfig{})
	assert.Equal(t, []string{"AB-1236", "AB-1235"}, ids)
}

func TestRank_Limit(t *testing.T) {
	rows := []models.MasterRecord{
		{PartNo: "AB-1230"}, {PartNo: "AB-1231"}, {PartNo: "AB-1232"},
		{PartNo: "AB-1233"}, {PartNo: "AB-1235"}, {PartNo: "AB-1236"},
	}
	idx, err := match.NewIndex(rows)
	require.NoError(t, err)

	ids, _ := match.Rank("AB-1234", idx, match.RankConfig{Limit: 2})
	assert.Len(t, ids, 2)
}

func TestRank_NoCandidatesWithinThreshold(t *testing.T) {
	idx, err := match.NewIndex([]models.MasterRecord{{PartNo: "ZZZZZ-99999"}})
	require.NoError(t, err)

	ids, reason := match.Rank("AB-1234", idx, match.RankConfig{})
	assert.Empty(t, ids)
	assert.Contains(t, reason, "no master record")
}

func TestRank_MalformedCorrectedToken(t *testing.T) {
	idx, err := match.NewIndex(masterRows())
	require.NoError(t, err)

	ids, reason := match.Rank("!!", idx, match.RankConfig{})
	assert.Empty(t, ids)
	assert.NotEmpty(t, reason)
}
