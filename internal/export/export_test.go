package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mkurosawa/partscan/pkg/models"
)

func sampleResults() []models.MatchResult {
	return []models.MatchResult{
		{
			Token:  models.Token{Raw: "ＡＢ－１２３４", Normalized: "AB-1234", Document: "drawing.pdf", Page: 1},
			Kind:   models.MatchExact,
			PartNo: "AB-1234",
			Spec:   "六角ボルト",
			Stock:  "100",
		},
		{
			Token: models.Token{Raw: "ZZ-9999", Normalized: "ZZ-9999", Document: "drawing.pdf", Page: 2},
			Kind:  models.MatchNone,
		},
	}
}

func TestResultsCSV(t *testing.T) {
	out, err := ResultsCSV(sampleResults())
	require.NoError(t, err)

	require.True(t, bytes.HasPrefix(out, []byte{0xEF, 0xBB, 0xBF}), "expected UTF-8 BOM")

	rows, err := csv.NewReader(bytes.NewReader(out[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"document", "page", "token", "normalized", "match", "part_no", "spec", "stock"}, rows[0])
	assert.Equal(t, []string{"drawing.pdf", "1", "ＡＢ－１２３４", "AB-1234", "exact", "AB-1234", "六角ボルト", "100"}, rows[1])
	assert.Equal(t, "none", rows[2][4])
	assert.Empty(t, rows[2][5])
}

func TestResultsCSV_Empty(t *testing.T) {
	out, err := ResultsCSV(nil)
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(out[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1, "header only")
}

func TestResultsXLSX(t *testing.T) {
	out, err := ResultsXLSX(sampleResults())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Results"}, f.GetSheetList())

	rows, err := f.GetRows("Results")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "AB-1234", rows[1][3])
	assert.Equal(t, "六角ボルト", rows[1][6])
}

func TestFailuresXLSX_SheetName(t *testing.T) {
	out, err := FailuresXLSX(sampleResults()[1:])
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Failures"}, f.GetSheetList())
}
