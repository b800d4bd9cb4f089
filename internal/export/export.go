// Package export renders completed job results as downloadable files.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/mkurosawa/partscan/pkg/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var resultHeader = []string{"document", "page", "token", "normalized", "match", "part_no", "spec", "stock"}

// FormatCSV and FormatXLSX name the supported download formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

func resultRow(r models.MatchResult) []string {
	return []string{
		r.Token.Document,
		fmt.Sprintf("%d", r.Token.Page),
		r.Token.Raw,
		r.Token.Normalized,
		string(r.Kind),
		r.PartNo,
		r.Spec,
		r.Stock,
	}
}

// ResultsCSV writes results as UTF-8 CSV with a BOM so Excel opens the
// Japanese columns correctly.
func ResultsCSV(results []models.MatchResult) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(resultHeader); err != nil {
		return nil, fmt.Errorf("export: writing header: %w", err)
	}
	for _, r := range results {
		if err := w.Write(resultRow(r)); err != nil {
			return nil, fmt.Errorf("export: writing row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("export: flushing csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ResultsXLSX writes results as a single-sheet workbook.
func ResultsXLSX(results []models.MatchResult) ([]byte, error) {
	return writeSheet("Results", results)
}

// FailuresXLSX writes unmatched tokens as a single-sheet workbook.
func FailuresXLSX(failures []models.MatchResult) ([]byte, error) {
	return writeSheet("Failures", failures)
}

// FailuresCSV writes unmatched tokens in the same column layout as results;
// the match column is always "none" and the master columns stay empty.
func FailuresCSV(failures []models.MatchResult) ([]byte, error) {
	return ResultsCSV(failures)
}

func writeSheet(sheet string, rows []models.MatchResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("export: creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("export: removing default sheet: %w", err)
	}

	header := make([]interface{}, len(resultHeader))
	for i, h := range resultHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("export: writing header: %w", err)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("export: addressing row: %w", err)
		}
		values := []interface{}{
			r.Token.Document, r.Token.Page, r.Token.Raw, r.Token.Normalized,
			string(r.Kind), r.PartNo, r.Spec, r.Stock,
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("export: writing row: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("export: writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}
