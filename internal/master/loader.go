// Package master parses the part-number master list uploaded with a job.
package master

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/mkurosawa/partscan/pkg/models"
)

var (
	// ErrMissingColumns is returned when the header row lacks a required column.
	ErrMissingColumns = errors.New("master: missing required columns")
	// ErrEmptyFile is returned for a file with no data rows.
	ErrEmptyFile = errors.New("master: no data rows")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

const (
	colPartNo = "part_no"
	colSpec   = "spec"
	colStock  = "stock"
)

// Load parses CSV master data into records. The file may be UTF-8 (with or
// without a BOM) or Shift_JIS; encoding is detected, never configured, since
// uploads come from whatever spreadsheet tool the plant happens to use.
func Load(data []byte) ([]models.MasterRecord, error) {
	decoded, err := decode(data)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(decoded))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("master: reading header: %w", err)
	}

	idx := map[string]int{}
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{colPartNo, colSpec, colStock} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumns, required)
		}
	}

	var records []models.MasterRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("master: reading row: %w", err)
		}
		rec := models.MasterRecord{
			PartNo: field(row, idx[colPartNo]),
			Spec:   field(row, idx[colSpec]),
			Stock:  field(row, idx[colStock]),
		}
		if rec.PartNo == "" && rec.Spec == "" && rec.Stock == "" {
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}
	return records, nil
}

func field(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// decode returns UTF-8 bytes regardless of the source encoding. A UTF-8 BOM
// is stripped; invalid UTF-8 falls back to Shift_JIS.
func decode(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, utf8BOM) {
		return data[len(utf8BOM):], nil
	}
	if utf8.Valid(data) {
		return data, nil
	}
	decoded, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("master: decoding shift_jis: %w", err)
	}
	return decoded, nil
}
