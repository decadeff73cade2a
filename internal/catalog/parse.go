package catalog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrNoValidSheet is returned when the workbook has no usable sheet.
	ErrNoValidSheet = errors.New("workbook has no usable sheet")

	// ErrNoValidVehicles is returned when every row was rejected by the
	// normalizer. No partial catalog is ever returned.
	ErrNoValidVehicles = errors.New("no valid vehicle rows found")
)

// Parse reads a catalog from an uploaded spreadsheet buffer. Files named
// *.csv are read as CSV; everything else is opened as an xlsx workbook.
// preferredSheet selects the workbook sheet by name (case- and
// whitespace-insensitive), falling back to the first sheet.
func Parse(filename string, data []byte, preferredSheet string) (Catalog, error) {
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		return parseCSV(data)
	}
	return parseWorkbook(data, preferredSheet)
}

func parseWorkbook(data []byte, preferredSheet string) (Catalog, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet, err := selectSheet(f.GetSheetList(), preferredSheet)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	return buildCatalog(rows)
}

func parseCSV(data []byte) (Catalog, error) {
	r := csv.NewReader(bytes.NewReader(sanitizeUTF8(data)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	return buildCatalog(rows)
}

// selectSheet picks the sheet whose name matches preferred, ignoring case
// and surrounding whitespace, otherwise the first sheet in the workbook.
func selectSheet(sheets []string, preferred string) (string, error) {
	if len(sheets) == 0 {
		return "", ErrNoValidSheet
	}

	want := strings.TrimSpace(preferred)
	if want != "" {
		for _, name := range sheets {
			if strings.EqualFold(strings.TrimSpace(name), want) {
				return name, nil
			}
		}
	}
	return sheets[0], nil
}

// buildCatalog maps every data row through the normalizer and hasher.
// The first non-empty row is the header; rows without a vehicle identifier
// are dropped. A later row for the same CarID overwrites an earlier one.
func buildCatalog(rows [][]string) (Catalog, error) {
	headerAt := -1
	for i, row := range rows {
		if !isEmptyRow(row) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, ErrNoValidVehicles
	}

	idx := MakeHeaderIndex(rows[headerAt])

	cat := make(Catalog)
	for _, row := range rows[headerAt+1:] {
		if isEmptyRow(row) {
			continue
		}
		rec, ok := NormalizeRow(row, idx)
		if !ok {
			continue
		}
		rec.ContentHash = ContentHash(rec)
		cat[rec.CarID] = rec
	}

	if len(cat) == 0 {
		return nil, ErrNoValidVehicles
	}
	return cat, nil
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// sanitizeUTF8 drops a leading byte-order mark and replaces invalid byte
// sequences so exports from Excel and legacy tools do not break the CSV
// reader. Without the BOM trim the first header cell would canonicalize to
// "\ufeffCARRO" and never match the car-id column.
func sanitizeUTF8(data []byte) []byte {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
