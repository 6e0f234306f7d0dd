package seed

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/locality/internal/geo"
)

// XLSXOptions maps spreadsheet columns onto seed entries. Column indices are
// zero-based; a negative index means the column is absent.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	SkipRows   int    // header rows to skip

	IDColumn    int
	NameColumn  int
	StateColumn int
	LatColumn   int
	LngColumn   int
}

// DTBOptions matches the column layout of the IBGE territorial division
// (DTB) municipality sheet: state abbreviation in column 1, the full
// seven-digit municipality code in column 11, the name in column 12.
func DTBOptions() XLSXOptions {
	return XLSXOptions{
		SkipRows:    1,
		IDColumn:    11,
		NameColumn:  12,
		StateColumn: 1,
		LatColumn:   -1,
		LngColumn:   -1,
	}
}

// ReadXLSX reads a seed list from an XLSX file. Rows without an id are
// skipped; coordinate columns that fail to parse leave Location nil rather
// than failing the whole file.
func ReadXLSX(path string, opts XLSXOptions) ([]Entry, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "seed: open xlsx")
	}

	sheet, err := pickSheet(f, opts)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for i, row := range sheet.Rows {
		if i < opts.SkipRows {
			continue
		}

		id := cellValue(row, opts.IDColumn)
		if id == "" {
			continue
		}

		e := Entry{
			ID:    id,
			Name:  cellValue(row, opts.NameColumn),
			State: cellValue(row, opts.StateColumn),
		}
		if p, ok := parseCoords(cellValue(row, opts.LatColumn), cellValue(row, opts.LngColumn)); ok {
			e.Location = p
		}
		entries = append(entries, e)
	}

	return entries, nil
}

func pickSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("seed: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("seed: sheet index %d out of range (file has %d sheets)",
			opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func cellValue(row *xlsx.Row, idx int) string {
	if idx < 0 || idx >= len(row.Cells) {
		return ""
	}
	return strings.TrimSpace(row.Cells[idx].String())
}

func parseCoords(latRaw, lngRaw string) (*geo.Point, bool) {
	if latRaw == "" || lngRaw == "" {
		return nil, false
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return nil, false
	}
	lng, err := strconv.ParseFloat(lngRaw, 64)
	if err != nil {
		return nil, false
	}
	return &geo.Point{Lat: lat, Lng: lng}, true
}
