package source

import (
	"context"
	"io"
	"math"
	"strconv"

	"github.com/tealeg/xlsx"

	"github.com/gulp-tools/gulp/internal/cell"
	gerrors "github.com/gulp-tools/gulp/internal/errors"
)

// excelFormat reads the first sheet of an xlsx workbook. Cells are turned
// into text and then treated like delimited records.
type excelFormat struct{}

func (f *excelFormat) Decode(ctx context.Context, r io.Reader, headers []cell.Column, limit int) (*CellSet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, gerrors.NewTransportError(gerrors.CodeFetchFailed, "Could not read spreadsheet", err)
	}
	book, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, gerrors.NewDecodeError(gerrors.CodeMalformedSpreadsheet, "Could not open spreadsheet", err)
	}

	cs := &CellSet{Headers: append([]cell.Column(nil), headers...)}
	if len(book.Sheets) == 0 {
		return cs, nil
	}
	for _, row := range book.Sheets[0].Rows {
		if cs.full(limit) {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if row == nil {
			continue
		}
		values := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			values[i] = excelText(c)
		}
		cs.appendStrings(values)
	}
	return cs, nil
}

// excelText renders a cell: integral numbers without a fraction, other
// numbers in their shortest form, booleans as true/false.
func excelText(c *xlsx.Cell) string {
	if c == nil {
		return ""
	}
	switch c.Type() {
	case xlsx.CellTypeNumeric:
		f, err := strconv.ParseFloat(c.Value, 64)
		if err != nil {
			return c.Value
		}
		if f == math.Trunc(f) && math.Abs(f) < 1e15 {
			return strconv.FormatInt(int64(f), 10)
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	case xlsx.CellTypeBool:
		if c.Bool() {
			return "true"
		}
		return "false"
	default:
		return c.Value
	}
}
