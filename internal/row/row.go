// Package row models stored list rows: the canonical JSON written to the
// catalog, its md5 content hash and the renderings served by the API.
package row

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/gulp-tools/gulp/internal/cell"
	"github.com/gulp-tools/gulp/internal/header"
)

// Row is one revision of one row_num of a list. Rows are immutable once
// written; a change is a new Row with the same RowNum at a later revision.
type Row struct {
	ID         int64
	ListID     int64
	RowNum     int64
	RevisionID int64
	JSON       string
	JSONMD5    string
	UserID     int64
	Modified   string
	Cells      []cell.Cell
}

// MD5 returns the lowercase hex md5 of s.
func MD5(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// New builds an unsaved row from cells, computing its canonical JSON and hash
// against the schema columns.
func New(listID, rowNum, revisionID, userID int64, cells []cell.Cell, schema *header.Schema) (*Row, error) {
	js, err := cell.RowJSON(cells, schema.Columns)
	if err != nil {
		return nil, fmt.Errorf("row: failed to encode cells: %w", err)
	}
	return &Row{
		ListID:     listID,
		RowNum:     rowNum,
		RevisionID: revisionID,
		JSON:       js,
		JSONMD5:    MD5(js),
		UserID:     userID,
		Cells:      cells,
	}, nil
}

// DecodeCells parses the stored JSON array against the schema. Values beyond
// the schema are ignored and values that do not fit their column become nil.
func (r *Row) DecodeCells(schema *header.Schema) error {
	v, err := cell.DecodeJSON([]byte(r.JSON))
	if err != nil {
		return fmt.Errorf("row: failed to decode row %d: %w", r.RowNum, err)
	}
	values, ok := v.([]any)
	if !ok {
		return fmt.Errorf("row: row %d is not a JSON array", r.RowNum)
	}
	n := min(len(values), len(schema.Columns))
	r.Cells = make([]cell.Cell, n)
	for i := 0; i < n; i++ {
		r.Cells[i] = cell.FromValue(values[i], schema.Columns[i])
	}
	return nil
}

// AsJSON renders the row as {"row","modified","user","c"}.
func (r *Row) AsJSON(schema *header.Schema) map[string]any {
	n := min(len(r.Cells), len(schema.Columns))
	values := make([]any, n)
	for i := 0; i < n; i++ {
		if r.Cells[i] != nil {
			values[i] = r.Cells[i].AsJSON(schema.Columns[i])
		}
	}
	return map[string]any{
		"row":      r.RowNum,
		"modified": r.Modified,
		"user":     r.UserID,
		"c":        values,
	}
}

// AsVec renders the row number followed by each cell as text. Gaps are empty.
func (r *Row) AsVec(schema *header.Schema) []string {
	n := min(len(r.Cells), len(schema.Columns))
	out := make([]string, 0, n+1)
	out = append(out, strconv.FormatInt(r.RowNum, 10))
	for i := 0; i < n; i++ {
		if r.Cells[i] == nil {
			out = append(out, "")
			continue
		}
		out = append(out, r.Cells[i].AsString(schema.Columns[i]))
	}
	return out
}

// AsTSV joins AsVec with tabs.
func (r *Row) AsTSV(schema *header.Schema) string {
	return strings.Join(r.AsVec(schema), "\t")
}
