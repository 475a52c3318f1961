// Package header holds header schemas, the ordered column declarations a list
// is typed with, and the headers binding a schema to a list revision.
package header

import (
	"fmt"
	"strings"

	"github.com/gulp-tools/gulp/internal/cell"
)

// Schema is a named, ordered list of column declarations. Schemas are shared
// between lists and identified by their JSON.
type Schema struct {
	ID      int64         `json:"id"`
	Name    string        `json:"name"`
	Columns []cell.Column `json:"columns"`
}

type schemaDoc struct {
	Columns []cell.Column `json:"columns"`
}

// ParseSchema builds an unsaved schema from a name and its JSON document
// {"columns":[...]}. Every column must be a valid declaration.
func ParseSchema(name, js string) (*Schema, error) {
	v, err := cell.DecodeJSON([]byte(js))
	if err != nil {
		return nil, fmt.Errorf("header: invalid schema JSON: %w", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("header: schema JSON is not an object")
	}
	raw, ok := obj["columns"].([]any)
	if !ok {
		return nil, fmt.Errorf("header: schema JSON has no columns array")
	}
	cols := make([]cell.Column, 0, len(raw))
	for i, rc := range raw {
		col, ok := cell.ColumnFromValue(rc)
		if !ok {
			return nil, fmt.Errorf("header: invalid column #%d", i)
		}
		cols = append(cols, col)
	}
	return &Schema{Name: name, Columns: cols}, nil
}

// ColumnsJSON is the stored form of the schema. Two schemas are the same
// schema when this string is equal.
func (s *Schema) ColumnsJSON() (string, error) {
	cols := s.Columns
	if cols == nil {
		cols = []cell.Column{}
	}
	return cell.Marshal(schemaDoc{Columns: cols})
}

// GenerateName joins the generated column names.
func (s *Schema) GenerateName() string {
	parts := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		parts[i] = col.GenerateName()
	}
	return strings.Join(parts, ", ")
}

// DisplayName returns the trimmed name, or the generated one when blank.
func (s *Schema) DisplayName() string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	return s.GenerateName()
}

// FirstWikiPageColumn returns the index of the first WikiPage column.
func (s *Schema) FirstWikiPageColumn() (int, bool) {
	for i, col := range s.Columns {
		if col.Type == cell.TypeWikiPage {
			return i, true
		}
	}
	return -1, false
}

// Header binds a schema to a list from RevisionID onwards.
type Header struct {
	ID         int64  `json:"id"`
	ListID     int64  `json:"list_id"`
	RevisionID int64  `json:"revision_id"`
	Schema     Schema `json:"schema"`
}
