// Package cell implements typed cell values, column declarations and the
// column type inference used when importing untyped data.
package cell

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ColumnType is the declared type of a column.
type ColumnType string

const (
	TypeString   ColumnType = "String"
	TypeWikiPage ColumnType = "WikiPage"
	TypeLocation ColumnType = "Location"
)

// ParseColumnType parses the exact type names used in schema JSON.
func ParseColumnType(s string) (ColumnType, bool) {
	switch ColumnType(s) {
	case TypeString, TypeWikiPage, TypeLocation:
		return ColumnType(s), true
	}
	return "", false
}

// Column declares one column of a header schema. Wiki and NamespaceID are the
// defaults used to render WikiPage cells in short form and to attach a wiki
// to bare titles on import.
type Column struct {
	Type        ColumnType `json:"column_type"`
	Wiki        *string    `json:"wiki"`
	Literal     *string    `json:"string"`
	NamespaceID *int64     `json:"namespace_id"`
}

// StringColumn returns an undecorated String column.
func StringColumn() Column {
	return Column{Type: TypeString}
}

// WikiPageColumn returns a WikiPage column with the given defaults.
// An empty wiki or a nil namespace leave the respective default unset.
func WikiPageColumn(wiki string, namespaceID *int64) Column {
	col := Column{Type: TypeWikiPage, NamespaceID: namespaceID}
	if wiki != "" {
		col.Wiki = &wiki
	}
	return col
}

// ColumnFromValue builds a column from a decoded JSON object. column_type is
// required; wiki, string and namespace_id are ignored when they have the
// wrong JSON type.
func ColumnFromValue(v any) (Column, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return Column{}, false
	}
	ts, ok := obj["column_type"].(string)
	if !ok {
		return Column{}, false
	}
	ct, ok := ParseColumnType(ts)
	if !ok {
		return Column{}, false
	}
	col := Column{Type: ct}
	if s, ok := obj["wiki"].(string); ok {
		col.Wiki = &s
	}
	if s, ok := obj["string"].(string); ok {
		col.Literal = &s
	}
	if n, ok := asInt64(obj["namespace_id"]); ok {
		col.NamespaceID = &n
	}
	return col, true
}

// UnmarshalJSON applies the lenient rules of ColumnFromValue.
func (c *Column) UnmarshalJSON(data []byte) error {
	v, err := decodeValue(data)
	if err != nil {
		return err
	}
	col, ok := ColumnFromValue(v)
	if !ok {
		return fmt.Errorf("cell: invalid column declaration %s", data)
	}
	*c = col
	return nil
}

// HasDefaults reports whether the column carries any wiki, namespace or
// literal default.
func (c Column) HasDefaults() bool {
	return c.Wiki != nil || c.Literal != nil || c.NamespaceID != nil
}

// GenerateName derives a human readable name for the column.
func (c Column) GenerateName() string {
	switch c.Type {
	case TypeWikiPage:
		var parts []string
		if c.Wiki != nil {
			parts = append(parts, ucFirst(*c.Wiki))
		}
		if c.NamespaceID != nil {
			parts = append(parts, fmt.Sprintf("NS%d", *c.NamespaceID))
		}
		name := strings.Join(parts, " ")
		switch name {
		case "Wikidatawiki NS0":
			return "Wikidata item"
		case "Wikidatawiki NS120":
			return "Wikidata property"
		case "Commonswiki NS6":
			return "Commons file"
		}
		return name
	case TypeLocation:
		return "location"
	default:
		return "text"
	}
}

func ucFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// decodeValue decodes JSON keeping numbers as json.Number so integers and
// floats can be told apart.
func decodeValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeJSON decodes a JSON document the way cell values expect it.
func DecodeJSON(data []byte) (any, error) {
	return decodeValue(data)
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}
