package cell

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Cell is one typed value of a row: String, WikiPage or Location.
// A nil Cell is a gap.
type Cell interface {
	// AsJSON renders the cell for the canonical row JSON.
	AsJSON(col Column) any
	// AsString renders the cell for delimited text output.
	AsString(col Column) string

	isCell()
}

// String is a plain text cell.
type String string

func (String) isCell() {}

func (s String) AsJSON(Column) any { return string(s) }

func (s String) AsString(Column) string { return string(s) }

// WikiPage references a page on a wiki. Nil fields fall back to the column
// defaults when rendered.
type WikiPage struct {
	Title       string  `json:"title"`
	NamespaceID *int64  `json:"namespace_id"`
	Wiki        *string `json:"wiki"`
}

func (WikiPage) isCell() {}

// matchesDefaults reports whether the page can be written in short form.
func (p WikiPage) matchesDefaults(col Column) bool {
	return eqString(p.Wiki, col.Wiki) && eqInt64(p.NamespaceID, col.NamespaceID)
}

// AsJSON returns the bare title when wiki and namespace equal the column
// defaults, the full object otherwise.
func (p WikiPage) AsJSON(col Column) any {
	if p.matchesDefaults(col) {
		return p.Title
	}
	return p
}

// AsString returns the bare title in short form, else "wiki:namespace:title"
// with Some(..)/None markers for the optional parts.
func (p WikiPage) AsString(col Column) string {
	if p.matchesDefaults(col) {
		return p.Title
	}
	wiki := "None"
	if p.Wiki != nil {
		wiki = "Some(" + strconv.Quote(*p.Wiki) + ")"
	}
	ns := "None"
	if p.NamespaceID != nil {
		ns = "Some(" + strconv.FormatInt(*p.NamespaceID, 10) + ")"
	}
	return wiki + ":" + ns + ":" + p.Title
}

// Location is a geographic coordinate.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (Location) isCell() {}

func (l Location) AsJSON(Column) any { return l }

func (l Location) AsString(Column) string {
	return formatFloat(l.Lat) + ", " + formatFloat(l.Lon)
}

// FromValue parses a decoded JSON value under the column's declared type.
// Values that do not fit the type yield nil.
func FromValue(v any, col Column) Cell {
	switch col.Type {
	case TypeString:
		if s, ok := v.(string); ok {
			return String(s)
		}
		return nil
	case TypeWikiPage:
		return wikiPageFromValue(v, col)
	case TypeLocation:
		return locationFromValue(v)
	}
	return nil
}

func wikiPageFromValue(v any, col Column) Cell {
	switch val := v.(type) {
	case string:
		return WikiPage{
			Title:       val,
			NamespaceID: copyInt64(col.NamespaceID),
			Wiki:        copyString(col.Wiki),
		}
	case map[string]any:
		title, ok := val["title"].(string)
		if !ok {
			return nil
		}
		page := WikiPage{
			Title:       title,
			NamespaceID: copyInt64(col.NamespaceID),
			Wiki:        copyString(col.Wiki),
		}
		if w, ok := val["wiki"].(string); ok {
			page.Wiki = &w
		}
		if n, ok := asInt64(val["namespace_id"]); ok {
			page.NamespaceID = &n
		}
		return page
	}
	return nil
}

func locationFromValue(v any) Cell {
	switch val := v.(type) {
	case string:
		// Every match replaces the previous one; the last match wins.
		var ret Cell
		for _, m := range reLocation.FindAllStringSubmatch(val, -1) {
			lat, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return nil
			}
			lon, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				return nil
			}
			ret = Location{Lat: lat, Lon: lon}
		}
		return ret
	case map[string]any:
		lat, ok := asFloat64(val["lat"])
		if !ok {
			return nil
		}
		lon, ok := asFloat64(val["lon"])
		if !ok {
			return nil
		}
		return Location{Lat: lat, Lon: lon}
	}
	return nil
}

// RowJSON renders cells against their columns as the canonical JSON array.
// Cells beyond the column list are dropped, missing cells become null.
func RowJSON(cells []Cell, cols []Column) (string, error) {
	values := make([]any, len(cols))
	for i, col := range cols {
		if i < len(cells) && cells[i] != nil {
			values[i] = cells[i].AsJSON(col)
		}
	}
	return Marshal(values)
}

// Marshal encodes v without HTML escaping and without a trailing newline.
func Marshal(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func eqString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func eqInt64(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
