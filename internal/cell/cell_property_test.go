package cell

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_CellJSONRoundTrip checks that rendering a cell to its row JSON
// form and parsing it back under the same column yields the same rendering.
func TestProperty_CellJSONRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	col := WikiPageColumn("enwiki", ptrInt(0))

	properties.Property("wiki pages survive a JSON round trip", prop.ForAll(
		func(title, wiki string, ns int64, useDefaults bool) bool {
			page := WikiPage{Title: title, Wiki: &wiki, NamespaceID: &ns}
			if useDefaults {
				page.Wiki, page.NamespaceID = ptrStr("enwiki"), ptrInt(0)
			}
			before, err := RowJSON([]Cell{page}, []Column{col})
			if err != nil {
				return false
			}
			v, err := DecodeJSON([]byte(before))
			if err != nil {
				return false
			}
			parsed := FromValue(v.([]any)[0], col)
			if parsed == nil {
				return false
			}
			after, err := RowJSON([]Cell{parsed}, []Column{col})
			return err == nil && before == after
		},
		gen.AnyString(),
		gen.AlphaString(),
		gen.Int64Range(-2, 3000),
		gen.Bool(),
	))

	properties.Property("locations survive a string round trip", prop.ForAll(
		func(lat, lon float64) bool {
			loc := Location{Lat: lat, Lon: lon}
			parsed := FromValue(loc.AsString(Column{Type: TypeLocation}), Column{Type: TypeLocation})
			return parsed == loc
		},
		gen.Float64Range(-90, 90),
		gen.Float64Range(-180, 180),
	))

	properties.Property("strings survive a JSON round trip", prop.ForAll(
		func(s string) bool {
			out, err := RowJSON([]Cell{String(s)}, []Column{StringColumn()})
			if err != nil {
				return false
			}
			v, err := DecodeJSON([]byte(out))
			if err != nil {
				return false
			}
			return FromValue(v.([]any)[0], StringColumn()) == String(s)
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
