package header

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gulp-tools/gulp/internal/cell"
)

func TestParseSchema(t *testing.T) {
	s, err := ParseSchema("  ", `{"columns":[
		{"column_type":"WikiPage","wiki":"wikidatawiki","namespace_id":0},
		{"column_type":"String"},
		{"column_type":"Location"}
	]}`)
	require.NoError(t, err)
	require.Len(t, s.Columns, 3)
	assert.Equal(t, cell.TypeWikiPage, s.Columns[0].Type)
	assert.Equal(t, "Wikidata item, text, location", s.DisplayName())

	idx, ok := s.FirstWikiPageColumn()
	assert.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestParseSchema_Errors(t *testing.T) {
	for _, js := range []string{
		`not json`,
		`[]`,
		`{"cols":[]}`,
		`{"columns":[{"column_type":"Number"}]}`,
		`{"columns":[42]}`,
	} {
		_, err := ParseSchema("x", js)
		if err == nil {
			t.Errorf("ParseSchema(%s) should fail", js)
		}
	}
}

func TestSchema_ColumnsJSON(t *testing.T) {
	ns := int64(6)
	wiki := "commonswiki"
	s := &Schema{Name: "files", Columns: []cell.Column{
		{Type: cell.TypeWikiPage, Wiki: &wiki, NamespaceID: &ns},
		cell.StringColumn(),
	}}
	js, err := s.ColumnsJSON()
	require.NoError(t, err)
	assert.Equal(t,
		`{"columns":[{"column_type":"WikiPage","wiki":"commonswiki","string":null,"namespace_id":6},{"column_type":"String","wiki":null,"string":null,"namespace_id":null}]}`,
		js)

	again, err := ParseSchema(s.Name, js)
	require.NoError(t, err)
	js2, err := again.ColumnsJSON()
	require.NoError(t, err)
	assert.Equal(t, js, js2)

	empty, err := (&Schema{}).ColumnsJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"columns":[]}`, empty)
}

func TestSchema_FirstWikiPageColumnMissing(t *testing.T) {
	s := &Schema{Columns: []cell.Column{cell.StringColumn()}}
	_, ok := s.FirstWikiPageColumn()
	assert.False(t, ok)
	assert.Equal(t, "kept", (&Schema{Name: " kept "}).DisplayName())
}
