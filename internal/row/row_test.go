package row

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gulp-tools/gulp/internal/cell"
	"github.com/gulp-tools/gulp/internal/header"
)

func testSchema() *header.Schema {
	ns := int64(0)
	wiki := "wikidatawiki"
	return &header.Schema{Columns: []cell.Column{
		{Type: cell.TypeWikiPage, Wiki: &wiki, NamespaceID: &ns},
		cell.StringColumn(),
	}}
}

func TestMD5(t *testing.T) {
	assert.Equal(t, "5eb63bbbe01eeed093cb22bb8f5acdc3", MD5("hello world"))
}

func TestNew(t *testing.T) {
	schema := testSchema()
	cells := []cell.Cell{
		cell.FromValue("Q111028176", schema.Columns[0]),
		cell.String("Buergerwehrbrunnen Bensheim.jpg"),
	}
	r, err := New(4, 1, 1, 7, cells, schema)
	require.NoError(t, err)
	assert.Equal(t, `["Q111028176","Buergerwehrbrunnen Bensheim.jpg"]`, r.JSON)
	assert.Equal(t, MD5(r.JSON), r.JSONMD5)
	assert.Equal(t, int64(4), r.ListID)
	assert.Equal(t, int64(7), r.UserID)
}

func TestNew_AlignsToSchema(t *testing.T) {
	schema := testSchema()

	short, err := New(1, 1, 0, 1, []cell.Cell{nil}, schema)
	require.NoError(t, err)
	assert.Equal(t, `[null,null]`, short.JSON)

	long, err := New(1, 2, 0, 1, []cell.Cell{nil, cell.String("a"), cell.String("dropped")}, schema)
	require.NoError(t, err)
	assert.Equal(t, `[null,"a"]`, long.JSON)
}

func TestDecodeCells(t *testing.T) {
	schema := testSchema()
	r := &Row{RowNum: 3, JSON: `[{"title":"Q5","wiki":"enwiki","namespace_id":0},"x","extra"]`}
	require.NoError(t, r.DecodeCells(schema))
	require.Len(t, r.Cells, 2)
	assert.Equal(t, cell.String("x"), r.Cells[1])

	assert.Equal(t, []string{"3", `Some("enwiki"):Some(0):Q5`, "x"}, r.AsVec(schema))
	assert.Equal(t, "3\tSome(\"enwiki\"):Some(0):Q5\tx", r.AsTSV(schema))

	bad := &Row{JSON: `{"a":1}`}
	assert.Error(t, bad.DecodeCells(schema))
	bad.JSON = `[`
	assert.Error(t, bad.DecodeCells(schema))
}

func TestAsJSON(t *testing.T) {
	schema := testSchema()
	r := &Row{RowNum: 2, UserID: 9, Modified: "2024-01-02 03:04:05", JSON: `["Q1",null]`}
	require.NoError(t, r.DecodeCells(schema))

	out, err := cell.Marshal(r.AsJSON(schema))
	require.NoError(t, err)
	assert.Equal(t, `{"c":["Q1",null],"modified":"2024-01-02 03:04:05","row":2,"user":9}`, out)
	assert.Equal(t, []string{"2", "Q1", ""}, r.AsVec(schema))
}
