package catalog

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gulp-tools/gulp/internal/cell"
	gerrors "github.com/gulp-tools/gulp/internal/errors"
	"github.com/gulp-tools/gulp/internal/header"
	"github.com/gulp-tools/gulp/internal/row"
	"github.com/gulp-tools/gulp/pkg/types"
)

func newTestCatalog(t *testing.T) *SQLCatalog {
	t.Helper()
	c, err := Open(context.Background(), Options{
		Driver: "sqlite3",
		DSN:    filepath.Join(t.TempDir(), "gulp_test.db"),
	})
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func textSchema(t *testing.T, c *SQLCatalog, name string) *header.Schema {
	t.Helper()
	s := &header.Schema{Name: name, Columns: []cell.Column{cell.StringColumn()}}
	if _, err := c.CreateHeaderSchema(context.Background(), s); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return s
}

func mkRow(listID, rowNum, rev, user int64, js string) *row.Row {
	return &row.Row{ListID: listID, RowNum: rowNum, RevisionID: rev, UserID: user, JSON: js, JSONMD5: row.MD5(js)}
}

func TestOpen_SeedsEveryoneUser(t *testing.T) {
	c := newTestCatalog(t)
	u, err := c.GetUser(context.Background(), types.EveryoneUserID)
	require.NoError(t, err)
	assert.Equal(t, everyoneName, u.Name)

	// Re-running the schema is harmless.
	require.NoError(t, c.InitSchema(context.Background()))
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("MySQL")
	require.NoError(t, err)
	assert.Equal(t, DialectMySQL, d)

	d, err = ParseDialect("")
	require.NoError(t, err)
	assert.Equal(t, DialectSQLite, d)

	_, err = ParseDialect("postgres")
	assert.Error(t, err)
}

func TestPrepareDSN(t *testing.T) {
	dsn, err := DialectSQLite.prepareDSN("/tmp/x.db")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate", dsn)

	dsn, err = DialectSQLite.prepareDSN("file:x.db?mode=memory")
	require.NoError(t, err)
	assert.Equal(t, "file:x.db?mode=memory", dsn)

	dsn, err = DialectMySQL.prepareDSN("gulp:secret@tcp(db:3306)/gulp")
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")

	_, err = DialectSQLite.prepareDSN("")
	assert.Error(t, err)
}

func TestSchemaSQL_MySQLInlinesIndexes(t *testing.T) {
	stmts := schemaSQL(DialectMySQL)
	assert.Len(t, stmts, len(tableSQL))
	for _, s := range stmts {
		assert.NotContains(t, s, "{{")
		if strings.HasPrefix(s, "CREATE TABLE IF NOT EXISTS `row` (") {
			assert.Contains(t, s, "KEY `idx_row_list_md5`")
			assert.Contains(t, s, "AUTO_INCREMENT")
		}
	}
	assert.Len(t, schemaSQL(DialectSQLite), len(tableSQL)+len(indexSQL))
}

func TestHeaderSchema_CreateAndDuplicate(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	ns := int64(0)
	wiki := "wikidatawiki"
	s := &header.Schema{Name: "  ", Columns: []cell.Column{{Type: cell.TypeWikiPage, Wiki: &wiki, NamespaceID: &ns}}}
	id, err := c.CreateHeaderSchema(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, id, s.ID)
	assert.Equal(t, "Wikidata item", s.Name)

	loaded, err := c.GetHeaderSchema(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Wikidata item", loaded.Name)
	assert.Equal(t, s.Columns, loaded.Columns)

	dup := &header.Schema{Name: "other", Columns: s.Columns}
	_, err = c.CreateHeaderSchema(ctx, dup)
	require.Error(t, err)
	assert.Equal(t, gerrors.CodeDuplicateSchema, gerrors.GetCode(err))
	assert.Contains(t, err.Error(), "A header schema with this JSON already exist: #")
	assert.Contains(t, err.Error(), ": Wikidata item")

	_, err = c.CreateHeaderSchema(ctx, s)
	assert.Equal(t, gerrors.CodeInvalidArgument, gerrors.GetCode(err))

	_, err = c.GetHeaderSchema(ctx, 999)
	assert.Equal(t, gerrors.CodeSchemaMissing, gerrors.GetCode(err))

	all, err := c.ListHeaderSchemas(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestHeaderForRevision(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	first := textSchema(t, c, "first")
	second := &header.Schema{Name: "second", Columns: []cell.Column{cell.StringColumn(), {Type: cell.TypeLocation}}}
	_, err := c.CreateHeaderSchema(ctx, second)
	require.NoError(t, err)

	listID, err := c.CreateList(ctx, "my list")
	require.NoError(t, err)
	_, err = c.ReplaceHeader(ctx, listID, 0, first.ID)
	require.NoError(t, err)
	_, err = c.ReplaceHeader(ctx, listID, 3, second.ID)
	require.NoError(t, err)

	tests := []struct {
		rev  int64
		want string
	}{
		{0, "first"},
		{2, "first"},
		{3, "second"},
		{types.LatestRevision, "second"},
	}
	for _, tt := range tests {
		h, err := c.HeaderForRevision(ctx, listID, tt.rev)
		if err != nil {
			t.Fatalf("HeaderForRevision(%d): %v", tt.rev, err)
		}
		if h.Schema.Name != tt.want {
			t.Errorf("HeaderForRevision(%d) = %s, want %s", tt.rev, h.Schema.Name, tt.want)
		}
	}

	// Replacing at the same revision swaps the schema.
	_, err = c.ReplaceHeader(ctx, listID, 3, first.ID)
	require.NoError(t, err)
	h, err := c.HeaderForRevision(ctx, listID, 3)
	require.NoError(t, err)
	assert.Equal(t, "first", h.Schema.Name)

	_, err = c.HeaderForRevision(ctx, listID+1, 0)
	assert.Equal(t, gerrors.CodeSchemaMissing, gerrors.GetCode(err))
}

func TestCreateListWithHeader(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	s := textSchema(t, c, "text")
	user, err := c.CreateUser(ctx, "Owner", true)
	require.NoError(t, err)

	listID, err := c.CreateListWithHeader(ctx, "atomic", s.ID, user)
	require.NoError(t, err)
	h, err := c.HeaderForRevision(ctx, listID, 0)
	require.NoError(t, err)
	assert.Equal(t, s.ID, h.Schema.ID)
	rs, err := c.AccessRights(ctx, user, listID)
	require.NoError(t, err)
	assert.True(t, rs.Has(types.RightAdmin))

	_, err = c.CreateListWithHeader(ctx, "orphan", s.ID+100, user)
	assert.Equal(t, gerrors.CodeSchemaMissing, gerrors.GetCode(err))

	var lists int
	require.NoError(t, c.DB().QueryRowContext(ctx, "SELECT count(*) FROM `list`").Scan(&lists))
	assert.Equal(t, 1, lists, "a failed create must not leave a list behind")
}

func TestRows_RevisionVisibility(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	alice, err := c.CreateUser(ctx, "Alice", true)
	require.NoError(t, err)
	bob, err := c.CreateUser(ctx, "Bob", true)
	require.NoError(t, err)
	listID, err := c.CreateList(ctx, "l")
	require.NoError(t, err)

	require.NoError(t, c.InsertRows(ctx, []*row.Row{
		mkRow(listID, 1, 0, alice, `["a"]`),
		mkRow(listID, 2, 0, alice, `["b"]`),
	}))
	require.NoError(t, c.InsertRows(ctx, []*row.Row{
		mkRow(listID, 2, 1, bob, `["b2"]`),
		mkRow(listID, 3, 1, bob, `["c"]`),
	}))
	// Another list must not leak in.
	require.NoError(t, c.InsertRows(ctx, []*row.Row{mkRow(listID+1, 1, 5, bob, `["x"]`)}))

	at0, err := c.RowsForRevision(ctx, listID, 0, 0, 0)
	require.NoError(t, err)
	require.Len(t, at0, 2)
	assert.Equal(t, `["b"]`, at0[1].JSON)
	assert.NotEmpty(t, at0[0].Modified)

	at1, err := c.RowsForRevision(ctx, listID, 1, 0, 0)
	require.NoError(t, err)
	require.Len(t, at1, 3)
	assert.Equal(t, []string{`["a"]`, `["b2"]`, `["c"]`}, []string{at1[0].JSON, at1[1].JSON, at1[2].JSON})

	page, err := c.RowsForRevision(ctx, listID, 1, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(2), page[0].RowNum)

	n, err := c.CountRowsForRevision(ctx, listID, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	n, err = c.CountRowsForRevision(ctx, listID, types.LatestRevision)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	users, err := c.UsersInRevision(ctx, listID, 0)
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{alice: "Alice"}, users)
	users, err = c.UsersInRevision(ctx, listID, 1)
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{alice: "Alice", bob: "Bob"}, users)

	md5s, err := c.VisibleRowMD5s(ctx, listID)
	require.NoError(t, err)
	assert.Len(t, md5s, 3)
	_, stale := md5s[row.MD5(`["b"]`)]
	assert.False(t, stale, "superseded row hash must not be visible")

	maxNum, err := c.MaxVisibleRowNum(ctx, listID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), maxNum)
	maxNum, err = c.MaxVisibleRowNum(ctx, listID+7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), maxNum)

	atRev, err := c.CountRowsAtRevision(ctx, listID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), atRev)

	r, err := c.GetRow(ctx, listID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, `["b"]`, r.JSON)
	r, err = c.GetRow(ctx, listID, 2, types.LatestRevision)
	require.NoError(t, err)
	assert.Equal(t, `["b2"]`, r.JSON)
	_, err = c.GetRow(ctx, listID, 3, 0)
	assert.Equal(t, gerrors.CodeRowNotFound, gerrors.GetCode(err))

	byID, err := c.UsersByID(ctx, []int64{bob, 12345})
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{bob: "Bob"}, byID)
	empty, err := c.UsersByID(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestInsertRows_BatchIsAtomic(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	listID, err := c.CreateList(ctx, "l")
	require.NoError(t, err)

	require.NoError(t, c.InsertRows(ctx, []*row.Row{mkRow(listID, 1, 0, 1, `["a"]`)}))

	// The second row collides with (list_id,row_num,revision_id) of the first.
	err = c.InsertRows(ctx, []*row.Row{
		mkRow(listID, 2, 0, 1, `["b"]`),
		mkRow(listID, 1, 0, 1, `["dup"]`),
	})
	require.Error(t, err)
	assert.Equal(t, gerrors.CodeTxFailed, gerrors.GetCode(err))

	n, err := c.CountRowsForRevision(ctx, listID, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestLists_RevisionAndRights(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	listA, err := c.CreateList(ctx, "A")
	require.NoError(t, err)
	listB, err := c.CreateList(ctx, "B")
	require.NoError(t, err)
	listC, err := c.CreateList(ctx, "C")
	require.NoError(t, err)
	user, err := c.CreateUser(ctx, "carol", true)
	require.NoError(t, err)

	require.NoError(t, c.SetListRevision(ctx, listA, 4))
	l, err := c.GetList(ctx, listA)
	require.NoError(t, err)
	assert.Equal(t, int64(4), l.RevisionID)
	_, err = c.GetList(ctx, 999)
	assert.Equal(t, gerrors.CodeListNotFound, gerrors.GetCode(err))

	require.NoError(t, c.AddAccess(ctx, listA, user, types.RightAdmin))
	require.NoError(t, c.AddAccess(ctx, listA, user, types.RightAdmin))
	require.NoError(t, c.AddAccess(ctx, listB, types.EveryoneUserID, types.RightEditRow))
	require.NoError(t, c.AddAccess(ctx, listC, user+1, types.RightAdmin))

	anyRight, err := c.ListsByUserRights(ctx, user, nil)
	require.NoError(t, err)
	require.Len(t, anyRight, 2)
	assert.Equal(t, "A", anyRight[0].Name)
	assert.Equal(t, "B", anyRight[1].Name)

	admin, err := c.ListsByUserRights(ctx, user, []types.Right{types.RightAdmin})
	require.NoError(t, err)
	require.Len(t, admin, 1)
	assert.Equal(t, listA, admin[0].ID)

	rights, err := c.AccessRights(ctx, user, listB)
	require.NoError(t, err)
	assert.True(t, rights.Has(types.RightEditRow))
	assert.False(t, rights.Allows(types.RightCreateSnapshot))

	rights, err = c.AccessRights(ctx, user, listA)
	require.NoError(t, err)
	assert.True(t, rights.Allows(types.RightCreateSnapshot))
}

func TestDataSources(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	ds := &types.DataSource{ListID: 3, SourceType: types.SourceURL, SourceFormat: types.FormatJSONL, Location: "https://example.org/x.jsonl", UserID: 9}
	id, err := c.CreateDataSource(ctx, ds)
	require.NoError(t, err)
	assert.Equal(t, id, ds.ID)

	got, err := c.GetDataSource(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, *ds, *got)

	_, err = c.db.ExecContext(ctx,
		"INSERT INTO `data_source` (`list_id`,`source_type`,`source_format`,`location`,`user_id`) VALUES (3,'FTP','CSV','x',1)")
	require.NoError(t, err)

	all, err := c.ListDataSources(ctx, 3)
	require.NoError(t, err)
	require.Len(t, all, 1)

	_, err = c.GetDataSource(ctx, 999)
	assert.Equal(t, gerrors.CodeSourceNotFound, gerrors.GetCode(err))
}

func TestUsersAndTokens(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	u, err := c.GetOrCreateWikiUser(ctx, "Magnus")
	require.NoError(t, err)
	again, err := c.GetOrCreateWikiUser(ctx, "Magnus")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.True(t, u.IsWikiUser)

	require.NoError(t, c.SetAuthToken(ctx, u.ID, "tok-1"))
	byToken, err := c.UserByAuthToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byToken.ID)
	assert.Equal(t, "tok-1", byToken.AuthToken)

	_, err = c.UserByAuthToken(ctx, "nope")
	assert.Equal(t, gerrors.ErrCategoryAccess, gerrors.GetCategory(err))
	_, err = c.UserByAuthToken(ctx, "")
	assert.Equal(t, gerrors.CodeNotLoggedIn, gerrors.GetCode(err))

	_, err = c.GetUser(ctx, 4242)
	assert.Equal(t, gerrors.CodeUserNotFound, gerrors.GetCode(err))
}

func TestFiles(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	id, err := c.CreateFile(ctx, "uploads/abc.sz", 7, "data.csv")
	require.NoError(t, err)
	f, err := c.GetFile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.File{ID: id, Path: "uploads/abc.sz", UserID: 7, OriginalFilename: "data.csv"}, *f)

	_, err = c.GetFile(ctx, id+1)
	assert.Equal(t, gerrors.CodeFileRecordNotFound, gerrors.GetCode(err))
}
