package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	gerrors "github.com/gulp-tools/gulp/internal/errors"
	"github.com/gulp-tools/gulp/internal/row"
)

// visibleAsOf selects, per row_num, the row with the greatest revision not
// after the given one. Arguments: list, revision, list, revision.
const visibleAsOf = "`row`.`revision_id`=(SELECT max(`i`.`revision_id`) FROM `row` `i` " +
	"WHERE `i`.`row_num`=`row`.`row_num` AND `i`.`list_id`=? AND `i`.`revision_id`<=?) " +
	"AND `row`.`list_id`=? AND `row`.`revision_id`<=?"

const rowColumns = "`row`.`id`,`row`.`list_id`,`row`.`row_num`,`row`.`revision_id`,`row`.`json`,`row`.`json_md5`,`row`.`user_id`,`row`.`modified`"

func visibleArgs(listID, revisionID int64) []any {
	return []any{listID, revisionID, listID, revisionID}
}

// RowsForRevision returns the rows visible at revisionID ordered by row_num.
// A length of zero or less means no limit. Cells are not decoded.
func (c *SQLCatalog) RowsForRevision(ctx context.Context, listID, revisionID, start, length int64) ([]*row.Row, error) {
	if length <= 0 {
		length = math.MaxInt64
	}
	if start < 0 {
		start = 0
	}
	args := append(visibleArgs(listID, revisionID), length, start)
	rows, err := c.db.QueryContext(ctx,
		"SELECT "+rowColumns+" FROM `row` WHERE "+visibleAsOf+" ORDER BY `row`.`row_num` LIMIT ? OFFSET ?",
		args...)
	if err != nil {
		return nil, queryFailed("query rows", err)
	}
	defer rows.Close()

	var out []*row.Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, queryFailed("iterate rows", err)
	}
	return out, nil
}

// CountRowsForRevision counts the rows visible at revisionID.
func (c *SQLCatalog) CountRowsForRevision(ctx context.Context, listID, revisionID int64) (int64, error) {
	var n int64
	err := c.db.QueryRowContext(ctx,
		"SELECT count(*) FROM `row` WHERE "+visibleAsOf, visibleArgs(listID, revisionID)...,
	).Scan(&n)
	if err != nil {
		return 0, queryFailed("count rows", err)
	}
	return n, nil
}

// UsersInRevision maps the ids of users who wrote rows visible at revisionID
// to their names.
func (c *SQLCatalog) UsersInRevision(ctx context.Context, listID, revisionID int64) (map[int64]string, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT DISTINCT `row`.`user_id`,`user`.`name` FROM `row`,`user` WHERE "+visibleAsOf+
			" AND `row`.`user_id`=`user`.`id`",
		visibleArgs(listID, revisionID)...)
	if err != nil {
		return nil, queryFailed("query row users", err)
	}
	return scanUserNames(rows)
}

// UsersByID maps the given user ids to names. Unknown ids are absent.
func (c *SQLCatalog) UsersByID(ctx context.Context, userIDs []int64) (map[int64]string, error) {
	if len(userIDs) == 0 {
		return map[int64]string{}, nil
	}
	args := make([]any, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}
	rows, err := c.db.QueryContext(ctx,
		"SELECT DISTINCT `id`,`name` FROM `user` WHERE `id` IN ("+placeholders(len(userIDs))+")", args...)
	if err != nil {
		return nil, queryFailed("query users", err)
	}
	return scanUserNames(rows)
}

func scanUserNames(rows *sql.Rows) (map[int64]string, error) {
	defer rows.Close()
	out := map[int64]string{}
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, queryFailed("scan user", err)
		}
		out[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, queryFailed("iterate users", err)
	}
	return out, nil
}

// VisibleRowMD5s returns the content hashes of the rows visible at the
// list's newest revision.
func (c *SQLCatalog) VisibleRowMD5s(ctx context.Context, listID int64) (map[string]struct{}, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT `row`.`json_md5` FROM `row` WHERE "+visibleAsOf,
		visibleArgs(listID, math.MaxInt64)...)
	if err != nil {
		return nil, queryFailed("query row hashes", err)
	}
	defer rows.Close()

	out := map[string]struct{}{}
	for rows.Next() {
		var md5 string
		if err := rows.Scan(&md5); err != nil {
			return nil, queryFailed("scan row hash", err)
		}
		out[md5] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, queryFailed("iterate row hashes", err)
	}
	return out, nil
}

// MaxVisibleRowNum returns the greatest row_num in use, or 0.
func (c *SQLCatalog) MaxVisibleRowNum(ctx context.Context, listID int64) (int64, error) {
	var n int64
	err := c.db.QueryRowContext(ctx,
		"SELECT IFNULL(max(`row`.`row_num`),0) FROM `row` WHERE "+visibleAsOf,
		visibleArgs(listID, math.MaxInt64)...,
	).Scan(&n)
	if err != nil {
		return 0, queryFailed("query max row number", err)
	}
	return n, nil
}

// CountRowsAtRevision counts rows written exactly at revisionID.
func (c *SQLCatalog) CountRowsAtRevision(ctx context.Context, listID, revisionID int64) (int64, error) {
	var n int64
	err := c.db.QueryRowContext(ctx,
		"SELECT count(`id`) FROM `row` WHERE `list_id`=? AND `revision_id`=?", listID, revisionID,
	).Scan(&n)
	if err != nil {
		return 0, queryFailed("count rows at revision", err)
	}
	return n, nil
}

// GetRow returns row rowNum as of revisionID.
func (c *SQLCatalog) GetRow(ctx context.Context, listID, rowNum, revisionID int64) (*row.Row, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT "+rowColumns+" FROM `row` WHERE `list_id`=? AND `row_num`=? AND `revision_id`<=? "+
			"ORDER BY `revision_id` DESC LIMIT 1",
		listID, rowNum, revisionID)
	if err != nil {
		return nil, queryFailed("query row", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, queryFailed("query row", err)
		}
		return nil, gerrors.NewNotFoundError(gerrors.CodeRowNotFound,
			fmt.Sprintf("No row %d in list #%d at revision %d", rowNum, listID, revisionID))
	}
	return scanRow(rows)
}

// InsertRows writes a batch in one transaction. Either every row of the
// batch is committed or none is.
func (c *SQLCatalog) InsertRows(ctx context.Context, batch []*row.Row) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, c.dialect.txOptions())
	if err != nil {
		return gerrors.NewStorageError(gerrors.CodeTxFailed, "catalog: failed to begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO `row` (`list_id`,`row_num`,`revision_id`,`json`,`json_md5`,`user_id`) VALUES (?,?,?,?,?,?)")
	if err != nil {
		return gerrors.NewStorageError(gerrors.CodeTxFailed, "catalog: failed to prepare row insert", err)
	}
	defer stmt.Close()

	for _, r := range batch {
		res, err := stmt.ExecContext(ctx, r.ListID, r.RowNum, r.RevisionID, r.JSON, r.JSONMD5, r.UserID)
		if err != nil {
			return gerrors.NewStorageError(gerrors.CodeTxFailed,
				fmt.Sprintf("catalog: failed to insert row %d", r.RowNum), err)
		}
		if id, err := res.LastInsertId(); err == nil {
			r.ID = id
		}
	}

	if err := tx.Commit(); err != nil {
		return gerrors.NewStorageError(gerrors.CodeTxFailed, "catalog: failed to commit rows", err)
	}
	return nil
}

func scanRow(rows *sql.Rows) (*row.Row, error) {
	var r row.Row
	var modified timestampText
	if err := rows.Scan(&r.ID, &r.ListID, &r.RowNum, &r.RevisionID, &r.JSON, &r.JSONMD5, &r.UserID, &modified); err != nil {
		return nil, queryFailed("scan row", err)
	}
	r.Modified = string(modified)
	return &r, nil
}

// timestampText scans a TIMESTAMP (MySQL with parseTime) or TEXT (SQLite)
// column into "YYYY-MM-DD hh:mm:ss".
type timestampText string

func (t *timestampText) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = ""
	case time.Time:
		*t = timestampText(v.UTC().Format(time.DateTime))
	case []byte:
		*t = timestampText(v)
	case string:
		*t = timestampText(v)
	default:
		return errors.New("catalog: unsupported timestamp value")
	}
	return nil
}
