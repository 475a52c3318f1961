package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	gerrors "github.com/gulp-tools/gulp/internal/errors"
	"github.com/gulp-tools/gulp/pkg/types"
)

// CreateList inserts a list at revision 0.
func (c *SQLCatalog) CreateList(ctx context.Context, name string) (int64, error) {
	res, err := c.db.ExecContext(ctx, "INSERT INTO `list` (`name`,`revision_id`) VALUES (?,0)", name)
	if err != nil {
		return 0, queryFailed("insert list", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, queryFailed("read list id", err)
	}
	return id, nil
}

// CreateListWithHeader inserts a list at revision 0, binds schemaID to it
// and grants adminUserID the admin right, all in one transaction. An
// unknown schema leaves nothing behind.
func (c *SQLCatalog) CreateListWithHeader(ctx context.Context, name string, schemaID, adminUserID int64) (int64, error) {
	tx, err := c.db.BeginTx(ctx, c.dialect.txOptions())
	if err != nil {
		return 0, gerrors.NewStorageError(gerrors.CodeTxFailed, "catalog: failed to begin transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "INSERT INTO `list` (`name`,`revision_id`) VALUES (?,0)", name)
	if err != nil {
		return 0, queryFailed("insert list", err)
	}
	listID, err := res.LastInsertId()
	if err != nil {
		return 0, queryFailed("read list id", err)
	}

	res, err = tx.ExecContext(ctx,
		"INSERT INTO `header` (`list_id`,`revision_id`,`header_schema_id`) "+
			"SELECT ?,0,`id` FROM `header_schema` WHERE `id`=?",
		listID, schemaID)
	if err != nil {
		return 0, queryFailed("insert header", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, queryFailed("insert header", err)
	} else if n == 0 {
		return 0, gerrors.NewNotFoundError(gerrors.CodeSchemaMissing, fmt.Sprintf("No header schema #%d", schemaID))
	}

	q := c.dialect.insertIgnore() + " INTO `access` (`list_id`,`user_id`,`right`) VALUES (?,?,?)"
	if _, err := tx.ExecContext(ctx, q, listID, adminUserID, string(types.RightAdmin)); err != nil {
		return 0, queryFailed(fmt.Sprintf("grant admin on list #%d", listID), err)
	}

	if err := tx.Commit(); err != nil {
		return 0, gerrors.NewStorageError(gerrors.CodeTxFailed, "catalog: failed to commit list", err)
	}
	return listID, nil
}

// GetList returns the bare list record.
func (c *SQLCatalog) GetList(ctx context.Context, listID int64) (*types.ListSummary, error) {
	var l types.ListSummary
	err := c.db.QueryRowContext(ctx,
		"SELECT `id`,`name`,`revision_id` FROM `list` WHERE `id`=?", listID,
	).Scan(&l.ID, &l.Name, &l.RevisionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gerrors.NewNotFoundError(gerrors.CodeListNotFound, fmt.Sprintf("No list #%d", listID))
	}
	if err != nil {
		return nil, queryFailed("load list", err)
	}
	return &l, nil
}

// SetListRevision moves the list's current revision pointer.
func (c *SQLCatalog) SetListRevision(ctx context.Context, listID, revisionID int64) error {
	if _, err := c.db.ExecContext(ctx, "UPDATE `list` SET `revision_id`=? WHERE `id`=?", revisionID, listID); err != nil {
		return queryFailed("update list revision", err)
	}
	return nil
}

// ListsByUserRights returns the lists on which the user, directly or through
// the everyone user, holds any of the rights. No rights means any right.
func (c *SQLCatalog) ListsByUserRights(ctx context.Context, userID int64, rights []types.Right) ([]types.ListSummary, error) {
	query := "SELECT DISTINCT `list`.`id`,`list`.`name`,`list`.`revision_id` FROM `list`,`access` " +
		"WHERE `access`.`list_id`=`list`.`id` AND `access`.`user_id` IN (?,?)"
	args := []any{userID, types.EveryoneUserID}
	if len(rights) > 0 {
		query += " AND `access`.`right` IN (" + placeholders(len(rights)) + ")"
		for _, r := range rights {
			args = append(args, string(r))
		}
	}
	query += " ORDER BY `list`.`id`"

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, queryFailed("query lists by rights", err)
	}
	defer rows.Close()

	var out []types.ListSummary
	for rows.Next() {
		var l types.ListSummary
		if err := rows.Scan(&l.ID, &l.Name, &l.RevisionID); err != nil {
			return nil, queryFailed("scan list", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, queryFailed("iterate lists", err)
	}
	return out, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
