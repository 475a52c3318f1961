package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	gerrors "github.com/gulp-tools/gulp/internal/errors"
	"github.com/gulp-tools/gulp/pkg/types"
)

const userColumns = "`id`,`name`,`is_wiki_user`,`auth_token`"

// CreateUser inserts a user and returns its id.
func (c *SQLCatalog) CreateUser(ctx context.Context, name string, isWikiUser bool) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		"INSERT INTO `user` (`name`,`is_wiki_user`) VALUES (?,?)", name, boolInt(isWikiUser))
	if err != nil {
		return 0, queryFailed("insert user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, queryFailed("read user id", err)
	}
	return id, nil
}

// GetOrCreateWikiUser returns the wiki user with that name, creating it on
// first sight.
func (c *SQLCatalog) GetOrCreateWikiUser(ctx context.Context, name string) (*types.User, error) {
	ins := c.dialect.insertIgnore() + " INTO `user` (`name`,`is_wiki_user`) VALUES (?,1)"
	if _, err := c.db.ExecContext(ctx, ins, name); err != nil {
		return nil, queryFailed("insert wiki user", err)
	}
	return c.queryUser(ctx, "SELECT "+userColumns+" FROM `user` WHERE `name`=? AND `is_wiki_user`=1", name)
}

// GetUser loads a user by id.
func (c *SQLCatalog) GetUser(ctx context.Context, userID int64) (*types.User, error) {
	return c.queryUser(ctx, "SELECT "+userColumns+" FROM `user` WHERE `id`=?", userID)
}

// UserByAuthToken resolves an API token.
func (c *SQLCatalog) UserByAuthToken(ctx context.Context, token string) (*types.User, error) {
	if token == "" {
		return nil, gerrors.NewAccessError(gerrors.CodeNotLoggedIn, "Not logged in")
	}
	u, err := c.queryUser(ctx, "SELECT "+userColumns+" FROM `user` WHERE `auth_token`=?", token)
	if gerrors.GetCategory(err) == gerrors.ErrCategoryNotFound {
		return nil, gerrors.NewAccessError(gerrors.CodeNotLoggedIn, "Unknown auth token")
	}
	return u, err
}

// SetAuthToken stores a new API token for the user.
func (c *SQLCatalog) SetAuthToken(ctx context.Context, userID int64, token string) error {
	if _, err := c.db.ExecContext(ctx, "UPDATE `user` SET `auth_token`=? WHERE `id`=?", token, userID); err != nil {
		return queryFailed("set auth token", err)
	}
	return nil
}

func (c *SQLCatalog) queryUser(ctx context.Context, query string, args ...any) (*types.User, error) {
	var u types.User
	var wiki int64
	var token sql.NullString
	err := c.db.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.Name, &wiki, &token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gerrors.NewNotFoundError(gerrors.CodeUserNotFound, "No such user")
	}
	if err != nil {
		return nil, queryFailed("load user", err)
	}
	u.IsWikiUser = wiki != 0
	u.AuthToken = token.String
	return &u, nil
}

// AddAccess grants a right. Granting an existing right is a no-op.
func (c *SQLCatalog) AddAccess(ctx context.Context, listID, userID int64, right types.Right) error {
	q := c.dialect.insertIgnore() + " INTO `access` (`list_id`,`user_id`,`right`) VALUES (?,?,?)"
	if _, err := c.db.ExecContext(ctx, q, listID, userID, string(right)); err != nil {
		return queryFailed(fmt.Sprintf("grant %s on list #%d", right, listID), err)
	}
	return nil
}

// AccessRights returns the rights the user holds on a list, including those
// granted to everyone.
func (c *SQLCatalog) AccessRights(ctx context.Context, userID, listID int64) (types.RightSet, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT DISTINCT `right` FROM `access` WHERE `list_id`=? AND `user_id` IN (?,?)",
		listID, userID, types.EveryoneUserID)
	if err != nil {
		return nil, queryFailed("query access", err)
	}
	defer rows.Close()

	rs := types.NewRightSet()
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, queryFailed("scan access", err)
		}
		rs[types.Right(r)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, queryFailed("iterate access", err)
	}
	return rs, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
