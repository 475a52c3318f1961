package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	gerrors "github.com/gulp-tools/gulp/internal/errors"
	"github.com/gulp-tools/gulp/pkg/types"
)

// CreateFile registers an uploaded file stored at path.
func (c *SQLCatalog) CreateFile(ctx context.Context, path string, userID int64, originalFilename string) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		"INSERT INTO `file` (`path`,`user_id`,`original_filename`) VALUES (?,?,?)",
		path, userID, originalFilename)
	if err != nil {
		return 0, queryFailed("insert file", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, queryFailed("read file id", err)
	}
	return id, nil
}

// GetFile loads a file record by id.
func (c *SQLCatalog) GetFile(ctx context.Context, fileID int64) (*types.File, error) {
	var f types.File
	err := c.db.QueryRowContext(ctx,
		"SELECT `id`,`path`,`user_id`,`original_filename` FROM `file` WHERE `id`=?", fileID,
	).Scan(&f.ID, &f.Path, &f.UserID, &f.OriginalFilename)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gerrors.NewNotFoundError(gerrors.CodeFileRecordNotFound, fmt.Sprintf("No file #%d", fileID))
	}
	if err != nil {
		return nil, queryFailed("load file", err)
	}
	return &f, nil
}

// FilePaths returns the object paths of every registered file.
func (c *SQLCatalog) FilePaths(ctx context.Context) (map[string]struct{}, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT `path` FROM `file`")
	if err != nil {
		return nil, queryFailed("query file paths", err)
	}
	defer rows.Close()

	paths := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, queryFailed("scan file path", err)
		}
		paths[p] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, queryFailed("iterate file paths", err)
	}
	return paths, nil
}
