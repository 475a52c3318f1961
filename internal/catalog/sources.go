package catalog

import (
	"context"
	"database/sql"
	"fmt"

	gerrors "github.com/gulp-tools/gulp/internal/errors"
	"github.com/gulp-tools/gulp/pkg/types"
)

const dataSourceColumns = "`id`,`list_id`,`source_type`,`source_format`,`location`,`user_id`"

// CreateDataSource stores a data source and sets its ID.
func (c *SQLCatalog) CreateDataSource(ctx context.Context, ds *types.DataSource) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		"INSERT INTO `data_source` (`list_id`,`source_type`,`source_format`,`location`,`user_id`) VALUES (?,?,?,?,?)",
		ds.ListID, string(ds.SourceType), string(ds.SourceFormat), ds.Location, ds.UserID)
	if err != nil {
		return 0, queryFailed("insert data source", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, queryFailed("read data source id", err)
	}
	ds.ID = id
	return id, nil
}

// GetDataSource loads a data source by id.
func (c *SQLCatalog) GetDataSource(ctx context.Context, sourceID int64) (*types.DataSource, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT "+dataSourceColumns+" FROM `data_source` WHERE `id`=?", sourceID)
	if err != nil {
		return nil, queryFailed("query data source", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, queryFailed("query data source", err)
		}
		return nil, gerrors.NewNotFoundError(gerrors.CodeSourceNotFound, fmt.Sprintf("No data source #%d", sourceID))
	}
	return scanDataSource(rows)
}

// ListDataSources returns the data sources of a list ordered by id. Rows
// with an unknown type or format are skipped.
func (c *SQLCatalog) ListDataSources(ctx context.Context, listID int64) ([]types.DataSource, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT "+dataSourceColumns+" FROM `data_source` WHERE `list_id`=? ORDER BY `id`", listID)
	if err != nil {
		return nil, queryFailed("query data sources", err)
	}
	defer rows.Close()

	var out []types.DataSource
	for rows.Next() {
		ds, err := scanDataSource(rows)
		if gerrors.GetCategory(err) == gerrors.ErrCategoryPrecondition {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *ds)
	}
	if err := rows.Err(); err != nil {
		return nil, queryFailed("iterate data sources", err)
	}
	return out, nil
}

func scanDataSource(rows *sql.Rows) (*types.DataSource, error) {
	var ds types.DataSource
	var st, sf string
	if err := rows.Scan(&ds.ID, &ds.ListID, &st, &sf, &ds.Location, &ds.UserID); err != nil {
		return nil, queryFailed("scan data source", err)
	}
	var ok bool
	if ds.SourceType, ok = types.ParseSourceType(st); !ok {
		return nil, gerrors.NewPreconditionError(gerrors.CodeUnsupportedSource,
			fmt.Sprintf("Data source #%d has unknown type %q", ds.ID, st))
	}
	if ds.SourceFormat, ok = types.ParseSourceFormat(sf); !ok {
		return nil, gerrors.NewPreconditionError(gerrors.CodeUnsupportedSource,
			fmt.Sprintf("Data source #%d has unknown format %q", ds.ID, sf))
	}
	return &ds, nil
}
