package list

import (
	"context"
	"fmt"
	"strings"
	"time"

	gerrors "github.com/gulp-tools/gulp/internal/errors"
	"github.com/gulp-tools/gulp/internal/header"
	"github.com/gulp-tools/gulp/internal/logging"
	"github.com/gulp-tools/gulp/internal/row"
	"github.com/gulp-tools/gulp/internal/source"
	"github.com/gulp-tools/gulp/pkg/types"
)

// List is a loaded list. RevisionID is always the current revision; writes
// land in it and reads may ask for any earlier one.
type List struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	RevisionID int64          `json:"revision_id"`
	Header     *header.Header `json:"header"`

	m *Manager
}

// Schema is the header schema in force at the current revision.
func (l *List) Schema() *header.Schema {
	return &l.Header.Schema
}

// Snapshot closes the current revision if any row was written in it and
// returns the revision new writes go to. Without such rows the current
// revision is returned unchanged.
func (l *List) Snapshot(ctx context.Context) (int64, error) {
	n, err := l.m.catalog.CountRowsAtRevision(ctx, l.ID, l.RevisionID)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return l.RevisionID, nil
	}
	next := l.RevisionID + 1
	if err := l.m.catalog.SetListRevision(ctx, l.ID, next); err != nil {
		return 0, err
	}
	l.m.logger.Info("created snapshot", "list_id", l.ID, "revision_id", next, "rows_in_previous", n)
	l.RevisionID = next
	return next, nil
}

// SchemaAt returns the header schema in force at a revision.
func (l *List) SchemaAt(ctx context.Context, revisionID int64) (*header.Schema, error) {
	if revisionID >= l.RevisionID {
		return l.Schema(), nil
	}
	h, err := l.m.catalog.HeaderForRevision(ctx, l.ID, revisionID)
	if err != nil {
		return nil, err
	}
	return &h.Schema, nil
}

// RowsForRevision returns the rows visible at revisionID ordered by row
// number, with their cells decoded. length <= 0 means no limit.
func (l *List) RowsForRevision(ctx context.Context, revisionID, start, length int64) ([]*row.Row, error) {
	schema, err := l.SchemaAt(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	rows, err := l.m.catalog.RowsForRevision(ctx, l.ID, revisionID, start, length)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := r.DecodeCells(schema); err != nil {
			return nil, gerrors.NewDecodeError(gerrors.CodeMalformedJSON, err.Error(), err)
		}
	}
	return rows, nil
}

// Row returns row rowNum as visible at revisionID.
func (l *List) Row(ctx context.Context, rowNum, revisionID int64) (*row.Row, error) {
	schema, err := l.SchemaAt(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	r, err := l.m.catalog.GetRow(ctx, l.ID, rowNum, revisionID)
	if err != nil {
		return nil, err
	}
	if err := r.DecodeCells(schema); err != nil {
		return nil, gerrors.NewDecodeError(gerrors.CodeMalformedJSON, err.Error(), err)
	}
	return r, nil
}

// CountRows counts the rows visible at revisionID.
func (l *List) CountRows(ctx context.Context, revisionID int64) (int64, error) {
	return l.m.catalog.CountRowsForRevision(ctx, l.ID, revisionID)
}

// UsersInRevision maps the ids of users who wrote the rows visible at
// revisionID to their names.
func (l *List) UsersInRevision(ctx context.Context, revisionID int64) (map[int64]string, error) {
	return l.m.catalog.UsersInRevision(ctx, l.ID, revisionID)
}

// Sources returns the data sources registered on the list.
func (l *List) Sources(ctx context.Context) ([]types.DataSource, error) {
	return l.m.catalog.ListDataSources(ctx, l.ID)
}

// SetHeaderSchema types the list with another schema from the current
// revision on. A revision's schema is fixed once rows were written under
// it, so a populated current revision is snapshotted first and the schema
// bound to the new one.
func (l *List) SetHeaderSchema(ctx context.Context, schemaID int64) error {
	schema, err := l.m.catalog.GetHeaderSchema(ctx, schemaID)
	if err != nil {
		return err
	}
	if _, err := l.Snapshot(ctx); err != nil {
		return err
	}
	id, err := l.m.catalog.ReplaceHeader(ctx, l.ID, l.RevisionID, schemaID)
	if err != nil {
		return err
	}
	l.Header = &header.Header{ID: id, ListID: l.ID, RevisionID: l.RevisionID, Schema: *schema}
	l.m.logger.Info("set header schema", "list_id", l.ID, "revision_id", l.RevisionID, "header_schema_id", schemaID)
	return nil
}

// AddAccess grants a right on the list. Granting twice is harmless.
func (l *List) AddAccess(ctx context.Context, userID int64, right types.Right) error {
	return l.m.catalog.AddAccess(ctx, l.ID, userID, right)
}

// ImportStats summarizes one import.
type ImportStats struct {
	Seen        int   `json:"seen"`
	Inserted    int   `json:"inserted"`
	Skipped     int   `json:"skipped"`
	Batches     int   `json:"batches"`
	FirstRowNum int64 `json:"first_row_num,omitempty"`
	LastRowNum  int64 `json:"last_row_num,omitempty"`
}

// ImportCellSet appends the rows of cs whose content is not already visible
// anywhere in the list. Rows are written at the current revision in
// transactions of the manager's batch size; batches committed before an
// error stay committed.
func (l *List) ImportCellSet(ctx context.Context, cs *source.CellSet, userID int64) (ImportStats, error) {
	start := time.Now()
	var stats ImportStats

	seen, err := l.m.catalog.VisibleRowMD5s(ctx, l.ID)
	if err != nil {
		return stats, err
	}
	maxRowNum, err := l.m.catalog.MaxVisibleRowNum(ctx, l.ID)
	if err != nil {
		return stats, err
	}
	next := maxRowNum + 1

	batch := make([]*row.Row, 0, l.m.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := l.m.catalog.InsertRows(ctx, batch); err != nil {
			return err
		}
		stats.Inserted += len(batch)
		stats.Batches++
		batch = make([]*row.Row, 0, l.m.batchSize)
		return nil
	}

	for _, cells := range cs.Rows {
		stats.Seen++
		r, err := row.New(l.ID, next, l.RevisionID, userID, cells, l.Schema())
		if err != nil {
			return stats, gerrors.NewInternalError(fmt.Sprintf("Could not encode row %d", stats.Seen), err)
		}
		if _, dup := seen[r.JSONMD5]; dup {
			stats.Skipped++
			continue
		}
		seen[r.JSONMD5] = struct{}{}
		if stats.FirstRowNum == 0 {
			stats.FirstRowNum = next
		}
		stats.LastRowNum = next
		next++

		batch = append(batch, r)
		if len(batch) >= l.m.batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}

	l.m.logger.Info("imported rows",
		"list_id", l.ID, "revision_id", l.RevisionID, "user_id", userID,
		"seen", stats.Seen, "inserted", stats.Inserted, "skipped", stats.Skipped,
		"batches", stats.Batches, logging.Since(start))
	return stats, nil
}

// UpdateFromSource fetches and decodes a data source of this list under the
// list's columns and imports it.
func (l *List) UpdateFromSource(ctx context.Context, ds *types.DataSource, userID int64) (ImportStats, error) {
	if ds.ListID != l.ID {
		return ImportStats{}, gerrors.NewPreconditionError(gerrors.CodeInvalidArgument,
			fmt.Sprintf("Data source #%d belongs to list #%d, not #%d", ds.ID, ds.ListID, l.ID))
	}
	start := time.Now()
	stats, err := l.updateFromSource(ctx, ds, userID)
	var code string
	if err != nil {
		if code = gerrors.GetCode(err); code == "" {
			code = "UNKNOWN"
		}
	}
	kind := strings.ToLower(string(ds.SourceType) + "/" + string(ds.SourceFormat))
	l.m.stats.Record(kind, stats.Inserted, stats.Skipped, time.Since(start), code)
	return stats, err
}

func (l *List) updateFromSource(ctx context.Context, ds *types.DataSource, userID int64) (ImportStats, error) {
	cs, err := l.m.source.GetCells(ctx, ds, l.Schema().Columns, 0)
	if err != nil {
		return ImportStats{}, err
	}
	return l.ImportCellSet(ctx, cs, userID)
}
