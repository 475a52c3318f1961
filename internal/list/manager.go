// Package list is the revision controller of gulp lists: it serializes
// mutations per list, advances revisions on snapshot and writes new rows
// through a content hash dedup check.
package list

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gulp-tools/gulp/internal/catalog"
	"github.com/gulp-tools/gulp/internal/cell"
	gerrors "github.com/gulp-tools/gulp/internal/errors"
	"github.com/gulp-tools/gulp/internal/header"
	"github.com/gulp-tools/gulp/internal/logging"
	"github.com/gulp-tools/gulp/internal/observability"
	"github.com/gulp-tools/gulp/internal/source"
	"github.com/gulp-tools/gulp/pkg/types"
)

// DefaultBatchSize is the number of rows committed per transaction.
const DefaultBatchSize = 1000

// CellSource decodes data sources into cells.
type CellSource interface {
	GetCells(ctx context.Context, ds *types.DataSource, headers []cell.Column, limit int) (*source.CellSet, error)
	GuessHeaders(ctx context.Context, ds *types.DataSource, limit int) (*source.CellSet, error)
}

// FileChecker resolves uploaded files that FILE sources point to.
type FileChecker interface {
	Stat(ctx context.Context, fileID int64) (*types.File, error)
}

// Options configure a Manager.
type Options struct {
	Catalog catalog.Catalog
	Source  CellSource
	// Files, when set, makes CreateDataSource verify that a FILE source's
	// upload exists and belongs to the registering user.
	Files     FileChecker
	BatchSize int
	// Stats receives one record per UpdateFromSource call; nil disables it.
	Stats  *observability.SourceStats
	Logger *slog.Logger
}

// Manager is the shared handle every request and command goes through.
type Manager struct {
	catalog   catalog.Catalog
	source    CellSource
	files     FileChecker
	locks     *LockRegistry
	batchSize int
	stats     *observability.SourceStats
	logger    *slog.Logger
}

// NewManager creates a manager.
func NewManager(opts Options) *Manager {
	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	return &Manager{
		catalog:   opts.Catalog,
		source:    opts.Source,
		files:     opts.Files,
		locks:     NewLockRegistry(),
		batchSize: batch,
		stats:     opts.Stats,
		logger:    logging.OrDefault(opts.Logger),
	}
}

// Catalog returns the underlying store.
func (m *Manager) Catalog() catalog.Catalog { return m.catalog }

// SourceStats returns the import tracker, nil when disabled.
func (m *Manager) SourceStats() *observability.SourceStats { return m.stats }

// Load reads a list and its current header without taking the list lock.
// Use it for single statement reads.
func (m *Manager) Load(ctx context.Context, listID int64) (*List, error) {
	summary, err := m.catalog.GetList(ctx, listID)
	if err != nil {
		return nil, err
	}
	h, err := m.catalog.HeaderForRevision(ctx, listID, summary.RevisionID)
	if err != nil {
		return nil, err
	}
	return &List{
		ID:         summary.ID,
		Name:       summary.Name,
		RevisionID: summary.RevisionID,
		Header:     h,
		m:          m,
	}, nil
}

// Acquire locks a list and loads it fresh. The returned func releases the
// lock and must be called exactly once.
func (m *Manager) Acquire(ctx context.Context, listID int64) (*List, func(), error) {
	mu := m.locks.Get(listID)
	mu.Lock()
	l, err := m.Load(ctx, listID)
	if err != nil {
		mu.Unlock()
		return nil, nil, err
	}
	return l, mu.Unlock, nil
}

// CreateNew creates a list typed with an existing header schema and makes
// the creator its admin.
func (m *Manager) CreateNew(ctx context.Context, name string, headerSchemaID, userID int64) (*List, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, gerrors.NewPreconditionError(gerrors.CodeInvalidArgument, "A list needs a name")
	}
	listID, err := m.catalog.CreateListWithHeader(ctx, name, headerSchemaID, userID)
	if err != nil {
		return nil, err
	}
	m.logger.Info("created list", "list_id", listID, "name", name, "header_schema_id", headerSchemaID, "user_id", userID)
	return m.Load(ctx, listID)
}

// CreateHeaderSchema parses and stores a new header schema.
func (m *Manager) CreateHeaderSchema(ctx context.Context, name, js string) (*header.Schema, error) {
	s, err := header.ParseSchema(name, js)
	if err != nil {
		return nil, gerrors.NewSchemaError(gerrors.CodeInvalidSchema, err.Error())
	}
	if _, err := m.catalog.CreateHeaderSchema(ctx, s); err != nil {
		return nil, err
	}
	m.logger.Info("created header schema", "header_schema_id", s.ID, "name", s.Name)
	return s, nil
}

// CreateDataSource registers a source on an existing list.
func (m *Manager) CreateDataSource(ctx context.Context, ds *types.DataSource) error {
	if _, err := m.catalog.GetList(ctx, ds.ListID); err != nil {
		return err
	}
	st, ok := types.ParseSourceType(string(ds.SourceType))
	if !ok {
		return gerrors.NewPreconditionError(gerrors.CodeUnsupportedSource,
			fmt.Sprintf("Unsupported source type %q", ds.SourceType))
	}
	sf, ok := types.ParseSourceFormat(string(ds.SourceFormat))
	if !ok {
		return gerrors.NewPreconditionError(gerrors.CodeUnsupportedSource,
			fmt.Sprintf("Unsupported source format %q", ds.SourceFormat))
	}
	ds.SourceType, ds.SourceFormat = st, sf
	ds.Location = strings.TrimSpace(ds.Location)
	if ds.Location == "" {
		return gerrors.NewPreconditionError(gerrors.CodeInvalidArgument, "A data source needs a location")
	}
	if ds.SourceType == types.SourceFile && m.files != nil {
		if err := m.checkUpload(ctx, ds); err != nil {
			return err
		}
	}
	if _, err := m.catalog.CreateDataSource(ctx, ds); err != nil {
		return err
	}
	m.logger.Info("created data source", "source_id", ds.ID, "list_id", ds.ListID,
		"type", ds.SourceType, "format", ds.SourceFormat)
	return nil
}

// checkUpload makes sure a FILE source points at an existing upload of the
// user registering it.
func (m *Manager) checkUpload(ctx context.Context, ds *types.DataSource) error {
	fileID, err := strconv.ParseInt(ds.Location, 10, 64)
	if err != nil || fileID <= 0 {
		return gerrors.NewPreconditionError(gerrors.CodeInvalidArgument,
			fmt.Sprintf("File location %q is not an uploaded file id", ds.Location))
	}
	f, err := m.files.Stat(ctx, fileID)
	if err != nil {
		return err
	}
	if f.UserID != ds.UserID {
		return gerrors.NewAccessError(gerrors.CodeForbidden,
			fmt.Sprintf("Uploaded file #%d belongs to another user", fileID))
	}
	return nil
}

// GuessHeaders previews a source with inferred column types.
func (m *Manager) GuessHeaders(ctx context.Context, ds *types.DataSource, limit int) (*source.CellSet, error) {
	return m.source.GuessHeaders(ctx, ds, limit)
}

// Rights returns the rights userID holds on a list, including those granted
// to everyone.
func (m *Manager) Rights(ctx context.Context, userID, listID int64) (types.RightSet, error) {
	return m.catalog.AccessRights(ctx, userID, listID)
}

// Require fails with an access error unless userID may exercise right on
// the list.
func (m *Manager) Require(ctx context.Context, userID, listID int64, right types.Right) error {
	rs, err := m.Rights(ctx, userID, listID)
	if err != nil {
		return err
	}
	if !rs.Allows(right) {
		return gerrors.NewAccessError(gerrors.CodeForbidden,
			fmt.Sprintf("User #%d lacks the %s right on list #%d", userID, right, listID))
	}
	return nil
}

// ListsByUserRights returns the lists a user holds any of rights on; no
// rights means any right.
func (m *Manager) ListsByUserRights(ctx context.Context, userID int64, rights []types.Right) ([]types.ListSummary, error) {
	return m.catalog.ListsByUserRights(ctx, userID, rights)
}

func CanUpdateFromSource(rs types.RightSet) bool { return rs.Allows(types.RightUpdateFromSource) }
func CanCreateSnapshot(rs types.RightSet) bool   { return rs.Allows(types.RightCreateSnapshot) }
func CanCreateDataSource(rs types.RightSet) bool { return rs.Allows(types.RightCreateDataSource) }
func CanSetHeaderSchema(rs types.RightSet) bool  { return rs.Allows(types.RightSetHeaderSchema) }
func CanEditRow(rs types.RightSet) bool          { return rs.Allows(types.RightEditRow) }
