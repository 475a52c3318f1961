// Package catalog is the relational store behind lists, headers, rows, data
// sources, users and uploaded files. It runs on SQLite for single node setups
// and tests, and on MySQL in production.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	gerrors "github.com/gulp-tools/gulp/internal/errors"
	"github.com/gulp-tools/gulp/internal/header"
	"github.com/gulp-tools/gulp/internal/row"
	"github.com/gulp-tools/gulp/pkg/types"
)

// Catalog is the set of statements the list controller, the ingestion
// pipeline and the API issue against the store.
type Catalog interface {
	// Lists
	CreateList(ctx context.Context, name string) (int64, error)
	CreateListWithHeader(ctx context.Context, name string, schemaID, adminUserID int64) (int64, error)
	GetList(ctx context.Context, listID int64) (*types.ListSummary, error)
	SetListRevision(ctx context.Context, listID, revisionID int64) error
	ListsByUserRights(ctx context.Context, userID int64, rights []types.Right) ([]types.ListSummary, error)

	// Header schemas and headers
	CreateHeaderSchema(ctx context.Context, schema *header.Schema) (int64, error)
	GetHeaderSchema(ctx context.Context, schemaID int64) (*header.Schema, error)
	ListHeaderSchemas(ctx context.Context) ([]header.Schema, error)
	ReplaceHeader(ctx context.Context, listID, revisionID, schemaID int64) (int64, error)
	HeaderForRevision(ctx context.Context, listID, revisionID int64) (*header.Header, error)

	// Rows
	RowsForRevision(ctx context.Context, listID, revisionID, start, length int64) ([]*row.Row, error)
	CountRowsForRevision(ctx context.Context, listID, revisionID int64) (int64, error)
	UsersInRevision(ctx context.Context, listID, revisionID int64) (map[int64]string, error)
	UsersByID(ctx context.Context, userIDs []int64) (map[int64]string, error)
	VisibleRowMD5s(ctx context.Context, listID int64) (map[string]struct{}, error)
	MaxVisibleRowNum(ctx context.Context, listID int64) (int64, error)
	CountRowsAtRevision(ctx context.Context, listID, revisionID int64) (int64, error)
	GetRow(ctx context.Context, listID, rowNum, revisionID int64) (*row.Row, error)
	InsertRows(ctx context.Context, rows []*row.Row) error

	// Data sources
	CreateDataSource(ctx context.Context, ds *types.DataSource) (int64, error)
	GetDataSource(ctx context.Context, sourceID int64) (*types.DataSource, error)
	ListDataSources(ctx context.Context, listID int64) ([]types.DataSource, error)

	// Users and access
	CreateUser(ctx context.Context, name string, isWikiUser bool) (int64, error)
	GetOrCreateWikiUser(ctx context.Context, name string) (*types.User, error)
	GetUser(ctx context.Context, userID int64) (*types.User, error)
	UserByAuthToken(ctx context.Context, token string) (*types.User, error)
	SetAuthToken(ctx context.Context, userID int64, token string) error
	AddAccess(ctx context.Context, listID, userID int64, right types.Right) error
	AccessRights(ctx context.Context, userID, listID int64) (types.RightSet, error)

	// Uploaded files
	CreateFile(ctx context.Context, path string, userID int64, originalFilename string) (int64, error)
	GetFile(ctx context.Context, fileID int64) (*types.File, error)
	FilePaths(ctx context.Context) (map[string]struct{}, error)

	Close() error
}

// Dialect selects the SQL flavour of the store.
type Dialect string

const (
	DialectSQLite Dialect = "sqlite3"
	DialectMySQL  Dialect = "mysql"
)

// ParseDialect maps a driver name to a dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite3", "sqlite", "":
		return DialectSQLite, nil
	case "mysql":
		return DialectMySQL, nil
	}
	return "", fmt.Errorf("catalog: unsupported driver %q", driver)
}

func (d Dialect) insertIgnore() string {
	if d == DialectMySQL {
		return "INSERT IGNORE"
	}
	return "INSERT OR IGNORE"
}

// txOptions returns the isolation used for row batches.
func (d Dialect) txOptions() *sql.TxOptions {
	if d == DialectMySQL {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead}
	}
	return nil
}

// Options configure Open.
type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	IdleTTL         time.Duration
	ConnMaxLifetime time.Duration
}

// SQLCatalog implements Catalog on database/sql.
type SQLCatalog struct {
	db      *sql.DB
	dialect Dialect
}

var _ Catalog = (*SQLCatalog)(nil)

// Open connects to the store and creates missing tables.
func Open(ctx context.Context, opts Options) (*SQLCatalog, error) {
	dialect, err := ParseDialect(opts.Driver)
	if err != nil {
		return nil, err
	}
	dsn, err := dialect.prepareDSN(opts.DSN)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to open database: %w", err)
	}

	if dialect == DialectSQLite {
		// Single writer; busy_timeout covers the rest.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		if opts.MaxOpenConns > 0 {
			db.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			db.SetMaxIdleConns(opts.MaxIdleConns)
		}
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	db.SetConnMaxIdleTime(opts.IdleTTL)

	c := &SQLCatalog{db: db, dialect: dialect}
	if err := c.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (d Dialect) prepareDSN(dsn string) (string, error) {
	switch d {
	case DialectMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", fmt.Errorf("catalog: invalid mysql DSN: %w", err)
		}
		cfg.ParseTime = true
		if cfg.Params == nil {
			cfg.Params = map[string]string{}
		}
		if _, ok := cfg.Params["charset"]; !ok {
			cfg.Params["charset"] = "utf8mb4"
		}
		return cfg.FormatDSN(), nil
	default:
		if dsn == "" {
			return "", fmt.Errorf("catalog: empty sqlite path")
		}
		if strings.Contains(dsn, "?") {
			return dsn, nil
		}
		return dsn + "?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate", nil
	}
}

// InitSchema creates all tables and seeds the everyone user.
func (c *SQLCatalog) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaSQL(c.dialect) {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("catalog: failed to execute schema statement: %w", err)
		}
	}
	seed := c.dialect.insertIgnore() + " INTO `user` (`id`,`name`,`is_wiki_user`) VALUES (?,?,0)"
	if _, err := c.db.ExecContext(ctx, seed, types.EveryoneUserID, everyoneName); err != nil {
		return fmt.Errorf("catalog: failed to seed users: %w", err)
	}
	return nil
}

// Dialect returns the SQL flavour in use.
func (c *SQLCatalog) Dialect() Dialect { return c.dialect }

// DB exposes the pool for health checks.
func (c *SQLCatalog) DB() *sql.DB { return c.db }

// Close closes the pool.
func (c *SQLCatalog) Close() error {
	return c.db.Close()
}

func queryFailed(what string, err error) error {
	return gerrors.NewStorageError(gerrors.CodeQueryFailed, "catalog: failed to "+what, err)
}
