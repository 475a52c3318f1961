package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	gerrors "github.com/gulp-tools/gulp/internal/errors"
	"github.com/gulp-tools/gulp/internal/header"
)

// CreateHeaderSchema stores a new schema. The name is trimmed and generated
// from the columns when blank; a schema with identical JSON is rejected.
func (c *SQLCatalog) CreateHeaderSchema(ctx context.Context, schema *header.Schema) (int64, error) {
	if schema.ID != 0 {
		return 0, gerrors.NewPreconditionError(gerrors.CodeInvalidArgument,
			fmt.Sprintf("Header schema already has id #%d", schema.ID))
	}
	js, err := schema.ColumnsJSON()
	if err != nil {
		return 0, gerrors.NewSchemaError(gerrors.CodeInvalidSchema, err.Error())
	}
	name := schema.DisplayName()

	var existingID int64
	var existingName string
	err = c.db.QueryRowContext(ctx,
		"SELECT `id`,`name` FROM `header_schema` WHERE `json`=? LIMIT 1", js,
	).Scan(&existingID, &existingName)
	switch {
	case err == nil:
		return 0, gerrors.NewSchemaError(gerrors.CodeDuplicateSchema,
			fmt.Sprintf("A header schema with this JSON already exist: #%d: %s", existingID, existingName)).
			WithDetails(map[string]interface{}{"header_schema_id": existingID})
	case !errors.Is(err, sql.ErrNoRows):
		return 0, queryFailed("look up header schema", err)
	}

	res, err := c.db.ExecContext(ctx, "INSERT INTO `header_schema` (`name`,`json`) VALUES (?,?)", name, js)
	if err != nil {
		return 0, queryFailed("insert header schema", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, queryFailed("read header schema id", err)
	}
	schema.ID = id
	schema.Name = name
	return id, nil
}

// GetHeaderSchema loads a schema by id.
func (c *SQLCatalog) GetHeaderSchema(ctx context.Context, schemaID int64) (*header.Schema, error) {
	var id int64
	var name, js string
	err := c.db.QueryRowContext(ctx,
		"SELECT `id`,`name`,`json` FROM `header_schema` WHERE `id`=?", schemaID,
	).Scan(&id, &name, &js)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gerrors.NewNotFoundError(gerrors.CodeSchemaMissing,
			fmt.Sprintf("Can not retrieve header schema %d", schemaID))
	}
	if err != nil {
		return nil, queryFailed("load header schema", err)
	}
	return decodeSchema(id, name, js)
}

// ListHeaderSchemas returns every stored schema ordered by id.
func (c *SQLCatalog) ListHeaderSchemas(ctx context.Context) ([]header.Schema, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT `id`,`name`,`json` FROM `header_schema` ORDER BY `id`")
	if err != nil {
		return nil, queryFailed("query header schemas", err)
	}
	defer rows.Close()

	var out []header.Schema
	for rows.Next() {
		var id int64
		var name, js string
		if err := rows.Scan(&id, &name, &js); err != nil {
			return nil, queryFailed("scan header schema", err)
		}
		s, err := decodeSchema(id, name, js)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, queryFailed("iterate header schemas", err)
	}
	return out, nil
}

// ReplaceHeader binds a schema to the list from revisionID onwards,
// replacing any header already bound at exactly that revision.
func (c *SQLCatalog) ReplaceHeader(ctx context.Context, listID, revisionID, schemaID int64) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		"REPLACE INTO `header` (`list_id`,`revision_id`,`header_schema_id`) VALUES (?,?,?)",
		listID, revisionID, schemaID)
	if err != nil {
		return 0, queryFailed("replace header", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, queryFailed("read header id", err)
	}
	return id, nil
}

// HeaderForRevision returns the header in force at revisionID: the one with
// the greatest revision not after it.
func (c *SQLCatalog) HeaderForRevision(ctx context.Context, listID, revisionID int64) (*header.Header, error) {
	var h header.Header
	var schemaID int64
	var name, js string
	err := c.db.QueryRowContext(ctx,
		"SELECT `header`.`id`,`header`.`list_id`,`header`.`revision_id`,`header_schema`.`id`,`header_schema`.`name`,`header_schema`.`json` "+
			"FROM `header`,`header_schema` "+
			"WHERE `header_schema`.`id`=`header`.`header_schema_id` AND `header`.`list_id`=? AND `header`.`revision_id`<=? "+
			"ORDER BY `header`.`revision_id` DESC LIMIT 1",
		listID, revisionID,
	).Scan(&h.ID, &h.ListID, &h.RevisionID, &schemaID, &name, &js)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gerrors.NewNotFoundError(gerrors.CodeSchemaMissing,
			fmt.Sprintf("No header for list #%d at revision %d", listID, revisionID))
	}
	if err != nil {
		return nil, queryFailed("load header", err)
	}
	s, err := decodeSchema(schemaID, name, js)
	if err != nil {
		return nil, err
	}
	h.Schema = *s
	return &h, nil
}

func decodeSchema(id int64, name, js string) (*header.Schema, error) {
	s, err := header.ParseSchema(strings.TrimSpace(name), js)
	if err != nil {
		return nil, gerrors.NewSchemaError(gerrors.CodeInvalidSchema,
			fmt.Sprintf("Header schema #%d is invalid: %v", id, err))
	}
	s.ID = id
	return s, nil
}
