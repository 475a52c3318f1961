package http

import (
	"encoding/csv"
	"net/http"
	"strings"

	"github.com/gulp-tools/gulp/pkg/types"
)

// listRows serves GET /list/rows/{id}?format=json|csv|tsv&start&len&revision_id.
func (a *API) listRows(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	l, unlock, err := a.manager.Acquire(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer unlock()
	revisionID := queryInt(r, "revision_id", l.RevisionID)
	start := max(queryInt(r, "start", 0), 0)
	length := queryInt(r, "len", 0)

	rows, err := l.RowsForRevision(r.Context(), revisionID, start, length)
	if err != nil {
		writeError(w, err)
		return
	}
	schema, err := l.SchemaAt(r.Context(), revisionID)
	if err != nil {
		writeError(w, err)
		return
	}

	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		cw := csv.NewWriter(w)
		for _, row := range rows {
			if err := cw.Write(row.AsVec(schema)); err != nil {
				a.logger.Warn("failed to write csv row", "list_id", id, "error", err)
				return
			}
		}
		cw.Flush()
	case "tsv":
		w.Header().Set("Content-Type", "text/tab-separated-values; charset=utf-8")
		lines := make([]string, len(rows))
		for i, row := range rows {
			lines[i] = row.AsTSV(schema)
		}
		_, _ = w.Write([]byte(strings.Join(lines, "\n")))
	default:
		out := make([]map[string]any, len(rows))
		for i, row := range rows {
			out[i] = row.AsJSON(schema)
		}
		writeOK(w, map[string]any{"rows": out, "revision_id": revisionID})
	}
}

// listRow serves GET /list/row/{id}/{row_num}?revision_id.
func (a *API) listRow(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	rowNum, err := pathID(r, "row_num")
	if err != nil {
		writeError(w, err)
		return
	}
	l, unlock, err := a.manager.Acquire(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer unlock()
	revisionID := queryInt(r, "revision_id", l.RevisionID)
	row, err := l.Row(r.Context(), rowNum, revisionID)
	if err != nil {
		writeError(w, err)
		return
	}
	schema, err := l.SchemaAt(r.Context(), revisionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"row": row.AsJSON(schema)})
}

// listInfo serves GET /list/info/{id}?revision_id.
func (a *API) listInfo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	l, unlock, err := a.manager.Acquire(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer unlock()
	revisionID := queryInt(r, "revision_id", l.RevisionID)
	total, err := l.CountRows(r.Context(), revisionID)
	if err != nil {
		writeError(w, err)
		return
	}
	users, err := l.UsersInRevision(r.Context(), revisionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{
		"list":        l,
		"users":       users,
		"total":       total,
		"revision_id": revisionID,
	})
}

// listSnapshot serves GET /list/snapshot/{id}.
func (a *API) listSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.requireRight(r, id, types.RightCreateSnapshot); err != nil {
		writeError(w, err)
		return
	}
	l, unlock, err := a.manager.Acquire(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer unlock()

	old := l.RevisionID
	next, err := l.Snapshot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"old_revision_id": old, "new_revision_id": next})
}

// listSources serves GET /list/sources/{id}.
func (a *API) listSources(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	l, unlock, err := a.manager.Acquire(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer unlock()
	sources, err := l.Sources(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	userIDs := make([]int64, 0, len(sources))
	for _, s := range sources {
		userIDs = append(userIDs, s.UserID)
	}
	users, err := a.manager.Catalog().UsersByID(r.Context(), userIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	if sources == nil {
		sources = []types.DataSource{}
	}
	writeOK(w, map[string]any{"sources": sources, "users": users})
}

// newList serves GET /list/new?name&header_schema_id.
func (a *API) newList(w http.ResponseWriter, r *http.Request) {
	u, err := requireUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	schemaID, err := requiredQueryID(r, "header_schema_id")
	if err != nil {
		writeError(w, err)
		return
	}
	l, err := a.manager.CreateNew(r.Context(), r.URL.Query().Get("name"), schemaID, u.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"data": l.ID})
}

// setListHeader serves GET /list/header/{id}?header_schema_id.
func (a *API) setListHeader(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	schemaID, err := requiredQueryID(r, "header_schema_id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.requireRight(r, id, types.RightSetHeaderSchema); err != nil {
		writeError(w, err)
		return
	}
	l, unlock, err := a.manager.Acquire(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer unlock()
	if err := l.SetHeaderSchema(r.Context(), schemaID); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"header": l.Header})
}

// requireRight checks that the request's user holds right on the list.
func (a *API) requireRight(r *http.Request, listID int64, right types.Right) error {
	u, err := requireUser(r)
	if err != nil {
		return err
	}
	return a.manager.Require(r.Context(), u.ID, listID, right)
}
