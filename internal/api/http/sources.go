package http

import (
	"fmt"
	"net/http"

	gerrors "github.com/gulp-tools/gulp/internal/errors"
	"github.com/gulp-tools/gulp/pkg/types"
)

// newSource serves GET /source/new?list_id&type&format&location.
func (a *API) newSource(w http.ResponseWriter, r *http.Request) {
	listID, err := requiredQueryID(r, "list_id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.requireRight(r, listID, types.RightCreateDataSource); err != nil {
		writeError(w, err)
		return
	}
	u, _ := UserFromContext(r.Context())
	q := r.URL.Query()
	ds := &types.DataSource{
		ListID:       listID,
		SourceType:   types.SourceType(q.Get("type")),
		SourceFormat: types.SourceFormat(q.Get("format")),
		Location:     q.Get("location"),
		UserID:       u.ID,
	}
	if err := a.manager.CreateDataSource(r.Context(), ds); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"data": ds.ID})
}

// updateSource serves GET /source/update/{id}: a full import of the source
// into its list.
func (a *API) updateSource(w http.ResponseWriter, r *http.Request) {
	sourceID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	u, err := requireUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ds, err := a.manager.Catalog().GetDataSource(r.Context(), sourceID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.manager.Require(r.Context(), u.ID, ds.ListID, types.RightUpdateFromSource); err != nil {
		writeError(w, err)
		return
	}
	l, unlock, err := a.manager.Acquire(r.Context(), ds.ListID)
	if err != nil {
		writeError(w, err)
		return
	}
	defer unlock()

	stats, err := l.UpdateFromSource(r.Context(), ds, u.ID)
	if err != nil {
		a.logger.Warn("update from source failed", "source_id", sourceID, "list_id", ds.ListID, "error", err)
		writeStatus(w, statusForError(err), fmt.Sprintf("Error updating from source: %s", gerrors.Message(err)))
		return
	}
	writeOK(w, map[string]any{"stats": stats})
}

// guessSource serves GET /source/guess/{id}?limit: a preview of the source
// with inferred column types. The caller needs the update right on the
// source's list.
func (a *API) guessSource(w http.ResponseWriter, r *http.Request) {
	sourceID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	u, err := requireUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ds, err := a.manager.Catalog().GetDataSource(r.Context(), sourceID)
	if err != nil {
		writeError(w, err)
		return
	}
	// A preview reads the source's content, uploads included.
	if err := a.manager.Require(r.Context(), u.ID, ds.ListID, types.RightUpdateFromSource); err != nil {
		writeError(w, err)
		return
	}
	limit := int(queryInt(r, "limit", int64(a.guessLimit)))
	if limit <= 0 || limit > a.guessLimit {
		limit = a.guessLimit
	}
	cs, err := a.manager.GuessHeaders(r.Context(), ds, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"data": cs.AsJSON()})
}
