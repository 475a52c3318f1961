package http

import (
	"net/http"

	"github.com/gulp-tools/gulp/internal/header"
)

// headerSchemas serves GET /header/schemas.
func (a *API) headerSchemas(w http.ResponseWriter, r *http.Request) {
	schemas, err := a.manager.Catalog().ListHeaderSchemas(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if schemas == nil {
		schemas = []header.Schema{}
	}
	writeOK(w, map[string]any{"data": schemas})
}

// newHeaderSchema serves GET /header/schema/new?name&json.
func (a *API) newHeaderSchema(w http.ResponseWriter, r *http.Request) {
	if _, err := requireUser(r); err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	if q.Get("json") == "" {
		writeStatus(w, http.StatusBadRequest, "JSON is required")
		return
	}
	s, err := a.manager.CreateHeaderSchema(r.Context(), q.Get("name"), q.Get("json"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"data": s.ID})
}
