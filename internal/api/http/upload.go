package http

import (
	"net/http"

	gerrors "github.com/gulp-tools/gulp/internal/errors"
)

// upload serves POST /upload with a multipart "file" field.
func (a *API) upload(w http.ResponseWriter, r *http.Request) {
	u, err := requireUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if a.uploads == nil {
		writeStatus(w, http.StatusServiceUnavailable, "Uploads are not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes)
	f, fh, err := r.FormFile("file")
	if err != nil {
		writeError(w, gerrors.NewPreconditionError(gerrors.CodeInvalidArgument, "A multipart file field is required: "+err.Error()))
		return
	}
	defer f.Close()

	file, err := a.uploads.Store(r.Context(), u.ID, fh.Filename, f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"data": file.ID, "file": file})
}
