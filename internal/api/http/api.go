package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gerrors "github.com/gulp-tools/gulp/internal/errors"
	"github.com/gulp-tools/gulp/internal/list"
	"github.com/gulp-tools/gulp/internal/logging"
	"github.com/gulp-tools/gulp/pkg/types"
)

// DefaultGuessLimit is the number of rows previewed by /source/guess.
const DefaultGuessLimit = 1000

// Uploader stores uploaded source files.
type Uploader interface {
	Store(ctx context.Context, userID int64, originalName string, r io.Reader) (*types.File, error)
}

// Options configure the API.
type Options struct {
	Manager        *list.Manager
	Uploads        Uploader
	GuessLimit     int
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// API holds the handlers of the HTTP API.
type API struct {
	manager        *list.Manager
	uploads        Uploader
	guessLimit     int
	maxUploadBytes int64
	logger         *slog.Logger
}

// New creates the API.
func New(opts Options) *API {
	if opts.GuessLimit <= 0 {
		opts.GuessLimit = DefaultGuessLimit
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 8 << 20
	}
	return &API{
		manager:        opts.Manager,
		uploads:        opts.Uploads,
		guessLimit:     opts.GuessLimit,
		maxUploadBytes: opts.MaxUploadBytes,
		logger:         logging.OrDefault(opts.Logger),
	}
}

// Handler returns the routed API wrapped in the default middleware. outer
// middleware runs before it, e.g. shutdown tracking.
func (a *API) Handler(outer ...func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", a.health)
	mux.HandleFunc("GET /stats/sources", a.sourceStats)
	mux.HandleFunc("GET /auth/info", a.authInfo)
	mux.HandleFunc("GET /auth/lists/{rights}", a.myLists)

	mux.HandleFunc("GET /list/rows/{id}", a.listRows)
	mux.HandleFunc("GET /list/row/{id}/{row_num}", a.listRow)
	mux.HandleFunc("GET /list/info/{id}", a.listInfo)
	mux.HandleFunc("GET /list/snapshot/{id}", a.listSnapshot)
	mux.HandleFunc("GET /list/sources/{id}", a.listSources)
	mux.HandleFunc("GET /list/new", a.newList)
	mux.HandleFunc("GET /list/header/{id}", a.setListHeader)

	mux.HandleFunc("GET /header/schemas", a.headerSchemas)
	mux.HandleFunc("GET /header/schema/new", a.newHeaderSchema)

	mux.HandleFunc("GET /source/new", a.newSource)
	mux.HandleFunc("GET /source/update/{id}", a.updateSource)
	mux.HandleFunc("GET /source/guess/{id}", a.guessSource)

	mux.HandleFunc("POST /upload", a.upload)

	chain := append(append([]func(http.Handler) http.Handler{}, outer...),
		RecoveryMiddleware(a.logger),
		RequestIDMiddleware,
		LoggingMiddleware(a.logger),
		a.AuthMiddleware,
	)
	return ChainMiddleware(chain...)(mux)
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	writeOK(w, nil)
}

// sourceStats reports import outcomes per source kind.
func (a *API) sourceStats(w http.ResponseWriter, r *http.Request) {
	st := a.manager.SourceStats()
	st.Prune()
	writeOK(w, map[string]any{"sources": st.Top(int(queryInt(r, "limit", 0)))})
}

// pathID parses a positive numeric path parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, gerrors.NewPreconditionError(gerrors.CodeInvalidArgument, "Invalid "+name+" "+strconv.Quote(raw))
	}
	return id, nil
}

// requiredQueryID parses a positive numeric query parameter that must be set.
func requiredQueryID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, gerrors.NewPreconditionError(gerrors.CodeInvalidArgument, "A "+name+" is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, gerrors.NewPreconditionError(gerrors.CodeInvalidArgument, "Invalid "+name+" "+strconv.Quote(raw))
	}
	return id, nil
}

// queryInt returns a numeric query parameter, or def when it is missing or
// does not parse.
func queryInt(r *http.Request, name string, def int64) int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}
