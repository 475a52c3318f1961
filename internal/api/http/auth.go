package http

import (
	"context"
	"net/http"
	"strings"

	gerrors "github.com/gulp-tools/gulp/internal/errors"
	"github.com/gulp-tools/gulp/pkg/types"
)

// authToken reads the token from the auth_token parameter or a bearer
// Authorization header.
func authToken(r *http.Request) string {
	if t := strings.TrimSpace(r.URL.Query().Get("auth_token")); t != "" {
		return t
	}
	h := r.Header.Get("Authorization")
	if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

// AuthMiddleware resolves the request's user when a token is given. Requests
// without a token pass through anonymously; unknown tokens are rejected.
func (a *API) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := authToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, err := a.manager.Catalog().UserByAuthToken(r.Context(), token)
		if err != nil {
			writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (*types.User, bool) {
	u, ok := ctx.Value(userKey).(*types.User)
	return u, ok && u != nil
}

func requireUser(r *http.Request) (*types.User, error) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		return nil, gerrors.NewAccessError(gerrors.CodeNotLoggedIn, "You need to be logged in")
	}
	return u, nil
}

func (a *API) authInfo(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (a *API) myLists(w http.ResponseWriter, r *http.Request) {
	u, err := requireUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	lists, err := a.manager.ListsByUserRights(r.Context(), u.ID, types.ParseRights(r.PathValue("rights")))
	if err != nil {
		writeError(w, err)
		return
	}
	if lists == nil {
		lists = []types.ListSummary{}
	}
	writeOK(w, map[string]any{"lists": lists})
}
