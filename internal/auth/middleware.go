package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/petermazzocco/project-journal/internal/respond"
	"github.com/petermazzocco/project-journal/internal/store"
	"github.com/petermazzocco/project-journal/models"
)

const (
	MsgNotAuthenticated = "User not authenticated."
	MsgNotAuthorized    = "User not authorized."
)

type ctxKey struct{}

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func UserFrom(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*models.User)
	return u, ok && u != nil
}

// Gate resolves the session to a user with a role. Requests without a
// session, for unknown users or for users whose role is null stop here
// with a 401.
func Gate(st store.Store, ss sessions.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, ok := SessionEmail(r, ss)
			if !ok {
				respond.Error(w, http.StatusUnauthorized, MsgNotAuthenticated)
				return
			}

			user, err := st.UserByEmail(r.Context(), email)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				slog.Error("resolve session user", "email", email, "err", err)
				respond.Error(w, http.StatusInternalServerError, "Failed to resolve user.")
				return
			}
			if err != nil || !user.HasAccess() {
				respond.Error(w, http.StatusUnauthorized, MsgNotAuthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireUser returns the gated user or answers 401.
func RequireUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := UserFrom(r.Context())
	if !ok || !user.HasAccess() {
		respond.Error(w, http.StatusUnauthorized, MsgNotAuthorized)
		return nil, false
	}
	return user, true
}

// RequireAdmin guards every mutating endpoint.
func RequireAdmin(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := UserFrom(r.Context())
	if !ok || !user.IsAdmin() {
		respond.Error(w, http.StatusUnauthorized, MsgNotAuthorized)
		return nil, false
	}
	return user, true
}
