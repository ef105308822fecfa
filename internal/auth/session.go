package auth

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/petermazzocco/project-journal/internal/config"
)

const (
	SessionName = "journal_session"
	emailKey    = "email"
)

func NewSessionStore(cfg config.AuthConfig, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.MaxAge(cfg.SessionMaxAge)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	return store
}

// SessionEmail returns the signed-in email, if the request carries a valid
// session cookie.
func SessionEmail(r *http.Request, store sessions.Store) (string, bool) {
	session, err := store.Get(r, SessionName)
	if err != nil {
		return "", false
	}
	email, ok := session.Values[emailKey].(string)
	if !ok || email == "" {
		return "", false
	}
	return email, true
}

func StartSession(w http.ResponseWriter, r *http.Request, store sessions.Store, email string) error {
	session, _ := store.Get(r, SessionName)
	session.Values[emailKey] = email
	return session.Save(r, w)
}

func EndSession(w http.ResponseWriter, r *http.Request, store sessions.Store) error {
	session, _ := store.Get(r, SessionName)
	delete(session.Values, emailKey)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}
