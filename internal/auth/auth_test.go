package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/petermazzocco/project-journal/internal/auth"
	"github.com/petermazzocco/project-journal/internal/config"
	"github.com/petermazzocco/project-journal/internal/store/storetest"
	"github.com/petermazzocco/project-journal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionCookie(t *testing.T, cfg config.AuthConfig, email string) *http.Cookie {
	t.Helper()
	ss := auth.NewSessionStore(cfg, false)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, auth.StartSession(rec, req, ss, email))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestGate(t *testing.T) {
	cfg := config.AuthConfig{SessionSecret: "0123456789abcdef0123456789abcdef", SessionMaxAge: 3600}
	st := storetest.NewMemory()
	st.AddUser(models.User{Name: "Ada", Email: "ada@x.com", Role: models.RoleRef(models.RoleAdmin)})
	st.AddUser(models.User{Name: "Una", Email: "una@x.com", Role: models.RoleRef(models.RoleUser)})
	st.AddUser(models.User{Name: "Nil", Email: "nil@x.com"})

	var seen *models.User
	gated := auth.Gate(st, auth.NewSessionStore(cfg, false))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.UserFrom(r.Context())
		if _, ok := auth.RequireAdmin(w, r); !ok {
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		email  string
		status int
		msg    string
	}{
		{name: "no session", status: http.StatusUnauthorized, msg: auth.MsgNotAuthenticated},
		{name: "unknown user", email: "ghost@x.com", status: http.StatusUnauthorized, msg: auth.MsgNotAuthorized},
		{name: "null role", email: "nil@x.com", status: http.StatusUnauthorized, msg: auth.MsgNotAuthorized},
		{name: "user role on admin route", email: "una@x.com", status: http.StatusUnauthorized, msg: auth.MsgNotAuthorized},
		{name: "admin", email: "ada@x.com", status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodPost, "/api/client", nil)
			if tt.email != "" {
				req.AddCookie(sessionCookie(t, cfg, tt.email))
			}
			rec := httptest.NewRecorder()
			gated.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, errorBody(t, rec))
			}
			if tt.status == http.StatusOK {
				require.NotNil(t, seen)
				assert.Equal(t, tt.email, seen.Email)
			}
		})
	}
}

func TestGateRejectsForgedCookie(t *testing.T) {
	cfg := config.AuthConfig{SessionSecret: "0123456789abcdef0123456789abcdef", SessionMaxAge: 3600}
	other := config.AuthConfig{SessionSecret: "fedcba9876543210fedcba9876543210", SessionMaxAge: 3600}
	st := storetest.NewMemory()
	st.AddUser(models.User{Email: "ada@x.com", Role: models.RoleRef(models.RoleAdmin)})

	gated := auth.Gate(st, auth.NewSessionStore(cfg, false))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.AddCookie(sessionCookie(t, other, "ada@x.com"))
	rec := httptest.NewRecorder()
	gated.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, auth.MsgNotAuthenticated, errorBody(t, rec))
}

type captureMailer struct {
	to, subject, body string
}

func (m *captureMailer) Send(_ context.Context, to, subject, body string) error {
	m.to, m.subject, m.body = to, subject, body
	return nil
}

func TestEmailLogin(t *testing.T) {
	mailer := &captureMailer{}
	login := auth.NewEmailLogin("secret", 15*time.Minute, mailer, "https://journal.test/")

	require.NoError(t, login.Send(context.Background(), "ada@x.com"))
	assert.Equal(t, "ada@x.com", mailer.to)

	start := strings.Index(mailer.body, "https://journal.test/auth/email/callback?token=")
	require.GreaterOrEqual(t, start, 0, mailer.body)
	link := strings.TrimSpace(mailer.body[start:])
	u, err := url.Parse(link)
	require.NoError(t, err)

	email, err := login.Verify(u.Query().Get("token"))
	require.NoError(t, err)
	assert.Equal(t, "ada@x.com", email)

	_, err = login.Verify(u.Query().Get("token") + "x")
	assert.Error(t, err)

	otherSecret := auth.NewEmailLogin("another", 15*time.Minute, mailer, "https://journal.test")
	_, err = otherSecret.Verify(u.Query().Get("token"))
	assert.Error(t, err)
}
