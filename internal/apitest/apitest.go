// Package apitest starts the full HTTP stack over in-memory storage for
// tests that talk to the API the way a browser does.
package apitest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/petermazzocco/project-journal/internal/auth"
	"github.com/petermazzocco/project-journal/internal/config"
	"github.com/petermazzocco/project-journal/internal/handlers"
	"github.com/petermazzocco/project-journal/internal/logger"
	"github.com/petermazzocco/project-journal/internal/metrics"
	"github.com/petermazzocco/project-journal/internal/router"
	"github.com/petermazzocco/project-journal/internal/service"
	"github.com/petermazzocco/project-journal/internal/storage/storagetest"
	"github.com/petermazzocco/project-journal/internal/store/storetest"
	"github.com/petermazzocco/project-journal/models"
	"github.com/stretchr/testify/require"
)

const sessionSecret = "apitest-session-secret-0123456789"

type Env struct {
	Store    *storetest.Memory
	Blobs    *storagetest.Fake
	Service  *service.Service
	Sessions *sessions.CookieStore
	Metrics  *metrics.Metrics
	Mailer   *Mailer
	Server   *httptest.Server
	Admin    models.User
}

// Mailer records the last message instead of sending it.
type Mailer struct {
	To   string
	Body string
}

func (m *Mailer) Send(_ context.Context, to, _, body string) error {
	m.To, m.Body = to, body
	return nil
}

// New serves the API on an httptest server with one admin, ada@x.com.
func New(t testing.TB) *Env {
	t.Helper()
	log := logger.Discard()
	e := &Env{
		Store:   storetest.NewMemory(),
		Blobs:   storagetest.NewFake(),
		Metrics: metrics.New(),
		Mailer:  &Mailer{},
	}
	e.Sessions = auth.NewSessionStore(config.AuthConfig{SessionSecret: sessionSecret, SessionMaxAge: 3600}, false)
	e.Service = service.New(e.Store, e.Blobs, log,
		service.WithMetrics(e.Metrics),
		service.WithImageProcessor(func(b []byte) ([]byte, error) { return b, nil }),
	)
	e.Admin = e.Store.AddUser(models.User{Name: "Ada", Email: "ada@x.com", Role: models.RoleRef(models.RoleAdmin)})

	e.Server = httptest.NewUnstartedServer(nil)
	login := auth.NewEmailLogin(sessionSecret, 15*time.Minute, e.Mailer, "http://"+e.Server.Listener.Addr().String())
	h := handlers.New(e.Service, e.Sessions, login, log, "/")
	e.Server.Config.Handler = router.New(router.Deps{
		Handler:  h,
		Store:    e.Store,
		Sessions: e.Sessions,
		Metrics:  e.Metrics,
		Log:      log,
	})
	e.Server.Start()
	t.Cleanup(e.Server.Close)
	return e
}

// Cookie returns a session cookie signed in as email.
func (e *Env) Cookie(t testing.TB, email string) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, auth.StartSession(rec, req, e.Sessions, email))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[0]
}

// Do sends body as JSON (nil sends no body) with the session of email (""
// sends none) and returns the status with the raw response body.
func (e *Env) Do(t testing.TB, method, path string, body any, email string) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.Server.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if email != "" {
		req.AddCookie(e.Cookie(t, email))
	}
	return e.send(t, req)
}

func (e *Env) send(t testing.TB, req *http.Request) (int, []byte) {
	t.Helper()
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	res, err := client.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	out, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, out
}

// ErrorOf decodes an {"error": ...} body.
func ErrorOf(t testing.TB, body []byte) string {
	t.Helper()
	var v struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v.Error
}
