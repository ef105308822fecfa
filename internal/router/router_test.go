package router_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/petermazzocco/project-journal/internal/apitest"
	"github.com/petermazzocco/project-journal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type employee struct {
	Email string  `json:"email"`
	Name  string  `json:"name"`
	Title *string `json:"title"`
}

type clientBody struct {
	ID        any        `json:"id"`
	Name      string     `json:"name"`
	Employees []employee `json:"employees"`
}

func createClient(t *testing.T, env *apitest.Env, name string, emails ...string) models.Client {
	t.Helper()
	body := clientBody{ID: "new", Name: name, Employees: []employee{}}
	for _, e := range emails {
		body.Employees = append(body.Employees, employee{Email: e, Name: e})
	}
	status, out := env.Do(t, http.MethodPost, "/api/client", body, "ada@x.com")
	require.Equal(t, http.StatusOK, status, string(out))
	var c models.Client
	require.NoError(t, json.Unmarshal(out, &c))
	return c
}

func createProject(t *testing.T, env *apitest.Env, name string, clientID uint) models.Project {
	t.Helper()
	status, out := env.Do(t, http.MethodPost, "/api/project", map[string]any{"id": "new"}, "ada@x.com")
	require.Equal(t, http.StatusOK, status, string(out))
	var p models.Project
	require.NoError(t, json.Unmarshal(out, &p))

	status, out = env.Do(t, http.MethodPost, "/api/project", map[string]any{
		"id": p.ID, "name": name, "clientId": clientID, "team": []uint{},
	}, "ada@x.com")
	require.Equal(t, http.StatusOK, status, string(out))
	require.NoError(t, json.Unmarshal(out, &p))
	return p
}

func TestNonAdminCannotSaveClient(t *testing.T) {
	env := apitest.New(t)
	env.Store.AddUser(models.User{Email: "una@x.com", Role: models.RoleRef(models.RoleUser)})

	status, out := env.Do(t, http.MethodPost, "/api/client", clientBody{
		ID:        "new",
		Name:      "Acme",
		Employees: []employee{{Email: "a@x.com", Name: "A"}},
	}, "una@x.com")

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.JSONEq(t, `{"error":"User not authorized."}`, string(out))
	assert.Zero(t, env.Store.EmployeeCount())
}

func TestSummaryWithoutFieldsIsInvalid(t *testing.T) {
	env := apitest.New(t)

	status, out := env.Do(t, http.MethodPost, "/api/summary", map[string]any{"id": 5}, "ada@x.com")

	assert.Equal(t, http.StatusBadRequest, status)
	assert.True(t, strings.HasPrefix(apitest.ErrorOf(t, out), "Invalid data"), string(out))
}

func TestProjectOfAnotherClient(t *testing.T) {
	env := apitest.New(t)
	createClient(t, env, "Acme", "a@x.com")
	globex := createClient(t, env, "Globex", "b@x.com")
	p := createProject(t, env, "Globex site", globex.ID)

	status, out := env.Do(t, http.MethodGet, fmt.Sprintf("/api/project?id=%d", p.ID), nil, "a@x.com")
	assert.Equal(t, http.StatusNotImplemented, status)
	assert.Equal(t, "User does not belong to this project.", apitest.ErrorOf(t, out))

	status, _ = env.Do(t, http.MethodGet, fmt.Sprintf("/api/project?id=%d", p.ID), nil, "b@x.com")
	assert.Equal(t, http.StatusOK, status)
}

func TestGateAndMethods(t *testing.T) {
	env := apitest.New(t)
	env.Store.AddUser(models.User{Email: "una@x.com", Role: models.RoleRef(models.RoleUser)})

	tests := []struct {
		name   string
		method string
		path   string
		email  string
		status int
		body   string
	}{
		{"no session", http.MethodGet, "/api/projects", "", http.StatusUnauthorized, `{"error":"User not authenticated."}`},
		{"unknown user", http.MethodGet, "/api/projects", "ghost@x.com", http.StatusUnauthorized, `{"error":"User not authorized."}`},
		{"unhandled method", http.MethodPut, "/api/client", "ada@x.com", http.StatusNotImplemented, `{"error":"Method not implemented."}`},
		{"patch update", http.MethodPatch, "/api/update", "ada@x.com", http.StatusNotImplemented, `{"error":"Method not implemented."}`},
		{"admins for user", http.MethodGet, "/api/admins", "una@x.com", http.StatusOK, `null`},
		{"users for user", http.MethodGet, "/api/users", "una@x.com", http.StatusUnauthorized, `{"error":"User not authorized."}`},
		{"bad query id", http.MethodGet, "/api/project?id=abc", "ada@x.com", http.StatusBadRequest, `{"error":"Invalid data: id must be a positive number"}`},
		{"missing project", http.MethodGet, "/api/project?id=99", "ada@x.com", http.StatusNotImplemented, `{"error":"Project not found."}`},
		{"empty lists", http.MethodGet, "/api/clients", "una@x.com", http.StatusOK, `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, out := env.Do(t, tt.method, tt.path, nil, tt.email)
			assert.Equal(t, tt.status, status)
			assert.JSONEq(t, tt.body, string(out))
		})
	}
}

func TestAdminsRoundTrip(t *testing.T) {
	env := apitest.New(t)

	status, out := env.Do(t, http.MethodPost, "/api/admins", map[string]any{
		"admins": []map[string]any{
			{"id": env.Admin.ID, "name": "Ada", "email": "ada@x.com"},
			{"id": "new", "name": "Bob", "email": "bob@x.com"},
		},
	}, "ada@x.com")
	require.Equal(t, http.StatusOK, status, string(out))

	status, out = env.Do(t, http.MethodGet, "/api/admins", nil, "bob@x.com")
	require.Equal(t, http.StatusOK, status)
	var admins []models.User
	require.NoError(t, json.Unmarshal(out, &admins))
	assert.Len(t, admins, 2)

	status, out = env.Do(t, http.MethodPost, "/api/admins", map[string]any{
		"admins": []map[string]any{{"id": 404, "name": "X", "email": "x@x.com"}, {"id": env.Admin.ID, "email": "ada@x.com"}},
	}, "ada@x.com")
	assert.Equal(t, http.StatusNotImplemented, status, string(out))
}

func TestDeleteProjectResponds(t *testing.T) {
	env := apitest.New(t)
	acme := createClient(t, env, "Acme")
	p := createProject(t, env, "Site", acme.ID)

	status, out := env.Do(t, http.MethodPost, "/api/update", map[string]any{"id": "new", "projectId": p.ID, "title": "Kickoff", "body": "Hello"}, "ada@x.com")
	require.Equal(t, http.StatusOK, status, string(out))

	status, out = env.Do(t, http.MethodDelete, "/api/project", map[string]any{"id": p.ID}, "ada@x.com")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{}`, string(out))

	status, _ = env.Do(t, http.MethodGet, fmt.Sprintf("/api/summary?projectId=%d", p.ID), nil, "ada@x.com")
	assert.Equal(t, http.StatusNotImplemented, status)
	assert.Zero(t, env.Store.UpdateCount())
}

func TestUploadTokenAndImage(t *testing.T) {
	env := apitest.New(t)
	acme := createClient(t, env, "Acme")
	p := createProject(t, env, "Site", acme.ID)

	status, out := env.Do(t, http.MethodPost, "/api/generate-upload-blob-token", map[string]any{"projectId": p.ID, "fileName": "hero.png"}, "ada@x.com")
	require.Equal(t, http.StatusOK, status, string(out))
	var tok struct {
		SasURL      string `json:"sasUrl"`
		NewFileName string `json:"newFileName"`
	}
	require.NoError(t, json.Unmarshal(out, &tok))
	assert.NotEmpty(t, tok.SasURL)
	assert.True(t, strings.HasPrefix(tok.NewFileName, fmt.Sprintf("projects/%d/", p.ID)))

	status, out = env.Do(t, http.MethodPost, "/api/project", map[string]any{
		"id": p.ID, "name": "Site", "clientId": acme.ID, "team": []uint{}, "imageFileName": tok.NewFileName,
	}, "ada@x.com")
	require.Equal(t, http.StatusOK, status, string(out))
	var saved map[string]any
	require.NoError(t, json.Unmarshal(out, &saved))
	assert.Contains(t, saved["image"], tok.NewFileName)
	assert.NotContains(t, saved, "imageBlob", "storage key stays internal")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("projectId", fmt.Sprint(p.ID)))
	fw, err := mw.CreateFormFile("image", "cover.jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte("not really a jpeg"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, env.Server.URL+"/api/project/image", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(env.Cookie(t, "ada@x.com"))
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var withImage models.Project
	require.NoError(t, json.NewDecoder(res.Body).Decode(&withImage))
	assert.Contains(t, withImage.ImageURL, "_cover.jpg")
}

func TestEmailSignIn(t *testing.T) {
	env := apitest.New(t)

	status, _ := env.Do(t, http.MethodPost, "/auth/email", map[string]string{"email": "ada@x.com"}, "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ada@x.com", env.Mailer.To)

	start := strings.Index(env.Mailer.Body, env.Server.URL+"/auth/email/callback")
	require.GreaterOrEqual(t, start, 0, env.Mailer.Body)
	link, err := url.Parse(strings.TrimSpace(env.Mailer.Body[start:]))
	require.NoError(t, err)

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	res, err := client.Get(link.String())
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusTemporaryRedirect, res.StatusCode)
	require.NotEmpty(t, res.Cookies())

	req, err := http.NewRequest(http.MethodGet, env.Server.URL+"/api/me", nil)
	require.NoError(t, err)
	for _, c := range res.Cookies() {
		req.AddCookie(c)
	}
	me, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer me.Body.Close()
	require.Equal(t, http.StatusOK, me.StatusCode)
	var u models.User
	require.NoError(t, json.NewDecoder(me.Body).Decode(&u))
	assert.Equal(t, env.Admin.ID, u.ID)

	env.Mailer.To = ""
	status, _ = env.Do(t, http.MethodPost, "/auth/email", map[string]string{"email": "stranger@x.com"}, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, env.Mailer.To, "no link for people without access")

	res, err = client.Get(env.Server.URL + "/auth/email/callback?token=forged")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusTemporaryRedirect, res.StatusCode)
	assert.Contains(t, res.Header.Get("Location"), "error=Verification")
}

func TestHealthAndMetrics(t *testing.T) {
	env := apitest.New(t)

	status, out := env.Do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(out))

	env.Do(t, http.MethodGet, "/api/projects", nil, "ada@x.com")
	status, out = env.Do(t, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(out), `journal_http_requests_total{method="GET",route="/api/projects",status="200"}`)
}
