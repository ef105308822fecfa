// Package client talks to the Project Journal API. Client is a thin typed
// HTTP layer; Queries and the mutation controllers add the read-through
// cache on top of it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"

	"github.com/petermazzocco/project-journal/models"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Unauthorized reports whether the caller should sign in again.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

type Client struct {
	base *url.URL
	http *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client. A client without a cookie jar
// gets one, since the session lives in a cookie.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	c := &Client{base: base, http: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}
	return c, nil
}

// SetSession installs a session cookie obtained elsewhere, e.g. from the
// sign-in callback.
func (c *Client) SetSession(cookie *http.Cookie) {
	c.http.Jar.SetCookies(c.base, []*http.Cookie{cookie})
}

func (c *Client) url(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(path, query), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var body struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(res.Body)
		if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
			body.Error = strings.TrimSpace(string(raw))
		}
		return &APIError{Status: res.StatusCode, Message: body.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

func idQuery(name string, id uint) url.Values {
	return url.Values{name: {strconv.FormatUint(uint64(id), 10)}}
}

// rowID encodes a nil id as "new".
func rowID(id *uint) any {
	if id == nil {
		return "new"
	}
	return *id
}

type idBody struct {
	ID uint `json:"id"`
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Users(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := c.do(ctx, http.MethodGet, "/api/users", nil, nil, &users)
	return users, err
}

// Admins returns nil for callers who are not admins.
func (c *Client) Admins(ctx context.Context) ([]models.User, error) {
	var admins []models.User
	err := c.do(ctx, http.MethodGet, "/api/admins", nil, nil, &admins)
	return admins, err
}

// AdminInput is one row of the admin roster. A nil ID adds a new person.
type AdminInput struct {
	ID    *uint
	Name  string
	Email string
}

func (a AdminInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"id": rowID(a.ID), "name": a.Name, "email": a.Email})
}

// SaveAdmins replaces the admin roster with admins.
func (c *Client) SaveAdmins(ctx context.Context, admins []AdminInput) ([]models.User, error) {
	var out []models.User
	body := map[string]any{"admins": admins}
	err := c.do(ctx, http.MethodPost, "/api/admins", nil, body, &out)
	return out, err
}

func (c *Client) Clients(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	err := c.do(ctx, http.MethodGet, "/api/clients", nil, nil, &clients)
	return clients, err
}

func (c *Client) Client(ctx context.Context, id uint) (*models.Client, error) {
	var out models.Client
	if err := c.do(ctx, http.MethodGet, "/api/client", idQuery("id", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type EmployeeInput struct {
	Email string  `json:"email"`
	Name  string  `json:"name"`
	Title *string `json:"title"`
}

// ClientInput is the complete desired state of a client, employees
// included. A nil ID creates the client.
type ClientInput struct {
	ID        *uint
	Name      string
	Employees []EmployeeInput
}

func (in ClientInput) MarshalJSON() ([]byte, error) {
	employees := in.Employees
	if employees == nil {
		employees = []EmployeeInput{}
	}
	return json.Marshal(map[string]any{"id": rowID(in.ID), "name": in.Name, "employees": employees})
}

func (c *Client) SaveClient(ctx context.Context, in ClientInput) (*models.Client, error) {
	var out models.Client
	if err := c.do(ctx, http.MethodPost, "/api/client", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteClient(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, "/api/client", nil, idBody{ID: id}, nil)
}

func (c *Client) Projects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	err := c.do(ctx, http.MethodGet, "/api/projects", nil, nil, &projects)
	return projects, err
}

func (c *Client) Project(ctx context.Context, id uint) (*models.Project, error) {
	var out models.Project
	if err := c.do(ctx, http.MethodGet, "/api/project", idQuery("id", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateProject(ctx context.Context) (*models.Project, error) {
	var out models.Project
	if err := c.do(ctx, http.MethodPost, "/api/project", nil, map[string]string{"id": "new"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type ProjectInput struct {
	ID            uint    `json:"id"`
	Name          string  `json:"name"`
	ClientID      *uint   `json:"clientId,omitempty"`
	Team          []uint  `json:"team"`
	ImageFileName *string `json:"imageFileName,omitempty"`
}

func (c *Client) SaveProject(ctx context.Context, in ProjectInput) (*models.Project, error) {
	if in.Team == nil {
		in.Team = []uint{}
	}
	var out models.Project
	if err := c.do(ctx, http.MethodPost, "/api/project", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProject(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, "/api/project", nil, idBody{ID: id}, nil)
}

func (c *Client) Updates(ctx context.Context, projectID uint) ([]models.Update, error) {
	var updates []models.Update
	err := c.do(ctx, http.MethodGet, "/api/updates", idQuery("projectId", projectID), nil, &updates)
	return updates, err
}

// UpdateInput creates an update when ID is nil.
type UpdateInput struct {
	ID        *uint
	ProjectID uint
	Title     string
	Body      string
}

func (in UpdateInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"id": rowID(in.ID), "projectId": in.ProjectID, "title": in.Title, "body": in.Body})
}

func (c *Client) SaveUpdate(ctx context.Context, in UpdateInput) (*models.Update, error) {
	var out models.Update
	if err := c.do(ctx, http.MethodPost, "/api/update", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteUpdate(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, "/api/update", nil, idBody{ID: id}, nil)
}

func (c *Client) Summary(ctx context.Context, projectID uint) (*models.Summary, error) {
	var out models.Summary
	if err := c.do(ctx, http.MethodGet, "/api/summary", idQuery("projectId", projectID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SummaryInput changes the fields that are set. ProjectID only addresses
// the cache and is not sent.
type SummaryInput struct {
	ID          uint    `json:"id"`
	ProjectID   uint    `json:"-"`
	Description *string `json:"description,omitempty"`
	Roadmap     *string `json:"roadmap,omitempty"`
}

func (c *Client) SaveSummary(ctx context.Context, in SummaryInput) (*models.Summary, error) {
	var out models.Summary
	if err := c.do(ctx, http.MethodPost, "/api/summary", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type UploadToken struct {
	SasURL      string `json:"sasUrl"`
	NewFileName string `json:"newFileName"`
}

func (c *Client) UploadToken(ctx context.Context, projectID uint, fileName string) (*UploadToken, error) {
	var out UploadToken
	body := map[string]any{"projectId": projectID, "fileName": fileName}
	if err := c.do(ctx, http.MethodPost, "/api/generate-upload-blob-token", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadImage sends an image through the server, which stores a processed
// copy and returns the updated project.
func (c *Client) UploadImage(ctx context.Context, projectID uint, fileName string, image io.Reader) (*models.Project, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("projectId", strconv.FormatUint(uint64(projectID), 10)); err != nil {
		return nil, err
	}
	fw, err := mw.CreateFormFile("image", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, image); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/api/project/image", nil), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var out models.Project
	if err := c.send(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestSignInLink asks the server to mail a sign-in link to email.
func (c *Client) RequestSignInLink(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/email", nil, map[string]string{"email": email}, nil)
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}
