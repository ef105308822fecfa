package client_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/petermazzocco/project-journal/internal/apitest"
	"github.com/petermazzocco/project-journal/models"
	"github.com/petermazzocco/project-journal/pkg/client"
	"github.com/petermazzocco/project-journal/pkg/querycache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedIn(t *testing.T, env *apitest.Env, email string) *client.Client {
	t.Helper()
	api, err := client.New(env.Server.URL)
	require.NoError(t, err)
	api.SetSession(env.Cookie(t, email))
	return api
}

func uintp(v uint) *uint { return &v }

func TestClientErrors(t *testing.T) {
	env := apitest.New(t)
	anon, err := client.New(env.Server.URL)
	require.NoError(t, err)

	_, err = anon.Projects(context.Background())
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.Unauthorized())
	assert.Equal(t, "User not authenticated.", apiErr.Message)

	api := signedIn(t, env, "ada@x.com")
	_, err = api.SaveSummary(context.Background(), client.SummaryInput{ID: 5})
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.True(t, strings.HasPrefix(apiErr.Message, "Invalid data"))
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	env := apitest.New(t)
	api := signedIn(t, env, "ada@x.com")

	me, err := api.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ada@x.com", me.Email)

	acme, err := api.SaveClient(ctx, client.ClientInput{
		Name:      "Acme",
		Employees: []client.EmployeeInput{{Email: "a@x.com", Name: "A"}},
	})
	require.NoError(t, err)
	require.Len(t, acme.Employees, 1)

	p, err := api.CreateProject(ctx)
	require.NoError(t, err)
	p, err = api.SaveProject(ctx, client.ProjectInput{ID: p.ID, Name: "Site", ClientID: &acme.ID, Team: []uint{acme.Employees[0].UserID}})
	require.NoError(t, err)
	assert.Len(t, p.Team, 1)

	withImage, err := api.UploadImage(ctx, p.ID, "logo.png", strings.NewReader("png bytes"))
	require.NoError(t, err)
	assert.Contains(t, withImage.ImageURL, "_logo.png")

	tok, err := api.UploadToken(ctx, p.ID, "hero.jpg")
	require.NoError(t, err)
	assert.NotEmpty(t, tok.SasURL)

	// The employee sees the project of their client, not the admin roster.
	emp := signedIn(t, env, "a@x.com")
	projects, err := emp.Projects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	admins, err := emp.Admins(ctx)
	require.NoError(t, err)
	assert.Nil(t, admins)

	require.NoError(t, api.DeleteClient(ctx, acme.ID))
	_, err = emp.Projects(ctx)
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr), "role is gone with the last employer")
	assert.True(t, apiErr.Unauthorized())
}

func TestMutationStates(t *testing.T) {
	ctx := context.Background()
	cache := querycache.New()
	var seen []client.State
	fail := errors.New("boom")
	calls := 0
	m := client.NewMutation(cache, client.MutationSpec[string, string]{
		Run: func(_ context.Context, in string) (string, error) {
			calls++
			if in == "bad" {
				return "", fail
			}
			return strings.ToUpper(in), nil
		},
		Patch: func(c *querycache.Cache, _ string, out string) {
			c.Set(querycache.NewKey("thing"), out)
		},
		Invalidate: func(string) []querycache.Key {
			return []querycache.Key{querycache.NewKey("thing")}
		},
	})
	m.OnChange(func(s client.State) { seen = append(seen, s) })
	assert.Equal(t, client.StateIdle, m.State())

	out, err := m.Mutate(ctx, "ok")
	require.NoError(t, err)
	assert.Equal(t, "OK", out)
	assert.Equal(t, client.StateSuccess, m.State())
	assert.Equal(t, "OK", m.Data())
	v, _ := querycache.Get[string](cache, querycache.NewKey("thing"))
	assert.Equal(t, "OK", v)

	_, err = m.Mutate(ctx, "bad")
	assert.ErrorIs(t, err, fail)
	assert.Equal(t, client.StateError, m.State())
	assert.ErrorIs(t, m.Err(), fail)
	v, _ = querycache.Get[string](cache, querycache.NewKey("thing"))
	assert.Equal(t, "OK", v, "failed call does not patch")
	assert.Equal(t, 2, calls, "no automatic retry")

	m.Reset()
	assert.Equal(t, []client.State{
		client.StatePending, client.StateSuccess,
		client.StatePending, client.StateError,
		client.StateIdle,
	}, seen)
}

func TestUpdateMutationsConverge(t *testing.T) {
	ctx := context.Background()
	env := apitest.New(t)
	api := signedIn(t, env, "ada@x.com")
	cache := querycache.New()
	q := client.NewQueries(api, cache)
	ctl := client.NewControllers(api, cache)

	p, err := ctl.CreateProject.Mutate(ctx, struct{}{})
	require.NoError(t, err)
	_, err = ctl.SaveUpdate.Mutate(ctx, client.UpdateInput{ProjectID: p.ID, Title: "Old", Body: "x"})
	require.NoError(t, err)

	list, err := q.Updates(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	converged := func(t *testing.T) []models.Update {
		t.Helper()
		_, err := q.Updates(ctx, p.ID)
		require.NoError(t, err)
		cache.Wait()
		cached, ok := querycache.Get[[]models.Update](cache, client.UpdatesKey(p.ID))
		require.True(t, ok)
		fresh, err := api.Updates(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, fresh, cached)
		return cached
	}

	created, err := ctl.SaveUpdate.Mutate(ctx, client.UpdateInput{ProjectID: p.ID, Title: "Kickoff", Body: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, client.StateSuccess, ctl.SaveUpdate.State())
	patched, _ := querycache.Get[[]models.Update](cache, client.UpdatesKey(p.ID))
	require.Len(t, patched, 2)
	assert.Equal(t, created.ID, patched[0].ID, "server answer is patched in, newest first")
	converged(t)

	edited, err := ctl.SaveUpdate.Mutate(ctx, client.UpdateInput{ID: uintp(created.ID), ProjectID: p.ID, Title: "Kickoff!", Body: "Hello again"})
	require.NoError(t, err)
	assert.Equal(t, "Kickoff!", edited.Title)
	after := converged(t)
	assert.Equal(t, "Kickoff!", after[0].Title)

	_, err = ctl.DeleteUpdate.Mutate(ctx, client.DeleteUpdateInput{ID: created.ID, ProjectID: p.ID})
	require.NoError(t, err)
	after = converged(t)
	require.Len(t, after, 1)
	assert.Equal(t, "Old", after[0].Title)

	_, err = ctl.DeleteUpdate.Mutate(ctx, client.DeleteUpdateInput{ID: created.ID, ProjectID: p.ID})
	require.Error(t, err)
	assert.Equal(t, client.StateError, ctl.DeleteUpdate.State())
	converged(t)
}

func TestProjectAndSummaryControllers(t *testing.T) {
	ctx := context.Background()
	env := apitest.New(t)
	api := signedIn(t, env, "ada@x.com")
	cache := querycache.New()
	q := client.NewQueries(api, cache)
	ctl := client.NewControllers(api, cache)

	projects, err := q.Projects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)

	p, err := ctl.CreateProject.Mutate(ctx, struct{}{})
	require.NoError(t, err)
	cached, _ := querycache.Get[[]models.Project](cache, client.ProjectsKey())
	require.Len(t, cached, 1)
	assert.Equal(t, "New Project", cached[0].Name)

	_, err = ctl.SaveProject.Mutate(ctx, client.ProjectInput{ID: p.ID, Name: "Renamed"})
	require.NoError(t, err)
	one, err := q.Project(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", one.Name)

	desc := "About"
	sum, err := ctl.SaveSummary.Mutate(ctx, client.SummaryInput{ID: p.Summary.ID, ProjectID: p.ID, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "About", sum.Description)
	got, err := q.Summary(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "About", got.Description)

	_, err = ctl.DeleteProject.Mutate(ctx, p.ID)
	require.NoError(t, err)
	_, ok := cache.Get(client.SummaryKey(p.ID))
	assert.False(t, ok)
	projects, err = q.Projects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)

	_, err = api.Summary(ctx, p.ID)
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotImplemented, apiErr.Status)
}

func TestClientAndAdminControllers(t *testing.T) {
	ctx := context.Background()
	env := apitest.New(t)
	api := signedIn(t, env, "ada@x.com")
	cache := querycache.New()
	q := client.NewQueries(api, cache)
	ctl := client.NewControllers(api, cache)

	_, err := q.Clients(ctx)
	require.NoError(t, err)
	c, err := ctl.SaveClient.Mutate(ctx, client.ClientInput{Name: "Acme", Employees: []client.EmployeeInput{{Email: "a@x.com", Name: "A"}}})
	require.NoError(t, err)
	list, _ := querycache.Get[[]models.Client](cache, client.ClientsKey())
	require.Len(t, list, 1)

	_, err = ctl.SaveClient.Mutate(ctx, client.ClientInput{ID: uintp(c.ID), Name: "Acme Corp"})
	require.NoError(t, err)
	one, err := q.Client(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", one.Name)
	assert.Empty(t, one.Employees)

	_, err = ctl.DeleteClient.Mutate(ctx, c.ID)
	require.NoError(t, err)
	list, _ = querycache.Get[[]models.Client](cache, client.ClientsKey())
	assert.Empty(t, list)

	admins, err := ctl.SaveAdmins.Mutate(ctx, []client.AdminInput{
		{ID: uintp(env.Admin.ID), Name: "Ada", Email: "ada@x.com"},
		{Name: "Bob", Email: "bob@x.com"},
	})
	require.NoError(t, err)
	assert.Len(t, admins, 2)
	cachedAdmins, err := q.Admins(ctx)
	require.NoError(t, err)
	cache.Wait()
	assert.Len(t, cachedAdmins, 2)
}
