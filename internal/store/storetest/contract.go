package storetest

import (
	"context"
	"testing"

	"github.com/petermazzocco/project-journal/internal/store"
	"github.com/petermazzocco/project-journal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunContract checks the behaviour every store.Store must share. newStore
// must return an empty store.
func RunContract(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("clients and employees", func(t *testing.T) { testClients(t, newStore(t)) })
	t.Run("projects", func(t *testing.T) { testProjects(t, newStore(t)) })
	t.Run("updates and summaries", func(t *testing.T) { testUpdates(t, newStore(t)) })
}

func testUsers(t *testing.T, st store.Store) {
	ctx := context.Background()

	u, err := st.UpsertUser(ctx, models.User{Name: "Ada", Email: "ada@x.com", Role: models.RoleRef(models.RoleAdmin)})
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())

	again, err := st.UpsertUser(ctx, models.User{Name: "Ada L", Email: "ada@x.com", Image: "pic", Role: models.RoleRef(models.RoleUser)})
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "Ada L", again.Name)
	assert.Equal(t, "pic", again.Image)
	assert.True(t, again.IsAdmin(), "existing role is kept")

	kept, err := st.UpsertUser(ctx, models.User{Email: "ada@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "Ada L", kept.Name, "empty fields do not overwrite")

	_, err = st.UpsertUser(ctx, models.User{Name: "Nobody", Email: "nobody@x.com"})
	require.NoError(t, err)

	withRole, err := st.UsersWithRole(ctx)
	require.NoError(t, err)
	require.Len(t, withRole, 1)

	require.NoError(t, st.SetUserRole(ctx, u.ID, nil))
	got, err := st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Role)

	admins, err := st.UsersByRole(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.Empty(t, admins)

	_, err = st.UserByEmail(ctx, "ghost@x.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, st.SetUserRole(ctx, 99999, nil), store.ErrNotFound)
}

func testClients(t *testing.T, st store.Store) {
	ctx := context.Background()
	u, err := st.UpsertUser(ctx, models.User{Name: "A", Email: "a@x.com", Role: models.RoleRef(models.RoleUser)})
	require.NoError(t, err)
	acme, err := st.CreateClient(ctx, "Acme")
	require.NoError(t, err)
	globex, err := st.CreateClient(ctx, "Globex")
	require.NoError(t, err)

	title := "CTO"
	require.NoError(t, st.UpsertEmployee(ctx, models.Employee{ClientID: acme.ID, UserID: u.ID}))
	require.NoError(t, st.UpsertEmployee(ctx, models.Employee{ClientID: acme.ID, UserID: u.ID, Title: &title}))
	require.NoError(t, st.UpsertEmployee(ctx, models.Employee{ClientID: globex.ID, UserID: u.ID}))

	c, err := st.Client(ctx, acme.ID)
	require.NoError(t, err)
	require.Len(t, c.Employees, 1, "one row per client and user")
	require.NotNil(t, c.Employees[0].Title)
	assert.Equal(t, "CTO", *c.Employees[0].Title)
	require.NotNil(t, c.Employees[0].User)
	assert.Equal(t, "a@x.com", c.Employees[0].User.Email)

	ids, err := st.EmployeeClientIDs(ctx, u.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{acme.ID, globex.ID}, ids)

	scoped, err := st.ClientsByIDs(ctx, []uint{globex.ID})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "Globex", scoped[0].Name)
	none, err := st.ClientsByIDs(ctx, []uint{})
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, st.RenameClient(ctx, acme.ID, "Acme Corp"))
	p := &models.Project{Name: "Site", ClientID: &acme.ID}
	require.NoError(t, st.CreateProject(ctx, p))

	require.NoError(t, st.DeleteClient(ctx, acme.ID))
	_, err = st.Client(ctx, acme.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	ids, err = st.EmployeeClientIDs(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{globex.ID}, ids)

	detached, err := st.Project(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, detached.ClientID)

	require.NoError(t, st.DeleteEmployee(ctx, globex.ID, u.ID))
	ids, err = st.EmployeeClientIDs(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.ErrorIs(t, st.DeleteClient(ctx, acme.ID), store.ErrNotFound)
}

func testProjects(t *testing.T, st store.Store) {
	ctx := context.Background()
	u, err := st.UpsertUser(ctx, models.User{Name: "A", Email: "a@x.com", Role: models.RoleRef(models.RoleUser)})
	require.NoError(t, err)
	acme, err := st.CreateClient(ctx, "Acme")
	require.NoError(t, err)

	p := &models.Project{Name: "New Project"}
	require.NoError(t, st.CreateProject(ctx, p))
	require.NotZero(t, p.ID)
	require.NotNil(t, p.Summary)

	blob := "projects/1/a.jpg"
	require.NoError(t, st.UpdateProject(ctx, p.ID, store.ProjectFields{Name: "Site", ClientID: &acme.ID, ImageBlob: &blob}))
	require.NoError(t, st.SetProjectTeam(ctx, p.ID, []uint{u.ID}))
	require.NoError(t, st.SetProjectImageURL(ctx, p.ID, "https://signed"))

	got, err := st.Project(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Site", got.Name)
	assert.Equal(t, blob, got.ImageBlob)
	assert.Equal(t, "https://signed", got.ImageURL)
	require.Len(t, got.Team, 1)
	assert.Equal(t, u.ID, got.Team[0].ID)
	require.NotNil(t, got.Summary)
	require.NotNil(t, got.Client)
	assert.Equal(t, "Acme", got.Client.Name)

	scoped, err := st.ProjectsByClients(ctx, []uint{acme.ID})
	require.NoError(t, err)
	assert.Len(t, scoped, 1)
	scoped, err = st.ProjectsByClients(ctx, []uint{acme.ID + 1000})
	require.NoError(t, err)
	assert.Empty(t, scoped)

	require.NoError(t, st.UpdateProject(ctx, p.ID, store.ProjectFields{Name: "Site"}))
	got, err = st.Project(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ClientID)
	assert.Equal(t, blob, got.ImageBlob, "nil ImageBlob keeps the image")

	require.NoError(t, st.SetProjectTeam(ctx, p.ID, nil))
	got, err = st.Project(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Team)

	assert.ErrorIs(t, st.UpdateProject(ctx, 99999, store.ProjectFields{Name: "x"}), store.ErrNotFound)
}

func testUpdates(t *testing.T, st store.Store) {
	ctx := context.Background()
	p := &models.Project{Name: "Site"}
	require.NoError(t, st.CreateProject(ctx, p))

	first := &models.Update{ProjectID: p.ID, Title: "one", Body: "a"}
	require.NoError(t, st.CreateUpdate(ctx, first))
	second := &models.Update{ProjectID: p.ID, Title: "two", Body: "b"}
	require.NoError(t, st.CreateUpdate(ctx, second))

	list, err := st.Updates(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")

	first.Title = "one!"
	require.NoError(t, st.SaveUpdate(ctx, first))
	got, err := st.Update(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "one!", got.Title)

	desc := "About"
	sum, err := st.UpdateSummary(ctx, p.Summary.ID, &desc, nil)
	require.NoError(t, err)
	assert.Equal(t, "About", sum.Description)
	roadmap := "Later"
	sum, err = st.UpdateSummary(ctx, p.Summary.ID, nil, &roadmap)
	require.NoError(t, err)
	assert.Equal(t, "About", sum.Description)
	assert.Equal(t, "Later", sum.Roadmap)

	require.NoError(t, st.DeleteUpdate(ctx, second.ID))
	assert.ErrorIs(t, st.DeleteUpdate(ctx, second.ID), store.ErrNotFound)

	require.NoError(t, st.DeleteProject(ctx, p.ID))
	_, err = st.SummaryByProject(ctx, p.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Update(ctx, first.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	list, err = st.Updates(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.ErrorIs(t, st.DeleteProject(ctx, p.ID), store.ErrNotFound)
}
