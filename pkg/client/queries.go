package client

import (
	"context"

	"github.com/petermazzocco/project-journal/models"
	"github.com/petermazzocco/project-journal/pkg/querycache"
)

const (
	entityAdmins   = "admins"
	entityClients  = "clients"
	entityClient   = "client"
	entityProjects = "projects"
	entityProject  = "project"
	entityUpdates  = "updates"
	entitySummary  = "summary"
)

func AdminsKey() querycache.Key { return querycache.NewKey(entityAdmins) }
func ClientsKey() querycache.Key { return querycache.NewKey(entityClients) }
func ClientKey(id uint) querycache.Key { return querycache.NewKey(entityClient, id) }
func ProjectsKey() querycache.Key { return querycache.NewKey(entityProjects) }
func ProjectKey(id uint) querycache.Key { return querycache.NewKey(entityProject, id) }
func UpdatesKey(projectID uint) querycache.Key { return querycache.NewKey(entityUpdates, projectID) }
func SummaryKey(projectID uint) querycache.Key { return querycache.NewKey(entitySummary, projectID) }

// Queries serves reads through the cache.
type Queries struct {
	api   *Client
	cache *querycache.Cache
}

func NewQueries(api *Client, cache *querycache.Cache) *Queries {
	return &Queries{api: api, cache: cache}
}

func (q *Queries) Cache() *querycache.Cache { return q.cache }

func (q *Queries) Admins(ctx context.Context) ([]models.User, error) {
	return querycache.Fetch(ctx, q.cache, AdminsKey(), q.api.Admins)
}

func (q *Queries) Clients(ctx context.Context) ([]models.Client, error) {
	return querycache.Fetch(ctx, q.cache, ClientsKey(), q.api.Clients)
}

func (q *Queries) Client(ctx context.Context, id uint) (*models.Client, error) {
	return querycache.Fetch(ctx, q.cache, ClientKey(id), func(ctx context.Context) (*models.Client, error) {
		return q.api.Client(ctx, id)
	})
}

func (q *Queries) Projects(ctx context.Context) ([]models.Project, error) {
	return querycache.Fetch(ctx, q.cache, ProjectsKey(), q.api.Projects)
}

func (q *Queries) Project(ctx context.Context, id uint) (*models.Project, error) {
	return querycache.Fetch(ctx, q.cache, ProjectKey(id), func(ctx context.Context) (*models.Project, error) {
		return q.api.Project(ctx, id)
	})
}

func (q *Queries) Updates(ctx context.Context, projectID uint) ([]models.Update, error) {
	return querycache.Fetch(ctx, q.cache, UpdatesKey(projectID), func(ctx context.Context) ([]models.Update, error) {
		return q.api.Updates(ctx, projectID)
	})
}

func (q *Queries) Summary(ctx context.Context, projectID uint) (*models.Summary, error) {
	return querycache.Fetch(ctx, q.cache, SummaryKey(projectID), func(ctx context.Context) (*models.Summary, error) {
		return q.api.Summary(ctx, projectID)
	})
}
