package client

import (
	"context"

	"github.com/petermazzocco/project-journal/models"
	"github.com/petermazzocco/project-journal/pkg/querycache"
)

// DeleteUpdateInput carries the project id so the right list is patched.
type DeleteUpdateInput struct {
	ID        uint
	ProjectID uint
}

// Controllers holds one mutation per write the API offers. Each patches the
// cache with what the server returned and invalidates the keys it touched.
type Controllers struct {
	SaveAdmins    *Mutation[[]AdminInput, []models.User]
	SaveClient    *Mutation[ClientInput, *models.Client]
	DeleteClient  *Mutation[uint, struct{}]
	CreateProject *Mutation[struct{}, *models.Project]
	SaveProject   *Mutation[ProjectInput, *models.Project]
	DeleteProject *Mutation[uint, struct{}]
	SaveUpdate    *Mutation[UpdateInput, *models.Update]
	DeleteUpdate  *Mutation[DeleteUpdateInput, struct{}]
	SaveSummary   *Mutation[SummaryInput, *models.Summary]
}

func NewControllers(api *Client, cache *querycache.Cache) *Controllers {
	return &Controllers{
		SaveAdmins: NewMutation(cache, MutationSpec[[]AdminInput, []models.User]{
			Run: api.SaveAdmins,
			Patch: func(c *querycache.Cache, _ []AdminInput, out []models.User) {
				c.Set(AdminsKey(), out)
			},
			Invalidate: func([]AdminInput) []querycache.Key {
				return []querycache.Key{AdminsKey()}
			},
		}),

		SaveClient: NewMutation(cache, MutationSpec[ClientInput, *models.Client]{
			Run: api.SaveClient,
			Patch: func(c *querycache.Cache, _ ClientInput, out *models.Client) {
				c.Set(ClientKey(out.ID), out)
				upsertInList(c, ClientsKey(), *out, func(x models.Client) uint { return x.ID }, false)
			},
			Invalidate: func(in ClientInput) []querycache.Key {
				keys := []querycache.Key{ClientsKey()}
				if in.ID != nil {
					keys = append(keys, ClientKey(*in.ID))
				}
				return keys
			},
		}),

		DeleteClient: NewMutation(cache, MutationSpec[uint, struct{}]{
			Run: func(ctx context.Context, id uint) (struct{}, error) {
				return struct{}{}, api.DeleteClient(ctx, id)
			},
			Patch: func(c *querycache.Cache, id uint, _ struct{}) {
				c.Remove(ClientKey(id))
				removeFromList(c, ClientsKey(), id, func(x models.Client) uint { return x.ID })
			},
			Invalidate: func(uint) []querycache.Key {
				// Projects of the client lose their client.
				return []querycache.Key{ClientsKey(), ProjectsKey()}
			},
		}),

		CreateProject: NewMutation(cache, MutationSpec[struct{}, *models.Project]{
			Run: func(ctx context.Context, _ struct{}) (*models.Project, error) {
				return api.CreateProject(ctx)
			},
			Patch: patchProject[struct{}],
			Invalidate: func(struct{}) []querycache.Key {
				return []querycache.Key{ProjectsKey()}
			},
		}),

		SaveProject: NewMutation(cache, MutationSpec[ProjectInput, *models.Project]{
			Run:   api.SaveProject,
			Patch: patchProject[ProjectInput],
			Invalidate: func(in ProjectInput) []querycache.Key {
				return []querycache.Key{ProjectsKey(), ProjectKey(in.ID)}
			},
		}),

		DeleteProject: NewMutation(cache, MutationSpec[uint, struct{}]{
			Run: func(ctx context.Context, id uint) (struct{}, error) {
				return struct{}{}, api.DeleteProject(ctx, id)
			},
			Patch: func(c *querycache.Cache, id uint, _ struct{}) {
				c.Remove(ProjectKey(id))
				c.Remove(UpdatesKey(id))
				c.Remove(SummaryKey(id))
				removeFromList(c, ProjectsKey(), id, func(x models.Project) uint { return x.ID })
			},
			Invalidate: func(uint) []querycache.Key {
				return []querycache.Key{ProjectsKey()}
			},
		}),

		SaveUpdate: NewMutation(cache, MutationSpec[UpdateInput, *models.Update]{
			Run: api.SaveUpdate,
			Patch: func(c *querycache.Cache, _ UpdateInput, out *models.Update) {
				upsertInList(c, UpdatesKey(out.ProjectID), *out, func(x models.Update) uint { return x.ID }, true)
			},
			Invalidate: func(in UpdateInput) []querycache.Key {
				return []querycache.Key{UpdatesKey(in.ProjectID)}
			},
		}),

		DeleteUpdate: NewMutation(cache, MutationSpec[DeleteUpdateInput, struct{}]{
			Run: func(ctx context.Context, in DeleteUpdateInput) (struct{}, error) {
				return struct{}{}, api.DeleteUpdate(ctx, in.ID)
			},
			Patch: func(c *querycache.Cache, in DeleteUpdateInput, _ struct{}) {
				removeFromList(c, UpdatesKey(in.ProjectID), in.ID, func(x models.Update) uint { return x.ID })
			},
			Invalidate: func(in DeleteUpdateInput) []querycache.Key {
				return []querycache.Key{UpdatesKey(in.ProjectID)}
			},
		}),

		SaveSummary: NewMutation(cache, MutationSpec[SummaryInput, *models.Summary]{
			Run: api.SaveSummary,
			Patch: func(c *querycache.Cache, _ SummaryInput, out *models.Summary) {
				c.Set(SummaryKey(out.ProjectID), out)
			},
			Invalidate: func(in SummaryInput) []querycache.Key {
				return []querycache.Key{SummaryKey(in.ProjectID)}
			},
		}),
	}
}

func patchProject[In any](c *querycache.Cache, _ In, out *models.Project) {
	c.Set(ProjectKey(out.ID), out)
	upsertInList(c, ProjectsKey(), *out, func(x models.Project) uint { return x.ID }, true)
}

// upsertInList replaces the item with the same id in a cached list, or adds
// it at the front (newest first) or the back. Lists never fetched are left
// alone.
func upsertInList[T any](c *querycache.Cache, key querycache.Key, item T, id func(T) uint, front bool) {
	c.Update(key, func(old any, ok bool) (any, bool) {
		list, isList := old.([]T)
		if !ok || !isList {
			return nil, false
		}
		out := make([]T, 0, len(list)+1)
		replaced := false
		for _, x := range list {
			if id(x) == id(item) {
				out = append(out, item)
				replaced = true
				continue
			}
			out = append(out, x)
		}
		if !replaced {
			if front {
				out = append([]T{item}, out...)
			} else {
				out = append(out, item)
			}
		}
		return out, true
	})
}

func removeFromList[T any](c *querycache.Cache, key querycache.Key, target uint, id func(T) uint) {
	c.Update(key, func(old any, ok bool) (any, bool) {
		list, isList := old.([]T)
		if !ok || !isList {
			return nil, false
		}
		out := make([]T, 0, len(list))
		for _, x := range list {
			if id(x) != target {
				out = append(out, x)
			}
		}
		return out, true
	})
}
