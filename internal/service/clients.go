package service

import (
	"context"
	"slices"

	"github.com/petermazzocco/project-journal/internal/validate"
	"github.com/petermazzocco/project-journal/models"
	"golang.org/x/sync/errgroup"
)

func (s *Service) Clients(ctx context.Context, user *models.User) ([]models.Client, error) {
	scope, err := s.clientScope(ctx, user)
	if err != nil {
		return nil, err
	}
	if scope == nil {
		return s.store.Clients(ctx)
	}
	return s.store.ClientsByIDs(ctx, scope)
}

func (s *Service) Client(ctx context.Context, user *models.User, id uint) (*models.Client, error) {
	c, err := s.store.Client(ctx, id)
	if err != nil {
		return nil, lookup(err, "Client not found.")
	}
	scope, err := s.clientScope(ctx, user)
	if err != nil {
		return nil, err
	}
	if scope != nil && !slices.Contains(scope, id) {
		return nil, newError(KindForbidden, "User does not belong to this client.")
	}
	return c, nil
}

// SaveClient creates or renames the client and reconciles its employees
// against the complete desired list in.Employees:
//
//  1. every listed person is upserted as a user by email (existing roles are
//     kept, new users get USER, role-less users are given USER again) and
//     as an employee row of this client;
//  2. employees of the previous roster whose email is no longer listed have
//     their row deleted;
//  3. each removed person loses their role unless they are an admin or are
//     still employed by another client.
//
// Step 1 finishes before step 2 starts. Within a step the writes are
// independent and run concurrently; a failure part way leaves a state the
// next save converges from.
func (s *Service) SaveClient(ctx context.Context, in *validate.Client) (*models.Client, error) {
	var clientID uint
	var previous []models.Employee

	if in.ID.New {
		c, err := s.store.CreateClient(ctx, in.Name)
		if err != nil {
			return nil, err
		}
		clientID = c.ID
	} else {
		existing, err := s.store.Client(ctx, in.ID.Value)
		if err != nil {
			return nil, lookup(err, "Client not found.")
		}
		clientID = existing.ID
		previous = existing.Employees
		if existing.Name != in.Name {
			if err := s.store.RenameClient(ctx, clientID, in.Name); err != nil {
				return nil, err
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, e := range in.Employees {
		g.Go(func() error {
			u, err := s.store.UpsertUser(gctx, models.User{
				Email: e.Email,
				Name:  e.Name,
				Role:  models.RoleRef(models.RoleUser),
			})
			if err != nil {
				return err
			}
			if u.Role == nil {
				if err := s.store.SetUserRole(gctx, u.ID, models.RoleRef(models.RoleUser)); err != nil {
					return err
				}
			}
			return s.store.UpsertEmployee(gctx, models.Employee{
				ClientID: clientID,
				UserID:   u.ID,
				Title:    e.Title,
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	incoming := make(map[string]bool, len(in.Employees))
	for _, e := range in.Employees {
		incoming[e.Email] = true
	}

	g, gctx = errgroup.WithContext(ctx)
	for _, prev := range previous {
		if prev.User != nil && incoming[prev.User.Email] {
			continue
		}
		g.Go(func() error {
			if err := s.store.DeleteEmployee(gctx, clientID, prev.UserID); err != nil {
				return err
			}
			return s.demoteIfOrphaned(gctx, prev.UserID)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c, err := s.store.Client(ctx, clientID)
	if err != nil {
		return nil, lookup(err, "Client not found.")
	}
	return c, nil
}

// DeleteClient removes the client with its employee rows, then applies the
// same demotion rule as SaveClient to every former employee.
func (s *Service) DeleteClient(ctx context.Context, id uint) error {
	c, err := s.store.Client(ctx, id)
	if err != nil {
		return lookup(err, "Client not found.")
	}
	if err := s.store.DeleteClient(ctx, id); err != nil {
		return lookup(err, "Client not found.")
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, e := range c.Employees {
		g.Go(func() error {
			return s.demoteIfOrphaned(gctx, e.UserID)
		})
	}
	return g.Wait()
}
