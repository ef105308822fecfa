package service

import (
	"context"
	"strings"

	"github.com/petermazzocco/project-journal/internal/validate"
	"github.com/petermazzocco/project-journal/models"
	"golang.org/x/sync/errgroup"
)

// Admins returns the admin roster to admins and nothing to anyone else.
func (s *Service) Admins(ctx context.Context, user *models.User) ([]models.User, error) {
	if !user.IsAdmin() {
		return nil, nil
	}
	return s.store.UsersByRole(ctx, models.RoleAdmin)
}

// SaveAdmins makes the given list the complete admin roster. Listed users
// are created or promoted; admins missing from the list fall back to USER
// when some client employs them and lose their role otherwise.
func (s *Service) SaveAdmins(ctx context.Context, actor *models.User, admins []validate.Admin) ([]models.User, error) {
	wanted := make(map[string]bool, len(admins))
	for _, a := range admins {
		wanted[a.Email] = true
	}
	if !wanted[strings.ToLower(actor.Email)] {
		return nil, newError(KindInvalid, "Invalid data: you cannot remove yourself from the admins")
	}

	for _, a := range admins {
		if a.ID.New {
			continue
		}
		existing, err := s.store.UserByID(ctx, a.ID.Value)
		if err != nil {
			return nil, lookup(err, "Admin "+a.ID.String()+" does not exist.")
		}
		if !strings.EqualFold(existing.Email, a.Email) {
			return nil, newError(KindInvalid, "Invalid data: admin %d email cannot be changed", a.ID.Value)
		}
	}

	previous, err := s.store.UsersByRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, a := range admins {
		g.Go(func() error {
			u, err := s.store.UpsertUser(gctx, models.User{
				Email: a.Email,
				Name:  a.Name,
				Role:  models.RoleRef(models.RoleAdmin),
			})
			if err != nil {
				return err
			}
			if u.IsAdmin() {
				return nil
			}
			return s.store.SetUserRole(gctx, u.ID, models.RoleRef(models.RoleAdmin))
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	g, gctx = errgroup.WithContext(ctx)
	for _, p := range previous {
		if wanted[strings.ToLower(p.Email)] {
			continue
		}
		g.Go(func() error {
			ids, err := s.store.EmployeeClientIDs(gctx, p.ID)
			if err != nil {
				return err
			}
			var role *models.Role
			if len(ids) > 0 {
				role = models.RoleRef(models.RoleUser)
			}
			s.log.Info("removing admin", "user_id", p.ID, "employed", len(ids) > 0)
			return s.store.SetUserRole(gctx, p.ID, role)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return s.store.UsersByRole(ctx, models.RoleAdmin)
}
