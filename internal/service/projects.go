package service

import (
	"context"
	"strings"

	"github.com/petermazzocco/project-journal/internal/storage"
	"github.com/petermazzocco/project-journal/internal/store"
	"github.com/petermazzocco/project-journal/internal/validate"
	"github.com/petermazzocco/project-journal/models"
	"golang.org/x/sync/errgroup"
)

const newProjectName = "New Project"

func (s *Service) Projects(ctx context.Context, user *models.User) ([]models.Project, error) {
	scope, err := s.clientScope(ctx, user)
	if err != nil {
		return nil, err
	}
	var projects []models.Project
	if scope == nil {
		projects, err = s.store.Projects(ctx)
	} else {
		projects, err = s.store.ProjectsByClients(ctx, scope)
	}
	if err != nil {
		return nil, err
	}
	for i := range projects {
		if err := s.refreshImage(ctx, &projects[i]); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

func (s *Service) Project(ctx context.Context, user *models.User, id uint) (*models.Project, error) {
	p, err := s.authorizeProject(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if err := s.refreshImage(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// authorizeProject loads the project and checks the user may see it.
func (s *Service) authorizeProject(ctx context.Context, user *models.User, id uint) (*models.Project, error) {
	p, err := s.store.Project(ctx, id)
	if err != nil {
		return nil, lookup(err, "Project not found.")
	}
	scope, err := s.clientScope(ctx, user)
	if err != nil {
		return nil, err
	}
	if !inScope(scope, p.ClientID) {
		return nil, newError(KindForbidden, "User does not belong to this project.")
	}
	return p, nil
}

// refreshImage replaces an expired signed image URL on p and persists the
// new one. Concurrent readers may both sign; whichever write lands last
// wins and either URL is valid.
func (s *Service) refreshImage(ctx context.Context, p *models.Project) error {
	url, changed, err := storage.RefreshIfExpired(ctx, s.blobs, p.ImageBlob, p.ImageURL, s.now())
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if err := s.store.SetProjectImageURL(ctx, p.ID, url); err != nil {
		return err
	}
	s.metrics.ImageRefreshed()
	s.log.Debug("refreshed project image url", "project_id", p.ID)
	p.ImageURL = url
	return nil
}

// CreateProject creates an empty project with its summary.
func (s *Service) CreateProject(ctx context.Context) (*models.Project, error) {
	p := &models.Project{Name: newProjectName}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	return s.reloadProject(ctx, p.ID)
}

// SaveProject creates the project for {id:"new"} and otherwise writes the
// core fields and the team roster. Those two writes touch unrelated columns
// and run concurrently.
func (s *Service) SaveProject(ctx context.Context, in *validate.Project) (*models.Project, error) {
	if in.ID.New {
		return s.CreateProject(ctx)
	}
	id := in.ID.Value
	if _, err := s.store.Project(ctx, id); err != nil {
		return nil, lookup(err, "Project not found.")
	}
	if in.ClientID != nil {
		if _, err := s.store.Client(ctx, *in.ClientID); err != nil {
			return nil, lookup(err, "Client not found.")
		}
	}
	if in.ImageFileName != nil && !strings.HasPrefix(*in.ImageFileName, storage.ProjectPrefix(id)) {
		return nil, newError(KindInvalid, "Invalid data: imageFileName does not belong to project %d", id)
	}
	for _, uid := range in.Team {
		u, err := s.store.UserByID(ctx, uid)
		if err != nil {
			return nil, lookup(err, "Team member not found.")
		}
		if !u.HasAccess() {
			return nil, newError(KindInvalid, "Invalid data: team member %d has no role", uid)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.store.UpdateProject(gctx, id, store.ProjectFields{
			Name:      in.Name,
			ClientID:  in.ClientID,
			ImageBlob: in.ImageFileName,
		})
	})
	g.Go(func() error {
		return s.store.SetProjectTeam(gctx, id, in.Team)
	})
	if err := g.Wait(); err != nil {
		return nil, lookup(err, "Project not found.")
	}
	return s.reloadProject(ctx, id)
}

func (s *Service) DeleteProject(ctx context.Context, id uint) error {
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return lookup(err, "Project not found.")
	}
	return nil
}

func (s *Service) reloadProject(ctx context.Context, id uint) (*models.Project, error) {
	p, err := s.store.Project(ctx, id)
	if err != nil {
		return nil, lookup(err, "Project not found.")
	}
	if err := s.refreshImage(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
