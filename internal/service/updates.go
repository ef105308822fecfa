package service

import (
	"context"

	"github.com/petermazzocco/project-journal/internal/validate"
	"github.com/petermazzocco/project-journal/models"
)

// Updates lists a project's updates, newest first.
func (s *Service) Updates(ctx context.Context, user *models.User, projectID uint) ([]models.Update, error) {
	if _, err := s.authorizeProject(ctx, user, projectID); err != nil {
		return nil, err
	}
	return s.store.Updates(ctx, projectID)
}

func (s *Service) SaveUpdate(ctx context.Context, in *validate.Update) (*models.Update, error) {
	if _, err := s.store.Project(ctx, in.ProjectID); err != nil {
		return nil, lookup(err, "Project not found.")
	}
	u := &models.Update{ProjectID: in.ProjectID, Title: in.Title, Body: in.Body}
	if in.ID.New {
		if err := s.store.CreateUpdate(ctx, u); err != nil {
			return nil, lookup(err, "Project not found.")
		}
		return u, nil
	}
	u.ID = in.ID.Value
	prev, err := s.store.Update(ctx, u.ID)
	if err != nil {
		return nil, lookup(err, "Update not found.")
	}
	if prev.ProjectID != in.ProjectID {
		return nil, newError(KindInvalid, "Invalid data: update %d belongs to project %d", u.ID, prev.ProjectID)
	}
	if err := s.store.SaveUpdate(ctx, u); err != nil {
		return nil, lookup(err, "Update not found.")
	}
	return u, nil
}

func (s *Service) DeleteUpdate(ctx context.Context, id uint) error {
	if err := s.store.DeleteUpdate(ctx, id); err != nil {
		return lookup(err, "Update not found.")
	}
	return nil
}

func (s *Service) Summary(ctx context.Context, user *models.User, projectID uint) (*models.Summary, error) {
	if _, err := s.authorizeProject(ctx, user, projectID); err != nil {
		return nil, err
	}
	sum, err := s.store.SummaryByProject(ctx, projectID)
	if err != nil {
		return nil, lookup(err, "Summary not found.")
	}
	return sum, nil
}

// SaveSummary changes only the fields present in the request.
func (s *Service) SaveSummary(ctx context.Context, in *validate.Summary) (*models.Summary, error) {
	sum, err := s.store.UpdateSummary(ctx, in.ID, in.Description, in.Roadmap)
	if err != nil {
		return nil, lookup(err, "Summary not found.")
	}
	return sum, nil
}
