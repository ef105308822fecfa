package service

import (
	"context"

	"github.com/petermazzocco/project-journal/internal/storage"
	"github.com/petermazzocco/project-journal/internal/store"
	"github.com/petermazzocco/project-journal/internal/validate"
)

type UploadToken struct {
	SasURL      string `json:"sasUrl"`
	NewFileName string `json:"newFileName"`
}

// UploadToken hands out a write-only, time limited URL for a new project
// image. The browser uploads directly, then saves the project with
// imageFileName set to NewFileName.
func (s *Service) UploadToken(ctx context.Context, in *validate.UploadToken) (*UploadToken, error) {
	if _, err := s.store.Project(ctx, in.ProjectID); err != nil {
		return nil, lookup(err, "Project not found.")
	}
	key := storage.ProjectBlobKey(in.ProjectID, in.FileName)
	url, err := s.blobs.SignUpload(ctx, key)
	if err != nil {
		return nil, err
	}
	s.metrics.UploadTokenIssued()
	return &UploadToken{SasURL: url, NewFileName: key}, nil
}

// UploadImage stores a server-side processed copy of an image and points
// the project at it. The stored URL is cleared so the next read signs one.
func (s *Service) UploadImage(ctx context.Context, projectID uint, fileName string, data []byte) (*UploadToken, error) {
	p, err := s.store.Project(ctx, projectID)
	if err != nil {
		return nil, lookup(err, "Project not found.")
	}
	processed, err := s.process(data)
	if err != nil {
		return nil, newError(KindInvalid, "Invalid data: %v", err)
	}
	key := storage.ProjectBlobKey(projectID, fileName)
	if err := s.blobs.Put(ctx, key, processed, storage.ImageMimeType); err != nil {
		return nil, err
	}
	if err := s.store.UpdateProject(ctx, projectID, store.ProjectFields{
		Name:      p.Name,
		ClientID:  p.ClientID,
		ImageBlob: &key,
	}); err != nil {
		return nil, lookup(err, "Project not found.")
	}
	s.log.Info("stored project image", "project_id", projectID, "key", key, "bytes", len(processed))
	return &UploadToken{NewFileName: key}, nil
}
