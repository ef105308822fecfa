// Package service holds the business rules behind the API: role scoped
// reads, client employee reconciliation, admin roster changes and the lazy
// refresh of signed project image URLs.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/petermazzocco/project-journal/internal/metrics"
	"github.com/petermazzocco/project-journal/internal/storage"
	"github.com/petermazzocco/project-journal/internal/store"
	"github.com/petermazzocco/project-journal/internal/validate"
	"github.com/petermazzocco/project-journal/models"
)

type Kind int

const (
	KindInternal Kind = iota
	KindInvalid
	KindUnauthorized
	KindNotFound
	KindForbidden
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf classifies any error returned by this package.
func KindOf(err error) Kind {
	var serr *Error
	var verr *validate.Error
	switch {
	case err == nil:
		return KindInternal
	case errors.As(err, &serr):
		return serr.Kind
	case errors.As(err, &verr):
		return KindInvalid
	case errors.Is(err, store.ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

// lookup turns store.ErrNotFound into a not-found error carrying msg.
func lookup(err error, msg string) error {
	if errors.Is(err, store.ErrNotFound) {
		return &Error{Kind: KindNotFound, Msg: msg}
	}
	return err
}

type Service struct {
	store   store.Store
	blobs   storage.Blobs
	metrics *metrics.Metrics
	log     *slog.Logger
	now     func() time.Time
	process func([]byte) ([]byte, error)
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithImageProcessor(fn func([]byte) ([]byte, error)) Option {
	return func(s *Service) { s.process = fn }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(st store.Store, blobs storage.Blobs, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:   st,
		blobs:   blobs,
		log:     log,
		now:     time.Now,
		process: storage.ProcessImage,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Me reloads the signed-in user.
func (s *Service) Me(ctx context.Context, user *models.User) (*models.User, error) {
	u, err := s.store.UserByID(ctx, user.ID)
	if err != nil {
		return nil, lookup(err, "User not found.")
	}
	return u, nil
}

// Users lists everyone who can be put on a project team.
func (s *Service) Users(ctx context.Context) ([]models.User, error) {
	return s.store.UsersWithRole(ctx)
}

// clientScope returns nil for admins (no restriction) and the ids of the
// clients employing the user otherwise.
func (s *Service) clientScope(ctx context.Context, user *models.User) ([]uint, error) {
	if user.IsAdmin() {
		return nil, nil
	}
	ids, err := s.store.EmployeeClientIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []uint{}
	}
	return ids, nil
}

func inScope(scope []uint, clientID *uint) bool {
	if scope == nil {
		return true
	}
	return clientID != nil && slices.Contains(scope, *clientID)
}

// demoteIfOrphaned drops the role of a non-admin user who is no longer
// employed by any client.
func (s *Service) demoteIfOrphaned(ctx context.Context, userID uint) error {
	u, err := s.store.UserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if u.IsAdmin() || u.Role == nil {
		return nil
	}
	ids, err := s.store.EmployeeClientIDs(ctx, userID)
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		return nil
	}
	s.log.Info("demoting user without client", "user_id", userID)
	return s.store.SetUserRole(ctx, userID, nil)
}
