// Package store defines the persistence boundary for Project Journal. Every
// write in the service goes through a Store; nothing else talks to the
// database.
package store

import (
	"context"
	"errors"

	"github.com/petermazzocco/project-journal/models"
)

var ErrNotFound = errors.New("record not found")

// ProjectFields holds the editable scalar columns of a project. A nil
// ImageBlob leaves the stored image untouched.
type ProjectFields struct {
	Name      string
	ClientID  *uint
	ImageBlob *string
}

type Store interface {
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id uint) (*models.User, error)
	// UsersWithRole lists every user that has some role.
	UsersWithRole(ctx context.Context) ([]models.User, error)
	UsersByRole(ctx context.Context, role models.Role) ([]models.User, error)
	// UpsertUser creates the user keyed by email with u.Role, or updates the
	// non-empty name and image of an existing one. An existing role is never
	// changed here.
	UpsertUser(ctx context.Context, u models.User) (*models.User, error)
	SetUserRole(ctx context.Context, id uint, role *models.Role) error

	Clients(ctx context.Context) ([]models.Client, error)
	ClientsByIDs(ctx context.Context, ids []uint) ([]models.Client, error)
	Client(ctx context.Context, id uint) (*models.Client, error)
	CreateClient(ctx context.Context, name string) (*models.Client, error)
	RenameClient(ctx context.Context, id uint, name string) error
	// DeleteClient removes the client and its employee rows and detaches its
	// projects. Role changes are left to the caller.
	DeleteClient(ctx context.Context, id uint) error

	UpsertEmployee(ctx context.Context, e models.Employee) error
	DeleteEmployee(ctx context.Context, clientID, userID uint) error
	EmployeeClientIDs(ctx context.Context, userID uint) ([]uint, error)

	Projects(ctx context.Context) ([]models.Project, error)
	ProjectsByClients(ctx context.Context, clientIDs []uint) ([]models.Project, error)
	Project(ctx context.Context, id uint) (*models.Project, error)
	// CreateProject inserts the project together with its empty summary.
	CreateProject(ctx context.Context, p *models.Project) error
	UpdateProject(ctx context.Context, id uint, f ProjectFields) error
	SetProjectTeam(ctx context.Context, id uint, userIDs []uint) error
	SetProjectImageURL(ctx context.Context, id uint, url string) error
	// DeleteProject removes updates, summary and team links before the project.
	DeleteProject(ctx context.Context, id uint) error

	Summary(ctx context.Context, id uint) (*models.Summary, error)
	SummaryByProject(ctx context.Context, projectID uint) (*models.Summary, error)
	UpdateSummary(ctx context.Context, id uint, description, roadmap *string) (*models.Summary, error)

	// Updates returns a project's updates, newest first.
	Updates(ctx context.Context, projectID uint) ([]models.Update, error)
	Update(ctx context.Context, id uint) (*models.Update, error)
	CreateUpdate(ctx context.Context, u *models.Update) error
	SaveUpdate(ctx context.Context, u *models.Update) error
	DeleteUpdate(ctx context.Context, id uint) error
}
