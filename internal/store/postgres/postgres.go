package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/petermazzocco/project-journal/internal/store"
	"github.com/petermazzocco/project-journal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return New(db), nil
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate models: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) UsersWithRole(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Where("role IS NOT NULL").Order("name").Find(&users).Error
	return users, err
}

func (s *Store) UsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Where("role = ?", string(role)).Order("name").Find(&users).Error
	return users, err
}

func (s *Store) UpsertUser(ctx context.Context, u models.User) (*models.User, error) {
	var cols []string
	if u.Name != "" {
		cols = append(cols, "name")
	}
	if u.Image != "" {
		cols = append(cols, "image")
	}
	onConflict := clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}
	if len(cols) > 0 {
		onConflict = clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns(append(cols, "updated_at")),
		}
	}

	row := models.User{Name: u.Name, Email: u.Email, Image: u.Image, Role: u.Role}
	if err := s.db.WithContext(ctx).Clauses(onConflict).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("upsert user %s: %w", u.Email, err)
	}
	return s.UserByEmail(ctx, u.Email)
}

func (s *Store) SetUserRole(ctx context.Context, id uint, role *models.Role) error {
	var value any = gorm.Expr("NULL")
	if role != nil {
		value = string(*role)
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("role", value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Clients(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	err := s.db.WithContext(ctx).Preload("Employees.User").Order("name").Find(&clients).Error
	return clients, err
}

func (s *Store) ClientsByIDs(ctx context.Context, ids []uint) ([]models.Client, error) {
	if len(ids) == 0 {
		return []models.Client{}, nil
	}
	var clients []models.Client
	err := s.db.WithContext(ctx).Preload("Employees.User").Where("id IN ?", ids).Order("name").Find(&clients).Error
	return clients, err
}

func (s *Store) Client(ctx context.Context, id uint) (*models.Client, error) {
	var c models.Client
	if err := s.db.WithContext(ctx).Preload("Employees.User").First(&c, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) CreateClient(ctx context.Context, name string) (*models.Client, error) {
	c := models.Client{Name: name}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) RenameClient(ctx context.Context, id uint, name string) error {
	res := s.db.WithContext(ctx).Model(&models.Client{}).Where("id = ?", id).Update("name", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteClient(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("client_id = ?", id).Delete(&models.Employee{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Project{}).Where("client_id = ?", id).Update("client_id", gorm.Expr("NULL")).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Client{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

func (s *Store) UpsertEmployee(ctx context.Context, e models.Employee) error {
	row := models.Employee{ClientID: e.ClientID, UserID: e.UserID, Title: e.Title}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "client_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title"}),
	}).Create(&row).Error
}

func (s *Store) DeleteEmployee(ctx context.Context, clientID, userID uint) error {
	return s.db.WithContext(ctx).
		Where("client_id = ? AND user_id = ?", clientID, userID).
		Delete(&models.Employee{}).Error
}

func (s *Store) EmployeeClientIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Employee{}).Where("user_id = ?", userID).Pluck("client_id", &ids).Error
	return ids, err
}

func (s *Store) projects(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Preload("Client").Preload("Team").Order("updated_at DESC")
}

func (s *Store) Projects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	err := s.projects(ctx).Find(&projects).Error
	return projects, err
}

func (s *Store) ProjectsByClients(ctx context.Context, clientIDs []uint) ([]models.Project, error) {
	if len(clientIDs) == 0 {
		return []models.Project{}, nil
	}
	var projects []models.Project
	err := s.projects(ctx).Where("client_id IN ?", clientIDs).Find(&projects).Error
	return projects, err
}

func (s *Store) Project(ctx context.Context, id uint) (*models.Project, error) {
	var p models.Project
	err := s.db.WithContext(ctx).
		Preload("Client").
		Preload("Team").
		Preload("Summary").
		First(&p, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
			return err
		}
		summary := models.Summary{ProjectID: p.ID}
		if err := tx.Create(&summary).Error; err != nil {
			return err
		}
		p.Summary = &summary
		return nil
	})
}

func (s *Store) UpdateProject(ctx context.Context, id uint, f store.ProjectFields) error {
	values := map[string]any{"name": f.Name}
	if f.ClientID != nil {
		values["client_id"] = *f.ClientID
	} else {
		values["client_id"] = gorm.Expr("NULL")
	}
	if f.ImageBlob != nil {
		values["image_blob"] = *f.ImageBlob
		values["image_url"] = ""
	}
	res := s.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SetProjectTeam(ctx context.Context, id uint, userIDs []uint) error {
	project := models.Project{ID: id}
	assoc := s.db.WithContext(ctx).Model(&project).Association("Team")
	if len(userIDs) == 0 {
		return assoc.Clear()
	}
	team := make([]models.User, 0, len(userIDs))
	for _, uid := range userIDs {
		team = append(team, models.User{ID: uid})
	}
	return assoc.Replace(&team)
}

func (s *Store) SetProjectImageURL(ctx context.Context, id uint, url string) error {
	return s.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).UpdateColumn("image_url", url).Error
}

func (s *Store) DeleteProject(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&models.Update{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Summary{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Project{ID: id}).Association("Team").Clear(); err != nil {
			return err
		}
		res := tx.Delete(&models.Project{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

func (s *Store) Summary(ctx context.Context, id uint) (*models.Summary, error) {
	var summary models.Summary
	if err := s.db.WithContext(ctx).First(&summary, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &summary, nil
}

func (s *Store) SummaryByProject(ctx context.Context, projectID uint) (*models.Summary, error) {
	var summary models.Summary
	if err := s.db.WithContext(ctx).Where("project_id = ?", projectID).First(&summary).Error; err != nil {
		return nil, notFound(err)
	}
	return &summary, nil
}

func (s *Store) UpdateSummary(ctx context.Context, id uint, description, roadmap *string) (*models.Summary, error) {
	values := map[string]any{}
	if description != nil {
		values["description"] = *description
	}
	if roadmap != nil {
		values["roadmap"] = *roadmap
	}
	if len(values) > 0 {
		res := s.db.WithContext(ctx).Model(&models.Summary{}).Where("id = ?", id).Updates(values)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, store.ErrNotFound
		}
	}
	return s.Summary(ctx, id)
}

func (s *Store) Updates(ctx context.Context, projectID uint) ([]models.Update, error) {
	var updates []models.Update
	err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Order("created_at DESC").Find(&updates).Error
	return updates, err
}

func (s *Store) Update(ctx context.Context, id uint) (*models.Update, error) {
	var u models.Update
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) CreateUpdate(ctx context.Context, u *models.Update) error {
	return s.db.WithContext(ctx).Create(u).Error
}

func (s *Store) SaveUpdate(ctx context.Context, u *models.Update) error {
	res := s.db.WithContext(ctx).Model(&models.Update{}).Where("id = ?", u.ID).Updates(map[string]any{
		"title":      u.Title,
		"body":       u.Body,
		"project_id": u.ProjectID,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return s.db.WithContext(ctx).First(u, u.ID).Error
}

func (s *Store) DeleteUpdate(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Update{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}
