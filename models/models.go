package models

import (
	"time"
)

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// RoleRef returns a pointer suitable for the nullable role column.
func RoleRef(r Role) *Role {
	return &r
}

type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
	Name      string    `gorm:"size:255" json:"name"`
	Email     string    `gorm:"size:255;not null;unique" json:"email"`
	Image     string    `json:"image,omitempty"`
	// A nil role means the user has no access to the application.
	Role      *Role      `gorm:"type:varchar(16)" json:"role"`
	Employees []Employee `json:"employees,omitempty"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role != nil && *u.Role == RoleAdmin
}

func (u *User) HasAccess() bool {
	return u != nil && u.Role != nil
}

type Client struct {
	ID        uint       `gorm:"primarykey" json:"id"`
	CreatedAt time.Time  `json:"-"`
	UpdatedAt time.Time  `json:"-"`
	Name      string     `gorm:"size:255;not null" json:"name"`
	Employees []Employee `gorm:"constraint:OnDelete:CASCADE;" json:"employees"`
	Projects  []Project  `json:"-"`
}

type Employee struct {
	ClientID uint    `gorm:"primaryKey;autoIncrement:false" json:"clientId"`
	UserID   uint    `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	Title    *string `json:"title"`
	User     *User   `gorm:"constraint:OnDelete:CASCADE;" json:"user,omitempty"`
	Client   *Client `json:"-"`
}

type Project struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	// Storage key of the project image. Never sent to clients.
	ImageBlob string   `json:"-"`
	ImageURL  string   `json:"image,omitempty"`
	ClientID  *uint    `gorm:"index" json:"clientId"`
	Client    *Client  `gorm:"constraint:OnDelete:SET NULL;" json:"client,omitempty"`
	Team      []User   `gorm:"many2many:project_team;" json:"team"`
	Summary   *Summary `json:"summary,omitempty"`
	Updates   []Update `json:"updates,omitempty"`
}

type Summary struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	ProjectID   uint   `gorm:"not null;uniqueIndex" json:"projectId"`
	Description string `gorm:"type:text" json:"description"`
	Roadmap     string `gorm:"type:text" json:"roadmap"`
}

type Update struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	ProjectID uint      `gorm:"not null;index" json:"projectId"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Body      string    `gorm:"type:text" json:"body"`
}

// All lists every model in migration order.
func All() []any {
	return []any{&User{}, &Client{}, &Employee{}, &Project{}, &Summary{}, &Update{}}
}
