package validate

import (
	"io"
	"strconv"
	"strings"
)

type Admin struct {
	ID    RowID
	Name  string
	Email string
}

type Employee struct {
	Email string
	Name  string
	Title *string
}

type Client struct {
	ID        RowID
	Name      string
	Employees []Employee
}

type Project struct {
	ID            RowID
	Name          string
	ClientID      *uint
	Team          []uint
	ImageFileName *string
}

type Update struct {
	ID        RowID
	ProjectID uint
	Title     string
	Body      string
}

// Summary carries the fields to change. At least one of them is set.
type Summary struct {
	ID          uint
	Description *string
	Roadmap     *string
}

type UploadToken struct {
	ProjectID uint
	FileName  string
}

type adminBody struct {
	ID    *RowID  `json:"id" validate:"required"`
	Name  *string `json:"name"`
	Email *string `json:"email" validate:"required,email"`
}

type adminsBody struct {
	Admins []adminBody `json:"admins" validate:"required,dive"`
}

// DecodeAdmins reads the complete desired list of admins, {"admins": [...]}.
func DecodeAdmins(r io.Reader) ([]Admin, error) {
	var body adminsBody
	if err := decode(r, &body); err != nil {
		return nil, err
	}
	if err := check(body); err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	out := make([]Admin, 0, len(body.Admins))
	for _, a := range body.Admins {
		email := normalizeEmail(*a.Email)
		if seen[email] {
			return nil, invalid("duplicate admin email %s", email)
		}
		seen[email] = true
		admin := Admin{ID: *a.ID, Email: email}
		if a.Name != nil {
			admin.Name = strings.TrimSpace(*a.Name)
		}
		out = append(out, admin)
	}
	return out, nil
}

type employeeBody struct {
	Email *string `json:"email" validate:"required,email"`
	Name  *string `json:"name" validate:"required"`
	Title *string `json:"title"`
}

type clientBody struct {
	ID        *RowID         `json:"id" validate:"required"`
	Name      *string        `json:"name" validate:"required,min=1"`
	Employees []employeeBody `json:"employees" validate:"required,dive"`
}

func DecodeClient(r io.Reader) (*Client, error) {
	var body clientBody
	if err := decode(r, &body); err != nil {
		return nil, err
	}
	if err := check(body); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(*body.Name)
	if name == "" {
		return nil, invalid("name must not be empty")
	}
	c := &Client{ID: *body.ID, Name: name, Employees: make([]Employee, 0, len(body.Employees))}
	seen := map[string]bool{}
	for _, e := range body.Employees {
		email := normalizeEmail(*e.Email)
		if seen[email] {
			return nil, invalid("duplicate employee email %s", email)
		}
		seen[email] = true
		c.Employees = append(c.Employees, Employee{
			Email: email,
			Name:  strings.TrimSpace(*e.Name),
			Title: e.Title,
		})
	}
	return c, nil
}

type idBody struct {
	ID *uint `json:"id" validate:"required,gt=0"`
}

// DecodeID reads {"id": <number>} as used by every DELETE.
func DecodeID(r io.Reader) (uint, error) {
	var body idBody
	if err := decode(r, &body); err != nil {
		return 0, err
	}
	if err := check(body); err != nil {
		return 0, err
	}
	return *body.ID, nil
}

type projectBody struct {
	ID            *RowID  `json:"id" validate:"required"`
	Name          *string `json:"name"`
	ClientID      *uint   `json:"clientId" validate:"omitempty,gt=0"`
	Team          []uint  `json:"team" validate:"omitempty,dive,gt=0"`
	ImageFileName *string `json:"imageFileName" validate:"omitempty,min=1"`
}

// DecodeProject accepts {"id":"new"} for creation, or a full edit body.
func DecodeProject(r io.Reader) (*Project, error) {
	var body projectBody
	if err := decode(r, &body); err != nil {
		return nil, err
	}
	if err := check(body); err != nil {
		return nil, err
	}
	if body.ID.New {
		return &Project{ID: *body.ID}, nil
	}
	if body.Name == nil || strings.TrimSpace(*body.Name) == "" {
		return nil, invalid("name is required")
	}
	return &Project{
		ID:            *body.ID,
		Name:          strings.TrimSpace(*body.Name),
		ClientID:      body.ClientID,
		Team:          body.Team,
		ImageFileName: body.ImageFileName,
	}, nil
}

type updateBody struct {
	ID        *RowID  `json:"id" validate:"required"`
	ProjectID *uint   `json:"projectId" validate:"required,gt=0"`
	Title     *string `json:"title" validate:"required,min=1"`
	Body      *string `json:"body" validate:"required"`
}

func DecodeUpdate(r io.Reader) (*Update, error) {
	var body updateBody
	if err := decode(r, &body); err != nil {
		return nil, err
	}
	if err := check(body); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(*body.Title)
	if title == "" {
		return nil, invalid("title must not be empty")
	}
	return &Update{ID: *body.ID, ProjectID: *body.ProjectID, Title: title, Body: *body.Body}, nil
}

type summaryBody struct {
	ID          *uint   `json:"id" validate:"required,gt=0"`
	Description *string `json:"description"`
	Roadmap     *string `json:"roadmap"`
}

func DecodeSummary(r io.Reader) (*Summary, error) {
	var body summaryBody
	if err := decode(r, &body); err != nil {
		return nil, err
	}
	if err := check(body); err != nil {
		return nil, err
	}
	if body.Description == nil && body.Roadmap == nil {
		return nil, invalid("description or roadmap is required")
	}
	return &Summary{ID: *body.ID, Description: body.Description, Roadmap: body.Roadmap}, nil
}

type uploadTokenBody struct {
	ProjectID *uint   `json:"projectId" validate:"required,gt=0"`
	FileName  *string `json:"fileName" validate:"required,min=1"`
}

func DecodeUploadToken(r io.Reader) (*UploadToken, error) {
	var body uploadTokenBody
	if err := decode(r, &body); err != nil {
		return nil, err
	}
	if err := check(body); err != nil {
		return nil, err
	}
	return &UploadToken{ProjectID: *body.ProjectID, FileName: *body.FileName}, nil
}

type loginBody struct {
	Email *string `json:"email" validate:"required,email"`
}

// DecodeLogin reads the {"email": ...} body of a sign-in link request.
func DecodeLogin(r io.Reader) (string, error) {
	var body loginBody
	if err := decode(r, &body); err != nil {
		return "", err
	}
	if err := check(body); err != nil {
		return "", err
	}
	return normalizeEmail(*body.Email), nil
}

// ParseID reads a positive numeric id from a query parameter.
func ParseID(name, raw string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 0)
	if err != nil || n == 0 {
		return 0, invalid("%s must be a positive number", name)
	}
	return uint(n), nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
