// Package storetest provides an in-memory store.Store for tests.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/petermazzocco/project-journal/internal/store"
	"github.com/petermazzocco/project-journal/models"
)

type employeeKey struct {
	clientID uint
	userID   uint
}

// Memory keeps every table in maps guarded by a single mutex. Returned
// records are copies, with the same associations the postgres store
// preloads.
type Memory struct {
	mu        sync.Mutex
	nextID    uint
	last      time.Time
	users     map[uint]models.User
	clients   map[uint]models.Client
	employees map[employeeKey]models.Employee
	projects  map[uint]models.Project
	teams     map[uint][]uint
	summaries map[uint]models.Summary
	updates   map[uint]models.Update
}

var _ store.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		users:     map[uint]models.User{},
		clients:   map[uint]models.Client{},
		employees: map[employeeKey]models.Employee{},
		projects:  map[uint]models.Project{},
		teams:     map[uint][]uint{},
		summaries: map[uint]models.Summary{},
		updates:   map[uint]models.Update{},
	}
}

func (m *Memory) id() uint {
	m.nextID++
	return m.nextID
}

// now is strictly increasing so ordering by timestamp is deterministic.
func (m *Memory) now() time.Time {
	t := time.Now()
	if !t.After(m.last) {
		t = m.last.Add(time.Microsecond)
	}
	m.last = t
	return t
}

func copyRole(r *models.Role) *models.Role {
	if r == nil {
		return nil
	}
	v := *r
	return &v
}

func (m *Memory) user(id uint) models.User {
	u := m.users[id]
	u.Role = copyRole(u.Role)
	u.Employees = nil
	return u
}

// AddUser inserts a user directly, bypassing the upsert rules.
func (m *Memory) AddUser(u models.User) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = m.id()
	u.CreatedAt = m.now()
	u.UpdatedAt = u.CreatedAt
	u.Role = copyRole(u.Role)
	m.users[u.ID] = u
	return m.user(u.ID)
}

// EmployeeCount reports how many employee rows exist, across all clients.
func (m *Memory) EmployeeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.employees)
}

// UpdateCount reports how many update rows exist, across all projects.
func (m *Memory) UpdateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.updates)
}

func (m *Memory) UserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.Email == email {
			out := m.user(id)
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) UserByID(_ context.Context, id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return nil, store.ErrNotFound
	}
	out := m.user(id)
	return &out, nil
}

func (m *Memory) sortedUsers(keep func(models.User) bool) []models.User {
	users := []models.User{}
	for id, u := range m.users {
		if keep(u) {
			users = append(users, m.user(id))
		}
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name == users[j].Name {
			return users[i].ID < users[j].ID
		}
		return users[i].Name < users[j].Name
	})
	return users
}

func (m *Memory) UsersWithRole(_ context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedUsers(func(u models.User) bool { return u.Role != nil }), nil
}

func (m *Memory) UsersByRole(_ context.Context, role models.Role) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedUsers(func(u models.User) bool { return u.Role != nil && *u.Role == role }), nil
}

func (m *Memory) UpsertUser(_ context.Context, in models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.Email != in.Email {
			continue
		}
		if in.Name != "" {
			u.Name = in.Name
		}
		if in.Image != "" {
			u.Image = in.Image
		}
		u.UpdatedAt = m.now()
		m.users[id] = u
		out := m.user(id)
		return &out, nil
	}
	u := models.User{
		ID:    m.id(),
		Name:  in.Name,
		Email: in.Email,
		Image: in.Image,
		Role:  copyRole(in.Role),
	}
	u.CreatedAt = m.now()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = u
	out := m.user(u.ID)
	return &out, nil
}

func (m *Memory) SetUserRole(_ context.Context, id uint, role *models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Role = copyRole(role)
	u.UpdatedAt = m.now()
	m.users[id] = u
	return nil
}

func (m *Memory) client(id uint) models.Client {
	c := m.clients[id]
	c.Employees = []models.Employee{}
	for k, e := range m.employees {
		if k.clientID != id {
			continue
		}
		u := m.user(k.userID)
		e.User = &u
		if e.Title != nil {
			t := *e.Title
			e.Title = &t
		}
		c.Employees = append(c.Employees, e)
	}
	sort.Slice(c.Employees, func(i, j int) bool { return c.Employees[i].UserID < c.Employees[j].UserID })
	return c
}

func (m *Memory) sortedClients(keep func(uint) bool) []models.Client {
	clients := []models.Client{}
	for id := range m.clients {
		if keep(id) {
			clients = append(clients, m.client(id))
		}
	}
	sort.Slice(clients, func(i, j int) bool {
		if clients[i].Name == clients[j].Name {
			return clients[i].ID < clients[j].ID
		}
		return clients[i].Name < clients[j].Name
	})
	return clients
}

func (m *Memory) Clients(_ context.Context) ([]models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedClients(func(uint) bool { return true }), nil
}

func (m *Memory) ClientsByIDs(_ context.Context, ids []uint) ([]models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[uint]bool{}
	for _, id := range ids {
		want[id] = true
	}
	return m.sortedClients(func(id uint) bool { return want[id] }), nil
}

func (m *Memory) Client(_ context.Context, id uint) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[id]; !ok {
		return nil, store.ErrNotFound
	}
	c := m.client(id)
	return &c, nil
}

func (m *Memory) CreateClient(_ context.Context, name string) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := models.Client{ID: m.id(), Name: name}
	c.CreatedAt = m.now()
	c.UpdatedAt = c.CreatedAt
	m.clients[c.ID] = c
	out := m.client(c.ID)
	return &out, nil
}

func (m *Memory) RenameClient(_ context.Context, id uint, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		return store.ErrNotFound
	}
	c.Name = name
	c.UpdatedAt = m.now()
	m.clients[id] = c
	return nil
}

func (m *Memory) DeleteClient(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[id]; !ok {
		return store.ErrNotFound
	}
	for k := range m.employees {
		if k.clientID == id {
			delete(m.employees, k)
		}
	}
	for pid, p := range m.projects {
		if p.ClientID != nil && *p.ClientID == id {
			p.ClientID = nil
			m.projects[pid] = p
		}
	}
	delete(m.clients, id)
	return nil
}

func (m *Memory) UpsertEmployee(_ context.Context, e models.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[e.ClientID]; !ok {
		return store.ErrNotFound
	}
	if _, ok := m.users[e.UserID]; !ok {
		return store.ErrNotFound
	}
	row := models.Employee{ClientID: e.ClientID, UserID: e.UserID}
	if e.Title != nil {
		t := *e.Title
		row.Title = &t
	}
	m.employees[employeeKey{e.ClientID, e.UserID}] = row
	return nil
}

func (m *Memory) DeleteEmployee(_ context.Context, clientID, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.employees, employeeKey{clientID, userID})
	return nil
}

func (m *Memory) EmployeeClientIDs(_ context.Context, userID uint) ([]uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := []uint{}
	for k := range m.employees {
		if k.userID == userID {
			ids = append(ids, k.clientID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *Memory) project(id uint, withSummary bool) models.Project {
	p := m.projects[id]
	p.Team = []models.User{}
	for _, uid := range m.teams[id] {
		if _, ok := m.users[uid]; ok {
			p.Team = append(p.Team, m.user(uid))
		}
	}
	if p.ClientID != nil {
		cid := *p.ClientID
		p.ClientID = &cid
		if c, ok := m.clients[cid]; ok {
			c.Employees = nil
			p.Client = &c
		}
	}
	p.Summary = nil
	if withSummary {
		for _, s := range m.summaries {
			if s.ProjectID == id {
				s := s
				p.Summary = &s
			}
		}
	}
	return p
}

func (m *Memory) sortedProjects(keep func(models.Project) bool) []models.Project {
	projects := []models.Project{}
	for id, p := range m.projects {
		if keep(p) {
			projects = append(projects, m.project(id, false))
		}
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].UpdatedAt.After(projects[j].UpdatedAt) })
	return projects
}

func (m *Memory) Projects(_ context.Context) ([]models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedProjects(func(models.Project) bool { return true }), nil
}

func (m *Memory) ProjectsByClients(_ context.Context, clientIDs []uint) ([]models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[uint]bool{}
	for _, id := range clientIDs {
		want[id] = true
	}
	return m.sortedProjects(func(p models.Project) bool {
		return p.ClientID != nil && want[*p.ClientID]
	}), nil
}

func (m *Memory) Project(_ context.Context, id uint) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return nil, store.ErrNotFound
	}
	p := m.project(id, true)
	return &p, nil
}

func (m *Memory) CreateProject(_ context.Context, p *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	p.CreatedAt = m.now()
	p.UpdatedAt = p.CreatedAt
	row := *p
	row.Client, row.Team, row.Summary, row.Updates = nil, nil, nil, nil
	m.projects[p.ID] = row
	summary := models.Summary{ID: m.id(), ProjectID: p.ID}
	m.summaries[summary.ID] = summary
	p.Summary = &summary
	return nil
}

func (m *Memory) UpdateProject(_ context.Context, id uint, f store.ProjectFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Name = f.Name
	p.ClientID = nil
	if f.ClientID != nil {
		cid := *f.ClientID
		p.ClientID = &cid
	}
	if f.ImageBlob != nil {
		p.ImageBlob = *f.ImageBlob
		p.ImageURL = ""
	}
	p.UpdatedAt = m.now()
	m.projects[id] = p
	return nil
}

func (m *Memory) SetProjectTeam(_ context.Context, id uint, userIDs []uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return store.ErrNotFound
	}
	team := make([]uint, 0, len(userIDs))
	seen := map[uint]bool{}
	for _, uid := range userIDs {
		if _, ok := m.users[uid]; !ok {
			return store.ErrNotFound
		}
		if !seen[uid] {
			seen[uid] = true
			team = append(team, uid)
		}
	}
	m.teams[id] = team
	return nil
}

func (m *Memory) SetProjectImageURL(_ context.Context, id uint, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return store.ErrNotFound
	}
	p.ImageURL = url
	m.projects[id] = p
	return nil
}

func (m *Memory) DeleteProject(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return store.ErrNotFound
	}
	for uid, u := range m.updates {
		if u.ProjectID == id {
			delete(m.updates, uid)
		}
	}
	for sid, s := range m.summaries {
		if s.ProjectID == id {
			delete(m.summaries, sid)
		}
	}
	delete(m.teams, id)
	delete(m.projects, id)
	return nil
}

func (m *Memory) Summary(_ context.Context, id uint) (*models.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.summaries[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

func (m *Memory) SummaryByProject(_ context.Context, projectID uint) (*models.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.summaries {
		if s.ProjectID == projectID {
			return &s, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) UpdateSummary(_ context.Context, id uint, description, roadmap *string) (*models.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.summaries[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if description != nil {
		s.Description = *description
	}
	if roadmap != nil {
		s.Roadmap = *roadmap
	}
	m.summaries[id] = s
	return &s, nil
}

func (m *Memory) Updates(_ context.Context, projectID uint) ([]models.Update, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	updates := []models.Update{}
	for _, u := range m.updates {
		if u.ProjectID == projectID {
			updates = append(updates, u)
		}
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].CreatedAt.After(updates[j].CreatedAt) })
	return updates, nil
}

func (m *Memory) Update(_ context.Context, id uint) (*models.Update, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.updates[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (m *Memory) CreateUpdate(_ context.Context, u *models.Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[u.ProjectID]; !ok {
		return store.ErrNotFound
	}
	u.ID = m.id()
	u.CreatedAt = m.now()
	u.UpdatedAt = u.CreatedAt
	m.updates[u.ID] = *u
	return nil
}

func (m *Memory) SaveUpdate(_ context.Context, u *models.Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.updates[u.ID]
	if !ok {
		return store.ErrNotFound
	}
	row.Title = u.Title
	row.Body = u.Body
	row.ProjectID = u.ProjectID
	row.UpdatedAt = m.now()
	m.updates[u.ID] = row
	*u = row
	return nil
}

func (m *Memory) DeleteUpdate(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.updates[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.updates, id)
	return nil
}
