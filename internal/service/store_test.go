package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/pagination"
)

// memoryDB backs the map-based repository fakes used across service tests.
type memoryDB struct {
	mu          sync.Mutex
	permissions map[string]*models.Permission
	roles       map[string]*models.Role
	rolePerms   map[string][]string
	users       map[string]*models.User
	cities      map[string]models.City
	localities  map[string]models.Locality
	auditLogs   []*models.AuditLog
}

func newMemoryDB() *memoryDB {
	return &memoryDB{
		permissions: make(map[string]*models.Permission),
		roles:       make(map[string]*models.Role),
		rolePerms:   make(map[string][]string),
		users:       make(map[string]*models.User),
		cities:      make(map[string]models.City),
		localities:  make(map[string]models.Locality),
	}
}

func (db *memoryDB) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.auditLogs = append(db.auditLogs, log)
	return nil
}

func (db *memoryDB) auditActions() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]string, 0, len(db.auditLogs))
	for _, l := range db.auditLogs {
		out = append(out, l.Action)
	}
	return out
}

func (db *memoryDB) seedCity(id, name string, localities ...string) {
	db.cities[id] = models.City{ID: id, Name: name}
	for _, l := range localities {
		db.localities[l] = models.Locality{ID: l, CityID: id, Name: l}
	}
}

func (db *memoryDB) seedPermission(name string) *models.Permission {
	p := &models.Permission{ID: uuid.NewString(), Name: name, CreatedAt: time.Now().UTC()}
	db.permissions[p.ID] = p
	return p
}

func (db *memoryDB) seedRole(name string, perms ...*models.Permission) *models.Role {
	r := &models.Role{ID: uuid.NewString(), Name: name}
	db.roles[r.ID] = r
	ids := make([]string, 0, len(perms))
	for _, p := range perms {
		ids = append(ids, p.ID)
	}
	db.rolePerms[r.ID] = ids
	return r
}

func (db *memoryDB) seedUser(email, roleID string, status models.UserStatus) *models.User {
	u := &models.User{
		ID:        uuid.NewString(),
		FirstName: "Test",
		LastName:  strings.Split(email, "@")[0],
		Email:     email,
		RoleID:    roleID,
		Status:    status,
		Cities:    []string{"nyc"},
		CreatedAt: time.Now().UTC(),
	}
	db.users[u.ID] = u
	return u
}

func paginate[T any](items []T, page, limit int) []T {
	req := pagination.Normalize(pagination.Request{Page: page, Limit: limit})
	start := req.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + req.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

type permissionStore struct{ db *memoryDB }

func (s permissionStore) snapshot(p *models.Permission) *models.Permission {
	out := *p
	out.RoleCount = 0
	for _, ids := range s.db.rolePerms {
		for _, id := range ids {
			if id == p.ID {
				out.RoleCount++
			}
		}
	}
	return &out
}

func (s permissionStore) List(ctx context.Context, filter models.PermissionFilter) ([]models.Permission, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	term := strings.ToLower(filter.Search)
	var all []models.Permission
	for _, p := range s.db.permissions {
		if term != "" && !strings.Contains(strings.ToLower(p.Name), term) && !strings.Contains(strings.ToLower(p.Description), term) {
			continue
		}
		all = append(all, *s.snapshot(p))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return paginate(all, filter.Page, filter.Limit), len(all), nil
}

func (s permissionStore) FindByID(ctx context.Context, id string) (*models.Permission, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if p, ok := s.db.permissions[id]; ok {
		return s.snapshot(p), nil
	}
	return nil, sql.ErrNoRows
}

func (s permissionStore) FindByName(ctx context.Context, name string) (*models.Permission, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, p := range s.db.permissions {
		if strings.EqualFold(p.Name, name) {
			return s.snapshot(p), nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s permissionStore) FindByIDs(ctx context.Context, ids []string) ([]models.Permission, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []models.Permission{}
	for _, id := range ids {
		if p, ok := s.db.permissions[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s permissionStore) Create(ctx context.Context, perm *models.Permission) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	perm.ID = uuid.NewString()
	perm.CreatedAt = time.Now().UTC()
	perm.UpdatedAt = perm.CreatedAt
	cp := *perm
	s.db.permissions[perm.ID] = &cp
	return nil
}

func (s permissionStore) Update(ctx context.Context, perm *models.Permission) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.permissions[perm.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *perm
	s.db.permissions[perm.ID] = &cp
	return nil
}

func (s permissionStore) Delete(ctx context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.permissions[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.db.permissions, id)
	return nil
}

type roleStore struct{ db *memoryDB }

func (s roleStore) snapshot(r *models.Role) *models.Role {
	out := *r
	out.Permissions = []models.Permission{}
	for _, id := range s.db.rolePerms[r.ID] {
		if p, ok := s.db.permissions[id]; ok {
			out.Permissions = append(out.Permissions, *p)
		}
	}
	sort.Slice(out.Permissions, func(i, j int) bool { return out.Permissions[i].Name < out.Permissions[j].Name })
	out.UserCount = 0
	for _, u := range s.db.users {
		if u.RoleID == r.ID {
			out.UserCount++
		}
	}
	return &out
}

func (s roleStore) List(ctx context.Context, filter models.RoleFilter) ([]models.Role, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var all []models.Role
	for _, r := range s.db.roles {
		if filter.Search != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(filter.Search)) {
			continue
		}
		all = append(all, *s.snapshot(r))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return paginate(all, filter.Page, filter.Limit), len(all), nil
}

func (s roleStore) FindByID(ctx context.Context, id string) (*models.Role, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if r, ok := s.db.roles[id]; ok {
		return s.snapshot(r), nil
	}
	return nil, sql.ErrNoRows
}

func (s roleStore) FindByName(ctx context.Context, name string) (*models.Role, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, r := range s.db.roles {
		if strings.EqualFold(r.Name, name) {
			return s.snapshot(r), nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s roleStore) Create(ctx context.Context, role *models.Role, permissionIDs []string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	role.ID = uuid.NewString()
	cp := *role
	cp.Permissions = nil
	s.db.roles[role.ID] = &cp
	s.db.rolePerms[role.ID] = append([]string(nil), permissionIDs...)
	return nil
}

func (s roleStore) Update(ctx context.Context, role *models.Role, permissionIDs []string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.roles[role.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *role
	cp.Permissions = nil
	s.db.roles[role.ID] = &cp
	if permissionIDs != nil {
		s.db.rolePerms[role.ID] = append([]string(nil), permissionIDs...)
	}
	return nil
}

func (s roleStore) Delete(ctx context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.roles[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.db.roles, id)
	delete(s.db.rolePerms, id)
	return nil
}

func (s roleStore) Stats(ctx context.Context) (*models.RoleStats, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	stats := &models.RoleStats{TotalRoles: len(s.db.roles), TotalPermissions: len(s.db.permissions)}
	for _, r := range s.db.roles {
		snap := s.snapshot(r)
		stats.UsersByRole = append(stats.UsersByRole, models.RoleUserCount{RoleID: r.ID, Role: r.Name, UserCount: snap.UserCount})
	}
	return stats, nil
}

type userStore struct {
	db      *memoryDB
	bulkErr error
	failIDs map[string]error
}

func (s *userStore) withRole(u *models.User) *models.User {
	out := *u
	if r, ok := s.db.roles[u.RoleID]; ok {
		out.RoleName = r.Name
	}
	return &out
}

func (s *userStore) matching(filter models.UserFilter) []models.User {
	roleSet := make(map[string]bool)
	for _, id := range filter.RoleIDs {
		roleSet[id] = true
	}
	statusSet := make(map[models.UserStatus]bool)
	for _, st := range filter.Statuses {
		statusSet[st] = true
	}
	var out []models.User
	for _, u := range s.db.users {
		if len(roleSet) > 0 && !roleSet[u.RoleID] {
			continue
		}
		if len(statusSet) > 0 && !statusSet[u.Status] {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(u.Email), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, *s.withRole(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

func (s *userStore) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	all := s.matching(filter)
	return paginate(all, filter.Page, filter.Limit), len(all), nil
}

func (s *userStore) ListAll(ctx context.Context, filter models.UserFilter, max int) ([]models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	all := s.matching(filter)
	if len(all) > max {
		all = all[:max]
	}
	return all, nil
}

func (s *userStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if u, ok := s.db.users[id]; ok {
		return s.withRole(u), nil
	}
	return nil, sql.ErrNoRows
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if strings.EqualFold(u.Email, email) {
			return s.withRole(u), nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *userStore) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if u, ok := s.db.users[id]; ok {
		u.LastLogin = &ts
		return nil
	}
	return sql.ErrNoRows
}

func (s *userStore) Create(ctx context.Context, user *models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	s.db.users[user.ID] = &cp
	return nil
}

func (s *userStore) Update(ctx context.Context, user *models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	existing, ok := s.db.users[user.ID]
	if !ok {
		return sql.ErrNoRows
	}
	cp := *user
	if cp.PasswordHash == "" {
		cp.PasswordHash = existing.PasswordHash
	}
	s.db.users[user.ID] = &cp
	return nil
}

func (s *userStore) UpdateStatus(ctx context.Context, id string, status models.UserStatus) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.failIDs[id]; err != nil {
		return err
	}
	u, ok := s.db.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Status = status
	return nil
}

func (s *userStore) UpdateRole(ctx context.Context, id, roleID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.RoleID = roleID
	return nil
}

func (s *userStore) deleteLocked(id string) bool {
	if _, ok := s.db.users[id]; !ok {
		return false
	}
	delete(s.db.users, id)
	for _, u := range s.db.users {
		if u.ManagerID != nil && *u.ManagerID == id {
			u.ManagerID = nil
		}
	}
	return true
}

func (s *userStore) Delete(ctx context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.failIDs[id]; err != nil {
		return err
	}
	if !s.deleteLocked(id) {
		return sql.ErrNoRows
	}
	return nil
}

func (s *userStore) BulkUpdateStatus(ctx context.Context, ids []string, status models.UserStatus) ([]string, error) {
	if s.bulkErr != nil {
		return nil, s.bulkErr
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var done []string
	for _, id := range ids {
		if u, ok := s.db.users[id]; ok {
			u.Status = status
			done = append(done, id)
		}
	}
	return done, nil
}

func (s *userStore) BulkDelete(ctx context.Context, ids []string) ([]string, error) {
	if s.bulkErr != nil {
		return nil, s.bulkErr
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var done []string
	for _, id := range ids {
		if s.deleteLocked(id) {
			done = append(done, id)
		}
	}
	return done, nil
}

type locationStore struct{ db *memoryDB }

func (s locationStore) ListCities(ctx context.Context) ([]models.City, error) {
	var out []models.City
	for _, c := range s.db.cities {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s locationStore) FindCities(ctx context.Context, ids []string) ([]models.City, error) {
	out := []models.City{}
	for _, id := range ids {
		if c, ok := s.db.cities[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s locationStore) ListLocalities(ctx context.Context, cityIDs []string) ([]models.Locality, error) {
	want := make(map[string]bool)
	for _, id := range cityIDs {
		want[id] = true
	}
	var out []models.Locality
	for _, l := range s.db.localities {
		if len(want) == 0 || want[l.CityID] {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s locationStore) FindLocalities(ctx context.Context, ids []string) ([]models.Locality, error) {
	out := []models.Locality{}
	for _, id := range ids {
		if l, ok := s.db.localities[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}
