package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/pagination"
)

const userColumns = `u.id, u.first_name, u.last_name, u.email, u.phone, u.password_hash, u.role_id, r.name AS role_name,
	u.status, u.cities, u.localities, u.manager_id, u.last_login, u.created_at, u.updated_at`

const userFrom = `FROM users u JOIN roles r ON r.id = u.role_id`

// UserRepository provides database access for user management.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE u.email = $1 LIMIT 1", userColumns, userFrom)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, strings.ToLower(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE u.id = $1 LIMIT 1", userColumns, userFrom)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// UpdateLastLogin updates the last_login timestamp for a user.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE users SET last_login = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

var userSorts = map[string]string{
	"created_at": "u.created_at",
	"updated_at": "u.updated_at",
	"email":      "u.email",
	"first_name": "u.first_name",
	"last_name":  "u.last_name",
	"status":     "u.status",
}

func buildUserWhere(filter models.UserFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, containsPattern(search))
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(`(u.first_name ILIKE $%[1]d ESCAPE '\' OR u.last_name ILIKE $%[1]d ESCAPE '\' OR (u.first_name || ' ' || u.last_name) ILIKE $%[1]d ESCAPE '\' OR u.email ILIKE $%[1]d ESCAPE '\' OR COALESCE(u.phone, '') ILIKE $%[1]d ESCAPE '\')`, n))
	}
	if len(filter.RoleIDs) > 0 {
		args = append(args, pq.Array(filter.RoleIDs))
		conditions = append(conditions, fmt.Sprintf("u.role_id = ANY($%d::uuid[])", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		conditions = append(conditions, fmt.Sprintf("u.status = ANY($%d)", len(args)))
	}
	if len(filter.CityIDs) > 0 {
		args = append(args, pq.Array(filter.CityIDs))
		conditions = append(conditions, fmt.Sprintf("u.cities && $%d::text[]", len(args)))
	}
	if len(filter.LocalityIDs) > 0 {
		args = append(args, pq.Array(filter.LocalityIDs))
		conditions = append(conditions, fmt.Sprintf("u.localities && $%d::text[]", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		conditions = append(conditions, fmt.Sprintf("u.created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		conditions = append(conditions, fmt.Sprintf("u.created_at <= $%d", len(args)))
	}

	where := " WHERE 1=1"
	if len(conditions) > 0 {
		where += " AND " + strings.Join(conditions, " AND ")
	}
	return where, args
}

func userOrderBy(filter models.UserFilter) string {
	sortBy, ok := userSorts[filter.SortBy]
	if !ok {
		sortBy = "u.created_at"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, u.id ASC", sortBy, sortOrder)
}

// List returns users based on filters with total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	where, args := buildUserWhere(filter)
	page := pagination.Normalize(pagination.Request{Page: filter.Page, Limit: filter.Limit})

	listQuery := fmt.Sprintf("SELECT %s %s%s%s LIMIT %d OFFSET %d", userColumns, userFrom, where, userOrderBy(filter), page.Limit, page.Offset())

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", userFrom, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	return users, total, nil
}

// ListAll returns every user matching the filter, ignoring pagination, capped at max rows.
func (r *UserRepository) ListAll(ctx context.Context, filter models.UserFilter, max int) ([]models.User, error) {
	where, args := buildUserWhere(filter)
	query := fmt.Sprintf("SELECT %s %s%s%s", userColumns, userFrom, where, userOrderBy(filter))
	if max > 0 {
		query += fmt.Sprintf(" LIMIT %d", max)
	}
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("list users for export: %w", err)
	}
	return users, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	user.Email = strings.ToLower(user.Email)

	const query = `INSERT INTO users (id, first_name, last_name, email, phone, password_hash, role_id, status, cities, localities, manager_id, created_at, updated_at)
		VALUES (:id, :first_name, :last_name, :email, :phone, :password_hash, :role_id, :status, :cities, :localities, :manager_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", translate(err))
	}
	return nil
}

// Update updates mutable fields of a user. The password hash is only written when non-empty.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	user.Email = strings.ToLower(user.Email)
	const query = `UPDATE users SET first_name = :first_name, last_name = :last_name, email = :email, phone = :phone,
		password_hash = COALESCE(NULLIF(:password_hash, ''), password_hash), role_id = :role_id, status = :status,
		cities = :cities, localities = :localities, manager_id = :manager_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("update user: %w", translate(err))
	}
	return nil
}

// UpdateStatus sets the status of a single user.
func (r *UserRepository) UpdateStatus(ctx context.Context, id string, status models.UserStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET status = $2, updated_at = $3 WHERE id = $1`, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update user status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateRole binds a user to a role.
func (r *UserRepository) UpdateRole(ctx context.Context, id, roleID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET role_id = $2, updated_at = $3 WHERE id = $1`, id, roleID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update user role: %w", translate(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a user. Users it managed are detached by the manager_id foreign key.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", translate(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// BulkUpdateStatus sets status on every existing id and returns the ids that were updated.
func (r *UserRepository) BulkUpdateStatus(ctx context.Context, ids []string, status models.UserStatus) ([]string, error) {
	var updated []string
	const query = `UPDATE users SET status = $1, updated_at = $2 WHERE id = ANY($3::uuid[]) RETURNING id`
	if err := r.db.SelectContext(ctx, &updated, query, status, time.Now().UTC(), pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("bulk update user status: %w", err)
	}
	return updated, nil
}

// BulkDelete deletes every existing id and returns the ids that were removed.
func (r *UserRepository) BulkDelete(ctx context.Context, ids []string) ([]string, error) {
	var deleted []string
	const query = `DELETE FROM users WHERE id = ANY($1::uuid[]) RETURNING id`
	if err := r.db.SelectContext(ctx, &deleted, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("bulk delete users: %w", translate(err))
	}
	return deleted, nil
}

// CountByRole returns how many users hold the role.
func (r *UserRepository) CountByRole(ctx context.Context, roleID string) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users WHERE role_id = $1`, roleID); err != nil {
		return 0, fmt.Errorf("count users by role: %w", err)
	}
	return n, nil
}
