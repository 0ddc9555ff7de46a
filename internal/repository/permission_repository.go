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

const permissionColumns = `p.id, p.name, p.description, p.created_at, p.updated_at,
	(SELECT COUNT(*) FROM role_permissions rp WHERE rp.permission_id = p.id) AS role_count`

// PermissionRepository provides database access for the permission registry.
type PermissionRepository struct {
	db *sqlx.DB
}

// NewPermissionRepository creates a new instance of PermissionRepository.
func NewPermissionRepository(db *sqlx.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// List returns permissions matching the filter with the total match count.
func (r *PermissionRepository) List(ctx context.Context, filter models.PermissionFilter) ([]models.Permission, int, error) {
	baseQuery := `FROM permissions p WHERE 1=1`
	var args []interface{}

	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, containsPattern(search))
		baseQuery += fmt.Sprintf(` AND (p.name ILIKE $%d ESCAPE '\' OR p.description ILIKE $%d ESCAPE '\')`, len(args), len(args))
	}

	page := pagination.Normalize(pagination.Request{Page: filter.Page, Limit: filter.Limit})
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY p.name ASC, p.id ASC LIMIT %d OFFSET %d", permissionColumns, baseQuery, page.Limit, page.Offset())

	var perms []models.Permission
	if err := r.db.SelectContext(ctx, &perms, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list permissions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count permissions: %w", err)
	}

	return perms, total, nil
}

// FindByID returns a permission by identifier.
func (r *PermissionRepository) FindByID(ctx context.Context, id string) (*models.Permission, error) {
	query := fmt.Sprintf("SELECT %s FROM permissions p WHERE p.id = $1 LIMIT 1", permissionColumns)
	var perm models.Permission
	if err := r.db.GetContext(ctx, &perm, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find permission by id: %w", err)
	}
	return &perm, nil
}

// FindByName returns a permission by its unique name.
func (r *PermissionRepository) FindByName(ctx context.Context, name string) (*models.Permission, error) {
	query := fmt.Sprintf("SELECT %s FROM permissions p WHERE p.name = $1 LIMIT 1", permissionColumns)
	var perm models.Permission
	if err := r.db.GetContext(ctx, &perm, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find permission by name: %w", err)
	}
	return &perm, nil
}

// FindByIDs returns the permissions that exist among ids.
func (r *PermissionRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Permission, error) {
	if len(ids) == 0 {
		return []models.Permission{}, nil
	}
	query := fmt.Sprintf("SELECT %s FROM permissions p WHERE p.id = ANY($1::uuid[]) ORDER BY p.name ASC", permissionColumns)
	var perms []models.Permission
	if err := r.db.SelectContext(ctx, &perms, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find permissions by ids: %w", err)
	}
	return perms, nil
}

// Create inserts a new permission.
func (r *PermissionRepository) Create(ctx context.Context, perm *models.Permission) error {
	if perm.ID == "" {
		perm.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	perm.CreatedAt = now
	perm.UpdatedAt = now

	const query = `INSERT INTO permissions (id, name, description, created_at, updated_at) VALUES (:id, :name, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, perm); err != nil {
		return fmt.Errorf("create permission: %w", translate(err))
	}
	return nil
}

// Update persists name and description.
func (r *PermissionRepository) Update(ctx context.Context, perm *models.Permission) error {
	perm.UpdatedAt = time.Now().UTC()
	const query = `UPDATE permissions SET name = :name, description = :description, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, perm); err != nil {
		return fmt.Errorf("update permission: %w", translate(err))
	}
	return nil
}

// Delete removes a permission. Returns sql.ErrNoRows when nothing was deleted.
func (r *PermissionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete permission: %w", translate(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// HasPermission reports whether the user's role grants the named permission.
func (r *PermissionRepository) HasPermission(ctx context.Context, userID, name string) (bool, error) {
	const query = `SELECT EXISTS (
		SELECT 1 FROM users u
		JOIN role_permissions rp ON rp.role_id = u.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE u.id = $1 AND p.name = $2)`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, userID, name); err != nil {
		return false, fmt.Errorf("check permission: %w", err)
	}
	return ok, nil
}
