package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
)

var permissionRowColumns = []string{"id", "name", "description", "created_at", "updated_at", "role_count"}

func TestListPermissionsSearch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPermissionRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM permissions p WHERE 1=1 AND (p.name ILIKE $1 ESCAPE '\' OR p.description ILIKE $1 ESCAPE '\') ORDER BY p.name ASC, p.id ASC LIMIT 10 OFFSET 0`)).
		WithArgs("%Users%").
		WillReturnRows(sqlmock.NewRows(permissionRowColumns).
			AddRow("p1", "users.create", "Create users", now, now, 2).
			AddRow("p2", "users.read", "Read users", now, now, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM permissions p WHERE 1=1 AND")).
		WithArgs("%Users%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	perms, total, err := repo.List(context.Background(), models.PermissionFilter{Search: " Users "})
	require.NoError(t, err)
	require.Len(t, perms, 2)
	assert.Equal(t, 2, total)
	assert.Equal(t, 2, perms[0].RoleCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPermissionsSearchIsLiteral(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPermissionRepository(db)

	pattern := `%users\_create\%\\%`
	mock.ExpectQuery(`FROM permissions p WHERE 1=1 AND \(p.name ILIKE \$1 ESCAPE`).
		WithArgs(pattern).
		WillReturnRows(sqlmock.NewRows(permissionRowColumns))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM permissions p`).
		WithArgs(pattern).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, total, err := repo.List(context.Background(), models.PermissionFilter{Search: `users_create%\`})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePermissionDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPermissionRepository(db)

	mock.ExpectExec("INSERT INTO permissions").WillReturnError(pqUniqueErr())

	perm := &models.Permission{Name: "users.create"}
	err := repo.Create(context.Background(), perm)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NotEmpty(t, perm.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePermissionReferenced(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPermissionRepository(db)

	mock.ExpectExec(`DELETE FROM permissions WHERE id = \$1`).WithArgs("p1").WillReturnError(pqForeignKeyErr())

	err := repo.Delete(context.Background(), "p1")
	assert.ErrorIs(t, err, ErrReferenced)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePermissionMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPermissionRepository(db)

	mock.ExpectExec(`DELETE FROM permissions`).WithArgs("p1").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "p1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindPermissionsByIDsSkipsEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPermissionRepository(db)

	perms, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, perms)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasPermission(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPermissionRepository(db)

	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("u1", "users.read").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.HasPermission(context.Background(), "u1", "users.read")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
