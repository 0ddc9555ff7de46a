package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/contract"
	appErrors "github.com/JoshuaMusyokar/real-estate-sub004/pkg/errors"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/pagination"
)

func newPermissionServiceForTest(db *memoryDB) *PermissionService {
	return NewPermissionService(permissionStore{db}, db, nil, contract.NewValidator(), zap.NewNop())
}

func TestPermissionServiceCreate(t *testing.T) {
	db := newMemoryDB()
	svc := newPermissionServiceForTest(db)

	perm, err := svc.Create(context.Background(), contract.CreatePermissionRequest{Name: "  users.create ", Description: "Create users"}, models.RequestMeta{ActorID: "actor"})
	require.NoError(t, err)
	assert.Equal(t, "users.create", perm.Name)
	assert.NotEmpty(t, perm.ID)
	assert.Equal(t, []string{models.AuditActionPermissionCreate}, db.auditActions())
}

func TestPermissionServiceCreateDuplicateKeepsOne(t *testing.T) {
	db := newMemoryDB()
	svc := newPermissionServiceForTest(db)
	ctx := context.Background()

	_, err := svc.Create(ctx, contract.CreatePermissionRequest{Name: "users.create"}, models.RequestMeta{})
	require.NoError(t, err)
	_, err = svc.Create(ctx, contract.CreatePermissionRequest{Name: "users.create"}, models.RequestMeta{})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDuplicateName.Code))

	page, _, err := svc.List(ctx, models.PermissionFilter{Search: "users.create"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestPermissionServiceCreateValidation(t *testing.T) {
	svc := newPermissionServiceForTest(newMemoryDB())
	for _, name := range []string{"", "   ", "Users.Create", "users", "users..create"} {
		_, err := svc.Create(context.Background(), contract.CreatePermissionRequest{Name: name}, models.RequestMeta{})
		require.Error(t, err, name)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code, name)
		assert.Contains(t, appErr.Fields, "name", name)
	}
}

func TestPermissionServiceRenameReferencedIsInUse(t *testing.T) {
	db := newMemoryDB()
	perm := db.seedPermission("posts.write")
	db.seedRole("Editor", perm)
	svc := newPermissionServiceForTest(db)

	newName := "posts.publish"
	_, err := svc.Update(context.Background(), perm.ID, contract.UpdatePermissionRequest{Name: &newName}, models.RequestMeta{})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInUse.Code))

	desc := "Write posts"
	updated, err := svc.Update(context.Background(), perm.ID, contract.UpdatePermissionRequest{Description: &desc}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "posts.write", updated.Name)
	assert.Equal(t, "Write posts", updated.Description)
}

func TestPermissionServiceRenameToTakenName(t *testing.T) {
	db := newMemoryDB()
	db.seedPermission("users.read")
	perm := db.seedPermission("users.view")
	svc := newPermissionServiceForTest(db)

	name := "users.read"
	_, err := svc.Update(context.Background(), perm.ID, contract.UpdatePermissionRequest{Name: &name}, models.RequestMeta{})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDuplicateName.Code))
}

func TestPermissionServiceDelete(t *testing.T) {
	db := newMemoryDB()
	held := db.seedPermission("roles.read")
	free := db.seedPermission("roles.export")
	db.seedRole("Viewer", held)
	svc := newPermissionServiceForTest(db)
	ctx := context.Background()

	err := svc.Delete(ctx, held.ID, models.RequestMeta{})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInUse.Code))

	require.NoError(t, svc.Delete(ctx, free.ID, models.RequestMeta{}))
	_, err = svc.Get(ctx, free.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))

	err = svc.Delete(ctx, "not-a-uuid", models.RequestMeta{})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestPermissionServiceListPaging(t *testing.T) {
	db := newMemoryDB()
	for _, name := range []string{"a.one", "a.two", "a.three", "b.one", "b.two", "c.one", "c.two"} {
		db.seedPermission(name)
	}
	svc := newPermissionServiceForTest(db)

	for _, tc := range []struct{ page, limit int }{{1, 3}, {2, 3}, {3, 3}, {4, 3}, {1, 0}, {0, 500}} {
		page, _, err := svc.List(context.Background(), models.PermissionFilter{Page: tc.page, Limit: tc.limit})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(page.Items), page.Limit)
		assert.Equal(t, 7, page.Total)
		assert.Equal(t, pagination.TotalPages(7, page.Limit), page.TotalPages)
		assert.GreaterOrEqual(t, page.Page, 1)
	}

	beyond, _, err := svc.List(context.Background(), models.PermissionFilter{Page: 9, Limit: 3})
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
	assert.NotNil(t, beyond.Items)
}
