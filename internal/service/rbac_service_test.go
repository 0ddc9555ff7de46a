package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
	appErrors "github.com/JoshuaMusyokar/real-estate-sub004/pkg/errors"
)

func TestRBACServiceEffectivePermissions(t *testing.T) {
	db := newMemoryDB()
	role := db.seedRole("Agent", db.seedPermission("properties.read"), db.seedPermission("users.read"))
	user := db.seedUser("agent@example.com", role.ID, models.UserStatusActive)
	svc := NewRBACService(&userStore{db: db}, roleStore{db}, nil, "SUPER_ADMIN", zap.NewNop())

	perms, err := svc.EffectivePermissions(context.Background(), user.ID)
	require.NoError(t, err)
	assert.False(t, perms.SuperAdmin)
	assert.Equal(t, "Agent", perms.RoleName)
	assert.ElementsMatch(t, []string{"properties.read", "users.read"}, perms.Permissions)

	check, err := svc.Check(context.Background(), user.ID, "users.read")
	require.NoError(t, err)
	assert.True(t, check.Allowed)

	check, err = svc.Check(context.Background(), user.ID, "users.delete")
	require.NoError(t, err)
	assert.False(t, check.Allowed)
}

func TestRBACServiceSuperAdminBypass(t *testing.T) {
	db := newMemoryDB()
	role := db.seedRole("super_admin")
	user := db.seedUser("root@example.com", role.ID, models.UserStatusActive)
	svc := NewRBACService(&userStore{db: db}, roleStore{db}, nil, "SUPER_ADMIN", zap.NewNop())

	check, err := svc.Check(context.Background(), user.ID, "anything.at_all")
	require.NoError(t, err)
	assert.True(t, check.Allowed)
	assert.True(t, svc.IsSuperAdmin("Super_Admin"))
	assert.False(t, NewRBACService(nil, nil, nil, "", nil).IsSuperAdmin(""))
}

func TestRBACServiceErrors(t *testing.T) {
	db := newMemoryDB()
	svc := NewRBACService(&userStore{db: db}, roleStore{db}, nil, "SUPER_ADMIN", zap.NewNop())

	_, err := svc.Check(context.Background(), "4c1a3c55-5e34-4c1f-bb8d-0c3d5f1b8a21", "users.read")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))

	_, err = svc.Check(context.Background(), "4c1a3c55-5e34-4c1f-bb8d-0c3d5f1b8a21", " ")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}
