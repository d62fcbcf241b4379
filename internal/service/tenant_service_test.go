// 租户解析和用户登记的单元测试
package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/weiwangfds/contentvault/config"
	"github.com/weiwangfds/contentvault/internal/database"
	apperrors "github.com/weiwangfds/contentvault/internal/errors"
)

// setupTenantService 组装租户服务并预置一个业务租户
func setupTenantService(t *testing.T) (TenantService, *gorm.DB) {
	db := setupTestDB(t)
	svc := NewTenantService(db, config.TenantConfig{
		EnableMultiTenancy: true,
		DefaultTenantID:    "default",
	})

	_, err := svc.Create(&CreateTenantRequest{TenantID: "acme", Name: "Acme Corp"})
	require.NoError(t, err)
	return svc, db
}

// makeUser 构造测试用户
func makeUser(tenantID string, roles ...string) *database.User {
	return &database.User{
		UserID:   "user-1",
		TenantID: tenantID,
		Roles:    database.StringList(roles),
		IsActive: true,
	}
}

// TestResolvePrecedence 测试租户解析优先级
func TestResolvePrecedence(t *testing.T) {
	svc, _ := setupTenantService(t)

	t.Run("显式指定优先", func(t *testing.T) {
		tenant, err := svc.Resolve("acme", makeUser("acme", "user"))
		require.NoError(t, err)
		assert.Equal(t, "acme", tenant.TenantID)
	})

	t.Run("未指定时落入用户归属租户", func(t *testing.T) {
		tenant, err := svc.Resolve("", makeUser("acme", "user"))
		require.NoError(t, err)
		assert.Equal(t, "acme", tenant.TenantID)
	})

	t.Run("无用户时落入默认租户", func(t *testing.T) {
		tenant, err := svc.Resolve("", nil)
		require.NoError(t, err)
		assert.Equal(t, "default", tenant.TenantID)
	})
}

// TestResolveCrossTenant 测试跨租户访问控制
func TestResolveCrossTenant(t *testing.T) {
	svc, _ := setupTenantService(t)

	t.Run("普通用户被拒绝", func(t *testing.T) {
		_, err := svc.Resolve("default", makeUser("acme", "user"))
		assert.True(t, apperrors.IsCode(err, apperrors.ErrTenantAccessDenied))
	})

	t.Run("管理员放行", func(t *testing.T) {
		tenant, err := svc.Resolve("default", makeUser("acme", "admin"))
		require.NoError(t, err)
		assert.Equal(t, "default", tenant.TenantID)
	})

	t.Run("超级管理员放行", func(t *testing.T) {
		tenant, err := svc.Resolve("default", makeUser("acme", "super_admin"))
		require.NoError(t, err)
		assert.Equal(t, "default", tenant.TenantID)
	})
}

// TestResolveRejectsBadTenants 测试不存在和停用的租户被拒绝
func TestResolveRejectsBadTenants(t *testing.T) {
	svc, _ := setupTenantService(t)

	t.Run("租户不存在", func(t *testing.T) {
		_, err := svc.Resolve("ghost", makeUser("ghost", "user"))
		assert.True(t, apperrors.IsCode(err, apperrors.ErrTenantNotFound))
	})

	t.Run("租户已停用", func(t *testing.T) {
		inactive := false
		_, err := svc.Update("acme", &UpdateTenantRequest{IsActive: &inactive})
		require.NoError(t, err)

		_, err = svc.Resolve("acme", makeUser("acme", "user"))
		assert.True(t, apperrors.IsCode(err, apperrors.ErrTenantInactive))
	})
}

// TestResolveMultiTenancyDisabled 测试多租户关闭时一律落入默认租户
func TestResolveMultiTenancyDisabled(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTenantService(db, config.TenantConfig{
		EnableMultiTenancy: false,
		DefaultTenantID:    "default",
	})

	tenant, err := svc.Resolve("anything", makeUser("elsewhere", "user"))
	require.NoError(t, err)
	assert.Equal(t, "default", tenant.TenantID)
}

// TestCreateTenantDuplicate 测试重复租户ID被拒绝
func TestCreateTenantDuplicate(t *testing.T) {
	svc, _ := setupTenantService(t)

	_, err := svc.Create(&CreateTenantRequest{TenantID: "acme", Name: "Another Acme"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrTenant))
}

// TestEnsureByExternalID 测试外部身份自动登记
func TestEnsureByExternalID(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db)

	user, err := svc.EnsureByExternalID("ext-123", "alice@example.com", "Alice", "default")
	require.NoError(t, err)
	assert.NotEmpty(t, user.UserID)
	assert.Equal(t, database.StringList{"user"}, user.Roles)
	assert.NotNil(t, user.LastLogin)

	// 再次出现返回同一用户
	again, err := svc.EnsureByExternalID("ext-123", "alice@example.com", "Alice", "default")
	require.NoError(t, err)
	assert.Equal(t, user.UserID, again.UserID)

	// 停用用户视为不存在
	admin := makeUser("default", "admin")
	inactive := false
	_, err = svc.Update(user.UserID, &UpdateUserRequest{IsActive: &inactive}, admin)
	require.NoError(t, err)

	_, err = svc.EnsureByExternalID("ext-123", "alice@example.com", "Alice", "default")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUserNotFound))
}

// registerUser 登记用户并赋予指定角色
func registerUser(t *testing.T, svc UserService, db *gorm.DB, externalID, tenantID string, roles ...string) *database.User {
	user, err := svc.EnsureByExternalID(externalID, externalID+"@example.com", externalID, tenantID)
	require.NoError(t, err)
	if len(roles) > 0 {
		require.NoError(t, db.Model(&database.User{}).
			Where("user_id = ?", user.UserID).
			Update("roles", database.StringList(roles)).Error)
		user.Roles = database.StringList(roles)
	}
	return user
}

// TestUserTenantFence 测试用户读写的租户围栏
// 管理员被限制在本租户内，只有super_admin可以跨租户读写
func TestUserTenantFence(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db)

	alice := registerUser(t, svc, db, "ext-alice", "tenant-a")
	bob := registerUser(t, svc, db, "ext-bob", "tenant-b")
	adminA := registerUser(t, svc, db, "ext-admin-a", "tenant-a", "admin")
	super := registerUser(t, svc, db, "ext-super", "tenant-a", "super_admin")

	newName := "Renamed"

	t.Run("本人可见自己", func(t *testing.T) {
		got, err := svc.Get(alice.UserID, alice)
		require.NoError(t, err)
		assert.Equal(t, alice.UserID, got.UserID)
	})

	t.Run("普通用户不可见他人", func(t *testing.T) {
		_, err := svc.Get(bob.UserID, alice)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrAuthorization))
	})

	t.Run("管理员可见本租户用户", func(t *testing.T) {
		got, err := svc.Get(alice.UserID, adminA)
		require.NoError(t, err)
		assert.Equal(t, alice.UserID, got.UserID)
	})

	t.Run("管理员不可见他租户用户", func(t *testing.T) {
		_, err := svc.Get(bob.UserID, adminA)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrAuthorization))
	})

	t.Run("超级管理员可跨租户查看", func(t *testing.T) {
		got, err := svc.Get(bob.UserID, super)
		require.NoError(t, err)
		assert.Equal(t, bob.UserID, got.UserID)
	})

	t.Run("管理员不可更新他租户用户", func(t *testing.T) {
		_, err := svc.Update(bob.UserID, &UpdateUserRequest{DisplayName: &newName}, adminA)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrAuthorization))
	})

	t.Run("超级管理员可跨租户更新", func(t *testing.T) {
		updated, err := svc.Update(bob.UserID, &UpdateUserRequest{DisplayName: &newName}, super)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.DisplayName)
	})
}

// TestListByTenantPaged 测试用户列表的分页和激活过滤
func TestListByTenantPaged(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db)

	for i := 0; i < 3; i++ {
		registerUser(t, svc, db, fmt.Sprintf("ext-%d", i), "tenant-a")
	}
	require.NoError(t, db.Model(&database.User{}).
		Where("external_id = ?", "ext-0").
		Update("is_active", false).Error)

	t.Run("停用用户不出现在列表中", func(t *testing.T) {
		users, err := svc.ListByTenant("tenant-a", 50, 0)
		require.NoError(t, err)
		assert.Len(t, users, 2)
	})

	t.Run("分页生效", func(t *testing.T) {
		users, err := svc.ListByTenant("tenant-a", 1, 1)
		require.NoError(t, err)
		assert.Len(t, users, 1)
	})

	t.Run("显式零返回空页", func(t *testing.T) {
		users, err := svc.ListByTenant("tenant-a", 0, 0)
		require.NoError(t, err)
		assert.Empty(t, users)
	})

	t.Run("超出上限被拒绝", func(t *testing.T) {
		_, err := svc.ListByTenant("tenant-a", 1001, 0)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
	})
}
