package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weiwangfds/contentvault/internal/database"
	apperrors "github.com/weiwangfds/contentvault/internal/errors"
	"github.com/weiwangfds/contentvault/internal/logger"
)

// UpdateUserRequest 更新用户请求
// 指针字段为nil表示不修改
type UpdateUserRequest struct {
	DisplayName *string   `json:"display_name"` // 新显示名称
	Roles       *[]string `json:"roles"`        // 新角色集合
	IsActive    *bool     `json:"is_active"`    // 激活状态
}

// UserService 用户管理服务接口
// 身份由外部身份提供商签发，本服务按外部ID自动登记用户
// 跨租户的读写仅对super_admin开放，普通管理员被围栏在本租户内
type UserService interface {
	// ListByTenant 分页列出租户下的激活用户
	ListByTenant(tenantID string, limit, offset int) ([]database.User, error)

	// Get 获取单个用户，本人可见自己，管理员可见本租户用户
	Get(userID string, requester *database.User) (*database.User, error)

	// Update 更新用户属性，管理员限本租户
	Update(userID string, req *UpdateUserRequest, requester *database.User) (*database.User, error)

	// EnsureByExternalID 按外部身份查找用户，首次出现时自动登记
	// 停用用户视为不存在
	EnsureByExternalID(externalID, email, displayName, tenantID string) (*database.User, error)
}

// userService 用户服务实现
type userService struct {
	db *gorm.DB
}

// NewUserService 创建用户服务实例
func NewUserService(db *gorm.DB) UserService {
	return &userService{db: db}
}

// ListByTenant 分页列出租户下的激活用户
// 停用用户不出现在列表中，limit为0返回空页
func (s *userService) ListByTenant(tenantID string, limit, offset int) ([]database.User, error) {
	if limit < 0 || limit > maxQueryLimit {
		return nil, apperrors.NewWithDetails(apperrors.ErrValidation,
			fmt.Sprintf("limit must be between 0 and %d", maxQueryLimit))
	}
	if offset < 0 {
		return nil, apperrors.NewWithDetails(apperrors.ErrValidation, "offset must not be negative")
	}

	var users []database.User
	err := s.db.Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, err)
	}
	return users, nil
}

// getByID 按用户ID加载用户，不做权限围栏
func (s *userService) getByID(userID string) (*database.User, error) {
	var user database.User
	err := s.db.Where("user_id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewWithDetails(apperrors.ErrUserNotFound, userID)
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabase, err)
	}
	return &user, nil
}

// Get 获取单个用户
// 本人始终可见自己，查看他人要求管理员身份，且非super_admin的管理员
// 只能查看本租户用户
func (s *userService) Get(userID string, requester *database.User) (*database.User, error) {
	user, err := s.getByID(userID)
	if err != nil {
		return nil, err
	}

	if requester == nil || requester.UserID != userID {
		if requester == nil || !requester.IsAdmin() {
			return nil, apperrors.New(apperrors.ErrAuthorization)
		}
		if user.TenantID != requester.TenantID && !requester.HasAnyRole("super_admin") {
			return nil, apperrors.New(apperrors.ErrAuthorization)
		}
	}

	return user, nil
}

// Update 更新用户属性
// 非super_admin的管理员只能更新本租户用户
func (s *userService) Update(userID string, req *UpdateUserRequest, requester *database.User) (*database.User, error) {
	user, err := s.getByID(userID)
	if err != nil {
		return nil, err
	}

	if requester == nil || (user.TenantID != requester.TenantID && !requester.HasAnyRole("super_admin")) {
		return nil, apperrors.New(apperrors.ErrAuthorization)
	}

	updates := map[string]interface{}{}
	if req.DisplayName != nil {
		updates["display_name"] = *req.DisplayName
	}
	if req.Roles != nil {
		updates["roles"] = database.StringList(*req.Roles)
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, err)
	}
	return s.getByID(userID)
}

// EnsureByExternalID 按外部身份查找用户
// 首次出现的身份以普通用户角色自动登记到指定租户，并刷新最后登录时间
func (s *userService) EnsureByExternalID(externalID, email, displayName, tenantID string) (*database.User, error) {
	var user database.User
	err := s.db.Where("external_id = ?", externalID).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, err)
		}

		user = database.User{
			UserID:      uuid.New().String(),
			ExternalID:  externalID,
			Email:       email,
			DisplayName: displayName,
			TenantID:    tenantID,
			Roles:       database.StringList{"user"},
			IsActive:    true,
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, err)
		}
		logger.Infof("新用户已登记，用户ID: %s，租户: %s", user.UserID, tenantID)
	}

	if !user.IsActive {
		return nil, apperrors.NewWithDetails(apperrors.ErrUserNotFound, externalID)
	}

	now := time.Now().UTC()
	if err := s.db.Model(&user).Update("last_login", now).Error; err != nil {
		logger.Warnf("刷新最后登录时间失败，用户: %s: %v", user.UserID, err)
	}
	user.LastLogin = &now

	return &user, nil
}
