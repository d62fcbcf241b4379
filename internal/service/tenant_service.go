package service

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/weiwangfds/contentvault/config"
	"github.com/weiwangfds/contentvault/internal/database"
	apperrors "github.com/weiwangfds/contentvault/internal/errors"
	"github.com/weiwangfds/contentvault/internal/logger"
)

// CreateTenantRequest 创建租户请求
type CreateTenantRequest struct {
	TenantID    string                 `json:"tenant_id" binding:"required"` // 租户唯一标识符
	Name        string                 `json:"name" binding:"required"`      // 租户名称
	Description string                 `json:"description"`                  // 租户描述
	Settings    map[string]interface{} `json:"settings"`                     // 租户设置
}

// UpdateTenantRequest 更新租户请求
// 指针字段为nil表示不修改
type UpdateTenantRequest struct {
	Name        *string                 `json:"name"`        // 新名称
	Description *string                 `json:"description"` // 新描述
	IsActive    *bool                   `json:"is_active"`   // 激活状态
	Settings    *map[string]interface{} `json:"settings"`    // 新设置
}

// TenantService 租户管理服务接口
// 租户解析遵循固定优先级：显式指定 > 用户归属租户 > 默认租户
type TenantService interface {
	// Create 创建租户
	Create(req *CreateTenantRequest) (*database.Tenant, error)

	// List 列出全部租户
	List() ([]database.Tenant, error)

	// Get 获取单个租户
	Get(tenantID string) (*database.Tenant, error)

	// Update 更新租户属性
	Update(tenantID string, req *UpdateTenantRequest) (*database.Tenant, error)

	// Resolve 解析请求生效的租户
	// 跨租户访问仅限管理员，停用租户一律拒绝
	Resolve(requested string, user *database.User) (*database.Tenant, error)
}

// tenantService 租户服务实现
type tenantService struct {
	db  *gorm.DB
	cfg config.TenantConfig
}

// NewTenantService 创建租户服务实例
func NewTenantService(db *gorm.DB, cfg config.TenantConfig) TenantService {
	return &tenantService{db: db, cfg: cfg}
}

// Create 创建租户
func (s *tenantService) Create(req *CreateTenantRequest) (*database.Tenant, error) {
	tenantID := strings.TrimSpace(req.TenantID)
	if tenantID == "" || strings.TrimSpace(req.Name) == "" {
		return nil, apperrors.NewWithDetails(apperrors.ErrValidation, "tenant_id and name are required")
	}

	var existing database.Tenant
	err := s.db.Where("tenant_id = ?", tenantID).First(&existing).Error
	if err == nil {
		return nil, apperrors.NewWithDetails(apperrors.ErrTenant, "tenant already exists: "+tenantID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, err)
	}

	tenant := database.Tenant{
		TenantID:    tenantID,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
		Settings:    database.JSONMap(req.Settings),
	}
	if err := s.db.Create(&tenant).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, err)
	}

	logger.Infof("租户已创建: %s (%s)", tenant.Name, tenant.TenantID)
	return &tenant, nil
}

// List 列出全部租户
func (s *tenantService) List() ([]database.Tenant, error) {
	var tenants []database.Tenant
	if err := s.db.Order("created_at ASC").Find(&tenants).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, err)
	}
	return tenants, nil
}

// Get 获取单个租户
func (s *tenantService) Get(tenantID string) (*database.Tenant, error) {
	var tenant database.Tenant
	err := s.db.Where("tenant_id = ?", tenantID).First(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewWithDetails(apperrors.ErrTenantNotFound, tenantID)
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabase, err)
	}
	return &tenant, nil
}

// Update 更新租户属性
func (s *tenantService) Update(tenantID string, req *UpdateTenantRequest) (*database.Tenant, error) {
	tenant, err := s.Get(tenantID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, apperrors.NewWithDetails(apperrors.ErrValidation, "name must not be empty")
		}
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Settings != nil {
		updates["settings"] = database.JSONMap(*req.Settings)
	}

	if len(updates) == 0 {
		return tenant, nil
	}

	if err := s.db.Model(tenant).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, err)
	}
	return s.Get(tenantID)
}

// Resolve 解析请求生效的租户
// 多租户关闭时一律落入默认租户；普通用户只能访问自己归属的租户
func (s *tenantService) Resolve(requested string, user *database.User) (*database.Tenant, error) {
	if !s.cfg.EnableMultiTenancy {
		return s.resolveActive(s.cfg.DefaultTenantID)
	}

	target := strings.TrimSpace(requested)
	if target == "" {
		if user != nil && user.TenantID != "" {
			target = user.TenantID
		} else {
			target = s.cfg.DefaultTenantID
		}
	}

	if user != nil && target != user.TenantID && !user.IsAdmin() {
		logger.Warnf("跨租户访问被拒绝，用户: %s，归属租户: %s，请求租户: %s", user.UserID, user.TenantID, target)
		return nil, apperrors.New(apperrors.ErrTenantAccessDenied)
	}

	return s.resolveActive(target)
}

// resolveActive 加载租户并确认其处于激活状态
func (s *tenantService) resolveActive(tenantID string) (*database.Tenant, error) {
	tenant, err := s.Get(tenantID)
	if err != nil {
		return nil, err
	}
	if !tenant.IsActive {
		return nil, apperrors.NewWithDetails(apperrors.ErrTenantInactive, tenantID)
	}
	return tenant, nil
}
