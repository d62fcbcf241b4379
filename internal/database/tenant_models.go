// Package database 定义租户和用户相关的数据库模型
package database

import (
	"time"
)

// Tenant 租户模型
// 多租户隔离的根实体，拥有本租户下的全部用户和文件
// 停用租户仅拒绝访问，不删除任何数据
type Tenant struct {
	ID             uint      `gorm:"primarykey" json:"-"`                             // 主键ID，自增
	TenantID       string    `gorm:"uniqueIndex;not null;size:50" json:"tenant_id"`   // 租户唯一标识符
	Name           string    `gorm:"not null;size:255" json:"name"`                   // 租户名称
	Description    string    `gorm:"type:text" json:"description"`                    // 租户描述
	IsActive       bool      `gorm:"default:true" json:"is_active"`                   // 是否激活，停用后该租户下所有访问被拒绝
	StorageConfig  JSONMap   `gorm:"type:text" json:"storage_config,omitempty"`       // 租户级存储配置，预留字段，当前进程级配置生效
	DatabaseConfig JSONMap   `gorm:"type:text" json:"database_config,omitempty"`      // 租户级数据库配置，预留字段
	Settings       JSONMap   `gorm:"type:text" json:"settings,omitempty"`             // 其他租户设置
	CreatedAt      time.Time `json:"created_at"`                                      // 创建时间
	UpdatedAt      time.Time `json:"updated_at"`                                      // 最后更新时间
}

// TableName 指定Tenant模型对应的数据库表名
func (Tenant) TableName() string {
	return "tenants"
}

// User 用户模型
// 身份由外部身份提供商管理，本服务仅保存其不透明标识
// 每个用户归属且仅归属一个租户
type User struct {
	ID          uint       `gorm:"primarykey" json:"-"`                              // 主键ID，自增
	UserID      string     `gorm:"uniqueIndex;not null;size:50" json:"user_id"`      // 用户唯一标识符
	ExternalID  string     `gorm:"uniqueIndex;not null;size:255" json:"external_id"` // 外部身份提供商的对象ID
	Email       string     `gorm:"index;not null;size:255" json:"email"`             // 邮箱
	DisplayName string     `gorm:"size:255" json:"display_name"`                     // 显示名称
	TenantID    string     `gorm:"index;not null;size:50" json:"tenant_id"`          // 归属租户ID
	Roles       StringList `gorm:"type:text" json:"roles"`                           // 角色集合：user、admin、super_admin
	IsActive    bool       `gorm:"default:true" json:"is_active"`                    // 是否激活
	LastLogin   *time.Time `json:"last_login,omitempty"`                             // 最后登录时间
	CreatedAt   time.Time  `json:"created_at"`                                       // 创建时间
	UpdatedAt   time.Time  `json:"updated_at"`                                       // 最后更新时间
}

// TableName 指定User模型对应的数据库表名
func (User) TableName() string {
	return "users"
}

// HasAnyRole 判断用户是否持有任一指定角色
func (u *User) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if u.Roles.Contains(role) {
			return true
		}
	}
	return false
}

// IsAdmin 判断用户是否为管理员（admin或super_admin）
func (u *User) IsAdmin() bool {
	return u.HasAnyRole("admin", "super_admin")
}
