// Package database 提供数据库表结构迁移和初始数据填充
package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Migrate 执行数据库迁移
// 自动迁移全部表结构，并确保默认租户存在
func Migrate(db *gorm.DB) error {
	if err := autoMigrate(db); err != nil {
		return err
	}
	return seedDefaultTenant(db)
}

// autoMigrate 自动迁移数据库表结构
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Tenant{},
		&User{},
		&File{},
		&FileVersion{},
		&FileAccess{},
		&FileShare{},
	)
}

// seedDefaultTenant 确保默认租户存在
// 系统启动时所有未显式指定租户的请求落入default租户
func seedDefaultTenant(db *gorm.DB) error {
	var tenant Tenant
	err := db.Where("tenant_id = ?", "default").First(&tenant).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check default tenant: %w", err)
	}

	tenant = Tenant{
		TenantID:    "default",
		Name:        "Default Tenant",
		Description: "系统默认租户",
		IsActive:    true,
	}
	if err := db.Create(&tenant).Error; err != nil {
		return fmt.Errorf("failed to create default tenant: %w", err)
	}
	return nil
}
