// Package service 提供业务服务层
// 所有服务以接口形式暴露，构造函数返回接口，持有*gorm.DB进行数据访问
package service

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weiwangfds/contentvault/internal/database"
	apperrors "github.com/weiwangfds/contentvault/internal/errors"
	"github.com/weiwangfds/contentvault/internal/logger"
)

// AccessEntry 一次文件访问尝试
type AccessEntry struct {
	FileID       string // 被访问的文件ID
	UserID       string // 发起访问的用户ID
	AccessType   string // 访问类型：upload、download、delete、view
	IPAddress    string // 客户端IP地址
	UserAgent    string // 客户端User-Agent
	Success      bool   // 访问是否成功
	ErrorMessage string // 失败时的错误信息
}

// AuditService 文件访问审计服务接口
// 审计写入失败只记录日志，绝不让审计故障阻断业务操作
type AuditService interface {
	// Record 写入一条访问审计记录
	Record(entry AccessEntry)

	// ListByFile 查询指定文件的访问历史，按时间倒序
	ListByFile(fileID string, limit int) ([]database.FileAccess, error)
}

// auditService 审计服务实现
type auditService struct {
	db *gorm.DB
}

// NewAuditService 创建审计服务实例
func NewAuditService(db *gorm.DB) AuditService {
	return &auditService{db: db}
}

// Record 写入访问审计记录
// 每次访问尝试（无论成败）各成一行，创建后永不修改
func (s *auditService) Record(entry AccessEntry) {
	access := database.FileAccess{
		AccessID:     uuid.New().String(),
		FileID:       entry.FileID,
		UserID:       entry.UserID,
		AccessType:   entry.AccessType,
		IPAddress:    entry.IPAddress,
		UserAgent:    entry.UserAgent,
		Success:      entry.Success,
		ErrorMessage: entry.ErrorMessage,
		Timestamp:    time.Now().UTC(),
	}

	if err := s.db.Create(&access).Error; err != nil {
		logger.Errorf("审计记录写入失败，文件: %s，类型: %s: %v", entry.FileID, entry.AccessType, err)
	}
}

// ListByFile 查询文件访问历史
func (s *auditService) ListByFile(fileID string, limit int) ([]database.FileAccess, error) {
	if limit <= 0 {
		limit = 50
	}

	var records []database.FileAccess
	err := s.db.Where("file_id = ?", fileID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, err)
	}
	return records, nil
}
