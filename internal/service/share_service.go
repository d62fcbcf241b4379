package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weiwangfds/contentvault/internal/database"
	apperrors "github.com/weiwangfds/contentvault/internal/errors"
	"github.com/weiwangfds/contentvault/internal/logger"
	"github.com/weiwangfds/contentvault/internal/storage"
)

// CreateShareRequest 创建分享请求
type CreateShareRequest struct {
	ShareType       string     `json:"share_type"`        // 分享类型：public、private、password_protected
	Password        string     `json:"password"`          // 密码保护分享的密码
	MaxDownloads    *int       `json:"max_downloads"`     // 最大下载次数，nil表示不限制
	ExpiresAt       *time.Time `json:"expires_at"`        // 过期时间，nil表示永不过期
	CanDownload     *bool      `json:"can_download"`      // 是否允许下载，默认允许
	CanViewMetadata *bool      `json:"can_view_metadata"` // 是否允许查看元数据，默认允许
}

// ShareService 文件分享服务接口
// 分享令牌是能力凭证，任何校验不通过都必须拒绝访问
type ShareService interface {
	// Create 为文件创建分享
	Create(tenantID, fileID, userID string, req *CreateShareRequest) (*database.FileShare, error)

	// ListByFile 列出文件的全部分享
	ListByFile(tenantID, fileID string) ([]database.FileShare, error)

	// Revoke 停用分享
	Revoke(tenantID, shareID string) error

	// ResolveMetadata 凭令牌查看文件元数据
	ResolveMetadata(token, password string) (*database.File, *database.FileShare, error)

	// ResolveDownload 凭令牌下载文件内容，计入下载次数
	ResolveDownload(token, password string, access AccessContext) (*database.File, []byte, error)
}

// shareService 分享服务实现
type shareService struct {
	db      *gorm.DB
	storage *storage.Manager
	audit   AuditService
}

// NewShareService 创建分享服务实例
func NewShareService(db *gorm.DB, storageManager *storage.Manager, audit AuditService) ShareService {
	return &shareService{db: db, storage: storageManager, audit: audit}
}

// hashSharePassword 计算分享密码哈希
func hashSharePassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Create 为文件创建分享
func (s *shareService) Create(tenantID, fileID, userID string, req *CreateShareRequest) (*database.FileShare, error) {
	var file database.File
	err := s.db.Where("file_id = ? AND tenant_id = ? AND is_deleted = ?", fileID, tenantID, false).
		First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrFileNotFound)
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabase, err)
	}

	shareType := req.ShareType
	if shareType == "" {
		shareType = database.ShareTypePrivate
	}
	switch shareType {
	case database.ShareTypePublic, database.ShareTypePrivate, database.ShareTypePasswordProtected:
	default:
		return nil, apperrors.NewWithDetails(apperrors.ErrValidation, "invalid share type: "+shareType)
	}

	passwordHash := ""
	if shareType == database.ShareTypePasswordProtected {
		if req.Password == "" {
			return nil, apperrors.NewWithDetails(apperrors.ErrValidation, "password is required for password protected share")
		}
		passwordHash = hashSharePassword(req.Password)
	}

	canDownload := true
	if req.CanDownload != nil {
		canDownload = *req.CanDownload
	}
	canViewMetadata := true
	if req.CanViewMetadata != nil {
		canViewMetadata = *req.CanViewMetadata
	}

	share := database.FileShare{
		ShareID:         uuid.New().String(),
		FileID:          fileID,
		ShareToken:      uuid.New().String(),
		ShareType:       shareType,
		PasswordHash:    passwordHash,
		MaxDownloads:    req.MaxDownloads,
		ExpiresAt:       req.ExpiresAt,
		CanDownload:     canDownload,
		CanViewMetadata: canViewMetadata,
		IsActive:        true,
		CreatedBy:       userID,
	}
	if err := s.db.Create(&share).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, err)
	}

	logger.Infof("分享已创建，分享ID: %s，文件ID: %s，类型: %s", share.ShareID, fileID, shareType)
	return &share, nil
}

// ListByFile 列出文件的全部分享
func (s *shareService) ListByFile(tenantID, fileID string) ([]database.FileShare, error) {
	var file database.File
	err := s.db.Where("file_id = ? AND tenant_id = ? AND is_deleted = ?", fileID, tenantID, false).
		First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrFileNotFound)
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabase, err)
	}

	var shares []database.FileShare
	if err := s.db.Where("file_id = ?", fileID).Order("created_at DESC").Find(&shares).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, err)
	}
	return shares, nil
}

// Revoke 停用分享
func (s *shareService) Revoke(tenantID, shareID string) error {
	var share database.FileShare
	err := s.db.Joins("JOIN files ON files.file_id = file_shares.file_id").
		Where("file_shares.share_id = ? AND files.tenant_id = ?", shareID, tenantID).
		First(&share).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.ErrShareNotFound)
		}
		return apperrors.Wrap(apperrors.ErrDatabase, err)
	}

	if err := s.db.Model(&share).Update("is_active", false).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, err)
	}
	logger.Infof("分享已停用，分享ID: %s", shareID)
	return nil
}

// authorize 校验分享凭证的有效性
// 任何一项不满足都拒绝访问，requireDownload为true时额外检查下载许可和次数
func (s *shareService) authorize(token, password string, requireDownload bool) (*database.FileShare, error) {
	var share database.FileShare
	err := s.db.Where("share_token = ?", token).First(&share).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrShareNotFound)
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabase, err)
	}

	if !share.IsActive {
		return nil, apperrors.New(apperrors.ErrShareForbidden)
	}
	if share.ExpiresAt != nil && time.Now().After(*share.ExpiresAt) {
		return nil, apperrors.New(apperrors.ErrShareExpired)
	}
	if share.ShareType == database.ShareTypePasswordProtected {
		given := hashSharePassword(password)
		if subtle.ConstantTimeCompare([]byte(given), []byte(share.PasswordHash)) != 1 {
			return nil, apperrors.New(apperrors.ErrSharePassword)
		}
	}
	if requireDownload {
		if !share.CanDownload {
			return nil, apperrors.New(apperrors.ErrShareForbidden)
		}
		if share.MaxDownloads != nil && share.DownloadCount >= *share.MaxDownloads {
			return nil, apperrors.New(apperrors.ErrShareExhausted)
		}
	}

	return &share, nil
}

// sharedFile 加载分享指向的文件
// 文件被软删除后所有分享随之失效
func (s *shareService) sharedFile(share *database.FileShare) (*database.File, error) {
	var file database.File
	err := s.db.Where("file_id = ? AND is_deleted = ?", share.FileID, false).First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrFileNotFound)
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabase, err)
	}
	return &file, nil
}

// ResolveMetadata 凭令牌查看文件元数据
func (s *shareService) ResolveMetadata(token, password string) (*database.File, *database.FileShare, error) {
	share, err := s.authorize(token, password, false)
	if err != nil {
		return nil, nil, err
	}
	if !share.CanViewMetadata {
		return nil, nil, apperrors.New(apperrors.ErrShareForbidden)
	}

	file, err := s.sharedFile(share)
	if err != nil {
		return nil, nil, err
	}
	return file, share, nil
}

// ResolveDownload 凭令牌下载文件内容
// 下载成功后计入下载次数，成败均写入审计
func (s *shareService) ResolveDownload(token, password string, access AccessContext) (*database.File, []byte, error) {
	share, err := s.authorize(token, password, true)
	if err != nil {
		return nil, nil, err
	}

	auditUser := access.UserID
	if auditUser == "" {
		auditUser = "share:" + share.ShareID
	}

	file, err := s.sharedFile(share)
	if err != nil {
		s.audit.Record(AccessEntry{
			FileID:       share.FileID,
			UserID:       auditUser,
			AccessType:   database.AccessTypeDownload,
			IPAddress:    access.IPAddress,
			UserAgent:    access.UserAgent,
			Success:      false,
			ErrorMessage: err.Error(),
		})
		return nil, nil, err
	}

	content, err := s.storage.Download(file.StoragePath, file.TenantID)
	if err != nil {
		s.audit.Record(AccessEntry{
			FileID:       file.FileID,
			UserID:       auditUser,
			AccessType:   database.AccessTypeDownload,
			IPAddress:    access.IPAddress,
			UserAgent:    access.UserAgent,
			Success:      false,
			ErrorMessage: err.Error(),
		})
		return nil, nil, err
	}

	if err := s.db.Model(share).Update("download_count", gorm.Expr("download_count + 1")).Error; err != nil {
		logger.Warnf("分享下载计数更新失败，分享ID: %s: %v", share.ShareID, err)
	}

	s.audit.Record(AccessEntry{
		FileID:     file.FileID,
		UserID:     auditUser,
		AccessType: database.AccessTypeDownload,
		IPAddress:  access.IPAddress,
		UserAgent:  access.UserAgent,
		Success:    true,
	})

	return file, content, nil
}
