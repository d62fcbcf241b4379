package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weiwangfds/contentvault/config"
	"github.com/weiwangfds/contentvault/internal/database"
	apperrors "github.com/weiwangfds/contentvault/internal/errors"
	"github.com/weiwangfds/contentvault/internal/logger"
	"github.com/weiwangfds/contentvault/internal/metadata"
	"github.com/weiwangfds/contentvault/internal/storage"
)

// 查询分页限制
const (
	defaultQueryLimit = 50
	maxQueryLimit     = 1000
)

// xmlSidecarSuffix XML附属文档在存储后端的命名后缀
const xmlSidecarSuffix = "_metadata.xml"

// UploadRequest 文件上传请求
type UploadRequest struct {
	TenantID            string // 归属租户ID
	UserID              string // 上传者用户ID
	Filename            string // 原始文件名
	DeclaredContentType string // 客户端声明的内容类型，可为空
	Content             []byte // 文件内容
	XMLContent          []byte // 随附的XML文档内容，可为空
	Tags                string // 逗号分隔的标签列表
	CustomMetadataJSON  string // 自定义元数据的JSON文本
	IPAddress           string // 客户端IP
	UserAgent           string // 客户端User-Agent
}

// FileQuery 文件查询条件
// TenantID为必填，所有其他条件可选，条件之间为AND关系
type FileQuery struct {
	TenantID      string     // 租户ID，必填
	Filename      string     // 文件名子串，不区分大小写
	ContentType   string     // 内容类型，精确匹配
	Tags          []string   // 标签集合，文件必须包含所有给定标签
	Status        string     // 文件状态
	CreatedAfter  *time.Time // 创建时间下界（含）
	CreatedBefore *time.Time // 创建时间上界（含）
	MinSize       *int64     // 文件大小下界（含）
	MaxSize       *int64     // 文件大小上界（含）
	Limit         *int       // 分页大小，nil表示默认值，0返回空页
	Offset        int        // 分页偏移
}

// FileQueryResult 文件查询结果
// Total为应用过滤条件后、分页之前的总数
type FileQueryResult struct {
	Files  []database.File `json:"files"`
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// UpdateRequest 文件更新请求
// 指针字段为nil表示不修改，指向零值表示清空
type UpdateRequest struct {
	Filename       *string                 // 新文件名
	Tags           *[]string               // 新标签集合
	CustomMetadata *map[string]interface{} // 新自定义元数据
}

// AccessContext 操作发起方的上下文信息，用于审计
type AccessContext struct {
	UserID    string
	IPAddress string
	UserAgent string
}

// FileService 文件生命周期服务接口
// 所有操作强制按租户隔离，软删除文件对查询、获取和下载不可见
type FileService interface {
	// Upload 上传文件，存储写入先于记录提交
	Upload(req *UploadRequest) (*database.File, error)

	// Query 按条件查询文件列表
	Query(query *FileQuery) (*FileQueryResult, error)

	// GetByID 获取单个文件记录
	GetByID(tenantID, fileID string) (*database.File, error)

	// Download 下载文件内容，成败均写入审计
	Download(tenantID, fileID string, access AccessContext) (*database.File, []byte, error)

	// Update 更新文件的可变字段
	Update(tenantID, fileID string, req *UpdateRequest) (*database.File, error)

	// SoftDelete 软删除文件，存储对象保留
	SoftDelete(tenantID, fileID string, access AccessContext) error
}

// fileService 文件服务实现
type fileService struct {
	db      *gorm.DB
	storage *storage.Manager
	audit   AuditService
	fileCfg config.FileConfig
}

// NewFileService 创建文件服务实例
func NewFileService(db *gorm.DB, storageManager *storage.Manager, audit AuditService, fileCfg config.FileConfig) FileService {
	return &fileService{
		db:      db,
		storage: storageManager,
		audit:   audit,
		fileCfg: fileCfg,
	}
}

// Upload 上传文件
// 处理顺序：校验、哈希、存储写入、XML附属文档、记录提交、审计
// XML附属文档的任何失败都被隔离，不影响文件本身的上传
func (s *fileService) Upload(req *UploadRequest) (*database.File, error) {
	filename := strings.TrimSpace(req.Filename)
	if filename == "" {
		return nil, apperrors.New(apperrors.ErrFilenameRequired)
	}

	if s.fileCfg.MaxFileSize > 0 && int64(len(req.Content)) > s.fileCfg.MaxFileSize {
		return nil, apperrors.NewWithDetails(apperrors.ErrLimitExceeded,
			fmt.Sprintf("file size %d exceeds limit %d", len(req.Content), s.fileCfg.MaxFileSize))
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !s.extensionAllowed(ext) {
		return nil, apperrors.NewWithDetails(apperrors.ErrValidation,
			fmt.Sprintf("file extension %s is not allowed", ext))
	}

	hash := sha256.Sum256(req.Content)
	fileHash := hex.EncodeToString(hash[:])
	contentType := resolveContentType(req.DeclaredContentType, ext, req.Content)

	fileID := uuid.New().String()
	storageName := fileID + ext

	logger.Infof("开始上传文件，租户: %s，原始文件名: %s，大小: %d 字节", req.TenantID, filename, len(req.Content))

	storagePath, err := s.storage.Upload(storageName, req.Content, map[string]string{
		"content-type":      contentType,
		"original-filename": filename,
		"file-hash":         fileHash,
	}, req.TenantID)
	if err != nil {
		s.audit.Record(AccessEntry{
			FileID:       fileID,
			UserID:       req.UserID,
			AccessType:   database.AccessTypeUpload,
			IPAddress:    req.IPAddress,
			UserAgent:    req.UserAgent,
			Success:      false,
			ErrorMessage: err.Error(),
		})
		return nil, apperrors.Wrap(apperrors.ErrFileUpload, err)
	}

	file := database.File{
		FileID:           fileID,
		TenantID:         req.TenantID,
		Filename:         storageName,
		OriginalFilename: filename,
		StoragePath:      storagePath,
		FileSize:         int64(len(req.Content)),
		ContentType:      contentType,
		FileHash:         fileHash,
		Status:           database.FileStatusUploaded,
		Tags:             splitTags(req.Tags),
		CustomMetadata:   parseCustomMetadata(req.CustomMetadataJSON),
		CreatedBy:        req.UserID,
	}

	s.attachXMLSidecar(&file, req.XMLContent, req.TenantID)

	if err := s.db.Create(&file).Error; err != nil {
		s.audit.Record(AccessEntry{
			FileID:       fileID,
			UserID:       req.UserID,
			AccessType:   database.AccessTypeUpload,
			IPAddress:    req.IPAddress,
			UserAgent:    req.UserAgent,
			Success:      false,
			ErrorMessage: err.Error(),
		})
		return nil, apperrors.Wrap(apperrors.ErrFileUpload, err)
	}

	s.audit.Record(AccessEntry{
		FileID:     fileID,
		UserID:     req.UserID,
		AccessType: database.AccessTypeUpload,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
		Success:    true,
	})

	logger.Infof("文件上传完成，文件ID: %s，存储路径: %s", fileID, storagePath)
	return &file, nil
}

// attachXMLSidecar 处理随附的XML文档
// 解析失败时既不记录元数据也不持久化文档，存储失败只丢失存储路径
// 两类失败都只记录日志，文件记录照常提交
func (s *fileService) attachXMLSidecar(file *database.File, xmlContent []byte, tenantID string) {
	if len(xmlContent) == 0 {
		return
	}

	result := metadata.Parse(xmlContent)
	if result.Ignored {
		logger.Warnf("XML附属文档被忽略，文件ID: %s，原因: %s", file.FileID, result.Reason)
		return
	}
	file.XMLMetadata = result.Metadata

	xmlName := file.FileID + xmlSidecarSuffix
	xmlPath, err := s.storage.Upload(xmlName, xmlContent, map[string]string{
		"content-type": "application/xml",
	}, tenantID)
	if err != nil {
		logger.Errorf("XML附属文档存储失败，文件ID: %s: %v", file.FileID, err)
		return
	}
	file.XMLFilePath = xmlPath
}

// Query 按条件查询文件
// 租户过滤和软删除排除强制生效，结果按创建时间倒序
// Limit未给定时取默认值，显式给定0返回空页，总数照常计算
func (s *fileService) Query(query *FileQuery) (*FileQueryResult, error) {
	limit := defaultQueryLimit
	if query.Limit != nil {
		limit = *query.Limit
	}
	if limit < 0 || limit > maxQueryLimit {
		return nil, apperrors.NewWithDetails(apperrors.ErrValidation,
			fmt.Sprintf("limit must be between 0 and %d", maxQueryLimit))
	}
	if query.Offset < 0 {
		return nil, apperrors.NewWithDetails(apperrors.ErrValidation, "offset must not be negative")
	}

	db := s.db.Model(&database.File{}).
		Where("tenant_id = ?", query.TenantID).
		Where("is_deleted = ?", false)

	if query.Filename != "" {
		db = db.Where("LOWER(original_filename) LIKE ?", "%"+strings.ToLower(query.Filename)+"%")
	}
	if query.ContentType != "" {
		db = db.Where("content_type = ?", query.ContentType)
	}
	for _, tag := range query.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		// 标签列以JSON数组文本持久化，按数组元素精确匹配
		db = db.Where("EXISTS (SELECT 1 FROM json_each(files.tags) WHERE json_each.value = ?)", tag)
	}
	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}
	if query.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *query.CreatedAfter)
	}
	if query.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *query.CreatedBefore)
	}
	if query.MinSize != nil {
		db = db.Where("file_size >= ?", *query.MinSize)
	}
	if query.MaxSize != nil {
		db = db.Where("file_size <= ?", *query.MaxSize)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, err)
	}

	var files []database.File
	err := db.Order("created_at DESC").
		Limit(limit).
		Offset(query.Offset).
		Find(&files).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, err)
	}

	return &FileQueryResult{
		Files:  files,
		Total:  total,
		Limit:  limit,
		Offset: query.Offset,
	}, nil
}

// GetByID 获取单个文件记录
// 软删除文件和其他租户的文件一律视为不存在
func (s *fileService) GetByID(tenantID, fileID string) (*database.File, error) {
	var file database.File
	err := s.db.Where("file_id = ? AND tenant_id = ? AND is_deleted = ?", fileID, tenantID, false).
		First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrFileNotFound)
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabase, err)
	}
	return &file, nil
}

// Download 下载文件内容
// 成功和失败的尝试都写入审计，失败行带错误信息
func (s *fileService) Download(tenantID, fileID string, access AccessContext) (*database.File, []byte, error) {
	file, err := s.GetByID(tenantID, fileID)
	if err != nil {
		s.audit.Record(AccessEntry{
			FileID:       fileID,
			UserID:       access.UserID,
			AccessType:   database.AccessTypeDownload,
			IPAddress:    access.IPAddress,
			UserAgent:    access.UserAgent,
			Success:      false,
			ErrorMessage: err.Error(),
		})
		return nil, nil, err
	}

	content, err := s.storage.Download(file.StoragePath, tenantID)
	if err != nil {
		s.audit.Record(AccessEntry{
			FileID:       fileID,
			UserID:       access.UserID,
			AccessType:   database.AccessTypeDownload,
			IPAddress:    access.IPAddress,
			UserAgent:    access.UserAgent,
			Success:      false,
			ErrorMessage: err.Error(),
		})
		return nil, nil, err
	}

	s.audit.Record(AccessEntry{
		FileID:     fileID,
		UserID:     access.UserID,
		AccessType: database.AccessTypeDownload,
		IPAddress:  access.IPAddress,
		UserAgent:  access.UserAgent,
		Success:    true,
	})

	return file, content, nil
}

// Update 更新文件的可变字段
// 并发更新采用后写覆盖，不做乐观锁
func (s *fileService) Update(tenantID, fileID string, req *UpdateRequest) (*database.File, error) {
	file, err := s.GetByID(tenantID, fileID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Filename != nil {
		name := strings.TrimSpace(*req.Filename)
		if name == "" {
			return nil, apperrors.New(apperrors.ErrFilenameRequired)
		}
		updates["original_filename"] = name
	}
	if req.Tags != nil {
		updates["tags"] = database.StringList(*req.Tags)
	}
	if req.CustomMetadata != nil {
		updates["custom_metadata"] = database.JSONMap(*req.CustomMetadata)
	}

	if len(updates) == 0 {
		return file, nil
	}

	if err := s.db.Model(file).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, err)
	}

	return s.GetByID(tenantID, fileID)
}

// SoftDelete 软删除文件
// 仅设置删除标记，数据库记录和存储对象都保留
func (s *fileService) SoftDelete(tenantID, fileID string, access AccessContext) error {
	file, err := s.GetByID(tenantID, fileID)
	if err != nil {
		return err
	}

	if err := s.db.Model(file).Update("is_deleted", true).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, err)
	}

	s.audit.Record(AccessEntry{
		FileID:     fileID,
		UserID:     access.UserID,
		AccessType: database.AccessTypeDelete,
		IPAddress:  access.IPAddress,
		UserAgent:  access.UserAgent,
		Success:    true,
	})

	logger.Infof("文件已软删除，文件ID: %s，租户: %s", fileID, tenantID)
	return nil
}

// extensionAllowed 判断扩展名是否在允许列表内
// 列表包含"*"时不限制
func (s *fileService) extensionAllowed(ext string) bool {
	if len(s.fileCfg.AllowedExtensions) == 0 {
		return true
	}
	for _, allowed := range s.fileCfg.AllowedExtensions {
		if allowed == "*" || strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}

// resolveContentType 确定文件的内容类型
// 优先级：客户端声明 > 扩展名推断 > 内容嗅探
func resolveContentType(declared, ext string, content []byte) string {
	if declared != "" {
		return declared
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return http.DetectContentType(content)
}

// splitTags 解析逗号分隔的标签列表
// 空白标签被丢弃
func splitTags(raw string) database.StringList {
	tags := database.StringList{}
	for _, tag := range strings.Split(raw, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// parseCustomMetadata 解析自定义元数据JSON
// 非法JSON静默降级为空映射
func parseCustomMetadata(raw string) database.JSONMap {
	if strings.TrimSpace(raw) == "" {
		return database.JSONMap{}
	}
	var m database.JSONMap
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		logger.Warnf("自定义元数据JSON解析失败，已忽略: %v", err)
		return database.JSONMap{}
	}
	if m == nil {
		m = database.JSONMap{}
	}
	return m
}
