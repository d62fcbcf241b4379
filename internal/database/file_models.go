// Package database 定义文件相关的数据库模型
// 包含文件主记录、历史版本、访问审计和分享凭证四类核心模型
package database

import (
	"time"
)

// 文件状态常量
// 当前所有上传完成的文件均停留在uploaded状态
// processing、ready、error为异步后处理预留，没有代码路径触发这些迁移
const (
	FileStatusUploaded   = "uploaded"
	FileStatusProcessing = "processing"
	FileStatusReady      = "ready"
	FileStatusError      = "error"
)

// File 文件主记录模型
// 每次上传生成全新的文件ID，内容哈希仅用于完整性校验，不做去重
// 软删除文件从所有查询、获取和下载路径中排除，但记录和存储对象均保留
type File struct {
	ID               uint       `gorm:"primarykey" json:"-"`                           // 主键ID，自增
	FileID           string     `gorm:"uniqueIndex;not null;size:50" json:"file_id"`   // 文件唯一标识符（UUID格式）
	TenantID         string     `gorm:"index;not null;size:50" json:"tenant_id"`       // 归属租户ID
	Filename         string     `gorm:"not null;size:255" json:"filename"`             // 存储文件名，由系统生成，防碰撞
	OriginalFilename string     `gorm:"not null;size:255" json:"original_filename"`    // 用户上传时的原始文件名，不可信输入
	StoragePath      string     `gorm:"not null;size:1000" json:"storage_path"`        // 文件在存储后端的完整路径
	FileSize         int64      `gorm:"not null" json:"file_size"`                     // 文件大小，单位为字节，等于实际存储内容长度
	ContentType      string     `gorm:"size:255" json:"content_type"`                  // 内容类型，优先使用声明值，否则按扩展名推断
	FileHash         string     `gorm:"size:255" json:"file_hash"`                     // 文件内容的SHA256哈希值，用于完整性校验
	Status           string     `gorm:"size:50;default:'uploaded'" json:"status"`      // 文件状态：uploaded、processing、ready、error
	IsDeleted        bool       `gorm:"index;default:false" json:"is_deleted"`         // 软删除标记
	XMLMetadata      JSONMap    `gorm:"type:text" json:"xml_metadata,omitempty"`       // XML附属文档解析结果
	XMLFilePath      string     `gorm:"size:1000" json:"xml_file_path,omitempty"`      // XML附属文档的存储路径
	Tags             StringList `gorm:"type:text" json:"tags"`                         // 文件标签集合
	CustomMetadata   JSONMap    `gorm:"type:text" json:"custom_metadata"`              // 自定义元数据键值对
	CreatedBy        string     `gorm:"size:50" json:"created_by"`                     // 上传者用户ID
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`                       // 创建时间
	UpdatedAt        time.Time  `json:"updated_at"`                                    // 最后更新时间
}

// TableName 指定File模型对应的数据库表名
func (File) TableName() string {
	return "files"
}

// FileVersion 文件历史版本模型
// 为未来的版本管理预留，当前的更新操作不会自动创建版本
// 同一文件的version_number严格递增
type FileVersion struct {
	ID                 uint      `gorm:"primarykey" json:"-"`                            // 主键ID，自增
	VersionID          string    `gorm:"uniqueIndex;not null;size:50" json:"version_id"` // 版本唯一标识符
	FileID             string    `gorm:"index;not null;size:50" json:"file_id"`          // 关联的文件ID
	VersionNumber      int       `gorm:"not null" json:"version_number"`                 // 版本号，每个文件内严格递增
	StoragePath        string    `gorm:"not null;size:1000" json:"storage_path"`         // 该版本内容的存储路径
	FileSize           int64     `gorm:"not null" json:"file_size"`                      // 该版本的文件大小
	FileHash           string    `gorm:"size:255" json:"file_hash"`                      // 该版本内容的SHA256哈希值
	ContentType        string    `gorm:"size:255" json:"content_type"`                   // 该版本的内容类型
	ChangesDescription string    `gorm:"type:text" json:"changes_description"`           // 版本变更说明
	XMLMetadata        JSONMap   `gorm:"type:text" json:"xml_metadata,omitempty"`        // 该版本的XML元数据
	XMLFilePath        string    `gorm:"size:1000" json:"xml_file_path,omitempty"`       // 该版本的XML文档存储路径
	CreatedBy          string    `gorm:"size:50" json:"created_by"`                      // 创建者用户ID
	CreatedAt          time.Time `json:"created_at"`                                     // 创建时间
}

// TableName 指定FileVersion模型对应的数据库表名
func (FileVersion) TableName() string {
	return "file_versions"
}

// 访问类型常量
const (
	AccessTypeUpload   = "upload"
	AccessTypeDownload = "download"
	AccessTypeDelete   = "delete"
	AccessTypeView     = "view"
)

// FileAccess 文件访问审计模型
// 仅追加，每次访问尝试（无论成败）写入一行，创建后永不修改
// 审计行独立于文件记录存在，文件被修改后历史审计保持不变
type FileAccess struct {
	ID           uint      `gorm:"primarykey" json:"-"`                           // 主键ID，自增
	AccessID     string    `gorm:"uniqueIndex;not null;size:50" json:"access_id"` // 审计记录唯一标识符
	FileID       string    `gorm:"index;not null;size:50" json:"file_id"`         // 被访问的文件ID
	UserID       string    `gorm:"index;size:50" json:"user_id"`                  // 发起访问的用户ID
	AccessType   string    `gorm:"not null;size:50" json:"access_type"`           // 访问类型：upload、download、delete、view
	IPAddress    string    `gorm:"size:45" json:"ip_address"`                     // 客户端IP地址
	UserAgent    string    `gorm:"type:text" json:"user_agent"`                   // 客户端User-Agent
	Success      bool      `gorm:"default:true" json:"success"`                   // 访问是否成功
	ErrorMessage string    `gorm:"type:text" json:"error_message,omitempty"`      // 失败时的错误信息
	Timestamp    time.Time `gorm:"index" json:"timestamp"`                        // 访问发生时间
}

// TableName 指定FileAccess模型对应的数据库表名
func (FileAccess) TableName() string {
	return "file_access"
}

// 分享类型常量
const (
	ShareTypePublic            = "public"
	ShareTypePrivate           = "private"
	ShareTypePasswordProtected = "password_protected"
)

// FileShare 文件分享凭证模型
// 通过分享令牌授予对单个文件的受限访问能力
// 过期、下载次数用尽或被停用的分享必须拒绝访问（fail closed）
type FileShare struct {
	ID              uint       `gorm:"primarykey" json:"-"`                              // 主键ID，自增
	ShareID         string     `gorm:"uniqueIndex;not null;size:50" json:"share_id"`     // 分享唯一标识符
	FileID          string     `gorm:"index;not null;size:50" json:"file_id"`            // 被分享的文件ID
	ShareToken      string     `gorm:"uniqueIndex;not null;size:255" json:"share_token"` // 分享令牌，能力凭证
	ShareType       string     `gorm:"size:50;default:'private'" json:"share_type"`      // 分享类型：public、private、password_protected
	PasswordHash    string     `gorm:"size:255" json:"-"`                                // 密码保护分享的密码哈希
	MaxDownloads    *int       `json:"max_downloads,omitempty"`                          // 最大下载次数，nil表示不限制
	DownloadCount   int        `gorm:"default:0" json:"download_count"`                  // 已下载次数
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`                             // 过期时间，nil表示永不过期
	CanDownload     bool       `gorm:"default:true" json:"can_download"`                 // 是否允许下载文件内容
	CanViewMetadata bool       `gorm:"default:true" json:"can_view_metadata"`            // 是否允许查看文件元数据
	IsActive        bool       `gorm:"default:true" json:"is_active"`                    // 分享是否有效
	CreatedBy       string     `gorm:"size:50" json:"created_by"`                        // 创建者用户ID
	CreatedAt       time.Time  `json:"created_at"`                                       // 创建时间
	UpdatedAt       time.Time  `json:"updated_at"`                                       // 最后更新时间
}

// TableName 指定FileShare模型对应的数据库表名
func (FileShare) TableName() string {
	return "file_shares"
}
