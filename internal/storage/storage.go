// Package storage 提供可插拔的存储后端抽象
// 定义统一的五操作二进制对象契约，本地文件系统和各对象存储服务商
// 实现同一接口，租户隔离通过键名前缀在所有实现中统一保证
package storage

import (
	"errors"
	"path"

	"github.com/weiwangfds/contentvault/config"
)

// ErrUnsupportedProvider 配置了未知的存储类型
var ErrUnsupportedProvider = errors.New("unsupported storage provider type")

// Provider 存储提供商接口
// 所有实现必须保证：
//   - Upload 对同一路径幂等覆盖
//   - Delete 对不存在的对象返回false而非错误
//   - Exists 永不返回错误，提供商故障视为不存在
//   - 每个物理键都带租户前缀，不同租户即使逻辑文件名相同也不会冲突
type Provider interface {
	// Upload 上传对象，返回后续检索使用的规范路径
	Upload(filePath string, content []byte, metadata map[string]string, tenantID string) (string, error)

	// Download 下载对象内容
	Download(filePath string, tenantID string) ([]byte, error)

	// Delete 删除对象，对象不存在时返回false
	Delete(filePath string, tenantID string) (bool, error)

	// Exists 检查对象是否存在
	Exists(filePath string, tenantID string) bool

	// GetMetadata 获取对象元信息
	GetMetadata(filePath string, tenantID string) (*ObjectInfo, error)

	// TestConnection 测试后端连通性
	TestConnection() error
}

// ObjectInfo 对象元信息
type ObjectInfo struct {
	Key          string            `json:"key"`            // 对象键名
	Size         int64             `json:"size"`           // 对象大小，单位为字节
	LastModified string            `json:"last_modified"`  // 最后修改时间
	ContentType  string            `json:"content_type"`   // 内容类型
	ETag         string            `json:"etag,omitempty"` // ETag，本地存储无此字段
	Metadata     map[string]string `json:"metadata"`       // 上传时附加的自定义元数据
}

// objectKey 构建带租户前缀的对象键
// 租户隔离的唯一实现点：所有提供商通过该前缀划分命名空间
func objectKey(filePath, tenantID string) string {
	if tenantID == "" {
		return filePath
	}
	return path.Join(tenantID, filePath)
}

// NewProvider 根据配置创建存储提供商实例
// 每个进程只激活一个提供商，由storage.type配置项决定
func NewProvider(cfg config.StorageConfig) (Provider, error) {
	switch cfg.Type {
	case "local":
		return NewLocalProvider(cfg.LocalPath)
	case "aliyun":
		return NewAliyunProvider(cfg.Aliyun)
	case "tencent":
		return NewTencentProvider(cfg.Tencent)
	case "qiniu":
		return NewQiniuProvider(cfg.Qiniu)
	case "s3":
		return NewS3Provider(cfg.S3)
	default:
		return nil, ErrUnsupportedProvider
	}
}
