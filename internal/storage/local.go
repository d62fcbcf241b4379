package storage

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/weiwangfds/contentvault/internal/logger"
)

// metadataSuffix 自定义元数据附属文件的后缀
// 本地文件系统没有对象元数据能力，以JSON附属文件模拟
const metadataSuffix = ".metadata"

// LocalProvider 本地文件系统存储提供商
// 对象键直接映射为根目录下的相对路径，租户前缀体现为一级子目录
type LocalProvider struct {
	baseDir string
}

// NewLocalProvider 创建本地存储提供商
// 根目录不存在时自动创建
func NewLocalProvider(baseDir string) (*LocalProvider, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", baseDir, err)
	}
	logger.Infof("本地存储提供商已初始化，根目录: %s", baseDir)
	return &LocalProvider{baseDir: baseDir}, nil
}

// fullPath 对象键对应的磁盘绝对路径
func (p *LocalProvider) fullPath(filePath, tenantID string) string {
	return filepath.Join(p.baseDir, filepath.FromSlash(objectKey(filePath, tenantID)))
}

// Upload 写入对象内容和元数据附属文件
func (p *LocalProvider) Upload(filePath string, content []byte, metadata map[string]string, tenantID string) (string, error) {
	target := p.fullPath(filePath, tenantID)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", filePath, err)
	}
	if err := os.WriteFile(target, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file %s: %w", filePath, err)
	}

	if len(metadata) > 0 {
		data, err := json.Marshal(metadata)
		if err != nil {
			return "", fmt.Errorf("failed to marshal metadata for %s: %w", filePath, err)
		}
		if err := os.WriteFile(target+metadataSuffix, data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write metadata for %s: %w", filePath, err)
		}
	}

	logger.Debugf("本地存储写入完成: %s (%d 字节)", target, len(content))
	return filePath, nil
}

// Download 读取对象内容
func (p *LocalProvider) Download(filePath string, tenantID string) ([]byte, error) {
	content, err := os.ReadFile(p.fullPath(filePath, tenantID))
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	return content, nil
}

// Delete 删除对象及其元数据附属文件
// 对象不存在时返回false而非错误
func (p *LocalProvider) Delete(filePath string, tenantID string) (bool, error) {
	target := p.fullPath(filePath, tenantID)
	if _, err := os.Stat(target); os.IsNotExist(err) {
		return false, nil
	}
	if err := os.Remove(target); err != nil {
		return false, fmt.Errorf("failed to delete file %s: %w", filePath, err)
	}
	// 附属文件可能不存在
	_ = os.Remove(target + metadataSuffix)
	return true, nil
}

// Exists 检查对象是否存在
func (p *LocalProvider) Exists(filePath string, tenantID string) bool {
	info, err := os.Stat(p.fullPath(filePath, tenantID))
	return err == nil && !info.IsDir()
}

// GetMetadata 获取对象元信息
// 内容类型按扩展名推断，自定义元数据从附属文件读取
func (p *LocalProvider) GetMetadata(filePath string, tenantID string) (*ObjectInfo, error) {
	target := p.fullPath(filePath, tenantID)
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file %s: %w", filePath, err)
	}

	metadata := map[string]string{}
	if data, err := os.ReadFile(target + metadataSuffix); err == nil {
		if err := json.Unmarshal(data, &metadata); err != nil {
			logger.Warnf("元数据附属文件损坏，忽略: %s", target+metadataSuffix)
			metadata = map[string]string{}
		}
	}

	return &ObjectInfo{
		Key:          objectKey(filePath, tenantID),
		Size:         info.Size(),
		LastModified: info.ModTime().UTC().Format(time.RFC3339),
		ContentType:  mime.TypeByExtension(filepath.Ext(filePath)),
		Metadata:     metadata,
	}, nil
}

// TestConnection 校验根目录可写
func (p *LocalProvider) TestConnection() error {
	probe := filepath.Join(p.baseDir, ".probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("storage directory not writable: %w", err)
	}
	return os.Remove(probe)
}
