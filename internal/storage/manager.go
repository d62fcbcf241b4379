package storage

import (
	"sync"

	"github.com/weiwangfds/contentvault/config"
	apperrors "github.com/weiwangfds/contentvault/internal/errors"
	"github.com/weiwangfds/contentvault/internal/logger"
)

// Manager 存储管理器
// 持有进程内唯一激活的存储提供商，未初始化时所有操作立即失败
// 提供商错误在此统一转换为应用错误码
type Manager struct {
	mu       sync.RWMutex
	cfg      config.StorageConfig
	provider Provider
}

// NewManager 创建存储管理器
// 创建后必须调用Init才能使用
func NewManager(cfg config.StorageConfig) *Manager {
	return &Manager{cfg: cfg}
}

// Init 初始化存储提供商并测试连通性
// 连通性测试失败视为初始化失败，服务应拒绝启动
func (m *Manager) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	logger.Infof("正在初始化存储提供商，类型: %s", m.cfg.Type)

	provider, err := NewProvider(m.cfg)
	if err != nil {
		if err == ErrUnsupportedProvider {
			return apperrors.NewWithDetails(apperrors.ErrStorageNotSupported, m.cfg.Type)
		}
		return apperrors.Wrap(apperrors.ErrStorage, err)
	}

	if err := provider.TestConnection(); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, err)
	}

	m.provider = provider
	logger.Infof("存储提供商初始化完成: %s", m.cfg.Type)
	return nil
}

// Close 释放存储提供商
// 关闭后再次使用需重新Init
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.provider = nil
}

// Type 当前激活的存储类型
func (m *Manager) Type() string {
	return m.cfg.Type
}

// Initialized 管理器是否已完成初始化
func (m *Manager) Initialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.provider != nil
}

// active 获取已初始化的提供商
func (m *Manager) active() (Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.provider == nil {
		return nil, apperrors.New(apperrors.ErrStorageNotInitialized)
	}
	return m.provider, nil
}

// Upload 上传对象
func (m *Manager) Upload(filePath string, content []byte, metadata map[string]string, tenantID string) (string, error) {
	provider, err := m.active()
	if err != nil {
		return "", err
	}
	path, err := provider.Upload(filePath, content, metadata, tenantID)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return path, nil
}

// Download 下载对象内容
func (m *Manager) Download(filePath string, tenantID string) ([]byte, error) {
	provider, err := m.active()
	if err != nil {
		return nil, err
	}
	content, err := provider.Download(filePath, tenantID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return content, nil
}

// Delete 删除对象，对象不存在时返回false
func (m *Manager) Delete(filePath string, tenantID string) (bool, error) {
	provider, err := m.active()
	if err != nil {
		return false, err
	}
	deleted, err := provider.Delete(filePath, tenantID)
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return deleted, nil
}

// Exists 检查对象是否存在
// 未初始化时视为不存在
func (m *Manager) Exists(filePath string, tenantID string) bool {
	provider, err := m.active()
	if err != nil {
		return false
	}
	return provider.Exists(filePath, tenantID)
}

// GetMetadata 获取对象元信息
func (m *Manager) GetMetadata(filePath string, tenantID string) (*ObjectInfo, error) {
	provider, err := m.active()
	if err != nil {
		return nil, err
	}
	info, err := provider.GetMetadata(filePath, tenantID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return info, nil
}
