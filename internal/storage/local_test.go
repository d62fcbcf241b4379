// 本地存储提供商和存储管理器的单元测试
package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiwangfds/contentvault/config"
	apperrors "github.com/weiwangfds/contentvault/internal/errors"
)

// TestLocalProviderRoundtrip 测试本地存储的写读删流程
func TestLocalProviderRoundtrip(t *testing.T) {
	provider, err := NewLocalProvider(t.TempDir())
	require.NoError(t, err)

	content := []byte("hello contentvault")
	path, err := provider.Upload("abc123.txt", content, map[string]string{
		"content-type": "text/plain",
		"owner":        "tester",
	}, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, "abc123.txt", path)

	// 下载内容与上传一致
	got, err := provider.Download("abc123.txt", "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// 存在性检查
	assert.True(t, provider.Exists("abc123.txt", "tenant-a"))
	assert.False(t, provider.Exists("abc123.txt", "tenant-b"))

	// 元信息
	info, err := provider.GetMetadata("abc123.txt", "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), info.Size)
	assert.Equal(t, "tester", info.Metadata["owner"])

	// 删除后不再存在
	deleted, err := provider.Delete("abc123.txt", "tenant-a")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.False(t, provider.Exists("abc123.txt", "tenant-a"))
}

// TestLocalProviderDeleteMissing 测试删除不存在的对象返回false而非错误
func TestLocalProviderDeleteMissing(t *testing.T) {
	provider, err := NewLocalProvider(t.TempDir())
	require.NoError(t, err)

	deleted, err := provider.Delete("missing.bin", "tenant-a")
	require.NoError(t, err)
	assert.False(t, deleted)
}

// TestLocalProviderTenantIsolation 测试不同租户的同名对象互不干扰
func TestLocalProviderTenantIsolation(t *testing.T) {
	provider, err := NewLocalProvider(t.TempDir())
	require.NoError(t, err)

	_, err = provider.Upload("same.txt", []byte("from tenant a"), nil, "tenant-a")
	require.NoError(t, err)
	_, err = provider.Upload("same.txt", []byte("from tenant b"), nil, "tenant-b")
	require.NoError(t, err)

	gotA, err := provider.Download("same.txt", "tenant-a")
	require.NoError(t, err)
	gotB, err := provider.Download("same.txt", "tenant-b")
	require.NoError(t, err)
	assert.Equal(t, []byte("from tenant a"), gotA)
	assert.Equal(t, []byte("from tenant b"), gotB)
}

// TestManagerRequiresInit 测试未初始化的管理器拒绝所有操作
func TestManagerRequiresInit(t *testing.T) {
	manager := NewManager(config.StorageConfig{Type: "local", LocalPath: t.TempDir()})

	_, err := manager.Upload("a.txt", []byte("x"), nil, "t1")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrStorageNotInitialized))

	_, err = manager.Download("a.txt", "t1")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrStorageNotInitialized))

	_, err = manager.Delete("a.txt", "t1")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrStorageNotInitialized))

	_, err = manager.GetMetadata("a.txt", "t1")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrStorageNotInitialized))

	// 未初始化时存在性检查视为不存在
	assert.False(t, manager.Exists("a.txt", "t1"))
	assert.False(t, manager.Initialized())
}

// TestManagerLifecycle 测试管理器初始化、使用和关闭
func TestManagerLifecycle(t *testing.T) {
	dir := t.TempDir()
	manager := NewManager(config.StorageConfig{Type: "local", LocalPath: dir})
	require.NoError(t, manager.Init())
	assert.True(t, manager.Initialized())
	assert.Equal(t, "local", manager.Type())

	path, err := manager.Upload("doc.pdf", []byte("%PDF-1.4"), map[string]string{
		"content-type": "application/pdf",
	}, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, "doc.pdf", path)

	// 物理键带租户前缀
	assert.FileExists(t, filepath.Join(dir, "tenant-a", "doc.pdf"))

	got, err := manager.Download("doc.pdf", "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), got)

	// 关闭后恢复到未初始化状态
	manager.Close()
	_, err = manager.Download("doc.pdf", "tenant-a")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrStorageNotInitialized))
}

// TestManagerUnsupportedType 测试未知存储类型初始化失败
func TestManagerUnsupportedType(t *testing.T) {
	manager := NewManager(config.StorageConfig{Type: "ftp"})
	err := manager.Init()
	assert.True(t, apperrors.IsCode(err, apperrors.ErrStorageNotSupported))
}
