// 文件分享服务的单元测试
package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/weiwangfds/contentvault/internal/database"
	apperrors "github.com/weiwangfds/contentvault/internal/errors"
)

// setupShareService 组装分享服务及一个已上传的文件
func setupShareService(t *testing.T) (ShareService, FileService, *database.File, *gorm.DB) {
	fileService, manager, db := setupFileService(t)
	shareService := NewShareService(db, manager, NewAuditService(db))

	file := uploadTestFile(t, fileService, "tenant-a", "shared.txt", []byte("shared content"))
	return shareService, fileService, file, db
}

// TestShareDownloadFlow 测试分享下载全流程
func TestShareDownloadFlow(t *testing.T) {
	shareService, _, file, db := setupShareService(t)

	share, err := shareService.Create("tenant-a", file.FileID, "user-1", &CreateShareRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, share.ShareToken)
	assert.Equal(t, database.ShareTypePrivate, share.ShareType)
	assert.True(t, share.IsActive)

	got, content, err := shareService.ResolveDownload(share.ShareToken, "", AccessContext{})
	require.NoError(t, err)
	assert.Equal(t, file.FileID, got.FileID)
	assert.Equal(t, []byte("shared content"), content)

	// 下载计数递增
	var reloaded database.FileShare
	require.NoError(t, db.Where("share_id = ?", share.ShareID).First(&reloaded).Error)
	assert.Equal(t, 1, reloaded.DownloadCount)

	// 匿名下载以分享身份写入审计
	assert.Equal(t, int64(1), countAccess(t, db, file.FileID, database.AccessTypeDownload, true))
}

// TestShareFailClosed 测试各种失效条件下分享一律拒绝访问
func TestShareFailClosed(t *testing.T) {
	shareService, fileService, file, _ := setupShareService(t)

	t.Run("令牌不存在", func(t *testing.T) {
		_, _, err := shareService.ResolveDownload("no-such-token", "", AccessContext{})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrShareNotFound))
	})

	t.Run("分享被停用", func(t *testing.T) {
		share, err := shareService.Create("tenant-a", file.FileID, "user-1", &CreateShareRequest{})
		require.NoError(t, err)
		require.NoError(t, shareService.Revoke("tenant-a", share.ShareID))

		_, _, err = shareService.ResolveDownload(share.ShareToken, "", AccessContext{})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrShareForbidden))
	})

	t.Run("分享已过期", func(t *testing.T) {
		expired := time.Now().Add(-time.Hour)
		share, err := shareService.Create("tenant-a", file.FileID, "user-1", &CreateShareRequest{
			ExpiresAt: &expired,
		})
		require.NoError(t, err)

		_, _, err = shareService.ResolveDownload(share.ShareToken, "", AccessContext{})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrShareExpired))
	})

	t.Run("下载次数用尽", func(t *testing.T) {
		one := 1
		share, err := shareService.Create("tenant-a", file.FileID, "user-1", &CreateShareRequest{
			MaxDownloads: &one,
		})
		require.NoError(t, err)

		_, _, err = shareService.ResolveDownload(share.ShareToken, "", AccessContext{})
		require.NoError(t, err)

		_, _, err = shareService.ResolveDownload(share.ShareToken, "", AccessContext{})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrShareExhausted))
	})

	t.Run("密码错误", func(t *testing.T) {
		share, err := shareService.Create("tenant-a", file.FileID, "user-1", &CreateShareRequest{
			ShareType: database.ShareTypePasswordProtected,
			Password:  "correct-horse",
		})
		require.NoError(t, err)

		_, _, err = shareService.ResolveDownload(share.ShareToken, "wrong", AccessContext{})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrSharePassword))

		_, _, err = shareService.ResolveDownload(share.ShareToken, "correct-horse", AccessContext{})
		assert.NoError(t, err)
	})

	t.Run("禁止下载的分享", func(t *testing.T) {
		no := false
		share, err := shareService.Create("tenant-a", file.FileID, "user-1", &CreateShareRequest{
			CanDownload: &no,
		})
		require.NoError(t, err)

		_, _, err = shareService.ResolveDownload(share.ShareToken, "", AccessContext{})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrShareForbidden))

		// 元数据仍可查看
		_, _, err = shareService.ResolveMetadata(share.ShareToken, "")
		assert.NoError(t, err)
	})

	t.Run("禁止查看元数据的分享", func(t *testing.T) {
		no := false
		share, err := shareService.Create("tenant-a", file.FileID, "user-1", &CreateShareRequest{
			CanViewMetadata: &no,
		})
		require.NoError(t, err)

		_, _, err = shareService.ResolveMetadata(share.ShareToken, "")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrShareForbidden))
	})

	t.Run("文件被软删除后分享失效", func(t *testing.T) {
		share, err := shareService.Create("tenant-a", file.FileID, "user-1", &CreateShareRequest{})
		require.NoError(t, err)
		require.NoError(t, fileService.SoftDelete("tenant-a", file.FileID, AccessContext{UserID: "user-1"}))

		_, _, err = shareService.ResolveDownload(share.ShareToken, "", AccessContext{})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrFileNotFound))
	})
}

// TestCreateShareValidation 测试创建分享的校验
func TestCreateShareValidation(t *testing.T) {
	shareService, _, file, _ := setupShareService(t)

	t.Run("未知分享类型", func(t *testing.T) {
		_, err := shareService.Create("tenant-a", file.FileID, "user-1", &CreateShareRequest{
			ShareType: "open-bar",
		})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
	})

	t.Run("密码保护分享必须有密码", func(t *testing.T) {
		_, err := shareService.Create("tenant-a", file.FileID, "user-1", &CreateShareRequest{
			ShareType: database.ShareTypePasswordProtected,
		})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
	})

	t.Run("跨租户文件不可分享", func(t *testing.T) {
		_, err := shareService.Create("tenant-b", file.FileID, "user-1", &CreateShareRequest{})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrFileNotFound))
	})

	t.Run("不存在的文件", func(t *testing.T) {
		_, err := shareService.Create("tenant-a", "missing-id", "user-1", &CreateShareRequest{})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrFileNotFound))
	})
}
