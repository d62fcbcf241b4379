// 文件生命周期服务的单元测试
package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/weiwangfds/contentvault/config"
	"github.com/weiwangfds/contentvault/internal/database"
	apperrors "github.com/weiwangfds/contentvault/internal/errors"
	"github.com/weiwangfds/contentvault/internal/storage"
)

// setupTestDB 设置内存测试数据库
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// setupStorageManager 设置基于临时目录的存储管理器
func setupStorageManager(t *testing.T) *storage.Manager {
	manager := storage.NewManager(config.StorageConfig{
		Type:      "local",
		LocalPath: t.TempDir(),
	})
	require.NoError(t, manager.Init())
	return manager
}

// setupFileService 组装文件服务及其依赖
func setupFileService(t *testing.T) (FileService, *storage.Manager, *gorm.DB) {
	db := setupTestDB(t)
	manager := setupStorageManager(t)
	audit := NewAuditService(db)
	fileService := NewFileService(db, manager, audit, config.FileConfig{
		MaxFileSize:       10 * 1024 * 1024,
		AllowedExtensions: []string{"*"},
	})
	return fileService, manager, db
}

// uploadTestFile 上传一个测试文件
func uploadTestFile(t *testing.T, svc FileService, tenantID, filename string, content []byte) *database.File {
	file, err := svc.Upload(&UploadRequest{
		TenantID: tenantID,
		UserID:   "user-1",
		Filename: filename,
		Content:  content,
	})
	require.NoError(t, err)
	return file
}

// countAccess 统计指定类型的审计记录数
func countAccess(t *testing.T, db *gorm.DB, fileID, accessType string, success bool) int64 {
	var count int64
	err := db.Model(&database.FileAccess{}).
		Where("file_id = ? AND access_type = ? AND success = ?", fileID, accessType, success).
		Count(&count).Error
	require.NoError(t, err)
	return count
}

// TestUploadRoundtrip 测试上传下载全流程
func TestUploadRoundtrip(t *testing.T) {
	svc, manager, db := setupFileService(t)

	content := []byte("%PDF-1.4 annual report")
	file, err := svc.Upload(&UploadRequest{
		TenantID:            "tenant-a",
		UserID:              "user-1",
		Filename:            "report.pdf",
		DeclaredContentType: "application/pdf",
		Content:             content,
		Tags:                "finance, 2024 , ",
		CustomMetadataJSON:  `{"department":"accounting"}`,
	})
	require.NoError(t, err)

	// 记录字段
	assert.NotEmpty(t, file.FileID)
	assert.Equal(t, "report.pdf", file.OriginalFilename)
	assert.Equal(t, file.FileID+".pdf", file.Filename)
	assert.Equal(t, int64(len(content)), file.FileSize)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.Equal(t, database.FileStatusUploaded, file.Status)
	assert.Equal(t, database.StringList{"finance", "2024"}, file.Tags)
	assert.Equal(t, "accounting", file.CustomMetadata["department"])

	// 内容哈希
	sum := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(sum[:]), file.FileHash)

	// 存储对象落在租户前缀下
	assert.True(t, manager.Exists(file.StoragePath, "tenant-a"))
	assert.False(t, manager.Exists(file.StoragePath, "tenant-b"))

	// 下载内容一致
	got, content2, err := svc.Download("tenant-a", file.FileID, AccessContext{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, file.FileID, got.FileID)
	assert.Equal(t, content, content2)

	// 上传和下载各有一条成功审计
	assert.Equal(t, int64(1), countAccess(t, db, file.FileID, database.AccessTypeUpload, true))
	assert.Equal(t, int64(1), countAccess(t, db, file.FileID, database.AccessTypeDownload, true))
}

// TestUploadRequiresFilename 测试文件名缺失被拒绝
func TestUploadRequiresFilename(t *testing.T) {
	svc, _, _ := setupFileService(t)

	for _, filename := range []string{"", "   "} {
		_, err := svc.Upload(&UploadRequest{
			TenantID: "tenant-a",
			Filename: filename,
			Content:  []byte("data"),
		})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrFilenameRequired))
	}
}

// TestUploadSizeLimit 测试超出大小限制被拒绝
func TestUploadSizeLimit(t *testing.T) {
	db := setupTestDB(t)
	manager := setupStorageManager(t)
	svc := NewFileService(db, manager, NewAuditService(db), config.FileConfig{
		MaxFileSize:       8,
		AllowedExtensions: []string{"*"},
	})

	_, err := svc.Upload(&UploadRequest{
		TenantID: "tenant-a",
		Filename: "big.bin",
		Content:  []byte("123456789"),
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrLimitExceeded))
}

// TestUploadInvalidCustomMetadata 测试非法自定义元数据JSON被静默忽略
func TestUploadInvalidCustomMetadata(t *testing.T) {
	svc, _, _ := setupFileService(t)

	file, err := svc.Upload(&UploadRequest{
		TenantID:           "tenant-a",
		Filename:           "note.txt",
		Content:            []byte("text"),
		CustomMetadataJSON: "{not valid json",
	})
	require.NoError(t, err)
	assert.Equal(t, database.JSONMap{}, file.CustomMetadata)
}

// TestUploadXMLSidecar 测试XML附属文档的解析和隔离失败
func TestUploadXMLSidecar(t *testing.T) {
	svc, manager, _ := setupFileService(t)

	t.Run("合法XML入库", func(t *testing.T) {
		file, err := svc.Upload(&UploadRequest{
			TenantID:   "tenant-a",
			Filename:   "paper.txt",
			Content:    []byte("body"),
			XMLContent: []byte(`<meta><subject>physics</subject></meta>`),
		})
		require.NoError(t, err)
		require.Contains(t, file.XMLMetadata, "meta")
		assert.Equal(t, file.FileID+"_metadata.xml", file.XMLFilePath)
		assert.True(t, manager.Exists(file.XMLFilePath, "tenant-a"))
	})

	t.Run("非法XML不阻断上传", func(t *testing.T) {
		file, err := svc.Upload(&UploadRequest{
			TenantID:   "tenant-a",
			Filename:   "broken.txt",
			Content:    []byte("body"),
			XMLContent: []byte(`<meta><unclosed`),
		})
		require.NoError(t, err)
		assert.Nil(t, file.XMLMetadata)
		// 解析失败的文档不落存储
		assert.Empty(t, file.XMLFilePath)
		assert.False(t, manager.Exists(file.FileID+"_metadata.xml", "tenant-a"))

		// 主文件照常可下载且内容一致
		_, content, err := svc.Download("tenant-a", file.FileID, AccessContext{UserID: "user-1"})
		require.NoError(t, err)
		assert.Equal(t, []byte("body"), content)
	})
}

// TestQueryFilters 测试查询条件组合
func TestQueryFilters(t *testing.T) {
	svc, _, _ := setupFileService(t)

	f1, err := svc.Upload(&UploadRequest{
		TenantID:            "tenant-a",
		Filename:            "Annual-Report.pdf",
		DeclaredContentType: "application/pdf",
		Content:             []byte("pdf content here"),
		Tags:                "finance,annual",
	})
	require.NoError(t, err)

	_, err = svc.Upload(&UploadRequest{
		TenantID:            "tenant-a",
		Filename:            "photo.png",
		DeclaredContentType: "image/png",
		Content:             []byte("png"),
		Tags:                "media",
	})
	require.NoError(t, err)

	// 其他租户的同名文件不可见
	_, err = svc.Upload(&UploadRequest{
		TenantID:            "tenant-b",
		Filename:            "Annual-Report.pdf",
		DeclaredContentType: "application/pdf",
		Content:             []byte("other tenant"),
	})
	require.NoError(t, err)

	t.Run("文件名不区分大小写", func(t *testing.T) {
		result, err := svc.Query(&FileQuery{TenantID: "tenant-a", Filename: "annual"})
		require.NoError(t, err)
		require.Equal(t, int64(1), result.Total)
		assert.Equal(t, f1.FileID, result.Files[0].FileID)
	})

	t.Run("内容类型精确匹配", func(t *testing.T) {
		result, err := svc.Query(&FileQuery{TenantID: "tenant-a", ContentType: "image/png"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Total)
	})

	t.Run("标签包含全部给定标签", func(t *testing.T) {
		result, err := svc.Query(&FileQuery{TenantID: "tenant-a", Tags: []string{"finance", "annual"}})
		require.NoError(t, err)
		require.Equal(t, int64(1), result.Total)
		assert.Equal(t, f1.FileID, result.Files[0].FileID)

		result, err = svc.Query(&FileQuery{TenantID: "tenant-a", Tags: []string{"finance", "media"}})
		require.NoError(t, err)
		assert.Equal(t, int64(0), result.Total)
	})

	t.Run("标签中的通配符不生效", func(t *testing.T) {
		result, err := svc.Query(&FileQuery{TenantID: "tenant-a", Tags: []string{"fin%"}})
		require.NoError(t, err)
		assert.Equal(t, int64(0), result.Total)

		result, err = svc.Query(&FileQuery{TenantID: "tenant-a", Tags: []string{"f_nance"}})
		require.NoError(t, err)
		assert.Equal(t, int64(0), result.Total)
	})

	t.Run("含引号的标签按整体匹配", func(t *testing.T) {
		_, err := svc.Upload(&UploadRequest{
			TenantID: "tenant-a",
			Filename: "quoted.txt",
			Content:  []byte("quoted"),
			Tags:     `say"cheese`,
		})
		require.NoError(t, err)

		// 部分子串不命中，完整标签命中
		result, err := svc.Query(&FileQuery{TenantID: "tenant-a", Tags: []string{"cheese"}})
		require.NoError(t, err)
		assert.Equal(t, int64(0), result.Total)

		result, err = svc.Query(&FileQuery{TenantID: "tenant-a", Tags: []string{`say"cheese`}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Total)
	})

	t.Run("大小范围", func(t *testing.T) {
		min := int64(10)
		result, err := svc.Query(&FileQuery{TenantID: "tenant-a", MinSize: &min})
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Total)
	})

	t.Run("租户隔离", func(t *testing.T) {
		result, err := svc.Query(&FileQuery{TenantID: "tenant-b"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Total)
	})
}

// TestQueryPagination 测试分页和排序
func TestQueryPagination(t *testing.T) {
	svc, _, db := setupFileService(t)

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 5; i++ {
		file := uploadTestFile(t, svc, "tenant-a", fmt.Sprintf("doc-%d.txt", i), []byte(fmt.Sprintf("content %d", i)))
		// 固定创建时间保证排序可断言
		require.NoError(t, db.Model(&database.File{}).
			Where("file_id = ?", file.FileID).
			Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
		ids = append(ids, file.FileID)
	}

	t.Run("总数不随分页变化", func(t *testing.T) {
		two := 2
		result, err := svc.Query(&FileQuery{TenantID: "tenant-a", Limit: &two})
		require.NoError(t, err)
		assert.Equal(t, int64(5), result.Total)
		assert.Len(t, result.Files, 2)

		result, err = svc.Query(&FileQuery{TenantID: "tenant-a", Limit: &two, Offset: 4})
		require.NoError(t, err)
		assert.Equal(t, int64(5), result.Total)
		assert.Len(t, result.Files, 1)
	})

	t.Run("显式零返回空页", func(t *testing.T) {
		zero := 0
		result, err := svc.Query(&FileQuery{TenantID: "tenant-a", Limit: &zero})
		require.NoError(t, err)
		assert.Equal(t, int64(5), result.Total)
		assert.Empty(t, result.Files)
		assert.Equal(t, 0, result.Limit)
	})

	t.Run("按创建时间倒序", func(t *testing.T) {
		result, err := svc.Query(&FileQuery{TenantID: "tenant-a"})
		require.NoError(t, err)
		require.Len(t, result.Files, 5)
		assert.Equal(t, ids[4], result.Files[0].FileID)
		assert.Equal(t, ids[0], result.Files[4].FileID)
	})

	t.Run("默认分页大小", func(t *testing.T) {
		result, err := svc.Query(&FileQuery{TenantID: "tenant-a"})
		require.NoError(t, err)
		assert.Equal(t, 50, result.Limit)
	})

	t.Run("超出上限被拒绝", func(t *testing.T) {
		over := 1001
		_, err := svc.Query(&FileQuery{TenantID: "tenant-a", Limit: &over})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
	})

	t.Run("负分页大小被拒绝", func(t *testing.T) {
		negative := -1
		_, err := svc.Query(&FileQuery{TenantID: "tenant-a", Limit: &negative})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
	})

	t.Run("负偏移被拒绝", func(t *testing.T) {
		_, err := svc.Query(&FileQuery{TenantID: "tenant-a", Offset: -1})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
	})
}

// TestSoftDelete 测试软删除语义
func TestSoftDelete(t *testing.T) {
	svc, manager, db := setupFileService(t)

	file := uploadTestFile(t, svc, "tenant-a", "keep.txt", []byte("content"))
	require.NoError(t, svc.SoftDelete("tenant-a", file.FileID, AccessContext{UserID: "user-1"}))

	// 获取和查询均不可见
	_, err := svc.GetByID("tenant-a", file.FileID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrFileNotFound))

	result, err := svc.Query(&FileQuery{TenantID: "tenant-a"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Total)

	// 下载被拒绝且写入失败审计
	_, _, err = svc.Download("tenant-a", file.FileID, AccessContext{UserID: "user-1"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrFileNotFound))
	assert.Equal(t, int64(1), countAccess(t, db, file.FileID, database.AccessTypeDownload, false))

	// 数据库记录和存储对象均保留
	var raw database.File
	require.NoError(t, db.Where("file_id = ?", file.FileID).First(&raw).Error)
	assert.True(t, raw.IsDeleted)
	assert.True(t, manager.Exists(file.StoragePath, "tenant-a"))

	// 删除审计
	assert.Equal(t, int64(1), countAccess(t, db, file.FileID, database.AccessTypeDelete, true))
}

// TestUpdateTriState 测试更新的三态字段语义
func TestUpdateTriState(t *testing.T) {
	svc, _, _ := setupFileService(t)

	file, err := svc.Upload(&UploadRequest{
		TenantID:           "tenant-a",
		Filename:           "origin.txt",
		Content:            []byte("content"),
		Tags:               "a,b",
		CustomMetadataJSON: `{"k":"v"}`,
	})
	require.NoError(t, err)

	t.Run("未出现的字段保持不变", func(t *testing.T) {
		name := "renamed.txt"
		updated, err := svc.Update("tenant-a", file.FileID, &UpdateRequest{Filename: &name})
		require.NoError(t, err)
		assert.Equal(t, "renamed.txt", updated.OriginalFilename)
		assert.Equal(t, database.StringList{"a", "b"}, updated.Tags)
		assert.Equal(t, "v", updated.CustomMetadata["k"])
	})

	t.Run("空集合表示清空", func(t *testing.T) {
		empty := []string{}
		updated, err := svc.Update("tenant-a", file.FileID, &UpdateRequest{Tags: &empty})
		require.NoError(t, err)
		assert.Empty(t, updated.Tags)
	})

	t.Run("空文件名被拒绝", func(t *testing.T) {
		blank := "  "
		_, err := svc.Update("tenant-a", file.FileID, &UpdateRequest{Filename: &blank})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrFilenameRequired))
	})
}

// TestGetByIDTenantIsolation 测试跨租户获取被视为不存在
func TestGetByIDTenantIsolation(t *testing.T) {
	svc, _, _ := setupFileService(t)

	file := uploadTestFile(t, svc, "tenant-a", "secret.txt", []byte("secret"))

	_, err := svc.GetByID("tenant-b", file.FileID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrFileNotFound))
}
