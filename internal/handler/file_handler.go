// Package handler 提供HTTP请求处理器
package handler

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weiwangfds/contentvault/internal/middleware"
	"github.com/weiwangfds/contentvault/internal/response"
	"github.com/weiwangfds/contentvault/internal/service"
)

// FileHandler 文件处理器
// @Description 文件管理相关的HTTP处理器
type FileHandler struct {
	fileService  service.FileService
	auditService service.AuditService
}

// NewFileHandler 创建文件处理器实例
func NewFileHandler(fileService service.FileService, auditService service.AuditService) *FileHandler {
	return &FileHandler{
		fileService:  fileService,
		auditService: auditService,
	}
}

// readFormFile 读取multipart表单中的文件内容
func readFormFile(header *multipart.FileHeader) ([]byte, error) {
	src, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return io.ReadAll(src)
}

// accessContext 从请求中提取审计上下文
func accessContext(c *gin.Context) service.AccessContext {
	userID := ""
	if user, ok := middleware.CurrentUser(c); ok {
		userID = user.UserID
	}
	return service.AccessContext{
		UserID:    userID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// UploadFile 上传文件
// @Summary 上传文件
// @Description 上传单个文件，可随附XML元数据文档、标签和自定义元数据
// @Tags 文件管理
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "要上传的文件"
// @Param xml_file formData file false "随附的XML元数据文档"
// @Param tags formData string false "逗号分隔的标签列表"
// @Param custom_metadata formData string false "自定义元数据JSON"
// @Success 201 {object} response.Response "上传成功"
// @Failure 422 {object} response.Response "文件名缺失"
// @Failure 400 {object} response.Response "请求参数错误"
// @Router /api/v1/files/upload [post]
func (h *FileHandler) UploadFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "未选择文件或文件无效")
		return
	}

	content, err := readFormFile(fileHeader)
	if err != nil {
		response.InternalServerError(c, "无法读取上传的文件")
		return
	}

	var xmlContent []byte
	if xmlHeader, err := c.FormFile("xml_file"); err == nil {
		xmlContent, err = readFormFile(xmlHeader)
		if err != nil {
			response.InternalServerError(c, "无法读取XML元数据文档")
			return
		}
	}

	tenant, _ := middleware.CurrentTenant(c)
	access := accessContext(c)

	file, err := h.fileService.Upload(&service.UploadRequest{
		TenantID:            tenant.TenantID,
		UserID:              access.UserID,
		Filename:            fileHeader.Filename,
		DeclaredContentType: fileHeader.Header.Get("Content-Type"),
		Content:             content,
		XMLContent:          xmlContent,
		Tags:                c.PostForm("tags"),
		CustomMetadataJSON:  c.PostForm("custom_metadata"),
		IPAddress:           access.IPAddress,
		UserAgent:           access.UserAgent,
	})
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Created(c, file)
}

// ListFiles 查询文件列表
// @Summary 查询文件列表
// @Description 按条件分页查询当前租户下的文件
// @Tags 文件管理
// @Produce json
// @Param filename query string false "文件名子串，不区分大小写"
// @Param content_type query string false "内容类型"
// @Param tags query string false "逗号分隔的标签，文件须包含全部标签"
// @Param status query string false "文件状态"
// @Param created_after query string false "创建时间下界，RFC3339格式"
// @Param created_before query string false "创建时间上界，RFC3339格式"
// @Param min_size query int false "文件大小下界"
// @Param max_size query int false "文件大小上界"
// @Param limit query int false "分页大小，默认50，上限1000"
// @Param offset query int false "分页偏移"
// @Success 200 {object} response.Response "文件列表"
// @Router /api/v1/files [get]
func (h *FileHandler) ListFiles(c *gin.Context) {
	tenant, _ := middleware.CurrentTenant(c)

	query := &service.FileQuery{
		TenantID:    tenant.TenantID,
		Filename:    c.Query("filename"),
		ContentType: c.Query("content_type"),
		Status:      c.Query("status"),
	}

	if raw := c.Query("tags"); raw != "" {
		query.Tags = splitQueryList(raw)
	}
	if raw := c.Query("created_after"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.BadRequest(c, "created_after格式无效，应为RFC3339")
			return
		}
		query.CreatedAfter = &t
	}
	if raw := c.Query("created_before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.BadRequest(c, "created_before格式无效，应为RFC3339")
			return
		}
		query.CreatedBefore = &t
	}
	if raw := c.Query("min_size"); raw != "" {
		size, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.BadRequest(c, "min_size必须为整数")
			return
		}
		query.MinSize = &size
	}
	if raw := c.Query("max_size"); raw != "" {
		size, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.BadRequest(c, "max_size必须为整数")
			return
		}
		query.MaxSize = &size
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "limit必须为整数")
			return
		}
		query.Limit = &limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "offset必须为整数")
			return
		}
		query.Offset = offset
	}

	result, err := h.fileService.Query(query)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.SuccessWithPage(c, result.Files, result.Total, result.Limit, result.Offset)
}

// GetFile 获取文件信息
// @Summary 获取文件信息
// @Description 根据文件ID获取文件的详细信息
// @Tags 文件管理
// @Produce json
// @Param id path string true "文件ID"
// @Success 200 {object} response.Response "文件信息"
// @Failure 404 {object} response.Response "文件不存在"
// @Router /api/v1/files/{id} [get]
func (h *FileHandler) GetFile(c *gin.Context) {
	tenant, _ := middleware.CurrentTenant(c)

	file, err := h.fileService.GetByID(tenant.TenantID, c.Param("id"))
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, file)
}

// DownloadFile 下载文件
// @Summary 下载文件
// @Description 根据文件ID下载文件内容
// @Tags 文件管理
// @Produce application/octet-stream
// @Param id path string true "文件ID"
// @Success 200 {file} binary "文件内容"
// @Failure 404 {object} response.Response "文件不存在"
// @Router /api/v1/files/{id}/download [get]
func (h *FileHandler) DownloadFile(c *gin.Context) {
	tenant, _ := middleware.CurrentTenant(c)

	file, content, err := h.fileService.Download(tenant.TenantID, c.Param("id"), accessContext(c))
	if err != nil {
		response.AppError(c, err)
		return
	}

	disposition := fmt.Sprintf(`attachment; filename="%s"`, url.PathEscape(file.OriginalFilename))
	c.DataFromReader(200, file.FileSize, file.ContentType, bytes.NewReader(content), map[string]string{
		"Content-Disposition": disposition,
	})
}

// updateFileRequest 更新文件请求体
type updateFileRequest struct {
	Filename       *string                 `json:"filename"`
	Tags           *[]string               `json:"tags"`
	CustomMetadata *map[string]interface{} `json:"custom_metadata"`
}

// UpdateFile 更新文件信息
// @Summary 更新文件信息
// @Description 更新文件名、标签或自定义元数据，未出现的字段保持不变
// @Tags 文件管理
// @Accept json
// @Produce json
// @Param id path string true "文件ID"
// @Success 200 {object} response.Response "更新后的文件信息"
// @Failure 404 {object} response.Response "文件不存在"
// @Router /api/v1/files/{id} [put]
func (h *FileHandler) UpdateFile(c *gin.Context) {
	var req updateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求体格式无效")
		return
	}

	tenant, _ := middleware.CurrentTenant(c)

	file, err := h.fileService.Update(tenant.TenantID, c.Param("id"), &service.UpdateRequest{
		Filename:       req.Filename,
		Tags:           req.Tags,
		CustomMetadata: req.CustomMetadata,
	})
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, file)
}

// DeleteFile 删除文件
// @Summary 删除文件
// @Description 软删除文件，存储内容保留
// @Tags 文件管理
// @Produce json
// @Param id path string true "文件ID"
// @Success 200 {object} response.Response "删除成功"
// @Failure 404 {object} response.Response "文件不存在"
// @Router /api/v1/files/{id} [delete]
func (h *FileHandler) DeleteFile(c *gin.Context) {
	tenant, _ := middleware.CurrentTenant(c)
	fileID := c.Param("id")

	if err := h.fileService.SoftDelete(tenant.TenantID, fileID, accessContext(c)); err != nil {
		response.AppError(c, err)
		return
	}

	response.SuccessWithMessage(c, "文件已删除", gin.H{"file_id": fileID})
}

// GetFileAccessHistory 查询文件访问历史
// @Summary 查询文件访问历史
// @Description 按时间倒序返回文件的访问审计记录
// @Tags 文件管理
// @Produce json
// @Param id path string true "文件ID"
// @Param limit query int false "返回条数，默认50"
// @Success 200 {object} response.Response "访问历史"
// @Router /api/v1/files/{id}/access [get]
func (h *FileHandler) GetFileAccessHistory(c *gin.Context) {
	tenant, _ := middleware.CurrentTenant(c)
	fileID := c.Param("id")

	// 先确认文件归属当前租户
	if _, err := h.fileService.GetByID(tenant.TenantID, fileID); err != nil {
		response.AppError(c, err)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "limit必须为整数")
			return
		}
		limit = parsed
	}

	records, err := h.auditService.ListByFile(fileID, limit)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, records)
}

// splitQueryList 解析逗号分隔的查询参数
func splitQueryList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
