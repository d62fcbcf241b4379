package handler

import (
	"bytes"
	"fmt"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/weiwangfds/contentvault/internal/middleware"
	"github.com/weiwangfds/contentvault/internal/response"
	"github.com/weiwangfds/contentvault/internal/service"
)

// ShareHandler 文件分享处理器
// @Description 文件分享相关的HTTP处理器
type ShareHandler struct {
	shareService service.ShareService
}

// NewShareHandler 创建文件分享处理器实例
func NewShareHandler(shareService service.ShareService) *ShareHandler {
	return &ShareHandler{shareService: shareService}
}

// CreateShare 创建分享
// @Summary 创建文件分享
// @Description 为指定文件创建分享凭证
// @Tags 文件分享
// @Accept json
// @Produce json
// @Param id path string true "文件ID"
// @Success 201 {object} response.Response "分享信息"
// @Failure 404 {object} response.Response "文件不存在"
// @Router /api/v1/files/{id}/shares [post]
func (h *ShareHandler) CreateShare(c *gin.Context) {
	var req service.CreateShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求体格式无效")
		return
	}

	tenant, _ := middleware.CurrentTenant(c)
	userID := ""
	if user, ok := middleware.CurrentUser(c); ok {
		userID = user.UserID
	}

	share, err := h.shareService.Create(tenant.TenantID, c.Param("id"), userID, &req)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Created(c, share)
}

// ListShares 列出文件分享
// @Summary 列出文件分享
// @Description 列出指定文件的全部分享凭证
// @Tags 文件分享
// @Produce json
// @Param id path string true "文件ID"
// @Success 200 {object} response.Response "分享列表"
// @Router /api/v1/files/{id}/shares [get]
func (h *ShareHandler) ListShares(c *gin.Context) {
	tenant, _ := middleware.CurrentTenant(c)

	shares, err := h.shareService.ListByFile(tenant.TenantID, c.Param("id"))
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, shares)
}

// RevokeShare 停用分享
// @Summary 停用分享
// @Description 停用分享凭证，已停用的分享拒绝一切访问
// @Tags 文件分享
// @Produce json
// @Param share_id path string true "分享ID"
// @Success 200 {object} response.Response "停用成功"
// @Failure 404 {object} response.Response "分享不存在"
// @Router /api/v1/shares/{share_id} [delete]
func (h *ShareHandler) RevokeShare(c *gin.Context) {
	tenant, _ := middleware.CurrentTenant(c)
	shareID := c.Param("share_id")

	if err := h.shareService.Revoke(tenant.TenantID, shareID); err != nil {
		response.AppError(c, err)
		return
	}

	response.SuccessWithMessage(c, "分享已停用", gin.H{"share_id": shareID})
}

// GetSharedMetadata 凭令牌查看文件元数据
// @Summary 查看分享文件元数据
// @Description 凭分享令牌查看文件元数据，无需登录
// @Tags 文件分享
// @Produce json
// @Param token path string true "分享令牌"
// @Param password query string false "分享密码"
// @Success 200 {object} response.Response "文件元数据"
// @Failure 403 {object} response.Response "分享无效或已失效"
// @Router /api/v1/public/shares/{token} [get]
func (h *ShareHandler) GetSharedMetadata(c *gin.Context) {
	file, share, err := h.shareService.ResolveMetadata(c.Param("token"), c.Query("password"))
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, gin.H{
		"file":  file,
		"share": share,
	})
}

// DownloadShared 凭令牌下载文件
// @Summary 下载分享文件
// @Description 凭分享令牌下载文件内容，无需登录，计入下载次数
// @Tags 文件分享
// @Produce application/octet-stream
// @Param token path string true "分享令牌"
// @Param password query string false "分享密码"
// @Success 200 {file} binary "文件内容"
// @Failure 403 {object} response.Response "分享无效或已失效"
// @Router /api/v1/public/shares/{token}/download [get]
func (h *ShareHandler) DownloadShared(c *gin.Context) {
	file, content, err := h.shareService.ResolveDownload(c.Param("token"), c.Query("password"), service.AccessContext{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		response.AppError(c, err)
		return
	}

	disposition := fmt.Sprintf(`attachment; filename="%s"`, url.PathEscape(file.OriginalFilename))
	c.DataFromReader(200, file.FileSize, file.ContentType, bytes.NewReader(content), map[string]string{
		"Content-Disposition": disposition,
	})
}
