package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/weiwangfds/contentvault/internal/response"
	"github.com/weiwangfds/contentvault/internal/service"
)

// TenantHandler 租户管理处理器
// @Description 租户管理相关的HTTP处理器，仅管理员可用
type TenantHandler struct {
	tenantService service.TenantService
}

// NewTenantHandler 创建租户管理处理器实例
func NewTenantHandler(tenantService service.TenantService) *TenantHandler {
	return &TenantHandler{tenantService: tenantService}
}

// CreateTenant 创建租户
// @Summary 创建租户
// @Tags 租户管理
// @Accept json
// @Produce json
// @Success 201 {object} response.Response "租户信息"
// @Router /api/v1/tenants [post]
func (h *TenantHandler) CreateTenant(c *gin.Context) {
	var req service.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求体格式无效")
		return
	}

	tenant, err := h.tenantService.Create(&req)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Created(c, tenant)
}

// ListTenants 列出全部租户
// @Summary 列出全部租户
// @Tags 租户管理
// @Produce json
// @Success 200 {object} response.Response "租户列表"
// @Router /api/v1/tenants [get]
func (h *TenantHandler) ListTenants(c *gin.Context) {
	tenants, err := h.tenantService.List()
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, tenants)
}

// GetTenant 获取租户信息
// @Summary 获取租户信息
// @Tags 租户管理
// @Produce json
// @Param id path string true "租户ID"
// @Success 200 {object} response.Response "租户信息"
// @Failure 404 {object} response.Response "租户不存在"
// @Router /api/v1/tenants/{id} [get]
func (h *TenantHandler) GetTenant(c *gin.Context) {
	tenant, err := h.tenantService.Get(c.Param("id"))
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, tenant)
}

// UpdateTenant 更新租户
// @Summary 更新租户
// @Tags 租户管理
// @Accept json
// @Produce json
// @Param id path string true "租户ID"
// @Success 200 {object} response.Response "更新后的租户信息"
// @Failure 404 {object} response.Response "租户不存在"
// @Router /api/v1/tenants/{id} [put]
func (h *TenantHandler) UpdateTenant(c *gin.Context) {
	var req service.UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求体格式无效")
		return
	}

	tenant, err := h.tenantService.Update(c.Param("id"), &req)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, tenant)
}
