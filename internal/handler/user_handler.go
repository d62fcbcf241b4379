package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/weiwangfds/contentvault/internal/middleware"
	"github.com/weiwangfds/contentvault/internal/response"
	"github.com/weiwangfds/contentvault/internal/service"
)

// UserHandler 用户管理处理器
// @Description 用户管理相关的HTTP处理器
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler 创建用户管理处理器实例
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetCurrentUser 获取当前用户
// @Summary 获取当前登录用户信息
// @Tags 用户管理
// @Produce json
// @Success 200 {object} response.Response "用户信息"
// @Router /api/v1/users/me [get]
func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "未登录")
		return
	}
	response.Success(c, user)
}

// ListUsers 列出租户用户
// @Summary 分页列出当前租户下的激活用户
// @Tags 用户管理
// @Produce json
// @Param limit query int false "分页大小，默认50，上限1000"
// @Param offset query int false "分页偏移"
// @Success 200 {object} response.Response "用户列表"
// @Router /api/v1/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	tenant, _ := middleware.CurrentTenant(c)

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "limit必须为整数")
			return
		}
		limit = parsed
	}
	offset := 0
	if raw := c.Query("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "offset必须为整数")
			return
		}
		offset = parsed
	}

	users, err := h.userService.ListByTenant(tenant.TenantID, limit, offset)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, users)
}

// GetUser 获取用户信息
// @Summary 获取单个用户信息
// @Description 本人可查看自己，管理员可查看本租户用户，super_admin可跨租户
// @Tags 用户管理
// @Produce json
// @Param id path string true "用户ID"
// @Success 200 {object} response.Response "用户信息"
// @Failure 403 {object} response.Response "无权查看该用户"
// @Failure 404 {object} response.Response "用户不存在"
// @Router /api/v1/users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	requester, _ := middleware.CurrentUser(c)

	user, err := h.userService.Get(c.Param("id"), requester)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, user)
}

// UpdateUser 更新用户
// @Summary 更新用户属性
// @Description 管理员可更新本租户用户，super_admin可跨租户
// @Tags 用户管理
// @Accept json
// @Produce json
// @Param id path string true "用户ID"
// @Success 200 {object} response.Response "更新后的用户信息"
// @Failure 403 {object} response.Response "无权更新该用户"
// @Failure 404 {object} response.Response "用户不存在"
// @Router /api/v1/users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求体格式无效")
		return
	}

	requester, _ := middleware.CurrentUser(c)

	user, err := h.userService.Update(c.Param("id"), &req, requester)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, user)
}
