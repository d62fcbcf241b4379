package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/weiwangfds/contentvault/internal/database"
	"github.com/weiwangfds/contentvault/internal/response"
	"github.com/weiwangfds/contentvault/internal/service"
)

// 上下文键
const (
	ContextKeyTenant = "current_tenant"

	// TenantHeader 显式指定租户的请求头
	TenantHeader = "X-Tenant-ID"
)

// TenantMiddleware 租户解析中间件
// 必须在身份认证之后执行，解析结果对后续处理器生效
type TenantMiddleware struct {
	tenantService service.TenantService
}

// NewTenantMiddleware 创建租户解析中间件实例
func NewTenantMiddleware(tenantService service.TenantService) *TenantMiddleware {
	return &TenantMiddleware{tenantService: tenantService}
}

// Resolve 租户解析中间件
// 优先级：X-Tenant-ID请求头 > 用户归属租户 > 默认租户
// 普通用户请求非归属租户、租户不存在或已停用时中断请求
func (m *TenantMiddleware) Resolve() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := CurrentUser(c)

		tenant, err := m.tenantService.Resolve(c.GetHeader(TenantHeader), user)
		if err != nil {
			response.AppError(c, err)
			c.Abort()
			return
		}

		c.Set(ContextKeyTenant, tenant)
		c.Next()
	}
}

// CurrentTenant 获取当前生效的租户
func CurrentTenant(c *gin.Context) (*database.Tenant, bool) {
	value, exists := c.Get(ContextKeyTenant)
	if !exists {
		return nil, false
	}
	tenant, ok := value.(*database.Tenant)
	return tenant, ok
}
