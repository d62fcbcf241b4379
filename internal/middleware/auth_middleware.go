package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/weiwangfds/contentvault/config"
	"github.com/weiwangfds/contentvault/internal/database"
	apperrors "github.com/weiwangfds/contentvault/internal/errors"
	"github.com/weiwangfds/contentvault/internal/logger"
	"github.com/weiwangfds/contentvault/internal/response"
	"github.com/weiwangfds/contentvault/internal/service"
)

// 上下文键
const (
	ContextKeyUser = "current_user"
)

// AuthMiddleware 身份认证中间件
// 校验外部身份提供商签发的Bearer令牌，首次出现的身份自动登记为用户
type AuthMiddleware struct {
	userService     service.UserService
	cfg             config.AuthConfig
	defaultTenantID string
}

// NewAuthMiddleware 创建身份认证中间件实例
func NewAuthMiddleware(userService service.UserService, cfg config.AuthConfig, defaultTenantID string) *AuthMiddleware {
	return &AuthMiddleware{
		userService:     userService,
		cfg:             cfg,
		defaultTenantID: defaultTenantID,
	}
}

// tokenClaims 令牌中关注的声明
type tokenClaims struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	TenantID string `json:"tid"`
	jwt.RegisteredClaims
}

// Authenticate 认证中间件
// 令牌缺失、签名无效或用户被停用都返回401
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, 401, int(apperrors.ErrAuthentication), apperrors.GetErrorMessage(apperrors.ErrAuthentication))
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, 401, int(apperrors.ErrTokenInvalid), apperrors.GetErrorMessage(apperrors.ErrTokenInvalid))
			c.Abort()
			return
		}

		claims := &tokenClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(m.cfg.JWTSecret), nil
		}, jwt.WithValidMethods([]string{m.cfg.JWTAlgorithm}))
		if err != nil || !token.Valid || claims.Subject == "" {
			logger.Warnf("令牌校验失败: %v", err)
			response.Error(c, 401, int(apperrors.ErrTokenInvalid), apperrors.GetErrorMessage(apperrors.ErrTokenInvalid))
			c.Abort()
			return
		}

		tenantID := claims.TenantID
		if tenantID == "" {
			tenantID = m.defaultTenantID
		}

		user, err := m.userService.EnsureByExternalID(claims.Subject, claims.Email, claims.Name, tenantID)
		if err != nil {
			response.Error(c, 401, int(apperrors.ErrAuthentication), apperrors.GetErrorMessage(apperrors.ErrAuthentication))
			c.Abort()
			return
		}

		c.Set(ContextKeyUser, user)
		c.Next()
	}
}

// RequireRoles 角色检查中间件
// 当前用户不持有任一指定角色时返回403
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok || !user.HasAnyRole(roles...) {
			response.Error(c, 403, int(apperrors.ErrAuthorization), apperrors.GetErrorMessage(apperrors.ErrAuthorization))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser 获取当前认证用户
func CurrentUser(c *gin.Context) (*database.User, bool) {
	value, exists := c.Get(ContextKeyUser)
	if !exists {
		return nil, false
	}
	user, ok := value.(*database.User)
	return user, ok
}
