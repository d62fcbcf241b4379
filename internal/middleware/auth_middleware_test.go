// 身份认证中间件的单元测试
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/weiwangfds/contentvault/config"
	"github.com/weiwangfds/contentvault/internal/database"
	"github.com/weiwangfds/contentvault/internal/service"
)

const testSecret = "test-secret"

// setupAuthRouter 构建带认证中间件的测试路由
func setupAuthRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	authMiddleware := NewAuthMiddleware(service.NewUserService(db), config.AuthConfig{
		JWTSecret:    testSecret,
		JWTAlgorithm: "HS256",
	}, "default")

	engine := gin.New()
	engine.GET("/protected", authMiddleware.Authenticate(), func(c *gin.Context) {
		user, _ := CurrentUser(c)
		c.JSON(200, gin.H{"user_id": user.UserID, "tenant_id": user.TenantID})
	})
	return engine, db
}

// signToken 签发测试令牌
func signToken(t *testing.T, subject, tenantID string, secret string) string {
	claims := jwt.MapClaims{
		"sub":   subject,
		"email": "alice@example.com",
		"name":  "Alice",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	if tenantID != "" {
		claims["tid"] = tenantID
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

// TestAuthenticateMissingToken 测试缺失令牌返回401
func TestAuthenticateMissingToken(t *testing.T) {
	engine, _ := setupAuthRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// TestAuthenticateInvalidSignature 测试签名无效返回401
func TestAuthenticateInvalidSignature(t *testing.T) {
	engine, _ := setupAuthRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "ext-1", "", "wrong-secret"))
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// TestAuthenticateRegistersUser 测试首次出现的身份自动登记
func TestAuthenticateRegistersUser(t *testing.T) {
	engine, db := setupAuthRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "ext-1", "acme", testSecret))
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var user database.User
	require.NoError(t, db.Where("external_id = ?", "ext-1").First(&user).Error)
	assert.Equal(t, "acme", user.TenantID)
	assert.Equal(t, database.StringList{"user"}, user.Roles)
}

// TestAuthenticateInactiveUser 测试停用用户被拒绝
func TestAuthenticateInactiveUser(t *testing.T) {
	engine, db := setupAuthRouter(t)

	// 先登记再停用
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "ext-2", "", testSecret))
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, db.Model(&database.User{}).
		Where("external_id = ?", "ext-2").
		Update("is_active", false).Error)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "ext-2", "", testSecret))
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// TestRequireRoles 测试角色检查中间件
func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.GET("/admin", func(c *gin.Context) {
		c.Set(ContextKeyUser, &database.User{
			UserID: "u1",
			Roles:  database.StringList{"user"},
		})
	}, RequireRoles("admin", "super_admin"), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
