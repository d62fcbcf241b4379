// Package router 提供HTTP路由配置
package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/weiwangfds/contentvault/config"
	"github.com/weiwangfds/contentvault/internal/handler"
	"github.com/weiwangfds/contentvault/internal/middleware"
	"github.com/weiwangfds/contentvault/internal/service"
	"github.com/weiwangfds/contentvault/internal/storage"
)

// Router 路由配置
type Router struct {
	engine *gin.Engine
	db     *gorm.DB
}

// NewRouter 创建路由实例
// 组装服务、处理器和中间件，定义全部API路由
func NewRouter(loggerMiddleware *middleware.LoggerMiddleware, db *gorm.DB, storageManager *storage.Manager, cfg *config.Config) *Router {
	// 设置Gin模式
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()

	// 初始化服务
	auditService := service.NewAuditService(db)
	fileService := service.NewFileService(db, storageManager, auditService, cfg.File)
	shareService := service.NewShareService(db, storageManager, auditService)
	tenantService := service.NewTenantService(db, cfg.Tenant)
	userService := service.NewUserService(db)

	// 初始化处理器
	fileHandler := handler.NewFileHandler(fileService, auditService)
	shareHandler := handler.NewShareHandler(shareService)
	tenantHandler := handler.NewTenantHandler(tenantService)
	userHandler := handler.NewUserHandler(userService)

	// 初始化认证和租户中间件
	authMiddleware := middleware.NewAuthMiddleware(userService, cfg.Auth, cfg.Tenant.DefaultTenantID)
	tenantMiddleware := middleware.NewTenantMiddleware(tenantService)

	// 使用中间件
	engine.Use(gin.Recovery())
	engine.Use(loggerMiddleware.RequestID())
	engine.Use(loggerMiddleware.RequestLogger())

	// 配置CORS
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// 健康检查
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Service is running",
		})
	})

	// API路由组
	api := engine.Group("/api/v1")
	{
		// 基础信息接口
		api.GET("/info", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"service":      "ContentVault",
				"version":      "1.0.0",
				"status":       "running",
				"storage_type": storageManager.Type(),
			})
		})

		// 数据库状态检查
		api.GET("/db/status", func(c *gin.Context) {
			sqlDB, err := db.DB()
			if err != nil {
				c.JSON(500, gin.H{
					"error": "Database connection error",
				})
				return
			}

			if err := sqlDB.Ping(); err != nil {
				c.JSON(500, gin.H{
					"error": "Database ping failed",
				})
				return
			}

			c.JSON(200, gin.H{
				"status": "Database connection OK",
			})
		})

		// 分享公开访问接口，凭令牌访问，无需登录
		public := api.Group("/public")
		{
			public.GET("/shares/:token", shareHandler.GetSharedMetadata)
			public.GET("/shares/:token/download", shareHandler.DownloadShared)
		}

		// 认证接口组，依次经过身份认证和租户解析
		authed := api.Group("")
		authed.Use(authMiddleware.Authenticate())
		authed.Use(tenantMiddleware.Resolve())
		{
			// 文件管理接口
			files := authed.Group("/files")
			{
				files.POST("/upload", fileHandler.UploadFile)
				files.GET("", fileHandler.ListFiles)
				files.GET("/:id", fileHandler.GetFile)
				files.GET("/:id/download", fileHandler.DownloadFile)
				files.PUT("/:id", fileHandler.UpdateFile)
				files.DELETE("/:id", fileHandler.DeleteFile)
				files.GET("/:id/access", fileHandler.GetFileAccessHistory)

				// 文件分享管理
				files.POST("/:id/shares", shareHandler.CreateShare)
				files.GET("/:id/shares", shareHandler.ListShares)
			}

			// 分享管理接口
			shares := authed.Group("/shares")
			{
				shares.DELETE("/:share_id", shareHandler.RevokeShare)
			}

			// 用户管理接口
			// 按ID查看不设角色门槛，本人查看自己的放行由服务层判定
			users := authed.Group("/users")
			{
				users.GET("/me", userHandler.GetCurrentUser)
				users.GET("", middleware.RequireRoles("admin", "super_admin"), userHandler.ListUsers)
				users.GET("/:id", userHandler.GetUser)
				users.PUT("/:id", middleware.RequireRoles("admin", "super_admin"), userHandler.UpdateUser)
			}

			// 租户管理接口，仅超级管理员可用
			tenants := authed.Group("/tenants")
			tenants.Use(middleware.RequireRoles("super_admin"))
			{
				tenants.POST("", tenantHandler.CreateTenant)
				tenants.GET("", tenantHandler.ListTenants)
				tenants.GET("/:id", tenantHandler.GetTenant)
				tenants.PUT("/:id", tenantHandler.UpdateTenant)
			}
		}
	}

	return &Router{
		engine: engine,
		db:     db,
	}
}

// GetEngine 获取Gin引擎
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// GetDB 获取数据库连接
func (r *Router) GetDB() *gorm.DB {
	return r.db
}
