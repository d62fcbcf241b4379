// @title ContentVault API
// @version 1.0
// @description 多租户内容文件管理服务

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/weiwangfds/contentvault/config"
	"github.com/weiwangfds/contentvault/internal/database"
	"github.com/weiwangfds/contentvault/internal/logger"
	"github.com/weiwangfds/contentvault/internal/middleware"
	"github.com/weiwangfds/contentvault/internal/router"
	"github.com/weiwangfds/contentvault/internal/storage"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Init(&cfg.Log); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// 初始化数据库
	db, err := database.Init(cfg.Database)
	if err != nil {
		logger.Errorf("Failed to initialize database: %v", err)
		os.Exit(1)
	}

	// 初始化存储管理器，连通性测试失败时拒绝启动
	storageManager := storage.NewManager(cfg.Storage)
	if err := storageManager.Init(); err != nil {
		logger.Errorf("Failed to initialize storage: %v", err)
		os.Exit(1)
	}

	// 初始化中间件和路由
	loggerMiddleware := middleware.NewLoggerMiddleware()
	r := router.NewRouter(loggerMiddleware, db, storageManager, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r.GetEngine(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// 启动服务器
	go func() {
		logger.Infof("服务器启动，监听地址: %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("服务器异常退出: %v", err)
			os.Exit(1)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("收到退出信号，开始优雅关闭")

	// 优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("服务器关闭失败: %v", err)
	}

	storageManager.Close()
	if err := database.Close(db); err != nil {
		logger.Errorf("数据库关闭失败: %v", err)
	}

	logger.Info("服务已退出")
}
