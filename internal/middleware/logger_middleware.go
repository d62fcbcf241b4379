// Package middleware 提供gin中间件
// 包含请求日志、身份认证和租户解析三类横切能力
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/weiwangfds/contentvault/internal/logger"
)

// LoggerMiddleware 日志中间件
type LoggerMiddleware struct {
	logger *logrus.Logger
}

// NewLoggerMiddleware 创建日志中间件实例
func NewLoggerMiddleware() *LoggerMiddleware {
	return &LoggerMiddleware{
		logger: logger.GetLogger(),
	}
}

// RequestID 请求ID中间件
// 为每个请求生成链路追踪ID，响应头回传X-Request-ID
func (m *LoggerMiddleware) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// RequestLogger 请求日志中间件
func (m *LoggerMiddleware) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		// 处理请求
		c.Next()

		// 记录响应信息
		latency := time.Since(start)
		status := c.Writer.Status()
		errorMessage := c.Errors.String()

		m.logger.WithFields(logrus.Fields{
			"request_id":    c.GetString("request_id"),
			"status":        status,
			"latency":       latency,
			"client_ip":     c.ClientIP(),
			"method":        c.Request.Method,
			"path":          path,
			"raw_query":     raw,
			"user_agent":    c.Request.UserAgent(),
			"error_message": errorMessage,
		}).Info("HTTP Response")
	}
}
