// Package logger 提供进程级日志功能
// 基于logrus实现，支持控制台和文件输出，并接管gin框架的日志
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/weiwangfds/contentvault/config"
)

// Logger 全局日志实例
var Logger *logrus.Logger

// Init 初始化日志系统
// 参数:
//   - cfg: 日志配置，为nil时使用默认值
//
// 返回:
//   - error: 初始化错误
func Init(cfg *config.LogConfig) error {
	if cfg == nil {
		cfg = &config.LogConfig{
			Level:    "info",
			Format:   "text",
			Output:   "console",
			FilePath: "logs/app.log",
		}
	}

	Logger = logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
		Logger.Warnf("无效的日志级别 '%s'，使用默认级别 'info'", cfg.Level)
	}
	Logger.SetLevel(level)

	switch cfg.Format {
	case "json":
		Logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	default:
		Logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	if err := setupOutput(cfg); err != nil {
		return err
	}

	// 将gin的默认输出重定向到统一日志
	ginWriter := &ginLogWriter{logger: Logger}
	gin.DefaultWriter = ginWriter
	gin.DefaultErrorWriter = ginWriter

	Logger.Info("日志系统初始化完成")
	return nil
}

// setupOutput 设置日志输出目标
func setupOutput(cfg *config.LogConfig) error {
	switch cfg.Output {
	case "file":
		logFile, err := openLogFile(cfg.FilePath)
		if err != nil {
			return err
		}
		Logger.SetOutput(logFile)
	case "both":
		logFile, err := openLogFile(cfg.FilePath)
		if err != nil {
			return err
		}
		Logger.SetOutput(io.MultiWriter(os.Stdout, logFile))
	default:
		Logger.SetOutput(os.Stdout)
	}
	return nil
}

// openLogFile 打开日志文件，目录不存在时自动创建
func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
}

// ginLogWriter gin日志写入器
type ginLogWriter struct {
	logger *logrus.Logger
}

// Write 实现io.Writer接口
func (w *ginLogWriter) Write(p []byte) (n int, err error) {
	w.logger.Info(string(p))
	return len(p), nil
}

// GetLogger 获取日志实例
// 未初始化时使用默认配置初始化
func GetLogger() *logrus.Logger {
	if Logger == nil {
		if err := Init(nil); err != nil {
			logrus.Error("日志初始化失败，使用默认日志")
			return logrus.StandardLogger()
		}
	}
	return Logger
}

// Debugf 记录格式化调试级别日志
func Debugf(format string, args ...interface{}) {
	GetLogger().Debugf(format, args...)
}

// Info 记录信息级别日志
func Info(args ...interface{}) {
	GetLogger().Info(args...)
}

// Infof 记录格式化信息级别日志
func Infof(format string, args ...interface{}) {
	GetLogger().Infof(format, args...)
}

// Warnf 记录格式化警告级别日志
func Warnf(format string, args ...interface{}) {
	GetLogger().Warnf(format, args...)
}

// Error 记录错误级别日志
func Error(args ...interface{}) {
	GetLogger().Error(args...)
}

// Errorf 记录格式化错误级别日志
func Errorf(format string, args ...interface{}) {
	GetLogger().Errorf(format, args...)
}

// WithFields 添加多个字段到日志条目
func WithFields(fields logrus.Fields) *logrus.Entry {
	return GetLogger().WithFields(fields)
}
