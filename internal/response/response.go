// Package response 提供统一的API响应格式
package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/weiwangfds/contentvault/internal/errors"
	"github.com/weiwangfds/contentvault/internal/logger"
)

// Response 统一返回值结构体
// @Description API统一响应格式
type Response struct {
	// 状态码，0表示成功，非0表示失败
	Code int `json:"code" example:"0"`
	// 响应消息
	Message string `json:"message" example:"success"`
	// 响应数据
	Data interface{} `json:"data,omitempty"`
	// 请求ID，用于链路追踪
	RequestID string `json:"request_id,omitempty" example:"req_123456789"`
	// 时间戳
	Timestamp int64 `json:"timestamp" example:"1640995200"`
}

// PageData 分页数据结构体
// @Description 分页响应数据格式
type PageData struct {
	// 数据列表
	List interface{} `json:"list"`
	// 应用过滤条件后的总数
	Total int64 `json:"total" example:"100"`
	// 分页大小
	Limit int `json:"limit" example:"50"`
	// 分页偏移
	Offset int `json:"offset" example:"0"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:      0,
		Message:   "success",
		Data:      data,
		RequestID: getRequestID(c),
		Timestamp: time.Now().Unix(),
	})
}

// SuccessWithMessage 带消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:      0,
		Message:   message,
		Data:      data,
		RequestID: getRequestID(c),
		Timestamp: time.Now().Unix(),
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:      0,
		Message:   "created",
		Data:      data,
		RequestID: getRequestID(c),
		Timestamp: time.Now().Unix(),
	})
}

// SuccessWithPage 分页成功响应
func SuccessWithPage(c *gin.Context, list interface{}, total int64, limit, offset int) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data: PageData{
			List:   list,
			Total:  total,
			Limit:  limit,
			Offset: offset,
		},
		RequestID: getRequestID(c),
		Timestamp: time.Now().Unix(),
	})
}

// Error 错误响应
// 按给定的HTTP状态码和业务错误码返回
func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, Response{
		Code:      code,
		Message:   message,
		RequestID: getRequestID(c),
		Timestamp: time.Now().Unix(),
	})
}

// AppError 应用错误响应
// 识别应用错误类型并映射为对应的HTTP状态码
// 无法识别的错误按500返回通用提示，内部细节只进日志不出响应
func AppError(c *gin.Context, err error) {
	if appErr, ok := apperrors.GetAppError(err); ok {
		Error(c, appErr.HTTPStatus(), int(appErr.Code), appErr.Message)
		return
	}
	logger.Errorf("未识别的错误，请求ID: %s: %v", getRequestID(c), err)
	Error(c, http.StatusInternalServerError, int(apperrors.ErrInternalServer),
		apperrors.GetErrorMessage(apperrors.ErrInternalServer))
}

// BadRequest 400错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, int(apperrors.ErrInvalidParams), message)
}

// Unauthorized 401错误响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, int(apperrors.ErrAuthentication), message)
}

// Forbidden 403错误响应
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, int(apperrors.ErrAuthorization), message)
}

// NotFound 404错误响应
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, int(apperrors.ErrNotFound), message)
}

// InternalServerError 500错误响应
func InternalServerError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, int(apperrors.ErrInternalServer), message)
}

// getRequestID 从gin上下文中获取请求ID，用于链路追踪
func getRequestID(c *gin.Context) string {
	if requestID, exists := c.Get("request_id"); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}
