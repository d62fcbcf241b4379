// Package errors 定义应用程序统一错误类型
// 错误码按领域分段，每个错误码携带稳定的类型标签和HTTP状态码
// 错误消息通过i18n包解析，支持多语言
package errors

import (
	"fmt"
	"net/http"

	"github.com/weiwangfds/contentvault/internal/i18n"
)

// ErrorCode 错误码类型
type ErrorCode int

// 定义错误码常量
const (
	// 通用错误码 (1000-1999)
	ErrSuccess        ErrorCode = 0    // 成功
	ErrInternalServer ErrorCode = 1000 // 服务器内部错误
	ErrInvalidParams  ErrorCode = 1001 // 参数错误
	ErrValidation     ErrorCode = 1002 // 校验失败
	ErrNotFound       ErrorCode = 1004 // 资源未找到

	// 认证授权错误码 (2000-2999)
	ErrAuthentication ErrorCode = 2000 // 认证失败
	ErrAuthorization  ErrorCode = 2001 // 权限不足
	ErrTokenInvalid   ErrorCode = 2002 // 令牌无效
	ErrUserNotFound   ErrorCode = 2100 // 用户未找到

	// 租户错误码 (3000-3999)
	ErrTenant             ErrorCode = 3000 // 租户操作失败
	ErrTenantNotFound     ErrorCode = 3001 // 租户未找到
	ErrTenantInactive     ErrorCode = 3002 // 租户已停用
	ErrTenantAccessDenied ErrorCode = 3003 // 无权访问该租户

	// 文件错误码 (4000-4999)
	ErrFileNotFound     ErrorCode = 4000 // 文件未找到
	ErrFileUpload       ErrorCode = 4001 // 文件上传失败
	ErrFilenameRequired ErrorCode = 4002 // 文件名缺失
	ErrLimitExceeded    ErrorCode = 4003 // 分页大小超限

	// 文件分享错误码 (4100-4199)
	ErrShareNotFound  ErrorCode = 4100 // 分享未找到
	ErrShareExpired   ErrorCode = 4101 // 分享已过期
	ErrShareExhausted ErrorCode = 4102 // 分享下载次数用尽
	ErrShareForbidden ErrorCode = 4103 // 分享不允许该操作
	ErrSharePassword  ErrorCode = 4104 // 分享密码错误

	// 存储错误码 (5000-5999)
	ErrStorage               ErrorCode = 5000 // 存储操作失败
	ErrStorageNotInitialized ErrorCode = 5001 // 存储提供商未初始化
	ErrStorageNotSupported   ErrorCode = 5002 // 存储提供商不支持

	// 数据库错误码 (6000-6999)
	ErrDatabase       ErrorCode = 6000 // 数据库操作失败
	ErrRecordNotFound ErrorCode = 6001 // 记录未找到

	// 元数据错误码 (7000-7999)
	ErrMetadata ErrorCode = 7000 // 元数据处理失败
)

// errorCodeToKeyMap 错误码到i18n键的映射
var errorCodeToKeyMap = map[ErrorCode]string{
	ErrSuccess:        "success",
	ErrInternalServer: "internal_server_error",
	ErrInvalidParams:  "invalid_params",
	ErrValidation:     "validation_failed",
	ErrNotFound:       "not_found",

	ErrAuthentication: "authentication_failed",
	ErrAuthorization:  "authorization_failed",
	ErrTokenInvalid:   "token_invalid",
	ErrUserNotFound:   "user_not_found",

	ErrTenant:             "tenant_error",
	ErrTenantNotFound:     "tenant_not_found",
	ErrTenantInactive:     "tenant_inactive",
	ErrTenantAccessDenied: "tenant_access_denied",

	ErrFileNotFound:     "file_not_found",
	ErrFileUpload:       "file_upload_failed",
	ErrFilenameRequired: "filename_required",
	ErrLimitExceeded:    "limit_exceeded",

	ErrShareNotFound:  "share_not_found",
	ErrShareExpired:   "share_expired",
	ErrShareExhausted: "share_exhausted",
	ErrShareForbidden: "share_forbidden",
	ErrSharePassword:  "share_password",

	ErrStorage:               "storage_error",
	ErrStorageNotInitialized: "storage_not_initialized",
	ErrStorageNotSupported:   "storage_not_supported",

	ErrDatabase:       "database_error",
	ErrRecordNotFound: "record_not_found",

	ErrMetadata: "metadata_error",
}

// errorCodeToTypeMap 错误码到机器可读类型标签的映射
var errorCodeToTypeMap = map[ErrorCode]string{
	ErrInternalServer: "internal_error",
	ErrInvalidParams:  "validation_error",
	ErrValidation:     "validation_error",
	ErrNotFound:       "not_found_error",

	ErrAuthentication: "authentication_error",
	ErrAuthorization:  "authorization_error",
	ErrTokenInvalid:   "authentication_error",
	ErrUserNotFound:   "not_found_error",

	ErrTenant:             "tenant_error",
	ErrTenantNotFound:     "tenant_error",
	ErrTenantInactive:     "tenant_error",
	ErrTenantAccessDenied: "authorization_error",

	ErrFileNotFound:     "not_found_error",
	ErrFileUpload:       "file_upload_error",
	ErrFilenameRequired: "validation_error",
	ErrLimitExceeded:    "validation_error",

	ErrShareNotFound:  "not_found_error",
	ErrShareExpired:   "authorization_error",
	ErrShareExhausted: "authorization_error",
	ErrShareForbidden: "authorization_error",
	ErrSharePassword:  "authorization_error",

	ErrStorage:               "storage_error",
	ErrStorageNotInitialized: "storage_error",
	ErrStorageNotSupported:   "storage_error",

	ErrDatabase:       "database_error",
	ErrRecordNotFound: "not_found_error",

	ErrMetadata: "metadata_error",
}

// errorCodeToStatusMap 错误码到HTTP状态码的映射
var errorCodeToStatusMap = map[ErrorCode]int{
	ErrInternalServer: http.StatusInternalServerError,
	ErrInvalidParams:  http.StatusBadRequest,
	ErrValidation:     http.StatusUnprocessableEntity,
	ErrNotFound:       http.StatusNotFound,

	ErrAuthentication: http.StatusUnauthorized,
	ErrAuthorization:  http.StatusForbidden,
	ErrTokenInvalid:   http.StatusUnauthorized,
	ErrUserNotFound:   http.StatusNotFound,

	ErrTenant:             http.StatusBadRequest,
	ErrTenantNotFound:     http.StatusBadRequest,
	ErrTenantInactive:     http.StatusBadRequest,
	ErrTenantAccessDenied: http.StatusForbidden,

	ErrFileNotFound:     http.StatusNotFound,
	ErrFileUpload:       http.StatusBadRequest,
	ErrFilenameRequired: http.StatusUnprocessableEntity,
	ErrLimitExceeded:    http.StatusUnprocessableEntity,

	ErrShareNotFound:  http.StatusNotFound,
	ErrShareExpired:   http.StatusForbidden,
	ErrShareExhausted: http.StatusForbidden,
	ErrShareForbidden: http.StatusForbidden,
	ErrSharePassword:  http.StatusForbidden,

	ErrStorage:               http.StatusInternalServerError,
	ErrStorageNotInitialized: http.StatusInternalServerError,
	ErrStorageNotSupported:   http.StatusInternalServerError,

	ErrDatabase:       http.StatusInternalServerError,
	ErrRecordNotFound: http.StatusNotFound,

	ErrMetadata: http.StatusBadRequest,
}

// AppError 应用错误结构体
// @Description 应用程序统一错误格式
type AppError struct {
	// 错误码
	Code ErrorCode `json:"code"`
	// 错误类型标签，机器可读
	Type string `json:"type"`
	// 错误消息
	Message string `json:"message"`
	// 详细错误信息
	Details string `json:"details,omitempty"`
	// 原始错误
	OriginalError error `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 返回原始错误，支持errors.Is/As链式匹配
func (e *AppError) Unwrap() error {
	return e.OriginalError
}

// HTTPStatus 返回错误对应的HTTP状态码
func (e *AppError) HTTPStatus() int {
	if status, ok := errorCodeToStatusMap[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WithDetails 添加详细错误信息
func (e *AppError) WithDetails(details string) *AppError {
	return &AppError{
		Code:    e.Code,
		Type:    e.Type,
		Message: e.Message,
		Details: details,
	}
}

// New 创建新的应用错误
// 参数:
//   - code: 错误码
//
// 返回:
//   - *AppError: 应用错误实例
func New(code ErrorCode) *AppError {
	return &AppError{
		Code:    code,
		Type:    typeOf(code),
		Message: GetErrorMessage(code),
	}
}

// NewWithDetails 创建带详细信息的应用错误
func NewWithDetails(code ErrorCode, details string) *AppError {
	return &AppError{
		Code:    code,
		Type:    typeOf(code),
		Message: GetErrorMessage(code),
		Details: details,
	}
}

// Wrap 包装原始错误
// 原始错误的消息保留在Details中，类型信息被丢弃
func Wrap(code ErrorCode, err error) *AppError {
	appErr := &AppError{
		Code:          code,
		Type:          typeOf(code),
		Message:       GetErrorMessage(code),
		OriginalError: err,
	}
	if err != nil {
		appErr.Details = err.Error()
	}
	return appErr
}

// GetAppError 从错误中提取应用错误
// 返回:
//   - *AppError: 应用错误实例
//   - bool: 是否成功提取
func GetAppError(err error) (*AppError, bool) {
	appErr, ok := err.(*AppError)
	return appErr, ok
}

// IsCode 判断错误是否携带指定错误码
func IsCode(err error, code ErrorCode) bool {
	if appErr, ok := GetAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// typeOf 获取错误码的类型标签
func typeOf(code ErrorCode) string {
	if t, ok := errorCodeToTypeMap[code]; ok {
		return t
	}
	return "internal_error"
}

// GetErrorMessage 根据错误码获取错误消息（使用默认语言）
func GetErrorMessage(code ErrorCode) string {
	return GetErrorMessageWithLang(code, i18n.GetInstance().GetDefaultLanguage())
}

// GetErrorMessageWithLang 根据错误码和语言获取错误消息
func GetErrorMessageWithLang(code ErrorCode, lang string) string {
	key, exists := errorCodeToKeyMap[code]
	if !exists {
		key = "unknown_error"
	}
	return i18n.GetInstance().Translate(key, lang)
}
