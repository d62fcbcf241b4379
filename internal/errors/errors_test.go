// 应用错误类型的单元测试
package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHTTPStatusMapping 测试错误码到HTTP状态码的映射
func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		code   ErrorCode
		status int
	}{
		{ErrAuthentication, http.StatusUnauthorized},
		{ErrTokenInvalid, http.StatusUnauthorized},
		{ErrAuthorization, http.StatusForbidden},
		{ErrTenantAccessDenied, http.StatusForbidden},
		{ErrFileNotFound, http.StatusNotFound},
		{ErrFilenameRequired, http.StatusUnprocessableEntity},
		{ErrLimitExceeded, http.StatusUnprocessableEntity},
		{ErrFileUpload, http.StatusBadRequest},
		{ErrShareExpired, http.StatusForbidden},
		{ErrShareNotFound, http.StatusNotFound},
		{ErrStorageNotInitialized, http.StatusInternalServerError},
		{ErrDatabase, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.status, New(tc.code).HTTPStatus(), "code %d", tc.code)
	}
}

// TestWrapPreservesOriginal 测试包装错误保留原始错误链
func TestWrapPreservesOriginal(t *testing.T) {
	original := errors.New("disk full")
	appErr := Wrap(ErrStorage, original)

	assert.Equal(t, ErrStorage, appErr.Code)
	assert.Equal(t, "disk full", appErr.Details)
	assert.True(t, errors.Is(appErr, original))
}

// TestIsCode 测试错误码匹配
func TestIsCode(t *testing.T) {
	err := New(ErrFileNotFound)
	assert.True(t, IsCode(err, ErrFileNotFound))
	assert.False(t, IsCode(err, ErrShareNotFound))
	assert.False(t, IsCode(errors.New("plain"), ErrFileNotFound))
}

// TestWithDetails 测试附加详细信息不污染原错误
func TestWithDetails(t *testing.T) {
	base := New(ErrValidation)
	detailed := base.WithDetails("limit must be positive")

	require.Empty(t, base.Details)
	assert.Equal(t, "limit must be positive", detailed.Details)
	assert.Equal(t, base.Code, detailed.Code)
}
