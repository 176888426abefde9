package errors

import (
	"context"
	stdErrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewQueryError_PrefersBody 响应体字段优先于 HTTP 状态
func TestNewQueryError_PrefersBody(t *testing.T) {
	body := map[string]any{
		"error":        true,
		"code":         float64(409),
		"errorNum":     float64(1207),
		"errorMessage": "duplicate name",
	}

	qe := NewQueryError(http.StatusBadRequest, "", body)

	assert.Equal(t, 409, qe.Status)
	assert.Equal(t, ErrorNumDuplicateName, qe.ErrorNum)
	assert.Equal(t, "duplicate name", qe.Message())
	assert.Equal(t, "Bad Request", qe.StatusText)
	assert.Contains(t, qe.Error(), "ERROR_ARANGO_DUPLICATE_NAME")
}

// TestNewQueryError_WithoutBody 响应体不是对象时退回状态文本
func TestNewQueryError_WithoutBody(t *testing.T) {
	qe := NewQueryError(http.StatusInternalServerError, "", "oops")

	assert.Equal(t, http.StatusInternalServerError, qe.Status)
	assert.Equal(t, ErrorNumNone, qe.ErrorNum)
	assert.Equal(t, "Internal Server Error", qe.Message())
	assert.NotContains(t, qe.Error(), "ERROR_")
}

// TestQueryError_Predicates 错误分类判断
func TestQueryError_Predicates(t *testing.T) {
	dup := NewQueryError(http.StatusConflict, "", map[string]any{"errorNum": float64(1207)})
	notFound := NewQueryError(http.StatusNotFound, "", map[string]any{"errorNum": float64(1202)})
	unauthorized := NewQueryError(http.StatusUnauthorized, "", nil)

	var wrapped error = WrapError(dup, ErrCodeInternal, "create collection")

	assert.True(t, IsDuplicateName(dup))
	assert.True(t, IsDuplicateName(wrapped))
	assert.True(t, IsBackend(dup))
	assert.True(t, IsConflict(dup))
	assert.True(t, IsErrorCode(dup, ErrCodeBackend))
	assert.True(t, stdErrors.Is(dup, ErrBackend))

	assert.True(t, IsNotFound(notFound))
	assert.True(t, IsErrorNum(notFound, ErrorNumDocumentNotFound))
	assert.False(t, IsDuplicateName(notFound))

	assert.True(t, IsUnauthorized(unauthorized))
	assert.False(t, IsBackend(stdErrors.New("plain")))
}

// TestErrorCodes 本地错误构造函数
func TestErrorCodes(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		code  ErrorCode
	}{
		{"配置错误", NewConfigurationError("missing %s", "database"), IsConfiguration, ErrCodeConfiguration},
		{"查找错误", NewLookupError([]string{"result", "0"}), IsLookup, ErrCodeLookup},
		{"类型错误", NewTypeError("not a sequence"), IsType, ErrCodeType},
		{"验证错误", NewValidationError("bad key"), IsValidation, ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.Equal(t, tt.code, GetErrorCode(tt.err))
		})
	}
}

// TestNewLookupError_Path 查找错误记录完整路径
func TestNewLookupError_Path(t *testing.T) {
	err := NewLookupError([]string{"new", "username"})

	assert.Contains(t, err.Error(), `"new.username"`)
	assert.Equal(t, []string{"new", "username"}, err.Details()["path"])
}

// TestAppError_WrapAndContext 包装与上下文不修改原错误
func TestAppError_WrapAndContext(t *testing.T) {
	base := NewConfigurationError("missing credentials")

	wrapped := base.Wrap("basic auth")
	withCtx := base.WithContext("database", "_system")

	assert.Equal(t, ErrCodeConfiguration, wrapped.Code())
	assert.Equal(t, "basic auth: missing credentials", wrapped.Message())
	assert.Same(t, base, stdErrors.Unwrap(wrapped))
	assert.Equal(t, "_system", withCtx.Details()["database"])
	assert.Empty(t, base.Details())
}

// TestWrap_NilError 包装 nil 返回 nil
func TestWrap_NilError(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, Wrap(ctx, nil, ErrCodeCache, "cache get"))
	assert.Nil(t, WrapWithLog(ctx, nil, ErrCodeCache, "cache get"))
}

// TestWrapWithLog 保留原因并设置代码
func TestWrapWithLog(t *testing.T) {
	cause := stdErrors.New("connection refused")

	err := WrapWithLog(context.Background(), cause, ErrCodeCache, "cache set")

	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrCodeCache))
	assert.ErrorIs(t, err, cause)
}
