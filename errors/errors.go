// Package errors 定义客户端统一的错误模型
//
// 错误分为四类：
//   - 配置错误：缺少数据库名、缺少凭据、缺少模型工厂、对象缺少 _key
//   - 后端错误：HTTP 状态码 >= 400 的响应，见 QueryError
//   - 查找错误：必需的数据路径在响应体中不存在
//   - 类型错误：ToModels 遇到非序列值、关联赋值缺少 _key
package errors

import (
	stdErrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrorCode 错误代码类型
type ErrorCode string

// 预定义错误代码
const (
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeBackend       ErrorCode = "BACKEND_ERROR"
	ErrCodeLookup        ErrorCode = "LOOKUP_ERROR"
	ErrCodeType          ErrorCode = "TYPE_ERROR"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"

	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// 基础设施错误代码
	ErrCodeCache ErrorCode = "CACHE_ERROR"
	ErrCodeQueue ErrorCode = "QUEUE_ERROR"
)

// IError 错误接口
type IError interface {
	error

	// 获取错误代码
	Code() ErrorCode

	// 获取错误消息
	Message() string

	// 获取原始错误
	Cause() error

	// 获取错误详情
	Details() map[string]any

	// 获取堆栈信息
	Stack() string

	// 包装错误
	Wrap(msg string) IError

	// 添加上下文
	WithContext(key string, value any) IError
}

// AppError 应用错误实现
type AppError struct {
	code    ErrorCode
	message string
	cause   error
	details map[string]any
	stack   string
}

// NewError 创建新错误
func NewError(code ErrorCode, message string) *AppError {
	return &AppError{
		code:    code,
		message: message,
		details: make(map[string]any),
		stack:   captureStack(),
	}
}

// NewErrorf 按格式创建新错误
func NewErrorf(code ErrorCode, format string, args ...any) *AppError {
	return NewError(code, fmt.Sprintf(format, args...))
}

// WrapError 包装错误
func WrapError(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	return &AppError{
		code:    code,
		message: message,
		cause:   err,
		details: make(map[string]any),
		stack:   captureStack(),
	}
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

func (e *AppError) Code() ErrorCode { return e.code }
func (e *AppError) Message() string { return e.message }
func (e *AppError) Cause() error    { return e.cause }
func (e *AppError) Stack() string   { return e.stack }

// Details 获取错误详情
func (e *AppError) Details() map[string]any {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	return e.details
}

// Is 同代码的 AppError 视为同一类错误
func (e *AppError) Is(target error) bool {
	if target == nil {
		return false
	}

	if appErr, ok := target.(*AppError); ok {
		return e.code == appErr.code
	}

	return false
}

// Unwrap 解包错误（支持 errors.Unwrap）
func (e *AppError) Unwrap() error {
	return e.cause
}

// Wrap 包装错误
func (e *AppError) Wrap(msg string) IError {
	return &AppError{
		code:    e.code,
		message: fmt.Sprintf("%s: %s", msg, e.message),
		cause:   e,
		details: copyMap(e.details),
		stack:   captureStack(),
	}
}

// WithContext 添加上下文
func (e *AppError) WithContext(key string, value any) IError {
	details := copyMap(e.details)
	details[key] = value

	return &AppError{
		code:    e.code,
		message: e.message,
		cause:   e.cause,
		details: details,
		stack:   e.stack,
	}
}

// 预定义错误变量，仅用于 errors.Is 按代码比较
var (
	ErrConfiguration = NewError(ErrCodeConfiguration, "configuration error")
	ErrBackend       = NewError(ErrCodeBackend, "backend error")
	ErrLookup        = NewError(ErrCodeLookup, "lookup error")
	ErrType          = NewError(ErrCodeType, "type error")
	ErrValidation    = NewError(ErrCodeValidation, "validation error")
	ErrNotFound      = NewError(ErrCodeNotFound, "not found")
	ErrCache         = NewError(ErrCodeCache, "cache error")
	ErrQueue         = NewError(ErrCodeQueue, "queue error")
)

// NewConfigurationError 创建配置错误
func NewConfigurationError(format string, args ...any) *AppError {
	return NewErrorf(ErrCodeConfiguration, format, args...)
}

// NewLookupError 创建查找错误，path 为完整的数据路径
func NewLookupError(path []string) *AppError {
	err := NewErrorf(ErrCodeLookup, "unable to find data at path %q", strings.Join(path, "."))
	err.details["path"] = append([]string(nil), path...)
	return err
}

// NewTypeError 创建类型错误
func NewTypeError(format string, args ...any) *AppError {
	return NewErrorf(ErrCodeType, format, args...)
}

// NewValidationError 创建验证错误
func NewValidationError(format string, args ...any) *AppError {
	return NewErrorf(ErrCodeValidation, format, args...)
}

func IsConfiguration(err error) bool { return IsErrorCode(err, ErrCodeConfiguration) }
func IsLookup(err error) bool        { return IsErrorCode(err, ErrCodeLookup) }
func IsType(err error) bool          { return IsErrorCode(err, ErrCodeType) }
func IsValidation(err error) bool    { return IsErrorCode(err, ErrCodeValidation) }

// IsErrorCode 检查错误链中是否存在指定错误代码
func IsErrorCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return appErr.code == code
	}

	return false
}

// GetErrorCode 获取错误代码，非 AppError 一律视为内部错误
func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return appErr.code
	}

	return ErrCodeInternal
}

// Is 与 As 透传标准库，方便调用方只导入本包
func Is(err, target error) bool { return stdErrors.Is(err, target) }
func As(err error, target any) bool {
	return stdErrors.As(err, target)
}

// captureStack 捕获堆栈信息
func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var builder strings.Builder
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		builder.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))

		if !more {
			break
		}
	}

	return builder.String()
}

func copyMap(original map[string]any) map[string]any {
	if original == nil {
		return make(map[string]any)
	}

	copied := make(map[string]any, len(original))
	for k, v := range original {
		copied[k] = v
	}

	return copied
}
