package errors

import (
	"fmt"
	"net/http"
)

// QueryError 后端返回的分类错误
//
// Status 优先取响应体中的 code 字段，其次取 HTTP 状态码；
// ErrorNum 为 ArangoDB 的 errorNum，响应体未提供时为 ErrorNumNone。
type QueryError struct {
	*AppError
	Status     int
	StatusText string
	ErrorNum   ErrorNum
}

// NewQueryError 根据响应状态与已解析的响应体构造分类错误
func NewQueryError(status int, statusText string, body any) *QueryError {
	qe := &QueryError{
		Status:     status,
		StatusText: statusText,
	}
	if qe.StatusText == "" {
		qe.StatusText = http.StatusText(status)
	}

	message := qe.StatusText
	if fields, ok := body.(map[string]any); ok {
		if code, ok := asInt(fields["code"]); ok {
			qe.Status = code
		}
		if num, ok := asInt(fields["errorNum"]); ok {
			qe.ErrorNum = ErrorNum(num)
		}
		if msg, ok := fields["errorMessage"].(string); ok && msg != "" {
			message = msg
		}
	}

	qe.AppError = NewError(ErrCodeBackend, message)
	qe.details["status"] = qe.Status
	if qe.ErrorNum != ErrorNumNone {
		qe.details["errorNum"] = int(qe.ErrorNum)
	}
	return qe
}

// Error 实现 error 接口
func (e *QueryError) Error() string {
	if e.ErrorNum != ErrorNumNone {
		return fmt.Sprintf("[%s] %s (status %d, %s %d)", e.code, e.message, e.Status, e.ErrorNum, int(e.ErrorNum))
	}
	return fmt.Sprintf("[%s] %s (status %d)", e.code, e.message, e.Status)
}

// Unwrap 暴露内部 AppError，使 errors.As(*AppError) 与 IsErrorCode 可用
func (e *QueryError) Unwrap() error {
	return e.AppError
}

// AsQueryError 从错误链中提取 QueryError
func AsQueryError(err error) (*QueryError, bool) {
	var qe *QueryError
	if As(err, &qe) {
		return qe, true
	}
	return nil, false
}

// IsBackend 检查是否为后端错误
func IsBackend(err error) bool {
	_, ok := AsQueryError(err)
	return ok
}

// IsErrorNum 检查后端错误编号
func IsErrorNum(err error, num ErrorNum) bool {
	qe, ok := AsQueryError(err)
	return ok && qe.ErrorNum == num
}

// IsDuplicateName 幂等创建集合/数据库时需要吞掉的错误
func IsDuplicateName(err error) bool {
	return IsErrorNum(err, ErrorNumDuplicateName)
}

// IsNotFound 后端 404 或本地 NOT_FOUND 错误
func IsNotFound(err error) bool {
	if qe, ok := AsQueryError(err); ok {
		return qe.Status == http.StatusNotFound
	}
	return IsErrorCode(err, ErrCodeNotFound)
}

// IsConflict 后端 409 / 412 错误
func IsConflict(err error) bool {
	if qe, ok := AsQueryError(err); ok {
		return qe.Status == http.StatusConflict || qe.Status == http.StatusPreconditionFailed
	}
	return IsErrorCode(err, ErrCodeConflict)
}

// IsUnauthorized 后端 401 错误
func IsUnauthorized(err error) bool {
	if qe, ok := AsQueryError(err); ok {
		return qe.Status == http.StatusUnauthorized
	}
	return IsErrorCode(err, ErrCodeUnauthorized)
}

// asInt JSON 数字解码为 float64，这里统一转换
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}
