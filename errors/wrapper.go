package errors

import (
	"context"
	"fmt"
	"runtime"

	"github.com/Qonfucius/herdb-arangodb/logging"
)

// Wrap 包装错误，添加错误码和上下文信息
func Wrap(ctx context.Context, err error, code ErrorCode, msg string) error {
	if err == nil {
		return nil
	}

	_, file, line, _ := runtime.Caller(1)

	wrapped := WrapError(err, code, msg)

	logging.GetLogger().Debug(ctx, fmt.Sprintf("错误包装: %s (位置: %s:%d)", msg, file, line))

	return wrapped
}

// WrapWithLog 包装错误并记录警告日志
// 用于缓存、变更通知等不影响主流程、但需要立即可见的失败
func WrapWithLog(ctx context.Context, err error, code ErrorCode, msg string, fields ...logging.Field) error {
	if err == nil {
		return nil
	}

	_, file, line, _ := runtime.Caller(1)

	wrapped := WrapError(err, code, msg)

	allFields := append([]logging.Field{
		logging.Error(err),
		logging.String("error_code", string(code)),
		logging.String("location", fmt.Sprintf("%s:%d", file, line)),
	}, fields...)

	logging.GetLogger().Warn(ctx, msg, allFields...)

	return wrapped
}
