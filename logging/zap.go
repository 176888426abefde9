package logging

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ZapLogger 基于 zap 的 Logger 实现
type ZapLogger struct {
	logger *zap.Logger
}

// NewZapLogger 包装已有的 *zap.Logger
func NewZapLogger(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{logger: logger}
}

// NewZapDevelopment 开发模式：输出到 stdout，包含 Debug 级别
func NewZapDevelopment() (*ZapLogger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stdout"}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return NewZapLogger(logger), nil
}

// NewZapProduction 生产模式：JSON 输出，Info 及以上
func NewZapProduction() (*ZapLogger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return NewZapLogger(logger), nil
}

func (l *ZapLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.logger.Debug(msg, toZapFields(fields)...)
}

func (l *ZapLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.logger.Info(msg, toZapFields(fields)...)
}

func (l *ZapLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.logger.Warn(msg, toZapFields(fields)...)
}

func (l *ZapLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.logger.Error(msg, toZapFields(fields)...)
}

func (l *ZapLogger) WithFields(fields ...Field) Logger {
	return &ZapLogger{logger: l.logger.With(toZapFields(fields)...)}
}

// Sync 刷新缓冲区
func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

// Zap 返回底层 *zap.Logger
func (l *ZapLogger) Zap() *zap.Logger {
	return l.logger
}

func toZapFields(fields []Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			out = append(out, zap.String(f.Key, v))
		case int:
			out = append(out, zap.Int(f.Key, v))
		case int64:
			out = append(out, zap.Int64(f.Key, v))
		case float64:
			out = append(out, zap.Float64(f.Key, v))
		case bool:
			out = append(out, zap.Bool(f.Key, v))
		case time.Duration:
			out = append(out, zap.Duration(f.Key, v))
		case error:
			out = append(out, zap.NamedError(f.Key, v))
		default:
			out = append(out, zap.Any(f.Key, v))
		}
	}
	return out
}

var _ Logger = (*ZapLogger)(nil)
