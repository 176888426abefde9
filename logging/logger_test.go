package logging

import (
	"bytes"
	"context"
	stdErrors "errors"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// captureStd 捕获标准库 log 输出
func captureStd(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

// TestFieldConstructors 测试字段构造函数
func TestFieldConstructors(t *testing.T) {
	err := stdErrors.New("boom")

	tests := []struct {
		name  string
		field Field
		key   string
		value any
	}{
		{"String", String("key", "value"), "key", "value"},
		{"Int", Int("count", 42), "count", 42},
		{"Int64", Int64("id", 123), "id", int64(123)},
		{"Float64", Float64("ratio", 0.5), "ratio", 0.5},
		{"Bool", Bool("enabled", true), "enabled", true},
		{"Any", Any("data", []int{1}), "data", []int{1}},
		{"Error", Error(err), "error", err},
		{"Duration", Duration("took", time.Second), "took", time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, tt.field.Key)
			assert.Equal(t, tt.value, tt.field.Value)
		})
	}
}

// TestParseLevel 级别解析
func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLevel(" warning "))
	assert.Equal(t, ErrorLevel, ParseLevel("error"))
	assert.Equal(t, InfoLevel, ParseLevel("whatever"))
	assert.Equal(t, "LEVEL(9)", Level(9).String())
}

// TestStdLogger_Format 输出包含前缀、级别与字段
func TestStdLogger_Format(t *testing.T) {
	buf := captureStd(t)

	logger := NewStdLogger("[test]").WithFields(String("component", "query"))
	logger.Info(context.Background(), "request", String("method", "GET"), Int("status", 200))

	out := buf.String()
	assert.Contains(t, out, "[INFO]")
	assert.Contains(t, out, "[test] request")
	assert.Contains(t, out, "component=query")
	assert.Contains(t, out, "method=GET")
	assert.Contains(t, out, "status=200")
}

// TestStdLogger_LevelFilter 低于阈值的日志不输出
func TestStdLogger_LevelFilter(t *testing.T) {
	buf := captureStd(t)

	logger := NewStdLoggerWithLevel("[test]", WarnLevel)
	logger.Debug(context.Background(), "hidden")
	logger.Info(context.Background(), "hidden")
	logger.Warn(context.Background(), "shown", Error(stdErrors.New("cache down")))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN]")
	assert.Contains(t, out, "error=cache down")
}

// TestStdLogger_WithFieldsIsolation WithFields 不修改原 Logger
func TestStdLogger_WithFieldsIsolation(t *testing.T) {
	base := NewStdLogger("[test]")
	child := base.WithFields(String("a", "1"))
	_ = child.WithFields(String("b", "2"))

	assert.Empty(t, base.fields)
	assert.Len(t, child.(*StdLogger).fields, 1)
}

// TestNoopLogger 空实现
func TestNoopLogger(t *testing.T) {
	logger := NewNoopLogger()
	ctx := context.Background()

	logger.Debug(ctx, "x")
	logger.Error(ctx, "x", Error(stdErrors.New("y")))
	assert.Same(t, logger, logger.WithFields(String("k", "v")))
}

// TestGlobalLogger 全局 Logger 的设置与恢复
func TestGlobalLogger(t *testing.T) {
	original := GetLogger()
	t.Cleanup(func() { SetLogger(original) })

	noop := NewNoopLogger()
	SetLogger(noop)
	assert.Same(t, noop, GetLogger())

	SetLogger(nil)
	assert.IsType(t, &NoopLogger{}, GetLogger())
}

// TestZapLogger 字段映射到 zap
func TestZapLogger(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	logger := NewZapLogger(zap.New(core)).WithFields(String("component", "query"))

	logger.Debug(context.Background(), "executed",
		String("method", "POST"),
		Int("status", 201),
		Duration("took", 5*time.Millisecond),
		Error(stdErrors.New("nope")),
	)

	require.Equal(t, 1, recorded.Len())
	entry := recorded.All()[0]
	assert.Equal(t, "executed", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "query", fields["component"])
	assert.Equal(t, "POST", fields["method"])
	assert.EqualValues(t, 201, fields["status"])
	assert.Equal(t, 5*time.Millisecond, fields["took"])
	assert.Equal(t, "nope", fields["error"])
}

// TestZapLogger_Nil nil 退化为 Nop
func TestZapLogger_Nil(t *testing.T) {
	logger := NewZapLogger(nil)
	assert.NotPanics(t, func() { logger.Info(context.Background(), "quiet") })
	assert.NotNil(t, logger.Zap())
}

func BenchmarkStdLogger_WithFields(b *testing.B) {
	logger := NewStdLogger("[bench]")
	for i := 0; i < b.N; i++ {
		_ = logger.WithFields(String("k", "v"), Int("n", i))
	}
}
