// Package keygen 在客户端生成文档键
package keygen

import (
	"strconv"

	"github.com/google/uuid"
)

// Generator 文档键生成器
type Generator interface {
	NextKey() (string, error)
}

// Func 函数适配器
type Func func() (string, error)

// NextKey 实现 Generator 接口
func (f Func) NextKey() (string, error) {
	return f()
}

type uuidGenerator struct{}

// UUID 生成随机 UUIDv4 键
func UUID() Generator {
	return uuidGenerator{}
}

func (uuidGenerator) NextKey() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NextKey 雪花 ID 的十进制字符串，按时间递增
func (g *Snowflake) NextKey() (string, error) {
	id, err := g.NextID()
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}
