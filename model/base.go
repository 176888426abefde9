package model

import (
	"encoding/json"
)

// Instance 模型实例，由嵌入 Base 的结构体指针实现
type Instance interface {
	base() *Base
}

// Validatable 写入前校验的模型
type Validatable interface {
	Validate() error
}

// descriptor 实例所属的模型类
type descriptor interface {
	Name() string
	CollectionName() string
	mapper(field string) (Mapper, bool)
}

// Base 嵌入到模型结构体中，持有原始文档与关联缓存
type Base struct {
	doc   Document
	class descriptor
	maps  map[string]any
}

func (b *Base) base() *Base { return b }

// Document 原始文档（可写）
func (b *Base) Document() Document {
	if b.doc == nil {
		b.doc = make(Document)
	}
	return b.doc
}

func (b *Base) Key() string { return b.Document().Key() }
func (b *Base) ID() string  { return b.Document().ID() }
func (b *Base) Rev() string { return b.Document().Rev() }

// Metadata 返回元数据
func (b *Base) Metadata() Metadata {
	return b.Document().Metadata()
}

// SetKey 设置 _key
func (b *Base) SetKey(key string) {
	b.Document()[KeyField] = key
}

// Get 读取原始字段值
func (b *Base) Get(field string) any {
	return b.Document()[field]
}

// Set 写入原始字段值，不经过字段映射
func (b *Base) Set(field string, value any) {
	b.Document()[field] = value
}

// ClearMapCache 丢弃已缓存的关联，下次访问重新查询
func (b *Base) ClearMapCache() {
	b.maps = nil
}

// ClassName 所属模型类的名称，未关联时为空
func (b *Base) ClassName() string {
	if b.class == nil {
		return ""
	}
	return b.class.Name()
}

// MarshalJSON 序列化为原始文档
func (b *Base) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Document())
}

// UnmarshalJSON 从 JSON 覆盖原始文档
func (b *Base) UnmarshalJSON(data []byte) error {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	b.doc = doc
	b.maps = nil
	return nil
}

func (b *Base) relation(field string) any {
	return b.maps[field]
}

func (b *Base) setRelation(field string, r any) {
	if b.maps == nil {
		b.maps = make(map[string]any)
	}
	b.maps[field] = r
}
