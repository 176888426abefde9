// Package model 定义映射到集合的模型类
//
// 模型是嵌入 Base 的结构体，由 Define 创建的 Class 描述：
//
//	type User struct{ model.Base }
//
//	var Users = model.Define("User", func() *User { return &User{} },
//		model.WithField("age", model.IntString()),
//		model.WithRelations("books"),
//	)
//
//	func (u *User) Books() *model.MapMany[*Book] {
//		return model.Many(u, "books", func() *model.Class[*Book] { return Books })
//	}
//
// Class 提供 CRUD、集合与索引管理；MapOne / MapMany 提供文档之间的关联。
package model

import (
	"reflect"
)

// 元数据字段
const (
	KeyField = "_key"
	IDField  = "_id"
	RevField = "_rev"
)

// Document 模型背后的原始文档
type Document map[string]any

// Metadata 文档元数据
type Metadata struct {
	Key string `json:"_key,omitempty"`
	ID  string `json:"_id,omitempty"`
	Rev string `json:"_rev,omitempty"`
}

func (d Document) Key() string { return d.str(KeyField) }
func (d Document) ID() string  { return d.str(IDField) }
func (d Document) Rev() string { return d.str(RevField) }

// Metadata 返回元数据
func (d Document) Metadata() Metadata {
	return Metadata{Key: d.Key(), ID: d.ID(), Rev: d.Rev()}
}

// Clone 浅拷贝
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

func (d Document) str(field string) string {
	s, _ := d[field].(string)
	return s
}

func isMetadataField(name string) bool {
	return name == KeyField || name == IDField || name == RevField
}

// keyOf 取模型实例或原始文档的 _key
func keyOf(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return "", false
	}

	var key string
	switch x := v.(type) {
	case Instance:
		key = x.base().Key()
	case Document:
		key = x.Key()
	case map[string]any:
		key = Document(x).Key()
	}
	return key, key != ""
}
