package model

import (
	"context"
	"slices"

	"github.com/Qonfucius/herdb-arangodb/aql"
	"github.com/Qonfucius/herdb-arangodb/errors"
	"github.com/Qonfucius/herdb-arangodb/query"
)

// relatedQuery 查询 keys 对应的目标文档
func relatedQuery[M Instance](cls *Class[M], keys []any) *query.Query[M] {
	return cls.Query(aql.New("FOR doc IN ? FILTER doc._key IN ? RETURN doc", cls, keys))
}

func unkeyed(field string) error {
	return errors.NewTypeError("unable to set %q, only a model or document with a _key can be assigned", field)
}

// MapOne 以字段保存单个 _key 的关联
//
// 查询在第一次访问时创建并缓存在实例上，Base.ClearMapCache 后重新创建。
type MapOne[M Instance] struct {
	owner  *Base
	field  string
	target func() *Class[M]
	q      *query.Query[M]
}

// One 取实例上 field 字段的单值关联；target 延迟求值，允许模型互相引用
func One[M Instance](owner Instance, field string, target func() *Class[M]) *MapOne[M] {
	b := owner.base()
	if r, ok := b.relation(field).(*MapOne[M]); ok {
		return r
	}
	r := &MapOne[M]{owner: b, field: field, target: target}
	b.setRelation(field, r)
	return r
}

// Key 字段中保存的 _key
func (r *MapOne[M]) Key() string {
	s, _ := r.owner.Document()[r.field].(string)
	return s
}

// Get 关联查询；结果位于 result.0
//
// 字段中的值不是字符串时返回类型错误，不发请求。
func (r *MapOne[M]) Get() *query.Query[M] {
	if raw := r.owner.Document()[r.field]; raw != nil {
		if _, ok := raw.(string); !ok {
			return query.Failed[M](errors.NewTypeError("field %q holds %T, expected a _key string", r.field, raw))
		}
	}
	if r.q == nil {
		var keys []any
		if key := r.Key(); key != "" {
			keys = []any{key}
		} else {
			keys = []any{}
		}
		r.q = relatedQuery(r.target(), keys).
			DataLookup("result", "0").
			SetModel(r.bind)
	}
	return r.q
}

// Model 执行关联查询并返回目标实例
func (r *MapOne[M]) Model(ctx context.Context) (M, error) {
	return r.Get().Model(ctx)
}

// Set 直接赋值：写入 _key 并使查询立即以 value 完成，不发请求
func (r *MapOne[M]) Set(value M) (M, error) {
	m, err := r.bind(value)
	if err != nil {
		return m, err
	}
	r.Get().ResolveWith(m)
	return m, nil
}

// SetDocument 以原始文档赋值
func (r *MapOne[M]) SetDocument(doc Document) (M, error) {
	m, err := r.bind(doc)
	if err != nil {
		return m, err
	}
	r.Get().ResolveWith(m)
	return m, nil
}

// bind 模型工厂：要求 _key，写回字段
func (r *MapOne[M]) bind(raw any) (M, error) {
	var zero M
	key, ok := keyOf(raw)
	if !ok {
		return zero, unkeyed(r.field)
	}
	m, err := r.target().Hydrate(raw)
	if err != nil {
		return zero, err
	}
	r.owner.Document()[r.field] = key
	return m, nil
}

// MapMany 以字段保存 _key 数组的关联
type MapMany[M Instance] struct {
	owner  *Base
	field  string
	target func() *Class[M]
	q      *query.Query[M]
	list   *RefList[M]
}

// Many 取实例上 field 字段的多值关联
func Many[M Instance](owner Instance, field string, target func() *Class[M]) *MapMany[M] {
	b := owner.base()
	if r, ok := b.relation(field).(*MapMany[M]); ok {
		return r
	}
	r := &MapMany[M]{owner: b, field: field, target: target}
	b.setRelation(field, r)
	return r
}

// Keys 字段中保存的 _key
func (r *MapMany[M]) Keys() []string {
	var keys []string
	switch v := r.owner.Document()[r.field].(type) {
	case []any:
		for _, k := range v {
			if s, ok := k.(string); ok {
				keys = append(keys, s)
			}
		}
	case []string:
		keys = append(keys, v...)
	}
	return keys
}

// Get 关联查询；结果位于 result
func (r *MapMany[M]) Get() *query.Query[M] {
	if r.q == nil {
		keys := make([]any, 0)
		for _, k := range r.Keys() {
			keys = append(keys, k)
		}
		r.q = relatedQuery(r.target(), keys).
			DataLookup("result").
			SetModelsFactory(r.proxify)
	}
	return r.q
}

// Models 执行关联查询，返回与字段同步的列表
func (r *MapMany[M]) Models(ctx context.Context) (*RefList[M], error) {
	ms, err := r.Get().Models(ctx)
	if err != nil {
		return nil, err
	}
	if r.list == nil {
		r.list = &RefList[M]{rel: r, items: slices.Clone(ms)}
	}
	return r.list, nil
}

// Set 直接赋值：写入 _key 数组并使查询立即以 values 完成
//
// 任一元素没有 _key 时返回类型错误，字段保持不变。
func (r *MapMany[M]) Set(values []M) (*RefList[M], error) {
	items := make([]any, len(values))
	for i, v := range values {
		items[i] = v
	}
	return r.assign(items)
}

// SetDocuments 以原始文档赋值
func (r *MapMany[M]) SetDocuments(docs []Document) (*RefList[M], error) {
	items := make([]any, len(docs))
	for i, d := range docs {
		items[i] = d
	}
	return r.assign(items)
}

func (r *MapMany[M]) assign(items []any) (*RefList[M], error) {
	q := r.Get()
	ms, err := r.proxify(items)
	if err != nil {
		return nil, err
	}
	q.ResolveWithModels(ms)
	return r.list, nil
}

// proxify 集合工厂：要求每个元素有 _key，构造实例并写回字段
func (r *MapMany[M]) proxify(items []any) ([]M, error) {
	keys := make([]any, len(items))
	for i, item := range items {
		key, ok := keyOf(item)
		if !ok {
			return nil, unkeyed(r.field)
		}
		keys[i] = key
	}
	ms, err := r.target().HydrateAll(items)
	if err != nil {
		return nil, err
	}
	r.owner.Document()[r.field] = keys
	r.list = &RefList[M]{rel: r, items: slices.Clone(ms)}
	return ms, nil
}
