package model

import (
	"slices"

	"github.com/Qonfucius/herdb-arangodb/errors"
)

// RefList 多值关联的结果列表
//
// 每次修改都会把元素的 _key 同步写回所属实例的字段，
// 只接受带 _key 的元素，失败时列表与字段都不变。
type RefList[M Instance] struct {
	rel   *MapMany[M]
	items []M
}

// Len 元素个数
func (l *RefList[M]) Len() int { return len(l.items) }

// At 第 i 个元素
func (l *RefList[M]) At(i int) M { return l.items[i] }

// Items 元素副本
func (l *RefList[M]) Items() []M {
	return append([]M(nil), l.items...)
}

// Keys 元素的 _key
func (l *RefList[M]) Keys() []string {
	keys := make([]string, len(l.items))
	for i, m := range l.items {
		keys[i] = m.base().Key()
	}
	return keys
}

// Set 替换第 i 个元素；i 等于 Len 时追加
func (l *RefList[M]) Set(i int, value M) error {
	if i < 0 || i > len(l.items) {
		return errors.NewValidationError("index %d out of range [0, %d]", i, len(l.items))
	}
	if _, ok := keyOf(value); !ok {
		return unkeyed(l.rel.field)
	}
	if i == len(l.items) {
		l.items = append(l.items, value)
	} else {
		l.items[i] = value
	}
	l.sync()
	return nil
}

// SetDocument 以原始文档替换第 i 个元素
func (l *RefList[M]) SetDocument(i int, doc Document) error {
	if _, ok := keyOf(doc); !ok {
		return unkeyed(l.rel.field)
	}
	return l.Set(i, l.rel.target().New(doc))
}

// Append 追加元素
func (l *RefList[M]) Append(values ...M) error {
	if err := l.checkKeys(values); err != nil {
		return err
	}
	l.items = append(l.items, values...)
	l.sync()
	return nil
}

// RemoveAt 删除第 i 个元素
func (l *RefList[M]) RemoveAt(i int) (M, error) {
	var zero M
	if i < 0 || i >= len(l.items) {
		return zero, errors.NewValidationError("index %d out of range [0, %d)", i, len(l.items))
	}
	removed := l.items[i]
	l.items = append(l.items[:i], l.items[i+1:]...)
	l.sync()
	return removed, nil
}

// Splice 从 start 起删除 deleteCount 个元素并插入 values，返回被删除的元素
func (l *RefList[M]) Splice(start, deleteCount int, values ...M) ([]M, error) {
	if start < 0 || start > len(l.items) {
		return nil, errors.NewValidationError("index %d out of range [0, %d]", start, len(l.items))
	}
	if deleteCount < 0 {
		deleteCount = 0
	}
	if start+deleteCount > len(l.items) {
		deleteCount = len(l.items) - start
	}
	if err := l.checkKeys(values); err != nil {
		return nil, err
	}

	removed := append([]M(nil), l.items[start:start+deleteCount]...)
	tail := append([]M(nil), l.items[start+deleteCount:]...)
	l.items = append(append(l.items[:start], values...), tail...)
	l.sync()
	return removed, nil
}

// Truncate 截断到 n 个元素
func (l *RefList[M]) Truncate(n int) error {
	if n < 0 || n > len(l.items) {
		return errors.NewValidationError("length %d out of range [0, %d]", n, len(l.items))
	}
	l.items = l.items[:n]
	l.sync()
	return nil
}

func (l *RefList[M]) checkKeys(values []M) error {
	for _, v := range values {
		if _, ok := keyOf(v); !ok {
			return unkeyed(l.rel.field)
		}
	}
	return nil
}

func (l *RefList[M]) sync() {
	keys := make([]any, len(l.items))
	for i, m := range l.items {
		keys[i] = m.base().Key()
	}
	l.rel.owner.Document()[l.rel.field] = keys
	if l.rel.q != nil {
		l.rel.q.ResolveWithModels(slices.Clone(l.items))
	}
}
