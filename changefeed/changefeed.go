// Package changefeed 在写操作成功后发布变更通知
//
// 通知是尽力而为的：发布失败只记录日志，不影响写操作的结果。
package changefeed

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Operation 写操作类型
type Operation string

const (
	OpCreate   Operation = "create"
	OpReplace  Operation = "replace"
	OpUpdate   Operation = "update"
	OpDelete   Operation = "delete"
	OpTruncate Operation = "truncate"
)

// Change 一次成功的写操作
type Change struct {
	ID         string    `json:"id"`
	Database   string    `json:"database"`
	Collection string    `json:"collection"`
	Key        string    `json:"key,omitempty"`
	Rev        string    `json:"rev,omitempty"`
	Operation  Operation `json:"operation"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewChange 创建变更，ID 与时间戳自动填充
func NewChange(database, collection, key, rev string, op Operation) Change {
	return Change{
		ID:         uuid.NewString(),
		Database:   database,
		Collection: collection,
		Key:        key,
		Rev:        rev,
		Operation:  op,
		Timestamp:  time.Now().UTC(),
	}
}

// Publisher 变更发布者
type Publisher interface {
	Publish(ctx context.Context, change Change) error
}

// MemoryPublisher 在内存中记录变更，并同步通知订阅者
type MemoryPublisher struct {
	mu          sync.RWMutex
	changes     []Change
	subscribers []func(Change)
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, change Change) error {
	p.mu.Lock()
	p.changes = append(p.changes, change)
	subs := append([]func(Change){}, p.subscribers...)
	p.mu.Unlock()

	for _, fn := range subs {
		fn(change)
	}
	return nil
}

// Subscribe 注册订阅者
func (p *MemoryPublisher) Subscribe(fn func(Change)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, fn)
}

// Changes 已记录的变更（副本）
func (p *MemoryPublisher) Changes() []Change {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Change(nil), p.changes...)
}

// Reset 清空记录
func (p *MemoryPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = nil
}

// NoopPublisher 丢弃所有变更
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Change) error { return nil }

var (
	_ Publisher = (*MemoryPublisher)(nil)
	_ Publisher = NoopPublisher{}
)
