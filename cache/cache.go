// Package cache 提供按键缓存文档的存储后端
//
// 三种实现共享 Store 接口：
//   - MemoryStore：进程内 LRU + TTL
//   - RedisStore：基于 go-redis，多进程共享
//   - SQLiteStore：基于 modernc.org/sqlite，可持久化
//
// 缓存失败不应影响查询本身，调用方只记录日志。
package cache

import (
	"container/list"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Store 文档缓存
type Store interface {
	// Get 返回缓存值，未命中时 found 为 false
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set 写入缓存，ttl <= 0 使用后端默认值
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete 删除缓存，不存在时不报错
	Delete(ctx context.Context, key string) error
}

// DocumentKey 文档缓存键：<database>/<collection>/<key>
func DocumentKey(database, collection, key string) string {
	if database == "" {
		database = "_system"
	}
	return strings.Join([]string{database, collection, key}, "/")
}

// Config 内存缓存配置
type Config struct {
	// Name 缓存名称（用于日志和统计）
	Name string

	// MaxSize 最大缓存条目数，0 表示无限制（不推荐）
	MaxSize int

	// DefaultTTL Set 未指定 ttl 时使用，0 表示永不过期
	DefaultTTL time.Duration

	// OnEvict 驱逐回调（可选）
	OnEvict func(key string, value []byte)
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Name:       "documents",
		MaxSize:    10000,
		DefaultTTL: 5 * time.Minute,
	}
}

// Stats 缓存统计信息
type Stats struct {
	Hits      int64 // 缓存命中次数
	Misses    int64 // 缓存未命中次数
	Evictions int64 // LRU 驱逐次数
	Expires   int64 // TTL 过期次数
	Size      int   // 当前条目数
}

// MemoryStore 进程内缓存
//
// 超过容量时驱逐最久未使用的条目；每个条目按写入时的 ttl 过期。
type MemoryStore struct {
	config Config
	now    func() time.Time

	items   map[string]*entry
	lruList *list.List // 最近使用的在前

	mu    sync.Mutex
	stats Stats
}

type entry struct {
	key        string
	value      []byte
	expiresAt  time.Time // 零值表示永不过期
	lruElement *list.Element
}

// NewMemoryStore 创建内存缓存
func NewMemoryStore(config Config) *MemoryStore {
	if config.Name == "" {
		config.Name = "unnamed"
	}
	return &MemoryStore{
		config:  config,
		now:     time.Now,
		items:   make(map[string]*entry),
		lruList: list.New(),
	}
}

// Get 获取缓存值
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	// Get 会调整 LRU 顺序，因此使用互斥锁而非读锁
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[key]
	if !ok {
		s.stats.Misses++
		return nil, false, nil
	}
	if s.expired(e) {
		s.removeUnsafe(e)
		s.stats.Misses++
		s.stats.Expires++
		return nil, false, nil
	}

	s.lruList.MoveToFront(e.lruElement)
	s.stats.Hits++
	return append([]byte(nil), e.value...), true, nil
}

// Set 写入缓存
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ttl <= 0 {
		ttl = s.config.DefaultTTL
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}
	value = append([]byte(nil), value...)

	if e, ok := s.items[key]; ok {
		e.value, e.expiresAt = value, expiresAt
		s.lruList.MoveToFront(e.lruElement)
		return nil
	}

	if s.config.MaxSize > 0 && len(s.items) >= s.config.MaxSize {
		if oldest := s.lruList.Back(); oldest != nil {
			s.removeUnsafe(oldest.Value.(*entry))
			s.stats.Evictions++
		}
	}

	e := &entry{key: key, value: value, expiresAt: expiresAt}
	e.lruElement = s.lruList.PushFront(e)
	s.items[key] = e
	return nil
}

// Delete 删除缓存条目
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.items[key]; ok {
		s.removeUnsafe(e)
	}
	return nil
}

// CleanExpired 清理过期条目，返回清理数量
func (s *MemoryStore) CleanExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cleaned := 0
	for _, e := range s.items {
		if s.expired(e) {
			s.removeUnsafe(e)
			cleaned++
		}
	}
	s.stats.Expires += int64(cleaned)
	return cleaned
}

// Stats 统计信息（副本）
func (s *MemoryStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.stats
	stats.Size = len(s.items)
	return stats
}

// Len 当前条目数
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *MemoryStore) expired(e *entry) bool {
	return !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)
}

func (s *MemoryStore) removeUnsafe(e *entry) {
	if s.config.OnEvict != nil {
		s.config.OnEvict(e.key, e.value)
	}
	s.lruList.Remove(e.lruElement)
	delete(s.items, e.key)
}

// String 返回缓存信息的字符串表示
func (s *MemoryStore) String() string {
	stats := s.Stats()
	return fmt.Sprintf("MemoryStore[%s]: size=%d/%d, hits=%d, misses=%d, evictions=%d, expires=%d",
		s.config.Name, stats.Size, s.config.MaxSize, stats.Hits, stats.Misses, stats.Evictions, stats.Expires)
}

var _ Store = (*MemoryStore)(nil)
