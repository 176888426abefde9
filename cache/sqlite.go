package cache

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Qonfucius/herdb-arangodb/errors"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS herdb_cache (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at INTEGER NOT NULL DEFAULT 0
)`

// SQLiteStore 基于 SQLite 的缓存，expires_at 为 0 表示永不过期
type SQLiteStore struct {
	db    *sql.DB
	ownDB bool
	ttl   time.Duration
	now   func() time.Time
}

// OpenSQLiteStore 打开 dsn 并建表；:memory: 数据库限制为单连接，
// 否则连接池中的每个连接都会看到各自独立的库
func OpenSQLiteStore(ctx context.Context, dsn string, defaultTTL time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeCache, "open sqlite cache")
	}
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	store, err := NewSQLiteStore(ctx, db, defaultTTL)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	store.ownDB = true
	return store, nil
}

// NewSQLiteStore 使用已有连接并建表
func NewSQLiteStore(ctx context.Context, db *sql.DB, defaultTTL time.Duration) (*SQLiteStore, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeCache, "create sqlite cache table")
	}
	return &SQLiteStore{db: db, ttl: defaultTTL, now: time.Now}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM herdb_cache WHERE key = ?`, key).Scan(&value, &expiresAt)
	if stdErrors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.WrapError(err, errors.ErrCodeCache, "sqlite get "+key)
	}
	if expiresAt != 0 && s.now().UnixNano() >= expiresAt {
		if err := s.Delete(ctx, key); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.ttl
	}
	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).UnixNano()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO herdb_cache (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	if err != nil {
		return errors.WrapError(err, errors.ErrCodeCache, "sqlite set "+key)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM herdb_cache WHERE key = ?`, key); err != nil {
		return errors.WrapError(err, errors.ErrCodeCache, "sqlite delete "+key)
	}
	return nil
}

// Purge 删除所有过期条目，返回删除数量
func (s *SQLiteStore) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM herdb_cache WHERE expires_at != 0 AND expires_at <= ?`, s.now().UnixNano())
	if err != nil {
		return 0, errors.WrapError(err, errors.ErrCodeCache, "sqlite purge")
	}
	return res.RowsAffected()
}

// Close 只关闭自己打开的连接
func (s *SQLiteStore) Close() error {
	if !s.ownDB {
		return nil
	}
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
