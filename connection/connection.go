// Package connection 管理到 ArangoDB 的连接、数据库操作与模型注册表
package connection

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/Qonfucius/herdb-arangodb/cache"
	"github.com/Qonfucius/herdb-arangodb/changefeed"
	"github.com/Qonfucius/herdb-arangodb/dburl"
	"github.com/Qonfucius/herdb-arangodb/errors"
	"github.com/Qonfucius/herdb-arangodb/logging"
	"github.com/Qonfucius/herdb-arangodb/query"
	"github.com/Qonfucius/herdb-arangodb/validation"
)

// Registrable 可注册到连接的模型类
type Registrable interface {
	Name() string
	Bind(conn *Connection) error
}

// DatabaseInfo _api/database/current 的结果
type DatabaseInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsSystem bool   `json:"isSystem"`
	Path     string `json:"path"`
}

// Connection 连接与模型注册表
//
// 注册在启动阶段完成，之后以只读为主。
type Connection struct {
	opts   Options
	logger logging.Logger

	mu       sync.RWMutex
	url      *dburl.URL
	registry map[string]Registrable
}

// New 创建连接，需调用 Connect 后才能发出请求
func New(opts Options) *Connection {
	defaults := DefaultOptions()
	if opts.CollectionNameNormalizer == nil {
		opts.CollectionNameNormalizer = defaults.CollectionNameNormalizer
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = defaults.HTTPClient
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = defaults.CacheTTL
	}
	if opts.Publisher == nil {
		opts.Publisher = changefeed.NoopPublisher{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetLogger()
	}
	return &Connection{
		opts:     opts,
		logger:   opts.Logger.WithFields(logging.String("component", "connection")),
		registry: make(map[string]Registrable),
	}
}

// Connect 解析连接串并检查当前数据库可访问
func (c *Connection) Connect(ctx context.Context) error {
	u, err := dburl.Parse(c.opts.URI)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.url = &u
	c.mu.Unlock()

	info, err := c.CurrentDatabase(ctx)
	if err != nil {
		return errors.Wrap(ctx, err, errors.GetErrorCode(err), "cannot connect to arangodb")
	}
	c.logger.Info(ctx, "connected",
		logging.String("url", u.Redacted()),
		logging.String("database", info.Name))
	return nil
}

// RequestConfig 为查询构建器提供连接参数（连接描述符的副本）
func (c *Connection) RequestConfig() (query.Config, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.url == nil {
		return query.Config{}, errors.NewConfigurationError("connection is not established, call Connect first")
	}
	return query.Config{
		URL:    c.url.Clone(),
		Client: c.opts.HTTPClient,
		Logger: c.opts.Logger.WithFields(logging.String("component", "query")),
	}, nil
}

// Query 构造 _api/<path...> 的请求；未连接时返回执行即失败的构建器
func (c *Connection) Query(path ...string) *query.Query[any] {
	cfg, err := c.RequestConfig()
	if err != nil {
		return query.Failed[any](err)
	}
	return query.New[any](cfg, append([]string{"_api"}, path...)...)
}

// URL 当前连接描述符
func (c *Connection) URL() (dburl.URL, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.url == nil {
		return dburl.URL{}, false
	}
	return c.url.Clone(), true
}

// Database 当前数据库名
func (c *Connection) Database() string {
	u, _ := c.URL()
	return u.Database
}

func (c *Connection) Logger() logging.Logger          { return c.logger }
func (c *Connection) Cache() cache.Store              { return c.opts.Cache }
func (c *Connection) CacheTTL() time.Duration         { return c.opts.CacheTTL }
func (c *Connection) Publisher() changefeed.Publisher { return c.opts.Publisher }

// NormalizeCollectionName 模型名到集合名
func (c *Connection) NormalizeCollectionName(n string) string {
	return c.opts.CollectionNameNormalizer(n)
}

// CurrentDatabase 查询当前数据库信息
func (c *Connection) CurrentDatabase(ctx context.Context) (*DatabaseInfo, error) {
	var info DatabaseInfo
	err := c.Query("database", "current").
		RequireDatabase().
		BasicAuth(true).
		OK().
		DataLookup("result").
		Decode(ctx, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// SwitchDatabase 切换之后发出的请求所用的数据库
func (c *Connection) SwitchDatabase(name string) *Connection {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.url != nil {
		u := c.url.WithDatabase(name)
		c.url = &u
	}
	return c
}

// CreateDatabase 创建连接串中的数据库；idempotent 时已存在视为成功
func (c *Connection) CreateDatabase(ctx context.Context, idempotent bool) error {
	name := c.Database()
	if name == "" {
		return errors.NewConfigurationError("database name not found")
	}
	if err := validation.ValidateDatabaseName(name); err != nil {
		return err
	}

	_, err := c.Query("database").
		SetDatabase("").
		SetMethod(http.MethodPost).
		SetBody(map[string]any{"name": name}).
		BasicAuth(true).
		OK().
		Exec(ctx)
	if err != nil && idempotent && errors.IsDuplicateName(err) {
		c.logger.Debug(ctx, "database already exists", logging.String("database", name))
		return nil
	}
	return err
}

// DropDatabase 删除连接串中的数据库（请求发往默认数据库）
func (c *Connection) DropDatabase(ctx context.Context) error {
	name := c.Database()
	if name == "" {
		return errors.NewConfigurationError("database name not found")
	}
	_, err := c.Query("database", name).
		SetDatabase("").
		SetMethod(http.MethodDelete).
		BasicAuth(true).
		OK().
		Exec(ctx)
	return err
}

// Register 校验并绑定模型类
func (c *Connection) Register(m Registrable) error {
	name := m.Name()
	if name == "" {
		return errors.NewConfigurationError("cannot register a model without a name")
	}

	c.mu.RLock()
	existing, ok := c.registry[name]
	c.mu.RUnlock()
	if ok && existing != m {
		return errors.NewConfigurationError("model %q is already registered", name)
	}

	if err := m.Bind(c); err != nil {
		return errors.WrapError(err, errors.GetErrorCode(err), "register model "+name)
	}

	c.mu.Lock()
	c.registry[name] = m
	c.mu.Unlock()
	return nil
}

// Model 按名称查找已注册的模型类
func (c *Connection) Model(name string) (Registrable, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.registry[name]
	return m, ok
}

// Models 已注册的模型名（有序）
func (c *Connection) Models() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.registry))
	for name := range c.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
