package model

import (
	"sort"
	"strconv"
	"sync"

	"github.com/Qonfucius/herdb-arangodb/connection"
	"github.com/Qonfucius/herdb-arangodb/errors"
	"github.com/Qonfucius/herdb-arangodb/keygen"
	"github.com/Qonfucius/herdb-arangodb/query"
	"github.com/Qonfucius/herdb-arangodb/validation"
)

// ClassOption 模型类选项
type ClassOption func(*classOptions)

type classOptions struct {
	collection string
	fields     []fieldDef
	relations  []string
	keys       keygen.Generator
	cacheable  bool
}

// WithCollectionName 指定集合名，不经过规范化
func WithCollectionName(name string) ClassOption {
	return func(o *classOptions) { o.collection = name }
}

// WithField 为字段注册映射
func WithField(name string, m Mapper) ClassOption {
	return func(o *classOptions) { o.fields = append(o.fields, fieldDef{name: name, mapper: m}) }
}

// WithRelations 声明保存关联 _key 的字段
func WithRelations(fields ...string) ClassOption {
	return func(o *classOptions) { o.relations = append(o.relations, fields...) }
}

// WithKeyGenerator 创建时为没有 _key 的文档生成 _key
func WithKeyGenerator(g keygen.Generator) ClassOption {
	return func(o *classOptions) { o.keys = g }
}

// WithCacheable 按 _key 读取时使用连接上的缓存
func WithCacheable(enable bool) ClassOption {
	return func(o *classOptions) { o.cacheable = enable }
}

// Class 模型类：名称、集合、字段映射与实例工厂
type Class[M Instance] struct {
	name    string
	factory func() M
	opts    classOptions
	fields  map[string]Mapper

	mu   sync.RWMutex
	conn *connection.Connection
}

// Define 定义模型类，注册到连接后才能发出请求
func Define[M Instance](name string, factory func() M, opts ...ClassOption) *Class[M] {
	c := &Class[M]{
		name:    name,
		factory: factory,
		fields:  make(map[string]Mapper),
	}
	for _, opt := range opts {
		opt(&c.opts)
	}
	for _, f := range c.opts.fields {
		c.fields[f.name] = f.mapper
	}
	return c
}

// Name 模型名
func (c *Class[M]) Name() string { return c.name }

// CollectionName 集合名，未指定时由连接的规范化函数从模型名得到
func (c *Class[M]) CollectionName() string {
	if c.opts.collection != "" {
		return c.opts.collection
	}
	if conn := c.Connection(); conn != nil {
		return conn.NormalizeCollectionName(c.name)
	}
	return connection.DefaultCollectionNameNormalizer(c.name)
}

// Connection 已绑定的连接，未注册时为 nil
func (c *Class[M]) Connection() *connection.Connection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// Fields 注册了映射的字段（有序）
func (c *Class[M]) Fields() []string {
	names := make([]string, 0, len(c.fields))
	for name := range c.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Relations 关联字段
func (c *Class[M]) Relations() []string {
	return append([]string(nil), c.opts.relations...)
}

// Bind 校验模型定义并绑定连接，由 connection.Register 调用
func (c *Class[M]) Bind(conn *connection.Connection) error {
	if c.factory == nil {
		return errors.NewConfigurationError("model %q has no factory", c.name)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if err := c.validate(); err != nil {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		return err
	}
	return nil
}

func (c *Class[M]) validate() error {
	if err := validation.ValidateCollectionName(c.CollectionName()); err != nil {
		return err
	}

	seen := make(map[string]string)
	check := func(name, kind string) error {
		if name == "" {
			return errors.NewValidationError("%s name is required", kind)
		}
		if isMetadataField(name) {
			return errors.NewValidationError("%s %q shadows a metadata field", kind, name)
		}
		if prev, ok := seen[name]; ok {
			return errors.NewValidationError("%s %q is already declared as a %s", kind, name, prev)
		}
		seen[name] = kind
		return nil
	}
	for _, f := range c.opts.fields {
		if err := check(f.name, "field"); err != nil {
			return err
		}
		if f.mapper.Decode == nil && f.mapper.Encode == nil {
			return errors.NewValidationError("field %q has an empty mapper", f.name)
		}
	}
	for _, r := range c.opts.relations {
		if err := check(r, "relation"); err != nil {
			return err
		}
	}
	return nil
}

func (c *Class[M]) mapper(field string) (Mapper, bool) {
	m, ok := c.fields[field]
	return m, ok
}

// New 以 doc 创建实例；doc 为 nil 时为空文档
func (c *Class[M]) New(doc Document) M {
	m := c.factory()
	b := m.base()
	if doc == nil {
		doc = make(Document)
	}
	b.doc = doc
	b.class = c
	b.maps = nil
	return m
}

// Hydrate 由原始文档构造实例；已是实例时原样返回
func (c *Class[M]) Hydrate(raw any) (M, error) {
	var zero M
	switch v := raw.(type) {
	case M:
		return v, nil
	case Document:
		return c.New(v), nil
	case map[string]any:
		return c.New(Document(v)), nil
	default:
		return zero, errors.NewTypeError("cannot build %s from %T", c.name, raw)
	}
}

// HydrateAll 批量构造
func (c *Class[M]) HydrateAll(items []any) ([]M, error) {
	out := make([]M, 0, len(items))
	for i, item := range items {
		m, err := c.Hydrate(item)
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrCodeType, "item "+strconv.Itoa(i))
		}
		out = append(out, m)
	}
	return out, nil
}

func (c *Class[M]) requestConfig() (query.Config, error) {
	conn := c.Connection()
	if conn == nil {
		return query.Config{}, errors.NewConfigurationError("model %q is not registered to a connection", c.name)
	}
	return conn.RequestConfig()
}

// request 构造 _api/<path...> 请求，结果类型为 T
func request[T any](c interface {
	requestConfig() (query.Config, error)
}, path ...string) *query.Query[T] {
	cfg, err := c.requestConfig()
	if err != nil {
		return query.Failed[T](err)
	}
	return query.New[T](cfg, append([]string{"_api"}, path...)...)
}

func (c *Class[M]) newQuery(path ...string) *query.Query[M] {
	return request[M](c, path...)
}
