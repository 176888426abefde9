// Package query 实现延迟执行的请求构建器
//
// 构建器只累积请求参数与响应处理指令，直到 Exec（或某个终结方法）
// 被调用时才发出唯一一次 HTTP 请求；之后再次执行返回同一个响应。
//
//	user, err := query.New[*User](cfg, "_api", "document", "users", key).
//		BasicAuth(true).
//		SetModel(hydrate).
//		OK().
//		Model(ctx)
package query

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Qonfucius/herdb-arangodb/dburl"
	"github.com/Qonfucius/herdb-arangodb/errors"
	"github.com/Qonfucius/herdb-arangodb/logging"
)

// Doer 发送 HTTP 请求，*http.Client 满足该接口
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Cache 响应缓存，cache.Store 满足该接口
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Hook 请求完成后、指令执行前调用
type Hook[M any] func(ctx context.Context, env *Envelope[M])

// Config 构建器的连接参数
type Config struct {
	URL    dburl.URL
	Client Doer
	Logger logging.Logger
}

// Query 延迟执行的请求构建器
//
// 一个构建器只执行一次。指令注册不是并发安全的，
// 不要在多个 goroutine 中同时向同一个构建器添加指令。
type Query[M any] struct {
	url    dburl.URL
	client Doer
	logger logging.Logger

	paths   []string
	method  string
	body    any
	params  map[string]string
	headers http.Header

	directives []directive[M]
	seen       map[string]struct{}

	factory       Factory[M]
	modelsFactory ModelsFactory[M]
	modelLookup   []string
	modelParams   map[string]any

	requireDatabase bool
	authErr         error
	err             error

	cache    Cache
	cacheKey string
	cacheTTL time.Duration
	hooks    []Hook[M]

	mu       sync.Mutex
	done     bool
	envelope *Envelope[M]
	execErr  error
}

// New 创建构建器，path 为请求路径片段
func New[M any](cfg Config, path ...string) *Query[M] {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Component("query")
	}
	return &Query[M]{
		url:     cfg.URL.Clone(),
		client:  client,
		logger:  logger,
		paths:   append([]string(nil), path...),
		method:  http.MethodGet,
		params:  make(map[string]string),
		headers: http.Header{"Accept": []string{"application/json"}},
		seen:    make(map[string]struct{}),
	}
}

// Failed 创建执行时直接返回 err 的构建器，不会发出请求
func Failed[M any](err error) *Query[M] {
	q := New[M](Config{})
	q.err = err
	return q
}

// Err 执行前即可确定的错误
func (q *Query[M]) Err() error {
	if q.err != nil {
		return q.err
	}
	if q.authErr != nil {
		return q.authErr
	}
	if q.requireDatabase && q.url.Database == "" {
		return errors.NewConfigurationError("no database selected for %s %s", q.method, strings.Join(q.paths, "/"))
	}
	return nil
}

// Fail 记录构建阶段的错误，执行时返回
func (q *Query[M]) Fail(err error) *Query[M] {
	if q.err == nil {
		q.err = err
	}
	return q
}

func (q *Query[M]) SetMethod(method string) *Query[M] {
	q.method = strings.ToUpper(method)
	return q
}

// SetBody 设置请求体，执行时再序列化为 JSON
func (q *Query[M]) SetBody(body any) *Query[M] {
	q.body = body
	return q
}

func (q *Query[M]) SetHeader(key, value string) *Query[M] {
	q.headers.Set(key, value)
	return q
}

func (q *Query[M]) SetHeaders(headers map[string]string) *Query[M] {
	for k, v := range headers {
		q.headers.Set(k, v)
	}
	return q
}

// SetQueryParameters 浅合并到已有参数
func (q *Query[M]) SetQueryParameters(params map[string]any) *Query[M] {
	for k, v := range params {
		q.params[k] = fmt.Sprint(v)
	}
	return q
}

// SetDatabase 仅对本次请求覆盖数据库
func (q *Query[M]) SetDatabase(name string) *Query[M] {
	q.url.Database = name
	return q
}

// RequireDatabase 执行时要求已选择数据库
func (q *Query[M]) RequireDatabase() *Query[M] {
	q.requireDatabase = true
	return q
}

// SetModel 设置模型工厂
func (q *Query[M]) SetModel(factory Factory[M]) *Query[M] {
	q.factory = factory
	return q
}

// SetModelsFactory 替换 ToModels 的集合构造过程
func (q *Query[M]) SetModelsFactory(factory ModelsFactory[M]) *Query[M] {
	q.modelsFactory = factory
	return q
}

// SetModelDataLookup 只在请求模型时生效的数据路径
func (q *Query[M]) SetModelDataLookup(path ...string) *Query[M] {
	q.modelLookup = append([]string(nil), path...)
	return q
}

// SetModelQueryParameters 只在请求模型时合并的查询参数
func (q *Query[M]) SetModelQueryParameters(params map[string]any) *Query[M] {
	if q.modelParams == nil {
		q.modelParams = make(map[string]any, len(params))
	}
	for k, v := range params {
		q.modelParams[k] = v
	}
	return q
}

// ReturnNew 要求后端返回写入后的文档
func (q *Query[M]) ReturnNew() *Query[M] {
	return q.SetQueryParameters(map[string]any{"returnNew": true})
}

// BasicAuth 开启时要求用户名和密码，并设置 Authorization 头；关闭时移除
func (q *Query[M]) BasicAuth(enable bool) *Query[M] {
	if !enable {
		q.authErr = nil
		q.headers.Del("Authorization")
		return q
	}
	if !q.url.HasCredentials() {
		q.authErr = errors.NewConfigurationError("basic auth requires both username and password")
		return q
	}
	q.authErr = nil
	token := base64.StdEncoding.EncodeToString([]byte(q.url.Username + ":" + q.url.Password))
	q.headers.Set("Authorization", "Basic "+token)
	return q
}

// WithCache 先查缓存，命中时不发请求；成功的响应写回缓存
func (q *Query[M]) WithCache(store Cache, key string, ttl time.Duration) *Query[M] {
	q.cache, q.cacheKey, q.cacheTTL = store, key, ttl
	return q
}

// OnExecuted 注册执行完成后的回调
func (q *Query[M]) OnExecuted(hook Hook[M]) *Query[M] {
	q.hooks = append(q.hooks, hook)
	return q
}

// ResolveWith 不发请求，直接以 value 作为结果
func (q *Query[M]) ResolveWith(value M) *Query[M] {
	q.mu.Lock()
	defer q.mu.Unlock()
	env := resolved[M](value)
	env.model, env.modelDone = value, true
	q.envelope, q.execErr, q.done = env, nil, true
	return q
}

// ResolveWithModels 不发请求，直接以 values 作为集合结果
func (q *Query[M]) ResolveWithModels(values []M) *Query[M] {
	q.mu.Lock()
	defer q.mu.Unlock()
	env := resolved[M](values)
	env.models, env.modelsDone = values, true
	q.envelope, q.execErr, q.done = env, nil, true
	return q
}

// Executed 是否已执行（或已直接赋值）
func (q *Query[M]) Executed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.done
}

func (q *Query[M]) Method() string { return q.method }

func (q *Query[M]) Database() string { return q.url.Database }

// Header 请求头的当前值
func (q *Query[M]) Header(key string) string {
	return q.headers.Get(key)
}

// URL 根据连接、路径与参数生成请求地址
func (q *Query[M]) URL() string {
	var b strings.Builder
	b.WriteString(q.url.BaseURL())
	if q.url.Database != "" {
		b.WriteString("/_db/")
		b.WriteString(url.PathEscape(q.url.Database))
	}
	for _, p := range q.paths {
		b.WriteString("/")
		b.WriteString(url.PathEscape(p))
	}
	if len(q.params) > 0 {
		values := make(url.Values, len(q.params))
		for k, v := range q.params {
			values.Set(k, v)
		}
		b.WriteString("?")
		b.WriteString(values.Encode())
	}
	return b.String()
}

// Exec 执行请求并按注册顺序应用指令
//
// 至多执行一次，之后返回同一个响应与错误。
// 收到响应后出现的错误会同时返回该响应。
func (q *Query[M]) Exec(ctx context.Context) (*Envelope[M], error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.done {
		return q.envelope, q.execErr
	}
	q.done = true
	q.envelope, q.execErr = q.run(ctx)
	return q.envelope, q.execErr
}

func (q *Query[M]) run(ctx context.Context) (*Envelope[M], error) {
	if err := q.Err(); err != nil {
		return nil, err
	}

	env := q.fromCache(ctx)
	if env == nil {
		var err error
		env, err = q.send(ctx)
		if err != nil {
			return nil, err
		}
		q.toCache(ctx, env)
	}

	env.factory = q.factory
	env.modelsFactory = q.modelsFactory
	for _, hook := range q.hooks {
		hook(ctx, env)
	}

	for _, d := range q.directives {
		if err := d.apply(env); err != nil {
			return env, err
		}
	}
	return env, nil
}

func (q *Query[M]) send(ctx context.Context) (*Envelope[M], error) {
	var reader io.Reader
	if q.body != nil {
		data, err := json.Marshal(q.body)
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrCodeType, "encode request body")
		}
		reader = bytes.NewReader(data)
	}

	target := q.URL()
	req, err := http.NewRequestWithContext(ctx, q.method, target, reader)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeConfiguration, "build request")
	}
	req.Header = q.headers.Clone()
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := q.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	env := NewEnvelope[M](resp.StatusCode, decodeBody(data))
	env.header = resp.Header
	if text := strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode))); text != "" {
		env.statusText = text
	}

	q.logger.Debug(ctx, "query executed",
		logging.String("method", q.method),
		logging.String("url", target),
		logging.Int("status", resp.StatusCode),
		logging.Duration("took", time.Since(start)),
	)
	return env, nil
}

// decodeBody 空响应为 nil，非 JSON 响应保留原文
func decodeBody(data []byte) any {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	var body any
	if err := json.Unmarshal(data, &body); err != nil {
		return string(data)
	}
	return body
}

func (q *Query[M]) fromCache(ctx context.Context) *Envelope[M] {
	if q.cache == nil || q.method != http.MethodGet {
		return nil
	}
	data, ok, err := q.cache.Get(ctx, q.cacheKey)
	if err != nil {
		q.logger.Warn(ctx, "cache get failed", logging.String("key", q.cacheKey), logging.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	env := NewEnvelope[M](http.StatusOK, decodeBody(data))
	env.cached = true
	q.logger.Debug(ctx, "query served from cache", logging.String("key", q.cacheKey))
	return env
}

func (q *Query[M]) toCache(ctx context.Context, env *Envelope[M]) {
	if q.cache == nil || q.method != http.MethodGet || env.status >= http.StatusBadRequest {
		return
	}
	data, err := json.Marshal(env.body)
	if err != nil {
		return
	}
	if err := q.cache.Set(ctx, q.cacheKey, data, q.cacheTTL); err != nil {
		q.logger.Warn(ctx, "cache set failed", logging.String("key", q.cacheKey), logging.Error(err))
	}
}

// Resolve 执行并返回最后一个产生值的指令的结果
func (q *Query[M]) Resolve(ctx context.Context) (any, error) {
	env, err := q.Exec(ctx)
	if err != nil {
		return nil, err
	}
	return env.Value(), nil
}

// Model 注册 ToModel 后执行，返回单个模型
func (q *Query[M]) Model(ctx context.Context) (M, error) {
	var zero M
	env, err := q.ToModel().Exec(ctx)
	if err != nil {
		return zero, err
	}
	return env.ToModel()
}

// Models 注册 ToModels 后执行，返回模型集合
func (q *Query[M]) Models(ctx context.Context) ([]M, error) {
	env, err := q.ToModels().Exec(ctx)
	if err != nil {
		return nil, err
	}
	return env.ToModels()
}

// Value 注册 Result 后执行，返回路径查找结果
func (q *Query[M]) Value(ctx context.Context) (any, error) {
	env, err := q.Result().Exec(ctx)
	if err != nil {
		return nil, err
	}
	return env.Result()
}

// Decode 注册 Result 后执行，并将结果解码到 out
func (q *Query[M]) Decode(ctx context.Context, out any) error {
	env, err := q.Result().Exec(ctx)
	if err != nil {
		return err
	}
	return env.Decode(out)
}
