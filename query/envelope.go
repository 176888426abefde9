package query

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Qonfucius/herdb-arangodb/errors"
)

// Factory 将一条原始数据构造成模型
type Factory[M any] func(raw any) (M, error)

// ModelsFactory 替换默认的集合构造过程（例如关联集合需要同步外键）
type ModelsFactory[M any] func(items []any) ([]M, error)

// Envelope 一次请求的响应
//
// Result / ToModel / ToModels 的结果在第一次成功后缓存。
type Envelope[M any] struct {
	status     int
	statusText string
	header     http.Header
	body       any
	cached     bool

	factory       Factory[M]
	modelsFactory ModelsFactory[M]
	lookup        []string

	result     any
	resultDone bool
	model      M
	modelDone  bool
	models     []M
	modelsDone bool

	value any
}

// NewEnvelope 用已解析的响应体构造响应
func NewEnvelope[M any](status int, body any) *Envelope[M] {
	return &Envelope[M]{
		status:     status,
		statusText: http.StatusText(status),
		header:     make(http.Header),
		body:       body,
	}
}

func (e *Envelope[M]) Status() int         { return e.status }
func (e *Envelope[M]) StatusText() string  { return e.statusText }
func (e *Envelope[M]) Header() http.Header { return e.header }
func (e *Envelope[M]) Body() any           { return e.body }

// Cached 响应来自缓存而非网络
func (e *Envelope[M]) Cached() bool { return e.cached }

// Value 最后一个产生值的指令的结果
func (e *Envelope[M]) Value() any { return e.value }

// SetModel 设置模型工厂
func (e *Envelope[M]) SetModel(factory Factory[M]) *Envelope[M] {
	e.factory = factory
	return e
}

// SetModelsFactory 设置集合构造过程
func (e *Envelope[M]) SetModelsFactory(factory ModelsFactory[M]) *Envelope[M] {
	e.modelsFactory = factory
	return e
}

// OK 状态码 >= 400 时返回分类错误
func (e *Envelope[M]) OK() error {
	if e.status >= http.StatusBadRequest {
		return errors.NewQueryError(e.status, e.statusText, e.body)
	}
	return nil
}

// DataLookup 设置数据路径
func (e *Envelope[M]) DataLookup(path ...string) *Envelope[M] {
	e.lookup = append([]string(nil), path...)
	return e
}

// LookupPath 当前数据路径
func (e *Envelope[M]) LookupPath() []string {
	return append([]string(nil), e.lookup...)
}

// Lookup 沿数据路径取值
//
// 未设置路径时返回整个响应体；某一段不存在时，
// raise 为 false 返回 nil，否则返回包含完整路径的查找错误。
// 对象按键取值，数组按十进制下标取值。
func (e *Envelope[M]) Lookup(raise bool) (any, error) {
	current := e.body
	for _, segment := range e.lookup {
		next, ok := step(current, segment)
		if !ok {
			if raise {
				return nil, errors.NewLookupError(e.lookup)
			}
			return nil, nil
		}
		current = next
	}
	return current, nil
}

func step(current any, segment string) (any, bool) {
	switch v := current.(type) {
	case map[string]any:
		next, ok := v[segment]
		return next, ok
	case []any:
		index, err := strconv.Atoi(segment)
		if err != nil || index < 0 || index >= len(v) {
			return nil, false
		}
		return v[index], true
	default:
		return nil, false
	}
}

// Result 必需的路径查找，结果缓存
func (e *Envelope[M]) Result() (any, error) {
	if e.resultDone {
		return e.result, nil
	}
	v, err := e.Lookup(true)
	if err != nil {
		return nil, err
	}
	e.result, e.resultDone = v, true
	return v, nil
}

// Cursor 与 Result 相同，用于 _api/cursor 响应
func (e *Envelope[M]) Cursor() (any, error) {
	return e.Result()
}

// JSON 原始响应体
func (e *Envelope[M]) JSON() any {
	return e.body
}

// ToModel 构造单个模型
func (e *Envelope[M]) ToModel() (M, error) {
	var zero M
	if e.modelDone {
		return e.model, nil
	}
	if e.factory == nil {
		return zero, errors.NewConfigurationError("no model factory set, unable to hydrate the response")
	}
	if err := e.OK(); err != nil {
		return zero, err
	}
	raw, err := e.Lookup(true)
	if err != nil {
		return zero, err
	}
	m, err := e.factory(raw)
	if err != nil {
		return zero, err
	}
	e.model, e.modelDone = m, true
	return m, nil
}

// ToModels 构造模型集合，查找结果必须是数组
func (e *Envelope[M]) ToModels() ([]M, error) {
	if e.modelsDone {
		return e.models, nil
	}
	if e.factory == nil && e.modelsFactory == nil {
		return nil, errors.NewConfigurationError("no model factory set, unable to hydrate the response")
	}
	if err := e.OK(); err != nil {
		return nil, err
	}
	raw, err := e.Lookup(true)
	if err != nil {
		return nil, err
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, errors.NewTypeError("value at %q is %T, not a sequence; use ToModel for a single document", e.lookup, raw)
	}

	var models []M
	if e.modelsFactory != nil {
		models, err = e.modelsFactory(items)
		if err != nil {
			return nil, err
		}
	} else {
		models = make([]M, 0, len(items))
		for _, item := range items {
			m, err := e.factory(item)
			if err != nil {
				return nil, err
			}
			models = append(models, m)
		}
	}
	e.models, e.modelsDone = models, true
	return models, nil
}

// Decode 将 Result 解码到 out
func (e *Envelope[M]) Decode(out any) error {
	v, err := e.Result()
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return errors.WrapError(err, errors.ErrCodeType, "encode result")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.WrapError(err, errors.ErrCodeType, "decode result")
	}
	return nil
}

// resolved 直接赋值得到的响应
func resolved[M any](value any) *Envelope[M] {
	env := NewEnvelope[M](http.StatusOK, nil)
	env.value = value
	return env
}
