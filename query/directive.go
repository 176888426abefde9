package query

import "strings"

// directive 执行后作用在响应上的一个处理步骤
type directive[M any] struct {
	key   string
	apply func(env *Envelope[M]) error
}

// register 按名称与参数去重，保留第一次注册的位置
func (q *Query[M]) register(name string, args []string, apply func(env *Envelope[M]) error) *Query[M] {
	key := name
	if len(args) > 0 {
		key += "\x00" + strings.Join(args, "\x00")
	}
	if _, ok := q.seen[key]; ok {
		return q
	}
	q.seen[key] = struct{}{}
	q.directives = append(q.directives, directive[M]{key: key, apply: apply})
	return q
}

// Directives 已注册指令的名称（按顺序），用于调试与测试
func (q *Query[M]) Directives() []string {
	names := make([]string, len(q.directives))
	for i, d := range q.directives {
		names[i] = strings.ReplaceAll(d.key, "\x00", ":")
	}
	return names
}

// DataLookup 设置响应的数据路径
func (q *Query[M]) DataLookup(path ...string) *Query[M] {
	path = append([]string(nil), path...)
	return q.register("dataLookup", path, func(env *Envelope[M]) error {
		env.DataLookup(path...)
		return nil
	})
}

// OK 状态码 >= 400 时中止并返回分类错误
func (q *Query[M]) OK() *Query[M] {
	return q.register("ok", nil, func(env *Envelope[M]) error {
		return env.OK()
	})
}

// ToModel 构造单个模型
//
// 先合并延迟的模型查询参数，再注册延迟的模型数据路径。
func (q *Query[M]) ToModel() *Query[M] {
	q.applyModelOptions()
	return q.register("toModel", nil, func(env *Envelope[M]) error {
		m, err := env.ToModel()
		if err != nil {
			return err
		}
		env.value = m
		return nil
	})
}

// ToModels 构造模型集合
func (q *Query[M]) ToModels() *Query[M] {
	q.applyModelOptions()
	return q.register("toModels", nil, func(env *Envelope[M]) error {
		ms, err := env.ToModels()
		if err != nil {
			return err
		}
		env.value = ms
		return nil
	})
}

func (q *Query[M]) applyModelOptions() {
	if len(q.modelParams) > 0 {
		q.SetQueryParameters(q.modelParams)
	}
	if len(q.modelLookup) > 0 {
		q.DataLookup(q.modelLookup...)
	}
}

// JSON 以原始响应体作为结果
func (q *Query[M]) JSON() *Query[M] {
	return q.register("json", nil, func(env *Envelope[M]) error {
		env.value = env.JSON()
		return nil
	})
}

// Result 以必需的路径查找结果作为结果
func (q *Query[M]) Result() *Query[M] {
	return q.register("result", nil, func(env *Envelope[M]) error {
		v, err := env.Result()
		if err != nil {
			return err
		}
		env.value = v
		return nil
	})
}

// Cursor 与 Result 相同，用于 _api/cursor
func (q *Query[M]) Cursor() *Query[M] {
	return q.register("cursor", nil, func(env *Envelope[M]) error {
		v, err := env.Cursor()
		if err != nil {
			return err
		}
		env.value = v
		return nil
	})
}
