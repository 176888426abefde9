// Package aql 构造带绑定变量的 AQL 查询
//
// 模板中的 ? 为插值点，?? 表示字面量 ?：
//
//	q := aql.New("FOR doc IN ? FILTER doc.age > ? RETURN doc", users, 18)
//	// q.Query    == "FOR doc IN @@value0 FILTER doc.age > @value1 RETURN doc"
//	// q.BindVars == {"@value0": "users", "value1": 18}
//
// 插值参数的处理规则：
//   - *Query：拼接进外层模板，其参数在外层重新绑定
//   - Literal：原样内联 AQL() 的结果
//   - nil：不内联任何内容
//   - CollectionRef：以 @@valueN 绑定集合名
//   - 其他值：以 @valueN 绑定，深度相等的值复用同一个绑定变量
package aql

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/Qonfucius/herdb-arangodb/errors"
)

// Query 发送到 _api/cursor 的查询
type Query struct {
	Query    string         `json:"query"`
	BindVars map[string]any `json:"bindVars"`

	// 模板来源，用于被其他查询拼接
	strings []string
	args    []any
}

// Literal 直接内联进查询文本的值
type Literal interface {
	AQL() string
}

// CollectionRef 以集合名绑定的值（如模型类）
type CollectionRef interface {
	CollectionName() string
}

type rawLiteral string

func (r rawLiteral) AQL() string { return string(r) }

// Raw 创建内联字面量
func Raw(s string) Literal {
	return rawLiteral(s)
}

// Collection 按名称引用集合
func Collection(name string) CollectionRef {
	return collectionName(name)
}

type collectionName string

func (c collectionName) CollectionName() string { return string(c) }

// New 构造查询，模板与参数个数不匹配时 panic
func New(template string, args ...any) *Query {
	q, err := Build(template, args...)
	if err != nil {
		panic(err)
	}
	return q
}

// Build 构造查询
func Build(template string, args ...any) (*Query, error) {
	parts := splitTemplate(template)
	if len(parts) != len(args)+1 {
		return nil, errors.NewConfigurationError(
			"aql template has %d placeholders but %d arguments were given", len(parts)-1, len(args))
	}
	return compile(parts, args)
}

// Join 用分隔符连接多个查询
func Join(queries []*Query, sep string) *Query {
	parts := make([]string, len(queries)+1)
	args := make([]any, len(queries))
	for i, q := range queries {
		if i > 0 {
			parts[i] = sep
		}
		args[i] = q
	}
	q, err := compile(parts, args)
	if err != nil {
		panic(err)
	}
	return q
}

// IsQuery 判断值是否为查询
func IsQuery(v any) bool {
	q, ok := v.(*Query)
	return ok && q != nil
}

// String 返回查询文本
func (q *Query) String() string {
	return q.Query
}

// splitTemplate 按 ? 切分模板，?? 还原为字面量 ?
func splitTemplate(template string) []string {
	parts := []string{}
	var cur strings.Builder
	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '?' {
			cur.WriteByte(c)
			continue
		}
		if i+1 < len(template) && template[i+1] == '?' {
			cur.WriteByte('?')
			i++
			continue
		}
		parts = append(parts, cur.String())
		cur.Reset()
	}
	return append(parts, cur.String())
}

// flatten 展开嵌套查询，返回只含非查询参数的 strings/args
func flatten(parts []string, args []any) ([]string, []any, error) {
	outParts := []string{parts[0]}
	outArgs := make([]any, 0, len(args))

	for i, arg := range args {
		nested, ok := arg.(*Query)
		if !ok || nested == nil {
			outArgs = append(outArgs, arg)
			outParts = append(outParts, parts[i+1])
			continue
		}

		var nestedParts []string
		var nestedArgs []any
		switch {
		case nested.strings != nil:
			var err error
			nestedParts, nestedArgs, err = flatten(nested.strings, nested.args)
			if err != nil {
				return nil, nil, err
			}
		case len(nested.BindVars) == 0:
			nestedParts = []string{nested.Query}
		default:
			return nil, nil, errors.NewConfigurationError("cannot splice a query with pre-bound variables")
		}

		outParts[len(outParts)-1] += nestedParts[0]
		for j, na := range nestedArgs {
			outArgs = append(outArgs, na)
			outParts = append(outParts, nestedParts[j+1])
		}
		outParts[len(outParts)-1] += parts[i+1]
	}
	return outParts, outArgs, nil
}

type boundValue struct {
	collection bool
	value      any
}

func compile(parts []string, args []any) (*Query, error) {
	parts, args, err := flatten(parts, args)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(parts[0])
	bindVars := make(map[string]any)
	var bound []boundValue

	for i, arg := range args {
		switch v := arg.(type) {
		case nil:
		case Literal:
			b.WriteString(v.AQL())
		default:
			entry := boundValue{value: arg}
			if ref, ok := arg.(CollectionRef); ok {
				entry = boundValue{collection: true, value: ref.CollectionName()}
			}

			index := -1
			for j, known := range bound {
				if known.collection == entry.collection && reflect.DeepEqual(known.value, entry.value) {
					index = j
					break
				}
			}
			if index == -1 {
				index = len(bound)
				bound = append(bound, entry)
			}

			name := fmt.Sprintf("value%d", index)
			if entry.collection {
				name = "@" + name
			}
			bindVars[name] = entry.value
			b.WriteString("@")
			b.WriteString(name)
		}
		b.WriteString(parts[i+1])
	}

	return &Query{
		Query:    b.String(),
		BindVars: bindVars,
		strings:  parts,
		args:     args,
	}, nil
}
