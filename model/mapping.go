package model

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/Qonfucius/herdb-arangodb/errors"
)

// Mapper 字段映射：Decode 从文档值转换为模型值，Encode 反向
type Mapper struct {
	Decode func(raw any) (any, error)
	Encode func(value any) (any, error)
}

type fieldDef struct {
	name   string
	mapper Mapper
}

// Field 读取字段，经过映射后转换为 T；字段不存在时返回零值
func Field[T any](inst Instance, name string) (T, error) {
	var zero T
	b := inst.base()
	raw, ok := b.Document()[name]
	if !ok || raw == nil {
		return zero, nil
	}

	if b.class != nil {
		if m, ok := b.class.mapper(name); ok && m.Decode != nil {
			decoded, err := m.Decode(raw)
			if err != nil {
				return zero, errors.WrapError(err, errors.ErrCodeType, "decode field "+name)
			}
			raw = decoded
		}
	}

	if v, ok := raw.(T); ok {
		return v, nil
	}

	// JSON 数字解码为 float64 等情况，借助一次编解码转换
	data, err := json.Marshal(raw)
	if err != nil {
		return zero, errors.WrapError(err, errors.ErrCodeType, "convert field "+name)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, errors.NewTypeError("field %q holds %T, cannot convert to %T", name, raw, zero)
	}
	return out, nil
}

// MustField 读取字段，出错时返回零值
func MustField[T any](inst Instance, name string) T {
	v, _ := Field[T](inst, name)
	return v
}

// SetField 经过映射后写入字段
func SetField(inst Instance, name string, value any) error {
	b := inst.base()
	if b.class != nil {
		if m, ok := b.class.mapper(name); ok && m.Encode != nil {
			encoded, err := m.Encode(value)
			if err != nil {
				return errors.WrapError(err, errors.ErrCodeType, "encode field "+name)
			}
			value = encoded
		}
	}
	b.Document()[name] = value
	return nil
}

// IntString 文档中以字符串保存的整数
func IntString() Mapper {
	return Mapper{
		Decode: func(raw any) (any, error) {
			switch v := raw.(type) {
			case string:
				return strconv.Atoi(v)
			case float64:
				return int(v), nil
			default:
				return nil, errors.NewTypeError("expected a numeric string, got %T", raw)
			}
		},
		Encode: func(value any) (any, error) {
			n, ok := value.(int)
			if !ok {
				return nil, errors.NewTypeError("expected int, got %T", value)
			}
			return strconv.Itoa(n), nil
		},
	}
}

// Time 文档中以 RFC 3339 字符串保存的时间
func Time() Mapper {
	return Mapper{
		Decode: func(raw any) (any, error) {
			s, ok := raw.(string)
			if !ok {
				return nil, errors.NewTypeError("expected an RFC 3339 string, got %T", raw)
			}
			return time.Parse(time.RFC3339Nano, s)
		},
		Encode: func(value any) (any, error) {
			t, ok := value.(time.Time)
			if !ok {
				return nil, errors.NewTypeError("expected time.Time, got %T", value)
			}
			return t.UTC().Format(time.RFC3339Nano), nil
		},
	}
}
