package model

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Qonfucius/herdb-arangodb/errors"
	"github.com/Qonfucius/herdb-arangodb/query"
	"github.com/Qonfucius/herdb-arangodb/validation"
)

// IndexType 索引类型
type IndexType string

const (
	IndexHash       IndexType = "hash"
	IndexSkiplist   IndexType = "skiplist"
	IndexPersistent IndexType = "persistent"
	IndexTTL        IndexType = "ttl"
	IndexZKD        IndexType = "zkd"
	IndexGeo        IndexType = "geo"
	IndexFulltext   IndexType = "fulltext"
)

var indexTypes = []string{
	string(IndexHash), string(IndexSkiplist), string(IndexPersistent),
	string(IndexTTL), string(IndexZKD), string(IndexGeo), string(IndexFulltext),
}

// IndexDef 索引定义
//
// Deduplicate、Estimates 与 ExpireAfter 的零值有意义，用指针区分未设置。
type IndexDef struct {
	ID              string    `json:"id,omitempty"`
	Type            IndexType `json:"type"`
	Fields          []string  `json:"fields"`
	Name            string    `json:"name,omitempty"`
	Unique          bool      `json:"unique,omitempty"`
	Sparse          bool      `json:"sparse,omitempty"`
	Deduplicate     *bool     `json:"deduplicate,omitempty"`
	Estimates       *bool     `json:"estimates,omitempty"`
	InBackground    bool      `json:"inBackground,omitempty"`
	MinLength       int       `json:"minLength,omitempty"`
	GeoJSON         bool      `json:"geoJson,omitempty"`
	FieldValueTypes string    `json:"fieldValueTypes,omitempty"`
	ExpireAfter     *int      `json:"expireAfter,omitempty"`
}

// Ptr 取值的指针，便于填写 IndexDef 的可选字段
func Ptr[T any](v T) *T { return &v }

// Validate 校验索引定义
func (d IndexDef) Validate() error {
	if err := validation.ValidateEnum(string(d.Type), "type", indexTypes); err != nil {
		return err
	}
	if len(d.Fields) == 0 {
		return errors.NewValidationError("index requires at least one field")
	}
	for _, f := range d.Fields {
		if f == "" {
			return errors.NewValidationError("index field name cannot be empty")
		}
	}
	if d.Type == IndexTTL && d.ExpireAfter == nil {
		return errors.NewValidationError("ttl index requires expireAfter")
	}
	return nil
}

func decodeIndex(raw any) (IndexDef, error) {
	var def IndexDef
	data, err := json.Marshal(raw)
	if err != nil {
		return def, errors.WrapError(err, errors.ErrCodeType, "encode index")
	}
	if err := json.Unmarshal(data, &def); err != nil {
		return def, errors.NewTypeError("cannot decode index from %T", raw)
	}
	return def, nil
}

// indexHandle 完整的索引 ID 形如 <collection>/<id>，路径中只使用最后一段
func indexHandle(nameOrID string) string {
	if i := strings.LastIndexByte(nameOrID, '/'); i >= 0 {
		return nameOrID[i+1:]
	}
	return nameOrID
}

func (c *Class[M]) indexQuery(path ...string) *query.Query[IndexDef] {
	return request[IndexDef](c, append([]string{"index"}, path...)...).
		BasicAuth(true).
		SetModel(decodeIndex)
}

// GetIndexes 集合上的全部索引
func (c *Class[M]) GetIndexes() *query.Query[IndexDef] {
	return c.indexQuery().
		SetQueryParameters(map[string]any{"collection": c.CollectionName()}).
		DataLookup("indexes")
}

// GetIndex 按名称或 ID 读取索引
func (c *Class[M]) GetIndex(nameOrID string) *query.Query[IndexDef] {
	if nameOrID == "" {
		return query.Failed[IndexDef](errors.NewValidationError("index name or id is required"))
	}
	return c.indexQuery(c.CollectionName(), indexHandle(nameOrID))
}

// CreateIndex 创建索引；定义相同的索引已存在时后端返回已有索引
func (c *Class[M]) CreateIndex(def IndexDef) *query.Query[IndexDef] {
	if err := def.Validate(); err != nil {
		return query.Failed[IndexDef](err)
	}
	return c.indexQuery().
		SetMethod(http.MethodPost).
		SetQueryParameters(map[string]any{"collection": c.CollectionName()}).
		SetBody(def)
}

// RemoveIndex 按名称或 ID 删除索引
func (c *Class[M]) RemoveIndex(nameOrID string) *query.Query[IndexDef] {
	if nameOrID == "" {
		return query.Failed[IndexDef](errors.NewValidationError("index name or id is required"))
	}
	return c.indexQuery(c.CollectionName(), indexHandle(nameOrID)).
		SetMethod(http.MethodDelete)
}
