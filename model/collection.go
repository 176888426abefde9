package model

import (
	"context"
	"net/http"

	"github.com/Qonfucius/herdb-arangodb/changefeed"
	"github.com/Qonfucius/herdb-arangodb/errors"
	"github.com/Qonfucius/herdb-arangodb/logging"
	"github.com/Qonfucius/herdb-arangodb/query"
	"github.com/Qonfucius/herdb-arangodb/validation"
)

// CollectionInfo _api/collection/<name> 的结果
type CollectionInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   int    `json:"status"`
	Type     int    `json:"type"`
	IsSystem bool   `json:"isSystem"`
}

// CreateCollection 创建集合；idempotent 时已存在视为成功
func (c *Class[M]) CreateCollection(ctx context.Context, idempotent bool) error {
	name := c.CollectionName()
	if err := validation.ValidateCollectionName(name); err != nil {
		return err
	}
	_, err := c.newQuery("collection").
		SetMethod(http.MethodPost).
		SetBody(map[string]any{"name": name}).
		BasicAuth(true).
		OK().
		Exec(ctx)
	if err != nil && idempotent && errors.IsDuplicateName(err) {
		if conn := c.Connection(); conn != nil {
			conn.Logger().Debug(ctx, "collection already exists", logging.String("collection", name))
		}
		return nil
	}
	return err
}

// Collection 读取集合信息
func (c *Class[M]) Collection(ctx context.Context) (*CollectionInfo, error) {
	var info CollectionInfo
	err := request[CollectionInfo](c, "collection", c.CollectionName()).
		BasicAuth(true).
		OK().
		Decode(ctx, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// TruncateCollection 清空集合
func (c *Class[M]) TruncateCollection() *query.Query[M] {
	q := c.newQuery("collection", c.CollectionName(), "truncate").
		SetMethod(http.MethodPut).
		BasicAuth(true)
	return q.OnExecuted(c.afterWrite(q, changefeed.OpTruncate, ""))
}

// DropCollection 删除集合
func (c *Class[M]) DropCollection() *query.Query[M] {
	return c.newQuery("collection", c.CollectionName()).
		SetMethod(http.MethodDelete).
		BasicAuth(true)
}
