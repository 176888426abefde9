package model

import (
	"context"
	"net/http"

	"github.com/Qonfucius/herdb-arangodb/aql"
	"github.com/Qonfucius/herdb-arangodb/cache"
	"github.com/Qonfucius/herdb-arangodb/changefeed"
	"github.com/Qonfucius/herdb-arangodb/errors"
	"github.com/Qonfucius/herdb-arangodb/logging"
	"github.com/Qonfucius/herdb-arangodb/query"
	"github.com/Qonfucius/herdb-arangodb/validation"
)

// Create 插入文档；请求模型时返回写入后的新文档
func (c *Class[M]) Create(obj M) *query.Query[M] {
	doc := obj.base().Document()
	if err := c.beforeWrite(obj); err != nil {
		return query.Failed[M](err)
	}
	if doc.Key() == "" && c.opts.keys != nil {
		key, err := c.opts.keys.NextKey()
		if err != nil {
			return query.Failed[M](errors.WrapError(err, errors.ErrCodeInternal, "generate key"))
		}
		doc[KeyField] = key
	}
	if key := doc.Key(); key != "" {
		if err := validation.ValidateDocumentKey(key); err != nil {
			return query.Failed[M](err)
		}
	}

	q := c.newQuery("document", c.CollectionName()).
		SetMethod(http.MethodPost).
		SetBody(doc)
	return c.writeQuery(q, changefeed.OpCreate, doc.Key())
}

// Replace 以 obj 整体替换已存在的文档
func (c *Class[M]) Replace(obj M) *query.Query[M] {
	return c.modify(obj, http.MethodPut, "replace", changefeed.OpReplace)
}

// Update 以 obj 局部更新已存在的文档
func (c *Class[M]) Update(obj M) *query.Query[M] {
	return c.modify(obj, http.MethodPatch, "update", changefeed.OpUpdate)
}

// Delete 删除文档
func (c *Class[M]) Delete(obj M) *query.Query[M] {
	key := obj.base().Key()
	if key == "" {
		return query.Failed[M](c.missingKey("delete"))
	}
	q := c.newQuery("document", c.CollectionName(), key).
		SetMethod(http.MethodDelete).
		BasicAuth(true)
	return q.OnExecuted(c.afterWrite(q, changefeed.OpDelete, key))
}

// DeleteByKey 按 _key 删除文档
func (c *Class[M]) DeleteByKey(key string) *query.Query[M] {
	if err := validation.ValidateDocumentKey(key); err != nil {
		return query.Failed[M](err)
	}
	return c.Delete(c.New(Document{KeyField: key}))
}

func (c *Class[M]) modify(obj M, method, action string, op changefeed.Operation) *query.Query[M] {
	doc := obj.base().Document()
	key := doc.Key()
	if key == "" {
		return query.Failed[M](c.missingKey(action))
	}
	if err := c.beforeWrite(obj); err != nil {
		return query.Failed[M](err)
	}
	q := c.newQuery("document", c.CollectionName(), key).
		SetMethod(method).
		SetBody(doc)
	return c.writeQuery(q, op, key)
}

func (c *Class[M]) beforeWrite(obj M) error {
	if v, ok := any(obj).(Validatable); ok {
		if err := v.Validate(); err != nil {
			return errors.WrapError(err, errors.ErrCodeValidation, "validate "+c.name)
		}
	}
	return nil
}

func (c *Class[M]) missingKey(action string) error {
	return errors.NewConfigurationError("unable to apply %q on collection %s, no _key defined", action, c.CollectionName())
}

// writeQuery 写操作请求模型时取 new 字段并要求 returnNew
func (c *Class[M]) writeQuery(q *query.Query[M], op changefeed.Operation, key string) *query.Query[M] {
	return q.BasicAuth(true).
		SetModel(c.Hydrate).
		SetModelDataLookup("new").
		SetModelQueryParameters(map[string]any{"returnNew": true}).
		OnExecuted(c.afterWrite(q, op, key))
}

// afterWrite 成功写入后清除缓存并发布变更
func (c *Class[M]) afterWrite(q *query.Query[M], op changefeed.Operation, key string) query.Hook[M] {
	return func(ctx context.Context, env *query.Envelope[M]) {
		if env.Status() >= http.StatusBadRequest {
			return
		}
		conn := c.Connection()
		if conn == nil {
			return
		}

		var rev string
		if body, ok := env.Body().(map[string]any); ok {
			if k, ok := body[KeyField].(string); ok && k != "" {
				key = k
			}
			rev, _ = body[RevField].(string)
		}

		db, coll := q.Database(), c.CollectionName()
		fields := []logging.Field{
			logging.String("collection", coll),
			logging.String("operation", string(op)),
			logging.String("key", key),
		}
		// 缓存与变更通知的失败只记录，不影响写操作的结果
		if store := conn.Cache(); store != nil && key != "" {
			if err := store.Delete(ctx, cache.DocumentKey(db, coll, key)); err != nil {
				_ = errors.WrapWithLog(ctx, err, errors.ErrCodeCache, "cache eviction failed", fields...)
			}
		}
		if err := conn.Publisher().Publish(ctx, changefeed.NewChange(db, coll, key, rev, op)); err != nil {
			_ = errors.WrapWithLog(ctx, err, errors.ErrCodeQueue, "change publish failed", fields...)
		}
	}
}

// Query 执行 AQL 查询，结果位于 result
func (c *Class[M]) Query(q *aql.Query) *query.Query[M] {
	return c.newQuery("cursor").
		SetMethod(http.MethodPost).
		SetBody(q).
		BasicAuth(true).
		SetModel(c.Hydrate)
}

// Find 集合中的全部文档
func (c *Class[M]) Find() *query.Query[M] {
	return c.Query(aql.New("FOR doc IN ? RETURN doc", c)).
		DataLookup("result")
}

// FindByKey 按 _key 读取文档；模型类可缓存时先查连接上的缓存
func (c *Class[M]) FindByKey(key string) *query.Query[M] {
	if err := validation.ValidateDocumentKey(key); err != nil {
		return query.Failed[M](err)
	}
	coll := c.CollectionName()
	q := c.newQuery("document", coll, key).
		BasicAuth(true).
		SetModel(c.Hydrate)

	if conn := c.Connection(); conn != nil && c.opts.cacheable && conn.Cache() != nil {
		q.WithCache(conn.Cache(), cache.DocumentKey(q.Database(), coll, key), conn.CacheTTL())
	}
	return q
}
