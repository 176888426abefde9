package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Qonfucius/herdb-arangodb/connection"
	"github.com/Qonfucius/herdb-arangodb/errors"
	"github.com/Qonfucius/herdb-arangodb/logging"
)

// TestDefine_CollectionName 默认规范化、显式集合名、连接上的规范化函数
func TestDefine_CollectionName(t *testing.T) {
	users := Define("User", func() *User { return &User{} })
	assert.Equal(t, "users", users.CollectionName())
	assert.Nil(t, users.Connection())

	reviews := Define("BookReview", func() *Book { return &Book{} })
	assert.Equal(t, "book-reviews", reviews.CollectionName())

	legacy := Define("User", func() *User { return &User{} }, WithCollectionName("people_v2"))
	assert.Equal(t, "people_v2", legacy.CollectionName())

	conn := connection.New(connection.Options{
		Logger:                   logging.NewNoopLogger(),
		CollectionNameNormalizer: func(name string) string { return "t_" + name },
	})
	require.NoError(t, conn.Register(users))
	assert.Equal(t, "t_User", users.CollectionName())
	assert.Same(t, conn, users.Connection())
}

// TestClass_BindValidation 注册时校验字段映射
func TestClass_BindValidation(t *testing.T) {
	tests := []struct {
		name string
		opts []ClassOption
	}{
		{"metadata field", []ClassOption{WithField("_key", IntString())}},
		{"duplicate field", []ClassOption{WithField("age", IntString()), WithField("age", Time())}},
		{"field shadows relation", []ClassOption{WithField("books", IntString()), WithRelations("books")}},
		{"empty field name", []ClassOption{WithField("", IntString())}},
		{"empty mapper", []ClassOption{WithField("age", Mapper{})}},
		{"invalid collection", []ClassOption{WithCollectionName("9users")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := connection.New(connection.Options{Logger: logging.NewNoopLogger()})
			cls := Define("User", func() *User { return &User{} }, tt.opts...)

			err := conn.Register(cls)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
			assert.Nil(t, cls.Connection())
			assert.Empty(t, conn.Models())
		})
	}

	conn := connection.New(connection.Options{Logger: logging.NewNoopLogger()})
	ok := Define("User", func() *User { return &User{} },
		WithField("age", IntString()),
		WithField("born", Time()),
		WithRelations("books"),
	)
	require.NoError(t, conn.Register(ok))
	assert.Equal(t, []string{"age", "born"}, ok.Fields())
	assert.Equal(t, []string{"books"}, ok.Relations())
}

// TestField_Mapping 读写字段经过映射
func TestField_Mapping(t *testing.T) {
	users := Define("User", func() *User { return &User{} },
		WithField("age", IntString()),
		WithField("born", Time()),
	)
	u := users.New(Document{"username": "alice", "age": "42", "score": 9.0, "tags": []any{"a", "b"}})

	age, err := Field[int](u, "age")
	require.NoError(t, err)
	assert.Equal(t, 42, age)
	assert.Equal(t, 42, u.Age())

	require.NoError(t, SetField(u, "age", 43))
	assert.Equal(t, "43", u.Get("age"))

	score, err := Field[int](u, "score")
	require.NoError(t, err)
	assert.Equal(t, 9, score)

	tags, err := Field[[]string](u, "tags")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tags)

	missing, err := Field[string](u, "nickname")
	require.NoError(t, err)
	assert.Empty(t, missing)

	_, err = Field[int](u, "username")
	assert.True(t, errors.IsType(err))

	err = SetField(u, "age", "forty")
	assert.True(t, errors.IsType(err))
	assert.Equal(t, "43", u.Get("age"))

	born := time.Date(1990, 5, 17, 8, 30, 0, 0, time.UTC)
	require.NoError(t, SetField(u, "born", born))
	assert.Equal(t, "1990-05-17T08:30:00Z", u.Get("born"))
	got, err := Field[time.Time](u, "born")
	require.NoError(t, err)
	assert.True(t, born.Equal(got))

	u.Set("age", "not a number")
	_, err = Field[int](u, "age")
	assert.True(t, errors.IsType(err))
}

// TestClass_Hydrate 原始文档、实例与非法输入
func TestClass_Hydrate(t *testing.T) {
	users := Define("User", func() *User { return &User{} })

	u, err := users.Hydrate(map[string]any{"_key": "u1", "username": "alice"})
	require.NoError(t, err)
	assert.Equal(t, "u1", u.Key())
	assert.Equal(t, "User", u.ClassName())

	same, err := users.Hydrate(u)
	require.NoError(t, err)
	assert.Same(t, u, same)

	_, err = users.Hydrate("u1")
	assert.True(t, errors.IsType(err))

	all, err := users.HydrateAll([]any{Document{"_key": "a"}, map[string]any{"_key": "b"}})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[1].Key())

	_, err = users.HydrateAll([]any{Document{}, 7})
	assert.True(t, errors.IsType(err))
}

// TestBase_JSON 实例序列化为原始文档
func TestBase_JSON(t *testing.T) {
	users := Define("User", func() *User { return &User{} })
	u := users.New(Document{"_key": "u1", "_id": "users/u1", "_rev": "r1", "username": "alice"})

	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.JSONEq(t, `{"_key":"u1","_id":"users/u1","_rev":"r1","username":"alice"}`, string(data))
	assert.Equal(t, Metadata{Key: "u1", ID: "users/u1", Rev: "r1"}, u.Metadata())

	var back User
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "alice", back.Username())
	assert.Equal(t, "users/u1", back.ID())

	var empty User
	assert.Empty(t, empty.Key())
	empty.SetKey("k")
	assert.Equal(t, "k", empty.Document().Key())
}
