package model

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Qonfucius/herdb-arangodb/cache"
	"github.com/Qonfucius/herdb-arangodb/changefeed"
	"github.com/Qonfucius/herdb-arangodb/connection"
	"github.com/Qonfucius/herdb-arangodb/logging"
)

// fakeArango 内存中的 ArangoDB HTTP 接口子集
type fakeArango struct {
	mu          sync.Mutex
	seq         int
	collections map[string]map[string]map[string]any
	indexes     map[string][]map[string]any
	requests    []string
}

func newFakeArango() *fakeArango {
	return &fakeArango{
		collections: make(map[string]map[string]map[string]any),
		indexes:     make(map[string][]map[string]any),
	}
}

// seed 直接写入文档，不记录请求
func (f *fakeArango) seed(coll string, docs ...map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.collections[coll] == nil {
		f.collections[coll] = make(map[string]map[string]any)
	}
	for _, doc := range docs {
		key := doc["_key"].(string)
		doc["_id"] = coll + "/" + key
		doc["_rev"] = f.nextRev()
		f.collections[coll][key] = doc
	}
}

func (f *fakeArango) doc(coll, key string) (map[string]any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.collections[coll][key]
	return d, ok
}

func (f *fakeArango) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeArango) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return ""
	}
	return f.requests[len(f.requests)-1]
}

func (f *fakeArango) nextRev() string {
	f.seq++
	return fmt.Sprintf("_rev%d", f.seq)
}

func (f *fakeArango) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	line := r.Method + " " + r.URL.Path
	if r.URL.RawQuery != "" {
		line += "?" + r.URL.RawQuery
	}
	f.requests = append(f.requests, line)

	if user, pass, ok := r.BasicAuth(); !ok || user != "root" || pass != "secret" {
		writeError(w, http.StatusUnauthorized, 11, "not authorized")
		return
	}

	path := r.URL.Path
	if strings.HasPrefix(path, "/_db/") {
		rest := strings.TrimPrefix(path, "/_db/")
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			path = rest[i:]
		}
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || parts[0] != "_api" {
		writeError(w, http.StatusNotFound, 404, "unknown path")
		return
	}

	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	switch parts[1] {
	case "database":
		writeJSON(w, http.StatusOK, map[string]any{"error": false, "code": 200,
			"result": map[string]any{"id": "1", "name": "library", "isSystem": false, "path": "/data/library"}})
	case "document":
		f.serveDocument(w, r, parts[2:], body)
	case "cursor":
		f.serveCursor(w, body)
	case "collection":
		f.serveCollection(w, r, parts[2:], body)
	case "index":
		f.serveIndex(w, r, parts[2:], body)
	default:
		writeError(w, http.StatusNotFound, 404, "unknown api")
	}
}

func (f *fakeArango) serveDocument(w http.ResponseWriter, r *http.Request, parts []string, body map[string]any) {
	coll := parts[0]
	docs, ok := f.collections[coll]
	if !ok {
		writeError(w, http.StatusNotFound, 1203, "collection or view not found")
		return
	}
	returnNew := r.URL.Query().Get("returnNew") == "true"

	if r.Method == http.MethodPost {
		key, _ := body["_key"].(string)
		if key == "" {
			key = fmt.Sprintf("k%d", f.seq+1)
		}
		if _, exists := docs[key]; exists {
			writeError(w, http.StatusConflict, 1210, "unique constraint violated")
			return
		}
		body["_key"], body["_id"], body["_rev"] = key, coll+"/"+key, f.nextRev()
		docs[key] = body
		writeJSON(w, http.StatusCreated, writeResult(body, returnNew))
		return
	}

	key := parts[1]
	current, ok := docs[key]
	if !ok {
		writeError(w, http.StatusNotFound, 1202, "document not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, current)
	case http.MethodPut, http.MethodPatch:
		next := body
		if r.Method == http.MethodPatch {
			next = make(map[string]any, len(current))
			for k, v := range current {
				next[k] = v
			}
			for k, v := range body {
				next[k] = v
			}
		}
		next["_key"], next["_id"], next["_rev"] = key, coll+"/"+key, f.nextRev()
		docs[key] = next
		writeJSON(w, http.StatusAccepted, writeResult(next, returnNew))
	case http.MethodDelete:
		delete(docs, key)
		writeJSON(w, http.StatusAccepted, map[string]any{"_key": key, "_id": current["_id"], "_rev": current["_rev"]})
	}
}

func writeResult(doc map[string]any, returnNew bool) map[string]any {
	out := map[string]any{"_key": doc["_key"], "_id": doc["_id"], "_rev": doc["_rev"]}
	if returnNew {
		out["new"] = doc
	}
	return out
}

// serveCursor 只认识 FOR doc IN @@value0 [FILTER doc._key IN @value1] RETURN doc
func (f *fakeArango) serveCursor(w http.ResponseWriter, body map[string]any) {
	vars, _ := body["bindVars"].(map[string]any)
	coll, _ := vars["@value0"].(string)
	docs, ok := f.collections[coll]
	if !ok {
		writeError(w, http.StatusNotFound, 1203, "collection or view not found")
		return
	}

	result := make([]any, 0)
	if keys, ok := vars["value1"].([]any); ok {
		for _, k := range keys {
			if d, ok := docs[k.(string)]; ok {
				result = append(result, d)
			}
		}
	} else {
		keys := make([]string, 0, len(docs))
		for k := range docs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			result = append(result, docs[k])
		}
	}
	writeJSON(w, http.StatusCreated, map[string]any{"error": false, "code": 201, "hasMore": false, "result": result})
}

func (f *fakeArango) serveCollection(w http.ResponseWriter, r *http.Request, parts []string, body map[string]any) {
	if r.Method == http.MethodPost {
		name, _ := body["name"].(string)
		if _, exists := f.collections[name]; exists {
			writeError(w, http.StatusConflict, 1207, "duplicate name")
			return
		}
		f.collections[name] = make(map[string]map[string]any)
		writeJSON(w, http.StatusOK, map[string]any{"error": false, "code": 200, "name": name, "id": "100", "type": 2, "status": 3})
		return
	}

	name := parts[0]
	if _, ok := f.collections[name]; !ok {
		writeError(w, http.StatusNotFound, 1203, "collection or view not found")
		return
	}
	switch {
	case r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"error": false, "code": 200, "name": name, "id": "100", "type": 2, "status": 3, "isSystem": false})
	case r.Method == http.MethodPut && len(parts) == 2 && parts[1] == "truncate":
		f.collections[name] = make(map[string]map[string]any)
		writeJSON(w, http.StatusOK, map[string]any{"error": false, "code": 200, "name": name, "id": "100"})
	case r.Method == http.MethodDelete:
		delete(f.collections, name)
		writeJSON(w, http.StatusOK, map[string]any{"error": false, "code": 200, "id": "100"})
	default:
		writeError(w, http.StatusMethodNotAllowed, 405, "method not supported")
	}
}

func (f *fakeArango) serveIndex(w http.ResponseWriter, r *http.Request, parts []string, body map[string]any) {
	if len(parts) == 0 {
		coll := r.URL.Query().Get("collection")
		if _, ok := f.collections[coll]; !ok {
			writeError(w, http.StatusNotFound, 1203, "collection or view not found")
			return
		}
		if r.Method == http.MethodPost {
			f.seq++
			body["id"] = fmt.Sprintf("%s/%d", coll, f.seq)
			if body["name"] == nil {
				body["name"] = fmt.Sprintf("idx_%d", f.seq)
			}
			f.indexes[coll] = append(f.indexes[coll], body)
			body["error"], body["code"], body["isNewlyCreated"] = false, 201, true
			writeJSON(w, http.StatusCreated, body)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"error": false, "code": 200, "indexes": f.indexes[coll]})
		return
	}

	coll, handle := parts[0], parts[1]
	for i, idx := range f.indexes[coll] {
		if idx["id"] != coll+"/"+handle && idx["name"] != handle {
			continue
		}
		if r.Method == http.MethodDelete {
			f.indexes[coll] = append(f.indexes[coll][:i], f.indexes[coll][i+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{"error": false, "code": 200, "id": idx["id"]})
			return
		}
		writeJSON(w, http.StatusOK, idx)
		return
	}
	writeError(w, http.StatusNotFound, 1212, "index not found")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status, num int, msg string) {
	writeJSON(w, status, map[string]any{"error": true, "code": status, "errorNum": num, "errorMessage": msg})
}

// 测试用模型
type User struct{ Base }

func (u *User) Username() string { return MustField[string](u, "username") }
func (u *User) Age() int         { return MustField[int](u, "age") }

func (u *User) Books() *MapMany[*Book] {
	return Many(u, "books", func() *Class[*Book] { return testBooks })
}

func (u *User) Validate() error {
	if u.Username() == "" {
		return fmt.Errorf("username is required")
	}
	return nil
}

type Book struct{ Base }

func (b *Book) Title() string { return MustField[string](b, "title") }

func (b *Book) Author() *MapOne[*User] {
	return One(b, "author", func() *Class[*User] { return testUsers })
}

var (
	testUsers *Class[*User]
	testBooks *Class[*Book]
)

// env 一次测试的连接与依赖
type env struct {
	fake  *fakeArango
	conn  *connection.Connection
	store *cache.MemoryStore
	feed  *changefeed.MemoryPublisher
	ctx   context.Context
}

// setup 启动 fake 服务，重新定义并注册测试模型
func setup(t *testing.T, mutate ...func(*connection.Options)) *env {
	t.Helper()
	fake := newFakeArango()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store := cache.NewMemoryStore(cache.DefaultConfig())
	feed := changefeed.NewMemoryPublisher()
	opts := connection.Options{
		URI:       strings.Replace(srv.URL, "http://", "arangodb+http://root:secret@", 1) + "/library",
		Logger:    logging.NewNoopLogger(),
		Cache:     store,
		Publisher: feed,
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	conn := connection.New(opts)
	ctx := context.Background()
	require.NoError(t, conn.Connect(ctx))

	testUsers = Define("User", func() *User { return &User{} },
		WithField("age", IntString()),
		WithRelations("books"),
	)
	testBooks = Define("Book", func() *Book { return &Book{} },
		WithRelations("author"),
		WithCacheable(true),
	)
	require.NoError(t, conn.Register(testUsers))
	require.NoError(t, conn.Register(testBooks))

	fake.mu.Lock()
	fake.requests = nil
	fake.mu.Unlock()
	return &env{fake: fake, conn: conn, store: store, feed: feed, ctx: ctx}
}
