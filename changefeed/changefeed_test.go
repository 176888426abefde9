package changefeed

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Qonfucius/herdb-arangodb/errors"
	"github.com/Qonfucius/herdb-arangodb/logging"
)

// fakeConn 记录发布的消息
type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
	drained  bool
}

func (f *fakeConn) Publish(subj string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subj)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

// TestNewChange 自动填充 ID 与时间戳
func TestNewChange(t *testing.T) {
	c := NewChange("_system", "users", "k1", "_r1", OpUpdate)

	assert.NotEmpty(t, c.ID)
	assert.False(t, c.Timestamp.IsZero())
	assert.Equal(t, OpUpdate, c.Operation)
	assert.NotEqual(t, c.ID, NewChange("_system", "users", "k1", "", OpUpdate).ID)
}

// TestMemoryPublisher 记录并通知订阅者
func TestMemoryPublisher(t *testing.T) {
	p := NewMemoryPublisher()
	var received []Change
	p.Subscribe(func(c Change) { received = append(received, c) })

	change := NewChange("_system", "users", "k1", "", OpCreate)
	require.NoError(t, p.Publish(context.Background(), change))

	assert.Equal(t, []Change{change}, p.Changes())
	assert.Equal(t, []Change{change}, received)

	p.Reset()
	assert.Empty(t, p.Changes())
	assert.NoError(t, NoopPublisher{}.Publish(context.Background(), change))
}

// TestNATSPublisher_Publish 主题与消息体
func TestNATSPublisher_Publish(t *testing.T) {
	conn := &fakeConn{}
	p := newNATSPublisher(conn, false, NATSConfig{SubjectPrefix: "herdb.", Logger: logging.NewNoopLogger()})

	change := NewChange("_system", "book.reviews", "k1", "_r1", OpDelete)
	require.NoError(t, p.Publish(context.Background(), change))

	require.Len(t, conn.subjects, 1)
	assert.Equal(t, "herdb.book_reviews.delete", conn.subjects[0])

	var decoded Change
	require.NoError(t, json.Unmarshal(conn.payloads[0], &decoded))
	assert.Equal(t, change.ID, decoded.ID)
	assert.Equal(t, "book.reviews", decoded.Collection)
	assert.Equal(t, OpDelete, decoded.Operation)
	assert.True(t, change.Timestamp.Equal(decoded.Timestamp))
}

// TestNATSPublisher_Error 发布失败返回队列错误
func TestNATSPublisher_Error(t *testing.T) {
	conn := &fakeConn{err: stdErrors.New("nats: connection closed")}
	p := newNATSPublisher(conn, true, NATSConfig{Logger: logging.NewNoopLogger()})

	err := p.Publish(context.Background(), NewChange("_system", "", "", "", OpTruncate))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeQueue))
	assert.Equal(t, "herdb._.truncate", p.Subject(Change{Operation: OpTruncate}))

	require.NoError(t, p.Close())
	assert.True(t, conn.drained)
}
