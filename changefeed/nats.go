package changefeed

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/Qonfucius/herdb-arangodb/errors"
	"github.com/Qonfucius/herdb-arangodb/logging"
)

// natsConn 只包含用到的方法，方便测试替换
type natsConn interface {
	Publish(subj string, data []byte) error
	Drain() error
}

// NATSConfig NATS 发布配置
type NATSConfig struct {
	URL           string
	Conn          *nats.Conn
	SubjectPrefix string
	Logger        logging.Logger
}

// DefaultNATSConfig 默认配置
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "herdb",
	}
}

// NATSPublisher 以 <prefix>.<collection>.<operation> 为主题发布 JSON 变更
type NATSPublisher struct {
	conn     natsConn
	ownsConn bool
	prefix   string
	logger   logging.Logger
}

// NewNATSPublisher 创建发布者；未提供 Conn 时按 URL 建立连接
func NewNATSPublisher(cfg NATSConfig) (*NATSPublisher, error) {
	if cfg.Conn != nil {
		return newNATSPublisher(cfg.Conn, false, cfg), nil
	}
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	conn, err := nats.Connect(cfg.URL, nats.Name("herdb-changefeed"))
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeQueue, "connect to nats")
	}
	return newNATSPublisher(conn, true, cfg), nil
}

func newNATSPublisher(conn natsConn, own bool, cfg NATSConfig) *NATSPublisher {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "herdb"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Component("changefeed.nats")
	}
	return &NATSPublisher{
		conn:     conn,
		ownsConn: own,
		prefix:   strings.TrimSuffix(cfg.SubjectPrefix, "."),
		logger:   cfg.Logger,
	}
}

// Subject 变更对应的主题
func (p *NATSPublisher) Subject(change Change) string {
	return p.prefix + "." + subjectToken(change.Collection) + "." + string(change.Operation)
}

func (p *NATSPublisher) Publish(ctx context.Context, change Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return errors.WrapError(err, errors.ErrCodeQueue, "encode change")
	}
	subject := p.Subject(change)
	if err := p.conn.Publish(subject, data); err != nil {
		return errors.WrapError(err, errors.ErrCodeQueue, "publish change").
			WithContext("subject", subject)
	}
	p.logger.Debug(ctx, "change published", logging.String("subject", subject), logging.String("key", change.Key))
	return nil
}

// Close 只关闭自己建立的连接
func (p *NATSPublisher) Close() error {
	if !p.ownsConn {
		return nil
	}
	return p.conn.Drain()
}

// subjectToken 主题中 . * > 与空白有特殊含义
func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}

var _ Publisher = (*NATSPublisher)(nil)
