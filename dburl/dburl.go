// Package dburl 解析 ArangoDB 连接串
//
// 连接串格式：
//
//	<scheme>://[user[:pass]@]host[:port][/database][?opt=val...]
//
// scheme 只接受 arangodb、arangodb+http、arangodb+https、arangodbs，
// 分别映射到 http / https 传输协议。
package dburl

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Qonfucius/herdb-arangodb/errors"
)

// DefaultPort ArangoDB 默认端口
const DefaultPort = 8529

// schemes 自定义协议到传输协议的映射
var schemes = map[string]string{
	"arangodb":       "http",
	"arangodb+http":  "http",
	"arangodb+https": "https",
	"arangodbs":      "https",
}

// URL 连接描述符
//
// URL 是值类型：连接把它复制进每个查询构建器，
// 构建器上对数据库的覆盖不会影响连接本身。
type URL struct {
	Protocol string
	Hostname string
	Port     int
	Database string
	Username string
	Password string
	Options  map[string]string
}

// Parse 解析连接串
func Parse(raw string) (URL, error) {
	parsed, err := url.Parse(stripInvalidPort(strings.TrimSpace(raw)))
	if err != nil {
		return URL{}, errors.WrapError(err, errors.ErrCodeConfiguration, "invalid connection uri")
	}

	protocol, ok := schemes[strings.ToLower(parsed.Scheme)]
	if !ok {
		return URL{}, errors.NewConfigurationError(
			"unsupported connection scheme %q (expected one of %s)", parsed.Scheme, strings.Join(SupportedSchemes(), ", "))
	}

	port, err := strconv.Atoi(parsed.Port())
	if err != nil || port <= 0 {
		port = DefaultPort
	}

	u := URL{
		Protocol: protocol,
		Hostname: parsed.Hostname(),
		Port:     port,
		Database: strings.TrimLeft(parsed.Path, "/"),
		Options:  make(map[string]string),
	}
	if parsed.User != nil {
		u.Username = parsed.User.Username()
		u.Password, _ = parsed.User.Password()
	}
	for key, values := range parsed.Query() {
		if len(values) > 0 {
			u.Options[key] = values[0]
		}
	}
	return u, nil
}

// stripInvalidPort 去掉非数字的端口，使其回退到 DefaultPort
func stripInvalidPort(raw string) string {
	i := strings.Index(raw, "://")
	if i < 0 {
		return raw
	}
	start := i + 3
	end := len(raw)
	if j := strings.IndexAny(raw[start:], "/?#"); j >= 0 {
		end = start + j
	}
	authority := raw[start:end]
	host := authority
	if at := strings.LastIndexByte(authority, '@'); at >= 0 {
		host = authority[at+1:]
	}
	colon := strings.LastIndexByte(host, ':')
	if colon < 0 || strings.HasSuffix(host[colon:], "]") {
		return raw
	}
	port := host[colon+1:]
	if port != "" && strings.Trim(port, "0123456789") == "" {
		return raw
	}
	cut := end - len(host) + colon
	return raw[:cut] + raw[end:]
}

// MustParse 解析失败时 panic，用于示例与测试
func MustParse(raw string) URL {
	u, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

// SupportedSchemes 支持的协议（有序）
func SupportedSchemes() []string {
	return []string{"arangodb", "arangodb+http", "arangodb+https", "arangodbs"}
}

// BaseURL 返回 <protocol>://<host>:<port>
func (u URL) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d", u.Protocol, u.Hostname, u.Port)
}

// WithDatabase 返回切换数据库后的副本
func (u URL) WithDatabase(name string) URL {
	u.Database = name
	u.Options = copyOptions(u.Options)
	return u
}

// HasCredentials 用户名与密码均非空
func (u URL) HasCredentials() bool {
	return u.Username != "" && u.Password != ""
}

// Redacted 用于日志输出，隐藏密码
func (u URL) Redacted() string {
	var b strings.Builder
	b.WriteString(u.Protocol)
	b.WriteString("://")
	if u.Username != "" {
		b.WriteString(u.Username)
		if u.Password != "" {
			b.WriteString(":xxxxx")
		}
		b.WriteString("@")
	}
	fmt.Fprintf(&b, "%s:%d", u.Hostname, u.Port)
	if u.Database != "" {
		b.WriteString("/")
		b.WriteString(u.Database)
	}
	return b.String()
}

// Clone 深拷贝 Options
func (u URL) Clone() URL {
	u.Options = copyOptions(u.Options)
	return u
}

func copyOptions(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
