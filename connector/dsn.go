package connector

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// DSNBuilder provides a fluent interface for building URL-style connection
// strings.
type DSNBuilder struct {
	scheme   string
	username string
	password string
	host     string
	port     int
	database string
	params   map[string]string
}

func NewDSNBuilder(scheme string) *DSNBuilder {
	return &DSNBuilder{
		scheme: scheme,
		params: make(map[string]string),
	}
}

// Auth sets username and password
func (b *DSNBuilder) Auth(username, password string) *DSNBuilder {
	b.username = username
	b.password = password
	return b
}

// Host sets the host and port
func (b *DSNBuilder) Host(host string, port int) *DSNBuilder {
	b.host = host
	b.port = port
	return b
}

// Database sets the database name
func (b *DSNBuilder) Database(name string) *DSNBuilder {
	b.database = name
	return b
}

// Param adds a single parameter. Empty values are ignored.
func (b *DSNBuilder) Param(key, value string) *DSNBuilder {
	if value != "" {
		b.params[key] = value
	}
	return b
}

// Params adds multiple parameters
func (b *DSNBuilder) Params(params map[string]string) *DSNBuilder {
	for k, v := range params {
		b.Param(k, v)
	}
	return b
}

func (b *DSNBuilder) Validate() error {
	if b.host == "" {
		return fmt.Errorf("host is required")
	}
	if b.port <= 0 || b.port > 65535 {
		return fmt.Errorf("invalid port: %d", b.port)
	}
	return nil
}

// Build constructs the DSN. Parameters are written in key order.
func (b *DSNBuilder) Build() string {
	var dsn strings.Builder

	dsn.WriteString(b.scheme)
	dsn.WriteString("://")

	if b.username != "" {
		dsn.WriteString(url.QueryEscape(b.username))
		if b.password != "" {
			dsn.WriteString(":")
			dsn.WriteString(url.QueryEscape(b.password))
		}
		dsn.WriteString("@")
	}

	dsn.WriteString(b.host)
	if b.port > 0 {
		dsn.WriteString(":")
		dsn.WriteString(strconv.Itoa(b.port))
	}

	if b.database != "" {
		dsn.WriteString("/")
		dsn.WriteString(url.PathEscape(b.database))
	}

	if len(b.params) > 0 {
		dsn.WriteString("?")
		dsn.WriteString(encodeParams(b.params))
	}
	return dsn.String()
}

func encodeParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteString("&")
		}
		sb.WriteString(url.QueryEscape(k))
		sb.WriteString("=")
		sb.WriteString(url.QueryEscape(params[k]))
	}
	return sb.String()
}

// PostgresDSN builds a pgx connection URL.
func PostgresDSN(cfg Config) string {
	b := NewDSNBuilder("postgres").
		Auth(cfg.Username, cfg.Password).
		Host(cfg.Host, cfg.Port).
		Database(cfg.Database).
		Param("sslmode", cfg.SSLMode).
		Params(cfg.Params)
	if cfg.ConnectTimeout > 0 {
		b.Param("connect_timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
	}
	return b.Build()
}

// MySQLDSN builds a go-sql-driver/mysql DSN.
func MySQLDSN(cfg Config) string {
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Database
	mc.Timeout = cfg.ConnectTimeout
	if len(cfg.Params) > 0 {
		mc.Params = make(map[string]string, len(cfg.Params))
		for k, v := range cfg.Params {
			mc.Params[k] = v
		}
	}
	return mc.FormatDSN()
}

// SQLiteDSN builds a modernc.org/sqlite DSN. Foreign keys are enforced unless
// the parameters say otherwise.
func SQLiteDSN(cfg Config) string {
	params := map[string]string{"_pragma": "foreign_keys(1)"}
	for k, v := range cfg.Params {
		params[k] = v
	}
	return cfg.Path + "?" + encodeParams(params)
}
