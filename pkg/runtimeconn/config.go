package runtimeconn

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/runtimelink/pkg/payload"
)

// Defaults for Config.
const (
	DefaultAddress          = "192.168.0.0"
	DefaultPort             = 5000
	DefaultPollInterval     = 5 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
)

// Dialer opens WebSocket connections. *websocket.Dialer implements it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Config configures a Manager.
type Config struct {
	// Address is the initial Runtime address: host, host:port or a ws:// URL.
	// Default: DefaultAddress.
	Address string

	// DefaultPort is appended to addresses without a port.
	// Default: 5000.
	DefaultPort int

	// PollInterval is how often the manager checks the connection and
	// reconnects when it is down.
	// Default: 5s.
	PollInterval time.Duration

	// HandshakeTimeout bounds a single connection attempt.
	// Default: 10s.
	HandshakeTimeout time.Duration

	// WriteTimeout bounds a single outbound write.
	// Default: 5s.
	WriteTimeout time.Duration

	// Codec encodes and decodes payloads.
	// Default: payload.ProtoCodec{}.
	Codec payload.Codec

	// Dialer opens connections.
	// Default: a websocket.Dialer honoring HandshakeTimeout and proxy env vars.
	Dialer Dialer

	// Observers receive connection events. They are called from the
	// manager goroutine and must not block.
	Observers []Observer

	// Registerer receives the manager's Prometheus metrics.
	// If nil, metrics are collected but not registered.
	Registerer prometheus.Registerer

	// Logger is the structured logger.
	// If nil, slog.Default() is used.
	Logger *slog.Logger

	// Now returns the current time. Default: time.Now.
	Now func() time.Time
}

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() Config {
	var c Config
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Address == "" {
		c.Address = DefaultAddress
	}
	if c.DefaultPort <= 0 {
		c.DefaultPort = DefaultPort
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.Codec == nil {
		c.Codec = payload.ProtoCodec{}
	}
	if c.Dialer == nil {
		c.Dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: c.HandshakeTimeout,
		}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}
