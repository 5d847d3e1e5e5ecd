package config

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vango-dev/runtimelink/internal/errors"
	"github.com/vango-dev/runtimelink/pkg/payload"
	"github.com/vango-dev/runtimelink/pkg/runtimeconn"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "runtimelink.json"

	// DefaultListen is the status server address.
	DefaultListen = "127.0.0.1:8080"

	// DefaultRecordPrefix is the object key prefix for recordings.
	DefaultRecordPrefix = "recordings/"

	// DefaultMaxBuffered bounds the recorder buffer.
	DefaultMaxBuffered = 10000
)

// Default durations, as written in runtimelink.json.
const (
	DefaultPollInterval      = "5s"
	DefaultHandshakeTimeout  = "10s"
	DefaultWriteTimeout      = "5s"
	DefaultKeepAliveInterval = "5s"
	DefaultFlushInterval     = "1m"
)

// Config represents the runtimelink.json configuration file.
type Config struct {
	// Runtime configures the connection to the robot.
	Runtime RuntimeConfig `json:"runtime"`

	// Status configures the local status server.
	Status StatusConfig `json:"status"`

	// Record configures session recording.
	Record RecordConfig `json:"record"`

	// Log configures structured logging.
	Log LogConfig `json:"log"`

	// configPath is the path to the loaded config file.
	configPath string

	// raw is the file content, kept to locate fields in errors.
	raw []byte
}

// RuntimeConfig configures the Runtime connection.
type RuntimeConfig struct {
	// Address is the Runtime host, host:port or ws:// URL.
	Address string `json:"address"`

	// DefaultPort is used when Address has no port.
	DefaultPort int `json:"defaultPort"`

	// PollInterval is how often the connection is checked (e.g., "5s").
	PollInterval string `json:"pollInterval"`

	// HandshakeTimeout bounds one connection attempt.
	HandshakeTimeout string `json:"handshakeTimeout"`

	// WriteTimeout bounds one outbound write.
	WriteTimeout string `json:"writeTimeout"`

	// KeepAlive periodically re-sends the run mode.
	KeepAlive KeepAliveConfig `json:"keepAlive"`
}

// KeepAliveConfig configures the periodic run mode message.
type KeepAliveConfig struct {
	// Enabled turns the keep-alive on.
	Enabled bool `json:"enabled"`

	// Mode is the run mode to send. Default: "teleop".
	Mode string `json:"mode,omitempty"`

	// Interval is the send period. Default: "5s".
	Interval string `json:"interval,omitempty"`
}

// StatusConfig configures the status server.
type StatusConfig struct {
	// Listen is the TCP address of the HTTP server.
	Listen string `json:"listen"`

	// Disabled turns the status server off.
	Disabled bool `json:"disabled,omitempty"`
}

// RecordConfig configures session recording. Recording is on when either
// Bucket or Dir is set.
type RecordConfig struct {
	// Bucket is the S3 bucket that receives recordings.
	Bucket string `json:"bucket,omitempty"`

	// Prefix is prepended to object keys.
	Prefix string `json:"prefix,omitempty"`

	// Region is the S3 region.
	Region string `json:"region,omitempty"`

	// Endpoint overrides the S3 endpoint (for MinIO and friends).
	Endpoint string `json:"endpoint,omitempty"`

	// Dir writes recordings to a local directory instead of S3.
	Dir string `json:"dir,omitempty"`

	// FlushInterval is how often recordings are written.
	FlushInterval string `json:"flushInterval,omitempty"`

	// MaxBuffered bounds the records held between flushes.
	MaxBuffered int `json:"maxBuffered,omitempty"`
}

// Enabled reports whether a recording sink is configured.
func (r RecordConfig) Enabled() bool {
	return r.Bucket != "" || r.Dir != ""
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level"`

	// Format is text or json.
	Format string `json:"format"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			Address:          runtimeconn.DefaultAddress,
			DefaultPort:      runtimeconn.DefaultPort,
			PollInterval:     DefaultPollInterval,
			HandshakeTimeout: DefaultHandshakeTimeout,
			WriteTimeout:     DefaultWriteTimeout,
			KeepAlive: KeepAliveConfig{
				Mode:     "teleop",
				Interval: DefaultKeepAliveInterval,
			},
		},
		Status: StatusConfig{
			Listen: DefaultListen,
		},
		Record: RecordConfig{
			Prefix:        DefaultRecordPrefix,
			FlushInterval: DefaultFlushInterval,
			MaxBuffered:   DefaultMaxBuffered,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from runtimelink.json in the given directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile loads and validates configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E041").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Run 'runtimelink init' to write a default configuration")
		}
		return nil, errors.New("E040").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		le := errors.New("E040").
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")

		var syn *json.SyntaxError
		var typ *json.UnmarshalTypeError
		switch {
		case stderrors.As(err, &syn):
			le.WithOffset(path, data, syn.Offset)
		case stderrors.As(err, &typ):
			le.WithOffset(path, data, typ.Offset)
		default:
			le.WithLocation(path, 0, 0)
		}
		return nil, le
	}

	cfg.configPath = path
	cfg.raw = data
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Exists reports whether runtimelink.json exists in dir.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E044").Wrap(err)
	}

	// Add trailing newline
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E044").Wrap(err)
	}

	c.configPath = path
	c.raw = data
	return nil
}

// Path returns the path of the loaded config file, or "".
func (c *Config) Path() string {
	return c.configPath
}

func (c *Config) applyDefaults() {
	d := New()

	if c.Runtime.Address == "" {
		c.Runtime.Address = d.Runtime.Address
	}
	if c.Runtime.DefaultPort == 0 {
		c.Runtime.DefaultPort = d.Runtime.DefaultPort
	}
	if c.Runtime.PollInterval == "" {
		c.Runtime.PollInterval = d.Runtime.PollInterval
	}
	if c.Runtime.HandshakeTimeout == "" {
		c.Runtime.HandshakeTimeout = d.Runtime.HandshakeTimeout
	}
	if c.Runtime.WriteTimeout == "" {
		c.Runtime.WriteTimeout = d.Runtime.WriteTimeout
	}
	if c.Runtime.KeepAlive.Mode == "" {
		c.Runtime.KeepAlive.Mode = d.Runtime.KeepAlive.Mode
	}
	if c.Runtime.KeepAlive.Interval == "" {
		c.Runtime.KeepAlive.Interval = d.Runtime.KeepAlive.Interval
	}

	if c.Status.Listen == "" {
		c.Status.Listen = d.Status.Listen
	}

	if c.Record.Prefix == "" {
		c.Record.Prefix = d.Record.Prefix
	}
	if c.Record.FlushInterval == "" {
		c.Record.FlushInterval = d.Record.FlushInterval
	}
	if c.Record.MaxBuffered == 0 {
		c.Record.MaxBuffered = d.Record.MaxBuffered
	}

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := runtimeconn.NormalizeAddress(c.Runtime.Address, c.Runtime.DefaultPort); err != nil {
		return c.fieldError("E001", "address", err).
			WithExample(`"address": "192.168.0.10"`)
	}
	if c.Runtime.DefaultPort < 1 || c.Runtime.DefaultPort > 65535 {
		return c.fieldError("E043", "defaultPort", nil).
			WithDetail("defaultPort must be between 1 and 65535")
	}

	for _, f := range []struct {
		key, value string
	}{
		{"pollInterval", c.Runtime.PollInterval},
		{"handshakeTimeout", c.Runtime.HandshakeTimeout},
		{"writeTimeout", c.Runtime.WriteTimeout},
		{"interval", c.Runtime.KeepAlive.Interval},
		{"flushInterval", c.Record.FlushInterval},
	} {
		d, err := time.ParseDuration(f.value)
		if err == nil && d <= 0 {
			err = stderrors.New("must be positive")
		}
		if err != nil {
			return c.fieldError("E042", f.key, err).
				WithSuggestion(`Use a Go duration string such as "5s"`)
		}
	}

	if _, err := payload.ParseMode(c.Runtime.KeepAlive.Mode); err != nil {
		return c.fieldError("E043", "mode", err).
			WithDetail("keepAlive.mode must be idle, auto, teleop, estop or challenge")
	}

	if _, _, err := net.SplitHostPort(c.Status.Listen); err != nil {
		return c.fieldError("E043", "listen", err).
			WithDetail("status.listen must be a host:port address").
			WithExample(`"listen": "127.0.0.1:8080"`)
	}

	if c.Record.Bucket != "" && c.Record.Dir != "" {
		return c.fieldError("E081", "dir", nil).
			WithDetail("record.bucket and record.dir cannot both be set")
	}
	if c.Record.MaxBuffered < 0 {
		return c.fieldError("E043", "maxBuffered", nil).
			WithDetail("record.maxBuffered must not be negative")
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		return c.fieldError("E043", "level", err).
			WithDetail("log.level must be debug, info, warn or error")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return c.fieldError("E043", "format", nil).
			WithDetail("log.format must be text or json")
	}
	return nil
}

// fieldError builds an error located at the first occurrence of key in the
// loaded file.
func (c *Config) fieldError(code, key string, cause error) *errors.LinkError {
	le := errors.New(code)
	if cause != nil {
		le.Wrap(cause)
	}
	if c.configPath == "" {
		return le
	}
	idx := bytes.Index(c.raw, []byte(strconv.Quote(key)))
	if idx < 0 {
		return le.WithLocation(c.configPath, 0, 0)
	}
	return le.WithOffset(c.configPath, c.raw, int64(idx))
}

// PollInterval returns runtime.pollInterval.
func (c *Config) PollInterval() time.Duration {
	return mustDuration(c.Runtime.PollInterval)
}

// HandshakeTimeout returns runtime.handshakeTimeout.
func (c *Config) HandshakeTimeout() time.Duration {
	return mustDuration(c.Runtime.HandshakeTimeout)
}

// WriteTimeout returns runtime.writeTimeout.
func (c *Config) WriteTimeout() time.Duration {
	return mustDuration(c.Runtime.WriteTimeout)
}

// KeepAliveInterval returns runtime.keepAlive.interval.
func (c *Config) KeepAliveInterval() time.Duration {
	return mustDuration(c.Runtime.KeepAlive.Interval)
}

// FlushInterval returns record.flushInterval.
func (c *Config) FlushInterval() time.Duration {
	return mustDuration(c.Record.FlushInterval)
}

// KeepAliveMode returns runtime.keepAlive.mode, or teleop when it does not
// parse.
func (c *Config) KeepAliveMode() payload.Mode {
	m, err := payload.ParseMode(c.Runtime.KeepAlive.Mode)
	if err != nil {
		return payload.ModeTeleop
	}
	return m
}

// Invalid strings yield zero; consumers then apply their own defaults.
func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(strings.TrimSpace(s)))
	return l, err
}

// Logger builds a logger writing to w in the configured level and format.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
