package runtimelink

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vango-dev/runtimelink/pkg/payload"
	"github.com/vango-dev/runtimelink/pkg/record"
	"github.com/vango-dev/runtimelink/pkg/runtimeconn"
	"github.com/vango-dev/runtimelink/pkg/status"
)

// =============================================================================
// Config
// =============================================================================

// Config configures a Console.
type Config struct {
	// Runtime configures the connection manager. Observers listed here are
	// called after the status bridge and the recorder.
	Runtime runtimeconn.Config

	// Listen is the status server address (e.g., "127.0.0.1:8080").
	// Empty disables the status server.
	Listen string

	// KeepAlive periodically re-sends a run mode while connected.
	KeepAlive KeepAliveConfig

	// Status configures the status bridge.
	Status status.BridgeConfig

	// Record configures session recording. Recording is on when
	// Record.Sink is set.
	Record record.Config

	// Registry collects every metric of the console. If nil, a new registry
	// with the Go and process collectors is created.
	Registry *prometheus.Registry

	// ShutdownTimeout bounds the graceful shutdown in Run.
	// Default: 10s.
	ShutdownTimeout time.Duration

	// Logger is the structured logger.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// KeepAliveConfig configures the keep-alive loop.
type KeepAliveConfig struct {
	Enabled  bool
	Mode     payload.Mode
	Interval time.Duration
}

// Defaults for Config.
const (
	DefaultKeepAliveInterval = 5 * time.Second
	DefaultShutdownTimeout   = 10 * time.Second
)

// =============================================================================
// Console
// =============================================================================

// Console ties a runtimeconn.Manager to its consumers: the status bridge and
// HTTP API, the optional session recorder and the keep-alive loop.
//
//	c, err := runtimelink.New(runtimelink.Config{
//	    Runtime: runtimeconn.Config{Address: "192.168.0.10"},
//	    Listen:  "127.0.0.1:8080",
//	})
//	if err != nil {
//	    return err
//	}
//	return c.Run(ctx)
type Console struct {
	cfg      Config
	manager  *runtimeconn.Manager
	bridge   *status.Bridge
	recorder *record.Recorder
	registry *prometheus.Registry
	handler  http.Handler
	logger   *slog.Logger

	mu   sync.Mutex
	addr net.Addr
}

// New creates a Console and starts its connection manager. The manager
// begins dialing immediately; call Run to serve and Shutdown-on-cancel.
func New(cfg Config) (*Console, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.KeepAlive.Interval <= 0 {
		cfg.KeepAlive.Interval = DefaultKeepAliveInterval
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
		cfg.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c := &Console{
		cfg:      cfg,
		registry: cfg.Registry,
		logger:   cfg.Logger.With("component", "console"),
	}

	if cfg.Status.Logger == nil {
		cfg.Status.Logger = cfg.Logger
	}
	c.bridge = status.NewBridge(cfg.Status)
	observers := []runtimeconn.Observer{c.bridge}

	if cfg.Record.Sink != nil {
		if cfg.Record.Logger == nil {
			cfg.Record.Logger = cfg.Logger
		}
		rec, err := record.New(cfg.Record)
		if err != nil {
			return nil, err
		}
		c.recorder = rec
		observers = append(observers, rec)
	}

	rc := cfg.Runtime
	rc.Observers = append(observers, rc.Observers...)
	rc.Registerer = cfg.Registry
	if rc.Logger == nil {
		rc.Logger = cfg.Logger
	}
	m, err := runtimeconn.New(rc)
	if err != nil {
		return nil, err
	}
	c.manager = m

	c.handler = status.Handler(status.HandlerConfig{
		Bridge:       c.bridge,
		Controller:   m,
		Gatherer:     cfg.Registry,
		Registerer:   cfg.Registry,
		WriteTimeout: rc.WriteTimeout,
		Logger:       cfg.Logger,
	})
	return c, nil
}

// Manager returns the connection manager.
func (c *Console) Manager() *runtimeconn.Manager { return c.manager }

// Bridge returns the status bridge.
func (c *Console) Bridge() *status.Bridge { return c.bridge }

// Recorder returns the session recorder, or nil when recording is off.
func (c *Console) Recorder() *record.Recorder { return c.recorder }

// Handler returns the status HTTP API.
func (c *Console) Handler() http.Handler { return c.handler }

// Addr returns the status server's listen address once Run has bound it.
func (c *Console) Addr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addr
}

// Run serves the status API, runs the recorder and the keep-alive loop,
// and blocks until ctx is done or the status server fails. It then shuts
// everything down within ShutdownTimeout.
func (c *Console) Run(ctx context.Context) error {
	var srv *http.Server
	errCh := make(chan error, 1)

	if c.cfg.Listen != "" {
		ln, err := net.Listen("tcp", c.cfg.Listen)
		if err != nil {
			c.shutdownManager()
			return err
		}
		c.mu.Lock()
		c.addr = ln.Addr()
		c.mu.Unlock()

		srv = &http.Server{
			Handler:           c.handler,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			c.logger.Info("status server starting", "address", ln.Addr().String())
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	bgCtx, cancelBg := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	if c.recorder != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.recorder.Run(bgCtx); err != nil {
				c.logger.Warn("final recording flush failed", "error", err)
			}
		}()
	}
	if c.cfg.KeepAlive.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.keepAlive(bgCtx)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		c.logger.Info("shutting down")
	case runErr = <-errCh:
		c.logger.Error("status server failed", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.cfg.ShutdownTimeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			c.logger.Warn("status server shutdown", "error", err)
		}
	}
	if err := c.manager.Shutdown(shutdownCtx); err != nil {
		c.logger.Warn("manager shutdown", "error", err)
	}

	// The recorder flushes once more after the manager has stopped emitting.
	cancelBg()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		c.logger.Warn("background tasks did not stop in time")
	}

	c.logger.Info("shutdown complete")
	return runErr
}

func (c *Console) shutdownManager() {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ShutdownTimeout)
	defer cancel()
	_ = c.manager.Shutdown(ctx)
}
