package status

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/runtimelink/pkg/middleware"
	"github.com/vango-dev/runtimelink/pkg/payload"
	"github.com/vango-dev/runtimelink/pkg/runtimeconn"
)

// Controller is the part of runtimeconn.Manager the handler drives.
type Controller interface {
	Connect(addr string) error
	Close() error
	SendRunMode(mode payload.Mode) error
	SendStartPos(pos payload.Pos) error
}

// HandlerConfig configures Handler.
type HandlerConfig struct {
	Bridge     *Bridge
	Controller Controller

	// Gatherer backs GET /metrics. If nil, /metrics is not mounted.
	Gatherer prometheus.Gatherer

	// Registerer receives the HTTP middleware metrics. If nil, the HTTP
	// middleware metrics are not collected.
	Registerer prometheus.Registerer

	// WriteTimeout bounds each event written to a /events client.
	// Default: 5s.
	WriteTimeout time.Duration

	// Logger is the structured logger.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

type handler struct {
	bridge       *Bridge
	ctrl         Controller
	logger       *slog.Logger
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
}

// Handler returns the status API:
//
//	GET  /status     connection snapshot as JSON
//	POST /connect    {"address": "..."} switches the Runtime address
//	POST /close      closes the current connection
//	POST /run-mode   {"mode": "teleop"} sends a run mode
//	POST /start-pos  {"pos": "left"} sends a start position
//	GET  /events     WebSocket stream of JSON events
//	GET  /metrics    Prometheus exposition
func Handler(cfg HandlerConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	h := &handler{
		bridge:       cfg.Bridge,
		ctrl:         cfg.Controller,
		logger:       cfg.Logger.With("component", "status"),
		writeTimeout: cfg.WriteTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // local console UI
			},
		},
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.OpenTelemetry(middleware.WithRequestFilter(func(r *http.Request) bool {
		return r.URL.Path != "/metrics"
	})))
	if cfg.Registerer != nil {
		r.Use(middleware.Prometheus(middleware.WithRegistry(cfg.Registerer)))
	}

	r.Get("/status", h.status)
	r.Post("/connect", h.connect)
	r.Post("/close", h.close)
	r.Post("/run-mode", h.runMode)
	r.Post("/start-pos", h.startPos)
	r.Get("/events", h.events)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Debug("write response failed", "error", err)
	}
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	code := http.StatusBadRequest
	switch {
	case errors.Is(err, runtimeconn.ErrNotReady):
		code = http.StatusServiceUnavailable
	case errors.Is(err, runtimeconn.ErrShutdown):
		code = http.StatusGone
	}
	h.writeJSON(w, code, errorResponse{Error: err.Error()})
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.bridge.Snapshot())
}

func (h *handler) connect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.ctrl.Connect(req.Address); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *handler) close(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.Close(); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) runMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, err)
		return
	}
	mode, err := payload.ParseMode(req.Mode)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.ctrl.SendRunMode(mode); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) startPos(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pos string `json:"pos"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, err)
		return
	}
	pos, err := payload.ParsePos(req.Pos)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.ctrl.SendStartPos(pos); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// events streams bridge events to a WebSocket client until either side
// goes away.
func (h *handler) events(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, cancel := h.bridge.Subscribe()
	defer cancel()

	// Reads only detect the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev := <-events:
			conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Debug("event client write failed", "error", err)
				return
			}
		case <-gone:
			return
		case <-r.Context().Done():
			return
		}
	}
}
