package main

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// tickStats is the JSON frame pushed to monitor clients once per stats
// window.
type tickStats struct {
	Type        string  `json:"type"`
	Tick        int64   `json:"tick"`
	SimTime     float64 `json:"sim_time"`
	TicksPerSec float64 `json:"ticks_per_sec"`
	AvgTickUS   int64   `json:"avg_tick_us"`
	FPS         float64 `json:"fps"`
	MeanAbsDiv  float64 `json:"mean_abs_div"`
	DyeMass     float64 `json:"dye_mass"`
	Splats      int64   `json:"splats_total"`
	Backend     string  `json:"backend"`
	Paused      bool    `json:"paused"`
}

// monitorHub pushes solver stats to websocket clients. Each connection
// carries its own write mutex so broadcasts never interleave frames.
type monitorHub struct {
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex
}

func newMonitorHub(logger *slog.Logger) *monitorHub {
	return &monitorHub{
		log: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// serve blocks on the HTTP listener; run it in its own goroutine.
func (h *monitorHub) serve(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)
	h.log.Info("monitor listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		h.log.Error("monitor server stopped", "error", err)
	}
}

// handleWS upgrades the connection and keeps it registered until the
// client goes away. Inbound messages are drained and ignored.
func (h *monitorHub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	h.mu.Unlock()
	h.log.Info("monitor client connected", "remote", conn.RemoteAddr().String())

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			conn.Close()
			h.log.Info("monitor client disconnected", "remote", conn.RemoteAddr().String())
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// broadcast sends the stats frame to every connected client; clients that
// fail the write are dropped. A nil hub is a no-op.
func (h *monitorHub) broadcast(stats tickStats) {
	if h == nil {
		return
	}
	h.mu.RLock()
	var stale []*websocket.Conn
	for conn, mu := range h.clients {
		mu.Lock()
		err := conn.WriteJSON(stats)
		mu.Unlock()
		if err != nil {
			stale = append(stale, conn)
		}
	}
	h.mu.RUnlock()

	if len(stale) == 0 {
		return
	}
	h.mu.Lock()
	for _, conn := range stale {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mu.Unlock()
}
