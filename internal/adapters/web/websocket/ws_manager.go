// Package websocket streams inventory and scan events to browser clients.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/ports"
)

// Event types pushed to clients.
const (
	EventDeviceAdded   = "device.added"
	EventDeviceUpdated = "device.updated"
	EventDeviceDeleted = "device.deleted"
	EventScanUpdated   = "scan.updated"
	EventStatistics    = "statistics"
)

const (
	writeWait     = 5 * time.Second
	statsInterval = 10 * time.Second
)

type WSMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// WSManager fans registry and orchestrator events out to every connected
// client. It is registered as both a device and a scan observer.
type WSManager struct {
	Stats    ports.StatisticsService
	clients  map[*ws.Conn]struct{}
	mu       sync.Mutex
	upgrader ws.Upgrader
	logger   *slog.Logger
}

// NewWSManager creates a hub accepting connections from allowedOrigins.
// Requests without an Origin header are always accepted and "*" accepts any.
func NewWSManager(stats ports.StatisticsService, allowedOrigins []string, logger *slog.Logger) *WSManager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &WSManager{
		Stats:   stats,
		clients: make(map[*ws.Conn]struct{}),
		logger:  logger.With("component", "websocket"),
	}
	origins := slices.Clone(allowedOrigins)
	m.upgrader = ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || slices.Contains(origins, "*") || slices.Contains(origins, origin) {
				return true
			}
			m.logger.Warn("rejected websocket origin", "origin", origin)
			return false
		},
	}
	return m
}

// Start pushes a statistics snapshot periodically until ctx is done.
func (m *WSManager) Start(ctx context.Context) {
	go m.processAndBroadcast(ctx)
}

// HandleWebSocket upgrades the request and registers the client.
func (m *WSManager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Debug("upgrade failed", "error", err)
		return
	}

	m.mu.Lock()
	m.clients[conn] = struct{}{}
	m.mu.Unlock()
	m.logger.Info("websocket connected", "remote", r.RemoteAddr)

	// Reads only detect disconnects; clients never send commands.
	go func() {
		defer m.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// ClientCount returns the number of connected clients.
func (m *WSManager) ClientCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

func (m *WSManager) drop(conn *ws.Conn) {
	m.mu.Lock()
	_, ok := m.clients[conn]
	delete(m.clients, conn)
	m.mu.Unlock()
	if ok {
		conn.Close()
		m.logger.Info("websocket disconnected", "remote", conn.RemoteAddr().String())
	}
}

func (m *WSManager) processAndBroadcast(ctx context.Context) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return
		case <-ticker.C:
			if m.Stats == nil || m.ClientCount() == 0 {
				continue
			}
			stats, err := m.Stats.Summarize(ctx)
			if err != nil {
				m.logger.Warn("statistics snapshot failed", "error", err)
				continue
			}
			m.Broadcast(EventStatistics, stats)
		}
	}
}

func (m *WSManager) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.clients {
		conn.Close()
		delete(m.clients, conn)
	}
}

func (m *WSManager) OnDeviceAdded(ctx context.Context, device domain.Device) {
	m.Broadcast(EventDeviceAdded, device)
}

func (m *WSManager) OnDeviceUpdated(ctx context.Context, device domain.Device) {
	m.Broadcast(EventDeviceUpdated, device)
}

func (m *WSManager) OnDeviceDeleted(ctx context.Context, id string) {
	m.Broadcast(EventDeviceDeleted, map[string]string{"device_id": id})
}

func (m *WSManager) OnScanUpdated(ctx context.Context, scan domain.Scan) {
	m.Broadcast(EventScanUpdated, scan)
}

// Broadcast sends one event to every client. Clients that fail a write are
// dropped.
func (m *WSManager) Broadcast(eventType string, payload any) {
	data, err := json.Marshal(WSMessage{Type: eventType, Payload: payload})
	if err != nil {
		m.logger.Error("failed to encode event", "type", eventType, "error", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
			conn.Close()
			delete(m.clients, conn)
		}
	}
}

var (
	_ ports.DeviceObserver = (*WSManager)(nil)
	_ ports.ScanObserver   = (*WSManager)(nil)
)
