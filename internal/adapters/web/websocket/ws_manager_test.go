package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

func dial(t *testing.T, srv *httptest.Server, origin string) (*ws.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return ws.DefaultDialer.Dial(url, header)
}

func TestWSManager_BroadcastsEvents(t *testing.T) {
	m := NewWSManager(nil, []string{"http://localhost:8080"}, nil)
	srv := httptest.NewServer(http.HandlerFunc(m.HandleWebSocket))
	defer srv.Close()

	conn, _, err := dial(t, srv, "http://localhost:8080")
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return m.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	m.OnDeviceAdded(context.Background(), domain.Device{ID: "dev-1", PrimaryIP: "10.0.0.1"})
	m.OnScanUpdated(context.Background(), domain.Scan{ID: "scan-1", State: domain.ScanRunning})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventDeviceAdded, msg.Type)
	assert.Equal(t, "dev-1", msg.Payload.(map[string]any)["device_id"])

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventScanUpdated, msg.Type)
	assert.Equal(t, "running", msg.Payload.(map[string]any)["status"])
}

func TestWSManager_RejectsUnknownOrigin(t *testing.T) {
	m := NewWSManager(nil, []string{"http://localhost:8080"}, nil)
	srv := httptest.NewServer(http.HandlerFunc(m.HandleWebSocket))
	defer srv.Close()

	_, resp, err := dial(t, srv, "http://evil.example")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, m.ClientCount())
}

func TestWSManager_WildcardOrigin(t *testing.T) {
	m := NewWSManager(nil, []string{"*"}, nil)
	srv := httptest.NewServer(http.HandlerFunc(m.HandleWebSocket))
	defer srv.Close()

	conn, _, err := dial(t, srv, "http://anything.example")
	require.NoError(t, err)
	conn.Close()
}

func TestWSManager_DropsClosedClients(t *testing.T) {
	m := NewWSManager(nil, nil, nil)
	srv := httptest.NewServer(http.HandlerFunc(m.HandleWebSocket))
	defer srv.Close()

	conn, _, err := dial(t, srv, "")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return m.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return m.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
