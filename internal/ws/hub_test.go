package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/pixeld/internal/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func startTestHub(t *testing.T) (*Hub, *events.Bus, context.CancelFunc) {
	t.Helper()
	bus := events.NewBus()
	hub := NewHub(testLogger(), bus)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	// Give the hub's Run loop time to start
	time.Sleep(10 * time.Millisecond)

	return hub, bus, cancel
}

func startTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(Handler(hub, testLogger()))
	t.Cleanup(server.Close)
	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func dialWS(t *testing.T, server *httptest.Server, query ...string) *websocket.Conn {
	t.Helper()
	url := wsURL(server)
	if len(query) > 0 {
		url += "?" + strings.Join(query, "&")
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n }, 2*time.Second, 5*time.Millisecond)
}

func readEvent(t *testing.T, conn *websocket.Conn) events.Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var evt events.Event
	require.NoError(t, json.Unmarshal(msg, &evt))
	return evt
}

// --- Hub lifecycle tests ---

func TestNewHub_CreatesHub(t *testing.T) {
	hub := NewHub(testLogger(), events.NewBus())

	assert.NotNil(t, hub)
	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.broadcast)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
	assert.NotNil(t, hub.unsub)
}

func TestHub_RunAndStop(t *testing.T) {
	bus := events.NewBus()
	hub := NewHub(testLogger(), bus)
	assert.Equal(t, 1, bus.Len())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	assert.Equal(t, 0, bus.Len(), "hub should unsubscribe from the bus")
}

func TestHub_ClientCount(t *testing.T) {
	hub, _, cancel := startTestHub(t)
	defer cancel()

	server := startTestServer(t, hub)
	assert.Equal(t, 0, hub.ClientCount())

	conn1 := dialWS(t, server)
	waitClients(t, hub, 1)

	conn2 := dialWS(t, server)
	waitClients(t, hub, 2)

	conn1.Close()
	waitClients(t, hub, 1)

	conn2.Close()
	waitClients(t, hub, 0)
}

// --- Event broadcasting tests ---

func TestHub_BroadcastsEventToClients(t *testing.T) {
	hub, bus, cancel := startTestHub(t)
	defer cancel()

	server := startTestServer(t, hub)
	conn := dialWS(t, server)
	waitClients(t, hub, 1)

	bus.Publish(events.NewEvent(events.AreaStateChanged, "kitchen", map[string]string{"state": "ON"}))

	evt := readEvent(t, conn)
	assert.Equal(t, events.AreaStateChanged, evt.Type)
	assert.Equal(t, "kitchen", evt.Area)

	var data map[string]string
	require.NoError(t, json.Unmarshal(evt.Data, &data))
	assert.Equal(t, "ON", data["state"])
}

func TestHub_BroadcastsToMultipleClients(t *testing.T) {
	hub, bus, cancel := startTestHub(t)
	defer cancel()

	server := startTestServer(t, hub)
	conn1 := dialWS(t, server)
	conn2 := dialWS(t, server)
	waitClients(t, hub, 2)

	bus.Publish(events.NewEvent(events.EffectStarted, "desk", map[string]string{"effect": "rainbow"}))

	var wg sync.WaitGroup
	var evt1, evt2 events.Event
	wg.Go(func() { evt1 = readEvent(t, conn1) })
	wg.Go(func() { evt2 = readEvent(t, conn2) })
	wg.Wait()

	assert.Equal(t, events.EffectStarted, evt1.Type)
	assert.Equal(t, events.EffectStarted, evt2.Type)
}

func TestHub_MultipleEventsInSequence(t *testing.T) {
	hub, bus, cancel := startTestHub(t)
	defer cancel()

	server := startTestServer(t, hub)
	conn := dialWS(t, server)
	waitClients(t, hub, 1)

	eventTypes := []events.EventType{
		events.EffectStarted,
		events.AreaStateChanged,
		events.EffectCompleted,
	}
	for _, et := range eventTypes {
		bus.Publish(events.NewEvent(et, "kitchen", nil))
	}

	var received []events.EventType
	for range eventTypes {
		received = append(received, readEvent(t, conn).Type)
	}

	assert.Equal(t, eventTypes, received)
}

func TestHub_AreaFilter(t *testing.T) {
	hub, bus, cancel := startTestHub(t)
	defer cancel()

	server := startTestServer(t, hub)
	filtered := dialWS(t, server, "area=desk,status")
	all := dialWS(t, server)
	waitClients(t, hub, 2)

	bus.Publish(events.NewEvent(events.AreaStateChanged, "kitchen", nil))
	bus.Publish(events.NewEvent(events.AreaStateChanged, "status", nil))

	assert.Equal(t, "status", readEvent(t, filtered).Area)
	assert.Equal(t, "kitchen", readEvent(t, all).Area)
	assert.Equal(t, "status", readEvent(t, all).Area)
}

func TestAreaFilter(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"", nil},
		{"area=kitchen", []string{"kitchen"}},
		{"area=kitchen,desk", []string{"kitchen", "desk"}},
		{"area=kitchen&area=desk", []string{"kitchen", "desk"}},
		{"area=,+desk+", []string{"desk"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws?"+tt.query, nil)
			assert.Equal(t, tt.want, areaFilter(r))
		})
	}
}

// --- Handler tests ---

func TestHandler_UpgradesConnection(t *testing.T) {
	hub, _, cancel := startTestHub(t)
	defer cancel()

	server := startTestServer(t, hub)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
}

func TestHandler_NonWebSocketRequest(t *testing.T) {
	hub, _, cancel := startTestHub(t)
	defer cancel()

	server := startTestServer(t, hub)

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	// gorilla/websocket returns 400 Bad Request for non-upgrade requests
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// --- Hub shutdown tests ---

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub, _, cancel := startTestHub(t)

	server := startTestServer(t, hub)
	conn := dialWS(t, server)
	waitClients(t, hub, 1)

	cancel()

	_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

// --- NewClient tests ---

func TestNewClient(t *testing.T) {
	hub := NewHub(testLogger(), events.NewBus())

	client := hub.NewClient(nil, "kitchen")
	assert.Equal(t, hub, client.hub)
	assert.NotEmpty(t, client.ID())
	assert.NotNil(t, client.send)
	assert.Equal(t, sendBufferSize, cap(client.send))
	assert.True(t, client.wants("kitchen"))
	assert.False(t, client.wants("desk"))

	unfiltered := hub.NewClient(nil)
	assert.True(t, unfiltered.wants("anything"))
	assert.NotEqual(t, client.ID(), unfiltered.ID())
}
