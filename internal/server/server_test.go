package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/pixeld/internal/config"
	"github.com/jmylchreest/pixeld/internal/engine"
	"github.com/jmylchreest/pixeld/internal/events"
	"github.com/jmylchreest/pixeld/internal/http/handlers"
	"github.com/jmylchreest/pixeld/internal/logging"
	"github.com/jmylchreest/pixeld/internal/transmit"
	"github.com/jmylchreest/pixeld/pkg/color"
	"github.com/jmylchreest/pixeld/pkg/pixel"
)

var testInfo = handlers.VersionInfo{Version: "1.0.0-test", Commit: "deadbeef", BuildDate: "2026-01-01T00:00:00Z"}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// testEngine builds the kitchen layout: a reversed 150 pixel strip, a 72
// pixel strip, "main" over 220 pixels and a single "status" pixel.
func testEngine(t *testing.T, bus *events.Bus) *engine.Engine {
	t.Helper()
	buf := pixel.NewBuffer(pixel.WithLogger(testLogger()))
	require.NoError(t, buf.Configure([]pixel.Strip{
		{Pin: 4, Length: 150, Reversed: true},
		{Pin: 5, Length: 72},
	}))
	tx := transmit.New(transmit.DefaultConfig(), transmit.Null{}, transmit.WithLogger(testLogger()))
	e := engine.New(buf, tx, engine.WithLogger(testLogger()), engine.WithConverter(color.Reference))
	e.SetEventBus(bus)
	require.NoError(t, e.DefineArea(0, "main", []pixel.Section{{Offset: 0, Length: 149}, {Offset: 149, Length: 71}}))
	require.NoError(t, e.DefineAreaRange(1, "status", 220, 1))
	return e
}

// testConfig loads defaults with a short socket path; unix socket paths are
// limited to about 100 bytes so t.TempDir is too deep on some systems.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "pixeld")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	cfg, err := config.Load("pixeld.yaml", filepath.Join(tempDir, "pixeld.yaml"))
	require.NoError(t, err)
	cfg.Server.UnixSocket = filepath.Join(tempDir, "pixeld.sock")
	cfg.API.ListenAddress = ""
	cfg.API.RateLimit = 0
	return cfg
}

type testServer struct {
	*Server
	engine *engine.Engine
	bus    *events.Bus
}

func startServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()
	cfg := testConfig(t)
	for _, m := range mutate {
		m(cfg)
	}
	bus := events.NewBus()
	eng := testEngine(t, bus)

	s := New(testLogger(), cfg, eng, bus, testInfo)
	require.NoError(t, s.Start())
	t.Cleanup(s.Stop)
	return &testServer{Server: s, engine: eng, bus: bus}
}

// socketRequest sends a JSON request and reads the JSON response.
func socketRequest(t *testing.T, socketPath string, req map[string]any) map[string]any {
	t.Helper()
	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()
	return socketRequestKeepConn(t, conn, req)
}

// socketRequestKeepConn sends a request on an existing connection and reads the response.
func socketRequestKeepConn(t *testing.T, conn net.Conn, req map[string]any) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, json.NewEncoder(conn).Encode(req))

	var resp map[string]any
	require.NoError(t, json.NewDecoder(conn).Decode(&resp))
	return resp
}

func TestNewServer(t *testing.T) {
	cfg := testConfig(t)
	bus := events.NewBus()
	s := New(testLogger(), cfg, testEngine(t, bus), bus, testInfo)

	assert.Equal(t, cfg.Server.UnixSocket, s.SocketPath())
	assert.NotNil(t, s.HTTPHandler())
	assert.Equal(t, 1, bus.Len(), "websocket hub subscribes on construction")
}

func TestServerStartStop(t *testing.T) {
	cfg := testConfig(t)
	bus := events.NewBus()
	s := New(testLogger(), cfg, testEngine(t, bus), bus, testInfo)

	require.NoError(t, s.Start())
	_, err := os.Stat(cfg.Server.UnixSocket)
	require.NoError(t, err, "socket file should exist")

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}

	_, err = net.Dial("unix", cfg.Server.UnixSocket)
	assert.Error(t, err, "connections should be refused after Stop")
	assert.Equal(t, 0, bus.Len(), "hub should unsubscribe on Stop")
}

func TestServerRemovesStaleSocket(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Server.UnixSocket, []byte("stale"), 0600))

	bus := events.NewBus()
	s := New(testLogger(), cfg, testEngine(t, bus), bus, testInfo)
	require.NoError(t, s.Start())
	defer s.Stop()

	resp := socketRequest(t, cfg.Server.UnixSocket, map[string]any{"action": "ping"})
	assert.Equal(t, "pong", resp["message"])
}

func TestServerHTTPListener(t *testing.T) {
	ts := startServer(t, func(c *config.Config) { c.API.ListenAddress = "127.0.0.1:0" })
	require.NotNil(t, ts.httpServer)
}

func TestSocketSetLevelChangesGlobalLevel(t *testing.T) {
	original := logging.Level()
	t.Cleanup(func() { logging.SetLevel(original) })

	ts := startServer(t)
	resp := socketRequest(t, ts.SocketPath(), map[string]any{"action": "set_level", "data": map[string]any{"level": "error"}})
	assert.Equal(t, "error", resp["level"])
	assert.Equal(t, "error", logging.Level())
}
