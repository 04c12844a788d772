package natsbridge

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/pixeld/internal/engine"
	"github.com/jmylchreest/pixeld/internal/events"
	"github.com/jmylchreest/pixeld/internal/transmit"
	"github.com/jmylchreest/pixeld/pkg/pixel"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// startNATS runs an embedded server on a random port.
func startNATS(t *testing.T) string {
	t.Helper()
	ns, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	require.NoError(t, err)
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		t.Fatal("NATS server failed to start")
	}
	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return ns.ClientURL()
}

func testEngine(t *testing.T, bus *events.Bus) *engine.Engine {
	t.Helper()
	buf := pixel.NewBuffer(pixel.WithLogger(testLogger()))
	require.NoError(t, buf.Configure([]pixel.Strip{{Pin: 5, Length: 30}}))
	tx := transmit.New(transmit.DefaultConfig(), transmit.Null{}, transmit.WithLogger(testLogger()))
	e := engine.New(buf, tx, engine.WithLogger(testLogger()))
	e.SetEventBus(bus)
	require.NoError(t, e.DefineAreaRange(0, "shelf", 0, 20))
	require.NoError(t, e.DefineAreaRange(1, "status", 20, 10))
	return e
}

type fixture struct {
	bridge *Bridge
	engine *engine.Engine
	peer   *nats.Conn
}

// setup starts a server, a peer connection subscribed to subjects, and the
// bridge, in that order so the peer sees the bridge's start-up messages.
func setup(t *testing.T, watch ...string) (*fixture, map[string]chan *nats.Msg) {
	t.Helper()
	url := startNATS(t)

	peer, err := nats.Connect(url)
	require.NoError(t, err)
	t.Cleanup(peer.Close)

	chans := map[string]chan *nats.Msg{}
	for _, subject := range watch {
		ch := make(chan *nats.Msg, 16)
		_, err := peer.ChanSubscribe(subject, ch)
		require.NoError(t, err)
		chans[subject] = ch
	}
	require.NoError(t, peer.Flush())

	bus := events.NewBus()
	eng := testEngine(t, bus)
	b := New(url, "lights.", eng, bus, testLogger())
	require.NoError(t, b.Start())
	t.Cleanup(b.Stop)

	return &fixture{bridge: b, engine: eng, peer: peer}, chans
}

func receive(t *testing.T, ch chan *nats.Msg) *nats.Msg {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestSubjects(t *testing.T) {
	assert.Equal(t, "pixeld.main.set", SubjectSet("pixeld", "main"))
	assert.Equal(t, "pixeld.main.effect", SubjectEffect("pixeld", "main"))
	assert.Equal(t, "pixeld.main.state", SubjectState("pixeld", "main"))
	assert.Equal(t, "pixeld.avail", SubjectAvail("pixeld"))
}

func TestAreaToken(t *testing.T) {
	b := New("", "lights", nil, nil, testLogger())
	assert.Equal(t, "shelf", b.areaToken("lights.shelf.set"))
	assert.Equal(t, "0", b.areaToken("lights.0.effect"))
}

func TestStartAnnouncesOnlineAndState(t *testing.T) {
	f, chans := setup(t, "lights.avail", "lights.*.state")

	assert.Equal(t, Online, string(receive(t, chans["lights.avail"]).Data))
	assert.True(t, f.bridge.IsConnected())

	seen := map[string]bool{}
	for range 2 {
		msg := receive(t, chans["lights.*.state"])
		seen[msg.Subject] = true
		var n engine.Notification
		require.NoError(t, json.Unmarshal(msg.Data, &n))
		assert.Equal(t, engine.StateOff, n.State)
	}
	assert.True(t, seen["lights.shelf.state"])
	assert.True(t, seen["lights.status.state"])
}

func TestSetRequest(t *testing.T) {
	f, _ := setup(t)

	resp, err := f.peer.Request("lights.shelf.set", []byte(`{"state":"ON","brightness":25,"color":{"h":200,"s":50}}`), 2*time.Second)
	require.NoError(t, err)

	var n engine.Notification
	require.NoError(t, json.Unmarshal(resp.Data, &n))
	assert.Equal(t, engine.StateOn, n.State)
	assert.Equal(t, 25, n.Brightness)

	state, err := f.engine.State(0)
	require.NoError(t, err)
	assert.Equal(t, n, state)
}

func TestSetByNumericArea(t *testing.T) {
	f, _ := setup(t)

	resp, err := f.peer.Request("lights.1.set", []byte(`{"state":"ON"}`), 2*time.Second)
	require.NoError(t, err)
	assert.Contains(t, string(resp.Data), `"state":"ON"`)

	state, err := f.engine.State(1)
	require.NoError(t, err)
	assert.Equal(t, engine.StateOn, state.State)
}

func TestSetFireAndForget(t *testing.T) {
	f, _ := setup(t)

	require.NoError(t, f.peer.Publish("lights.status.set", []byte(`{"state":"ON"}`)))
	require.NoError(t, f.peer.Flush())

	assert.Eventually(t, func() bool {
		state, err := f.engine.State(1)
		return err == nil && state.State == engine.StateOn
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSetErrors(t *testing.T) {
	f, _ := setup(t)

	resp, err := f.peer.Request("lights.garage.set", []byte(`{"state":"ON"}`), 2*time.Second)
	require.NoError(t, err)
	assert.Contains(t, string(resp.Data), "not found")

	resp, err = f.peer.Request("lights.shelf.set", []byte(`not json`), 2*time.Second)
	require.NoError(t, err)
	assert.Contains(t, string(resp.Data), "not a JSON object")
}

func TestEffectRequest(t *testing.T) {
	f, _ := setup(t)

	resp, err := f.peer.Request("lights.shelf.effect", []byte(`{"name":"rainbow","rate":3,"width":20}`), 2*time.Second)
	require.NoError(t, err)
	assert.Contains(t, string(resp.Data), `"effect":"rainbow"`)

	info, err := f.engine.Area(0)
	require.NoError(t, err)
	assert.Equal(t, "rainbow", info.State.Effect)

	resp, err = f.peer.Request("lights.shelf.effect", []byte(`{"name":"sparkle"}`), 2*time.Second)
	require.NoError(t, err)
	assert.Contains(t, string(resp.Data), "sparkle")

	resp, err = f.peer.Request("lights.shelf.effect", []byte(`[]`), 2*time.Second)
	require.NoError(t, err)
	assert.Contains(t, string(resp.Data), "invalid effect request")
}

func TestStateForwardedOnTick(t *testing.T) {
	f, chans := setup(t, "lights.status.state")
	receive(t, chans["lights.status.state"]) // initial state

	on := engine.StateOn
	_, err := f.engine.Apply(1, engine.Command{State: &on})
	require.NoError(t, err)
	f.engine.Tick()

	msg := receive(t, chans["lights.status.state"])
	var n engine.Notification
	require.NoError(t, json.Unmarshal(msg.Data, &n))
	assert.Equal(t, engine.StateOn, n.State)
}

func TestStopAnnouncesOffline(t *testing.T) {
	f, chans := setup(t, "lights.avail")
	receive(t, chans["lights.avail"])

	f.bridge.Stop()
	assert.Equal(t, Offline, string(receive(t, chans["lights.avail"]).Data))
	assert.False(t, f.bridge.IsConnected())

	f.bridge.Stop()
}

func TestStartFailsWithoutServer(t *testing.T) {
	bus := events.NewBus()
	b := New("nats://127.0.0.1:1", "pixeld", testEngine(t, bus), bus, testLogger())

	err := b.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to NATS")
	assert.False(t, b.IsConnected())
	assert.Equal(t, 0, bus.Len(), "no bus subscription is left behind")
}
