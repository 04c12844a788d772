package commands

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/pixeld/pkg/client"
)

// mockClient implements client.ClientInterface for CLI tests
// and records what the commands send.
type mockClient struct {
	areas     []client.Area
	lastRef   string
	lastCmd   client.Command
	lastEff   client.Effect
	lastColor string
	lastOn    bool
	level     string
	failAreas bool
}

var _ client.ClientInterface = (*mockClient)(nil)

func newMockClient() *mockClient {
	main := client.Area{ID: 0, Name: "main", Length: 220}
	main.State = client.State{State: "ON", Brightness: 40, ColorMode: "hs", Effect: "none"}
	main.State.Color.H = 30
	main.State.Color.S = 80
	status := client.Area{ID: 1, Name: "status", Length: 1}
	status.State = client.State{State: "OFF", Brightness: 100, ColorMode: "hs", Effect: "none"}
	return &mockClient{areas: []client.Area{main, status}, level: "info"}
}

func (m *mockClient) ListAreas() ([]client.Area, error) {
	if m.failAreas {
		return nil, errors.New("socket closed")
	}
	return m.areas, nil
}

func (m *mockClient) GetArea(ref string) (client.Area, error) {
	for _, a := range m.areas {
		if a.Name == ref || strconv.Itoa(a.ID) == ref {
			return a, nil
		}
	}
	return client.Area{}, errors.New(`area "` + ref + `": resource not found`)
}

func (m *mockClient) SetArea(ref string, cmd client.Command) (client.State, error) {
	m.lastRef, m.lastCmd = ref, cmd
	return client.State{State: "ON", Brightness: 60, Effect: "none"}, nil
}

func (m *mockClient) SetEffect(ref string, eff client.Effect) (client.State, error) {
	m.lastRef, m.lastEff = ref, eff
	return client.State{State: "ON", Brightness: 100, Effect: eff.Name}, nil
}

func (m *mockClient) ListStrips() (client.Layout, error) {
	return client.Layout{Pixels: 222, Strips: []client.Strip{
		{Pin: 4, Offset: 0, Length: 150, Reversed: true},
		{Pin: 5, Offset: 150, Length: 72},
	}}, nil
}

func (m *mockClient) GetVersion() (client.Version, error) {
	return client.Version{Version: "9.9.9", Commit: "cafe", BuildDate: "yesterday"}, nil
}

func (m *mockClient) GetLogLevel() (string, error) { return m.level, nil }

func (m *mockClient) SetLogLevel(level string) (string, error) {
	m.level = level
	return level, nil
}

// socketMock adds the socket-only operations.
type socketMock struct {
	*mockClient
}

func (s socketMock) Dump() (string, error) {
	return "strip 0 pin 4\narea 0 \"main\": 220 pixels\n", nil
}

func (s socketMock) SetColor(ref, name string, on bool) (client.State, error) {
	s.lastRef, s.lastColor, s.lastOn = ref, name, on
	if name == "puce" {
		return client.State{}, errors.New(`unknown color "puce"`)
	}
	return client.State{State: "ON", Brightness: 100, Effect: "none"}, nil
}

func (s socketMock) Subscribe(ctx context.Context, areas []string, fn func(client.Event)) error {
	fn(client.Event{Type: "area.state_changed", Area: "main", Data: []byte(`{"state":"ON"}`)})
	return nil
}

// run executes cmd with the mock client on its context.
func run(t *testing.T, c client.ClientInterface, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var err error
	out := captureStdout(func() {
		cmd.SetContext(context.WithValue(context.Background(), ClientContextKey, c))
		cmd.SetArgs(args)
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		err = cmd.Execute()
	})
	return out, err
}

func TestAreaListCommand(t *testing.T) {
	mock := newMockClient()

	out, err := run(t, mock, newAreaListCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "main")
	assert.Contains(t, out, "40%")
	assert.Contains(t, out, "status")

	out, err = run(t, mock, newAreaListCommand(), "--parseable")
	require.NoError(t, err)
	assert.Contains(t, out, `id=0 name="main" length=220 state="ON" brightness=40 hue=30 saturation=80 effect="none"`)
	assert.Contains(t, out, `id=1 name="status"`)
}

func TestAreaListCommand_Empty(t *testing.T) {
	mock := newMockClient()
	mock.areas = nil

	out, err := run(t, mock, newAreaListCommand(), "-p")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestAreaListCommand_Error(t *testing.T) {
	mock := newMockClient()
	mock.failAreas = true

	_, err := run(t, mock, newAreaListCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get areas")
}

func TestAreaGetCommand(t *testing.T) {
	mock := newMockClient()

	out, err := run(t, mock, newAreaGetCommand(), "main")
	require.NoError(t, err)
	assert.Contains(t, out, "Brightness")
	assert.Contains(t, out, "220")

	out, err = run(t, mock, newAreaGetCommand(), "main", "brightness")
	require.NoError(t, err)
	assert.Equal(t, "40\n", out)

	out, err = run(t, mock, newAreaGetCommand(), "main", "hue", "-p")
	require.NoError(t, err)
	assert.Equal(t, "hue=30\n", out)

	_, err = run(t, mock, newAreaGetCommand(), "main", "temperature")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid property")

	_, err = run(t, mock, newAreaGetCommand(), "garage")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resource not found")
}

func TestAreaSetCommand(t *testing.T) {
	mock := newMockClient()

	out, err := run(t, mock, newAreaSetCommand(nil), "main", "--state", "on", "--brightness", "60", "--transition", "1.5")
	require.NoError(t, err)
	assert.Contains(t, out, "Area main: ON, brightness 60%")

	assert.Equal(t, "main", mock.lastRef)
	require.NotNil(t, mock.lastCmd.State)
	assert.Equal(t, "ON", *mock.lastCmd.State)
	require.NotNil(t, mock.lastCmd.Brightness)
	assert.Equal(t, 60.0, *mock.lastCmd.Brightness)
	require.NotNil(t, mock.lastCmd.Transition)
	assert.Equal(t, 1.5, *mock.lastCmd.Transition)
	assert.Nil(t, mock.lastCmd.Color, "colour was not given")
}

func TestAreaSetCommand_Hex(t *testing.T) {
	mock := newMockClient()

	_, err := run(t, mock, newAreaSetCommand(nil), "main", "--hex", "#0000ff")
	require.NoError(t, err)

	require.NotNil(t, mock.lastCmd.Color)
	assert.InDelta(t, 240, *mock.lastCmd.Color.H, 0.01)
	assert.InDelta(t, 100, *mock.lastCmd.Color.S, 0.01)
	require.NotNil(t, mock.lastCmd.Brightness)
	assert.InDelta(t, 100, *mock.lastCmd.Brightness, 0.01)
	assert.Nil(t, mock.lastCmd.State)
}

func TestAreaSetCommand_HexKeepsExplicitBrightness(t *testing.T) {
	mock := newMockClient()

	_, err := run(t, mock, newAreaSetCommand(nil), "main", "--hex", "ff0000", "--brightness", "10", "--saturation", "50")
	require.NoError(t, err)

	assert.InDelta(t, 0, *mock.lastCmd.Color.H, 0.01)
	assert.Equal(t, 50.0, *mock.lastCmd.Color.S, "an explicit saturation wins over the hex colour")
	assert.Equal(t, 10.0, *mock.lastCmd.Brightness)
}

func TestAreaSetCommand_Errors(t *testing.T) {
	mock := newMockClient()

	_, err := run(t, mock, newAreaSetCommand(nil), "main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to set")

	_, err = run(t, mock, newAreaSetCommand(nil), "main", "--state", "dim")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid state")

	_, err = run(t, mock, newAreaSetCommand(nil), "main", "--hex", "#zzzzzz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid colour")
}

func TestHexToHSV(t *testing.T) {
	tests := []struct {
		hex     string
		h, s, v float64
	}{
		{"#ffffff", 0, 0, 100},
		{"#00ff00", 120, 100, 100},
		{"800000", 0, 100, 50.2},
		{"#ff8000", 30.1, 100, 100},
	}
	for _, tt := range tests {
		t.Run(tt.hex, func(t *testing.T) {
			h, s, v, err := hexToHSV(tt.hex)
			require.NoError(t, err)
			assert.InDelta(t, tt.h, h, 0.1)
			assert.InDelta(t, tt.s, s, 0.1)
			assert.InDelta(t, tt.v, v, 0.1)
		})
	}
}

func TestEffectCommand(t *testing.T) {
	mock := newMockClient()

	out, err := run(t, mock, NewEffectCommand(), "main", "wave", "--rate", "2", "--width", "30", "--shape", "sine")
	require.NoError(t, err)
	assert.Contains(t, out, "effect wave")
	assert.Equal(t, client.Effect{Name: "wave", Rate: 2, Width: 30, Shape: "sine"}, mock.lastEff)

	_, err = run(t, mock, NewEffectCommand(), "main")
	require.Error(t, err, "an effect name is required")
}

func TestStripListCommand(t *testing.T) {
	mock := newMockClient()

	out, err := run(t, mock, newStripListCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "Reversed")
	assert.Contains(t, out, "222 pixels total")

	out, err = run(t, mock, newStripListCommand(), "-p")
	require.NoError(t, err)
	assert.Equal(t, "pin=4 offset=0 length=150 reversed=true\npin=5 offset=150 length=72 reversed=false\n", out)
}

func TestDumpCommand(t *testing.T) {
	out, err := run(t, socketMock{newMockClient()}, NewDumpCommand())
	require.NoError(t, err)
	assert.Contains(t, out, `area 0 "main": 220 pixels`)

	_, err = run(t, newMockClient(), NewDumpCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "control socket")
}

func TestAreaColorCommand(t *testing.T) {
	mock := newMockClient()

	_, err := run(t, socketMock{mock}, newAreaColorCommand(), "status", "red")
	require.NoError(t, err)
	assert.Equal(t, "status", mock.lastRef)
	assert.Equal(t, "red", mock.lastColor)
	assert.True(t, mock.lastOn)

	_, err = run(t, socketMock{mock}, newAreaColorCommand(), "main", "blue", "--off")
	require.NoError(t, err)
	assert.False(t, mock.lastOn)

	_, err = run(t, socketMock{mock}, newAreaColorCommand(), "main", "puce")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "puce")

	_, err = run(t, mock, newAreaColorCommand(), "main", "red")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "control socket")
}

func TestAreaWatchCommand(t *testing.T) {
	out, err := run(t, socketMock{newMockClient()}, newAreaWatchCommand(), "main")
	require.NoError(t, err)
	assert.Contains(t, out, `main area.state_changed {"state":"ON"}`)

	_, err = run(t, newMockClient(), newAreaWatchCommand())
	require.Error(t, err)
}

func TestLogLevelCommand(t *testing.T) {
	mock := newMockClient()

	out, err := run(t, mock, NewLogLevelCommand())
	require.NoError(t, err)
	assert.Equal(t, "info\n", out)

	out, err = run(t, mock, NewLogLevelCommand(), "debug")
	require.NoError(t, err)
	assert.Equal(t, "debug\n", out)
	assert.Equal(t, "debug", mock.level)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, newMockClient(), newVersionCommand("1.0.0", "abc", "today"))
	require.NoError(t, err)
	assert.Contains(t, out, "Client:")
	assert.Contains(t, out, "1.0.0")
	assert.Contains(t, out, "Daemon:")
	assert.Contains(t, out, "9.9.9")
}

func TestRootCommand_ClientSelection(t *testing.T) {
	root := NewRootCommand(nil, "dev", "none", "unknown", "/tmp/pixeld-test.sock")
	require.NoError(t, root.ParseFlags([]string{"--url", "http://localhost:9180/", "--api-key", "k"}))
	_, isHTTP := newClient(root, nil, "").(*client.HTTPClient)
	assert.True(t, isHTTP)

	root = NewRootCommand(nil, "dev", "none", "unknown", "/tmp/pixeld-test.sock")
	_, isSocket := newClient(root, nil, "/tmp/pixeld-test.sock").(*client.Client)
	assert.True(t, isSocket)
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand(nil, "dev", "none", "unknown", "")
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"area", "effect", "strip", "dump", "log-level", "version"} {
		assert.True(t, names[want], "missing %s command", want)
	}
}
