package announce

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRegistration struct {
	shutdowns int
}

func (f *fakeRegistration) Shutdown() { f.shutdowns++ }

type registerCall struct {
	instance, service, domain string
	port                      int
	text                      []string
}

// fakeRegister swaps the zeroconf registration for a recorder.
func fakeRegister(t *testing.T, err error) (*[]registerCall, *fakeRegistration) {
	t.Helper()
	var calls []registerCall
	reg := &fakeRegistration{}
	old := register
	register = func(instance, service, domain string, port int, text []string) (registration, error) {
		calls = append(calls, registerCall{instance, service, domain, port, text})
		if err != nil {
			return nil, err
		}
		return reg, nil
	}
	t.Cleanup(func() { register = old })
	return &calls, reg
}

func TestPort(t *testing.T) {
	tests := []struct {
		addr    string
		want    int
		wantErr bool
	}{
		{":9180", 9180, false},
		{"0.0.0.0:80", 80, false},
		{"[::1]:8080", 8080, false},
		{"9180", 0, true},
		{":http", 0, true},
		{":0", 0, true},
		{":70000", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			got, err := Port(tt.addr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTXT(t *testing.T) {
	assert.Equal(t, []string{"version=1.2.3", "path=/api/v1", "areas=2"}, TXT("1.2.3", 2))
}

func TestAnnouncerStartStop(t *testing.T) {
	calls, reg := fakeRegister(t, nil)

	a, err := New("kitchen", ":9180", TXT("dev", 1), testLogger())
	require.NoError(t, err)

	require.NoError(t, a.Start())
	require.NoError(t, a.Start())
	require.Len(t, *calls, 1, "second Start is a no-op")

	call := (*calls)[0]
	assert.Equal(t, "kitchen", call.instance)
	assert.Equal(t, Service, call.service)
	assert.Equal(t, "local.", call.domain)
	assert.Equal(t, 9180, call.port)
	assert.Contains(t, call.text, "areas=1")

	a.Stop()
	a.Stop()
	assert.Equal(t, 1, reg.shutdowns)
}

func TestAnnouncerStartError(t *testing.T) {
	fakeRegister(t, errors.New("no multicast interface"))

	a, err := New("kitchen", ":9180", nil, testLogger())
	require.NoError(t, err)

	err = a.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no multicast interface")
	a.Stop()
}

func TestNewRejectsBadAddress(t *testing.T) {
	_, err := New("kitchen", "localhost", nil, testLogger())
	assert.Error(t, err)
}
