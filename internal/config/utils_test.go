package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetConfigBaseDir(t *testing.T) {
	tests := []struct {
		name           string
		xdgConfigHome  string
		expectedSuffix string
	}{
		{
			name:           "system_service",
			xdgConfigHome:  "/etc/pixeld",
			expectedSuffix: "/etc/pixeld",
		},
		{
			name:           "user_default",
			xdgConfigHome:  "",
			expectedSuffix: "/.config/pixeld",
		},
		{
			name:           "user_custom_xdg",
			xdgConfigHome:  "/home/user/myconfigs",
			expectedSuffix: "/home/user/myconfigs/pixeld",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_CONFIG_HOME", tt.xdgConfigHome)

			result := GetConfigBaseDir()
			assert.True(t, filepath.IsAbs(result))
			if tt.name == "user_default" {
				assert.True(t, strings.HasSuffix(result, tt.expectedSuffix), result)
			} else {
				assert.Equal(t, tt.expectedSuffix, result)
			}
		})
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/etc/pixeld")
	assert.Equal(t, "/etc/pixeld/pixeld.yaml", GetDaemonConfigPath())

	t.Setenv("XDG_CONFIG_HOME", "")
	result := GetClientConfigPath()
	assert.True(t, filepath.IsAbs(result))
	assert.True(t, strings.HasSuffix(result, "/.config/pixeld/pixelctl.yaml"), result)
}

func TestGetRuntimeSocketPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)
	assert.Equal(t, dir, GetRuntimeDir())
	// Falls back to the user path when neither socket exists.
	assert.Equal(t, filepath.Join(dir, SocketFilename), GetRuntimeSocketPath())
}

func TestValidateTickRate(t *testing.T) {
	assert.Equal(t, DefaultTickRate, ValidateTickRate(0))
	assert.Equal(t, DefaultTickRate, ValidateTickRate(-5))
	assert.Equal(t, 60, ValidateTickRate(60))
	assert.Equal(t, MaxTickRate, ValidateTickRate(5000))
}
