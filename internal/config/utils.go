package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// GetRuntimeDir returns the XDG runtime directory
func GetRuntimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	uid := os.Getuid()
	return filepath.Join("/run/user", strconv.Itoa(uid))
}

// GetRuntimeSocketPath returns the full path to the Unix socket
// It checks the user's runtime directory first, then falls back to system socket
func GetRuntimeSocketPath() string {
	userSocket := filepath.Join(GetRuntimeDir(), SocketFilename)

	if _, err := os.Stat(userSocket); err == nil {
		return userSocket
	}

	// The system service runs as root with its socket under /run/pixeld.
	systemSocket := filepath.Join("/run/pixeld", SocketFilename)
	if _, err := os.Stat(systemSocket); err == nil {
		return systemSocket
	}

	return userSocket
}

// GetConfigBaseDir returns the base directory for configuration files
func GetConfigBaseDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		// The system unit sets XDG_CONFIG_HOME to /etc/pixeld.
		if dir == SystemConfigDir {
			return dir
		}
		return filepath.Join(dir, ConfigDirName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", ConfigDirName)
}

// GetConfigPath returns the full path to a configuration file
func GetConfigPath(filename string) string {
	return filepath.Join(GetConfigBaseDir(), filename)
}

// GetDaemonConfigPath returns the full path to the daemon configuration file
func GetDaemonConfigPath() string {
	return GetConfigPath(DaemonConfigFilename)
}

// GetClientConfigPath returns the full path to the client configuration file
func GetClientConfigPath() string {
	return GetConfigPath(ClientConfigFilename)
}

// ValidateTickRate clamps a tick rate to [1, MaxTickRate], using the
// default for zero or negative values.
func ValidateTickRate(hz int) int {
	if hz <= 0 {
		return DefaultTickRate
	}
	return min(hz, MaxTickRate)
}
