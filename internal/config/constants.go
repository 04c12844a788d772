package config

// Common constants shared between daemon and client
const (
	// ConfigDirName is the name of the config directory within XDG_CONFIG_HOME
	ConfigDirName = "pixeld"

	// SystemConfigDir is the config directory of the system service
	SystemConfigDir = "/etc/pixeld"

	// DaemonConfigFilename is the base filename for daemon config
	DaemonConfigFilename = "pixeld.yaml"

	// ClientConfigFilename is the base filename for client config
	ClientConfigFilename = "pixelctl.yaml"

	// SocketFilename is the base filename for the Unix socket
	SocketFilename = "pixeld.sock"

	// DefaultAPIListenAddress is the default HTTP API listen address
	DefaultAPIListenAddress = ":9180"

	// MinAPIKeyLength is the shortest accepted static API key
	MinAPIKeyLength = 16

	// EnvPrefix prefixes environment overrides, e.g. PIXELD_LOGGING_LEVEL
	EnvPrefix = "PIXELD"
)

// Engine defaults
const (
	// DefaultTickRate is the effect tick frequency in Hz
	DefaultTickRate = 30

	// MaxTickRate bounds the tick frequency
	MaxTickRate = 1000

	// DefaultColorStrategy selects the fixed-point converter
	DefaultColorStrategy = "fast"
)

// Transmit defaults
const (
	// DefaultBackend records frames in memory instead of driving GPIO
	DefaultBackend = "simulate"

	// DefaultGPIODevice is the GPIO register device
	DefaultGPIODevice = "/dev/gpiomem"

	// DefaultCPUHz is the cycle clock the bit timings are derived from
	DefaultCPUHz = 80_000_000

	// DefaultResetMicros is the SK6812RGBW latch time
	DefaultResetMicros = 80
)

// Bus and discovery defaults
const (
	// DefaultNATSSubject is the subject prefix for area topics
	DefaultNATSSubject = "pixeld"

	// DefaultMDNSInstance is the advertised service instance name
	DefaultMDNSInstance = "pixeld"
)

// Logging constants
const (
	// LogLevelDebug represents debug log level
	LogLevelDebug = "debug"

	// LogLevelInfo represents info log level
	LogLevelInfo = "info"

	// LogLevelWarn represents warning log level
	LogLevelWarn = "warn"

	// LogLevelError represents error log level
	LogLevelError = "error"

	// LogFormatText represents text log format
	LogFormatText = "text"

	// LogFormatJSON represents JSON log format
	LogFormatJSON = "json"

	// LogFormatJournal sends records to the systemd journal
	LogFormatJournal = "journal"
)
