package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/pixeld/internal/errors"
	"github.com/jmylchreest/pixeld/pkg/color"
	"github.com/jmylchreest/pixeld/pkg/pixel"
)

// MaxAreas bounds area ids; ids run from 0 to MaxAreas-1.
const MaxAreas = 10

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	API      APIConfig      `mapstructure:"api" yaml:"api"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Engine   EngineConfig   `mapstructure:"engine" yaml:"engine"`
	Transmit TransmitConfig `mapstructure:"transmit" yaml:"transmit"`
	Strips   []StripConfig  `mapstructure:"strips" yaml:"strips"`
	Areas    []AreaConfig   `mapstructure:"areas" yaml:"areas"`
	NATS     NATSConfig     `mapstructure:"nats" yaml:"nats"`
	MDNS     MDNSConfig     `mapstructure:"mdns" yaml:"mdns"`

	v *viper.Viper
}

// ServerConfig represents the server configuration
type ServerConfig struct {
	UnixSocket string `mapstructure:"unix_socket" yaml:"unix_socket"`
}

// APIConfig configures the HTTP API.
type APIConfig struct {
	ListenAddress string `mapstructure:"listen_address" yaml:"listen_address"`
	// RateLimit is requests per minute per client IP, 0 to disable.
	RateLimit int `mapstructure:"rate_limit" yaml:"rate_limit"`
	// Keys guard mutating endpoints. An empty list leaves the API open.
	Keys []APIKey `mapstructure:"keys" yaml:"keys,omitempty"`
}

// APIKey is a static bearer key.
type APIKey struct {
	Name     string `mapstructure:"name" yaml:"name"`
	Key      string `mapstructure:"key" yaml:"key"`
	Disabled bool   `mapstructure:"disabled" yaml:"disabled,omitempty"`
}

// LoggingConfig represents the logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// EngineConfig configures the tick loop and pixel mapping.
type EngineConfig struct {
	TickRate      int    `mapstructure:"tick_rate" yaml:"tick_rate"`
	ColorStrategy string `mapstructure:"color_strategy" yaml:"color_strategy"`
	// StrictMapping rejects areas that cover indices no strip owns.
	StrictMapping bool `mapstructure:"strict_mapping" yaml:"strict_mapping"`
}

// TransmitConfig selects and tunes the output backend.
type TransmitConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend"`
	Device      string `mapstructure:"device" yaml:"device"`
	CPUHz       uint64 `mapstructure:"cpu_hz" yaml:"cpu_hz"`
	ResetMicros int    `mapstructure:"reset_us" yaml:"reset_us"`
	PauseGC     bool   `mapstructure:"pause_gc" yaml:"pause_gc"`
}

// StripConfig describes one physical strip in wiring order.
type StripConfig struct {
	Pin      int  `mapstructure:"pin" yaml:"pin"`
	Length   int  `mapstructure:"length" yaml:"length"`
	Reversed bool `mapstructure:"reversed" yaml:"reversed"`
}

// AreaConfig describes a named area over logical pixel ranges.
type AreaConfig struct {
	ID       int             `mapstructure:"id" yaml:"id"`
	Name     string          `mapstructure:"name" yaml:"name"`
	Sections []pixel.Section `mapstructure:"sections" yaml:"sections"`
}

// NATSConfig configures the message bus bridge. An empty URL disables it.
type NATSConfig struct {
	URL     string `mapstructure:"url" yaml:"url"`
	Subject string `mapstructure:"subject" yaml:"subject"`
}

// MDNSConfig configures LAN service announcement.
type MDNSConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Instance string `mapstructure:"instance" yaml:"instance"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.unix_socket", GetRuntimeSocketPath())
	v.SetDefault("api.listen_address", DefaultAPIListenAddress)
	v.SetDefault("api.rate_limit", 600)
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("logging.format", LogFormatText)
	v.SetDefault("engine.tick_rate", DefaultTickRate)
	v.SetDefault("engine.color_strategy", DefaultColorStrategy)
	v.SetDefault("engine.strict_mapping", false)
	v.SetDefault("transmit.backend", DefaultBackend)
	v.SetDefault("transmit.device", DefaultGPIODevice)
	v.SetDefault("transmit.cpu_hz", DefaultCPUHz)
	v.SetDefault("transmit.reset_us", DefaultResetMicros)
	v.SetDefault("transmit.pause_gc", false)
	v.SetDefault("strips", []map[string]any{{"pin": 18, "length": 60}})
	v.SetDefault("areas", []map[string]any{{
		"id": 0, "name": "main",
		"sections": []map[string]any{{"offset": 0, "length": 60}},
	}})
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", DefaultNATSSubject)
	v.SetDefault("mdns.enabled", true)
	v.SetDefault("mdns.instance", DefaultMDNSInstance)
}

// Load loads configuration from a file and environment variables
func Load(configName, configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		slog.Debug("Using config file from command line", "path", configFile)
	} else {
		configPath := GetConfigPath(configName)
		v.SetConfigFile(configPath)

		if err := os.MkdirAll(GetConfigBaseDir(), 0755); err != nil {
			return nil, fmt.Errorf("error creating config directory: %w", err)
		}
		if _, err := os.Stat(configPath); err == nil {
			slog.Debug("Using default config file", "path", configPath)
		}
	}

	// A missing file leaves the defaults; a broken one is an error.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) && !stderrors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	cfg.v = v
	return cfg, nil
}

// Path returns the file the configuration was read from.
func (c *Config) Path() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}

// Validate checks the layout and engine settings, reporting every problem
// found as one invalid input error.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(c.Strips) == 0 {
		add("no strips configured")
	}
	total := 0
	for i, s := range c.Strips {
		if s.Length <= 0 {
			add("strip %d (pin %d): length must be positive", i, s.Pin)
		}
		if s.Pin < 0 {
			add("strip %d: pin must not be negative", i)
		}
		total += max(s.Length, 0)
	}
	if total > pixel.MaxPixels {
		add("strips hold %d pixels, more than %d", total, pixel.MaxPixels)
	}

	ids := make(map[int]bool)
	names := make(map[string]bool)
	for _, a := range c.Areas {
		if a.ID < 0 || a.ID >= MaxAreas {
			add("area %d: id must be in [0,%d)", a.ID, MaxAreas)
		}
		if ids[a.ID] {
			add("area %d: duplicate id", a.ID)
		}
		ids[a.ID] = true
		if a.Name != "" {
			if names[a.Name] {
				add("area %d: duplicate name %q", a.ID, a.Name)
			}
			names[a.Name] = true
		}
		for j, sec := range a.Sections {
			if sec.Offset < 0 {
				add("area %d section %d: offset must not be negative", a.ID, j)
			}
			if sec.Length <= 0 {
				add("area %d section %d: length must be positive", a.ID, j)
			}
		}
	}

	if c.Engine.TickRate <= 0 || c.Engine.TickRate > MaxTickRate {
		add("engine.tick_rate must be in [1,%d]", MaxTickRate)
	}
	if _, err := color.NewConverter(c.Engine.ColorStrategy); err != nil {
		add("engine.color_strategy: %v", err)
	}
	for i, k := range c.API.Keys {
		if len(k.Key) < MinAPIKeyLength {
			add("api.keys[%d] %q: key must be at least %d characters", i, k.Name, MinAPIKeyLength)
		}
	}

	if len(problems) > 0 {
		return errors.InvalidInputf("configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// PixelStrips converts the strip descriptors for pixel.Buffer.Configure.
func (c *Config) PixelStrips() []pixel.Strip {
	strips := make([]pixel.Strip, 0, len(c.Strips))
	for _, s := range c.Strips {
		strips = append(strips, pixel.Strip{Pin: s.Pin, Length: s.Length, Reversed: s.Reversed})
	}
	return strips
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if path == "" {
		path = c.Path()
	}
	if path == "" {
		path = GetDaemonConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	slog.Info("Configuration saved", "path", path)
	return nil
}

// Get retrieves a value from the configuration
func (c *Config) Get(key string) any {
	if c.v == nil {
		return nil
	}
	return c.v.Get(key)
}
