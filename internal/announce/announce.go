// Package announce advertises the daemon's HTTP API on the LAN over mDNS.
package announce

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"github.com/grandcat/zeroconf"
)

const (
	// Service is the DNS-SD service type.
	Service = "_pixeld._tcp"
	domain  = "local."
)

// registration is the handle returned by a successful registration.
type registration interface {
	Shutdown()
}

var register = func(instance, service, domain string, port int, text []string) (registration, error) {
	return zeroconf.Register(instance, service, domain, port, text, nil)
}

// Announcer owns one mDNS registration.
type Announcer struct {
	instance string
	port     int
	text     []string
	logger   *slog.Logger

	mu  sync.Mutex
	reg registration
}

// New creates an announcer for the HTTP API listening on listenAddress.
// text is published as TXT records.
func New(instance, listenAddress string, text []string, logger *slog.Logger) (*Announcer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	port, err := Port(listenAddress)
	if err != nil {
		return nil, err
	}
	return &Announcer{
		instance: instance,
		port:     port,
		text:     text,
		logger:   logger.With("component", "mdns"),
	}, nil
}

// Port extracts the TCP port from a listen address such as ":9180".
func Port(listenAddress string) (int, error) {
	_, p, err := net.SplitHostPort(listenAddress)
	if err != nil {
		return 0, fmt.Errorf("invalid listen address %q: %w", listenAddress, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port in listen address %q", listenAddress)
	}
	return port, nil
}

// TXT builds the standard TXT records.
func TXT(version string, areas int) []string {
	return []string{
		"version=" + version,
		"path=/api/v1",
		"areas=" + strconv.Itoa(areas),
	}
}

// Start registers the service. Calling Start twice is a no-op.
func (a *Announcer) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.reg != nil {
		return nil
	}
	reg, err := register(a.instance, Service, domain, a.port, a.text)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}
	a.reg = reg
	a.logger.Info("Announcing service", "instance", a.instance, "service", Service, "port", a.port)
	return nil
}

// Stop withdraws the registration.
func (a *Announcer) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.reg == nil {
		return
	}
	a.reg.Shutdown()
	a.reg = nil
	a.logger.Info("Stopped announcing service")
}
