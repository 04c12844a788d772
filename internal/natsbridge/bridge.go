// Package natsbridge connects the engine to a NATS message bus. Commands
// arrive on <subject>.<area>.set and <subject>.<area>.effect, area state is
// published on <subject>.<area>.state and daemon availability on
// <subject>.avail.
package natsbridge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/jmylchreest/pixeld/internal/engine"
	"github.com/jmylchreest/pixeld/internal/events"
)

// Availability payloads.
const (
	Online  = "online"
	Offline = "offline"
)

// Controller is the part of the engine the bridge drives.
type Controller interface {
	Resolve(ref string) (int, error)
	Areas() []engine.AreaInfo
	Apply(id int, cmd engine.Command) (engine.Notification, error)
	StartEffect(id int, req engine.EffectRequest) (engine.Notification, error)
}

var _ Controller = (*engine.Engine)(nil)

// SubjectSet returns the command subject for an area.
func SubjectSet(prefix, area string) string {
	return fmt.Sprintf("%s.%s.set", prefix, area)
}

// SubjectEffect returns the effect subject for an area.
func SubjectEffect(prefix, area string) string {
	return fmt.Sprintf("%s.%s.effect", prefix, area)
}

// SubjectState returns the state subject for an area.
func SubjectState(prefix, area string) string {
	return fmt.Sprintf("%s.%s.state", prefix, area)
}

// SubjectAvail returns the availability subject.
func SubjectAvail(prefix string) string {
	return prefix + ".avail"
}

// Bridge relays commands from NATS to the engine and state back out.
type Bridge struct {
	url     string
	subject string
	areas   Controller
	bus     *events.Bus
	logger  *slog.Logger

	mu          sync.Mutex
	conn        *nats.Conn
	subs        []*nats.Subscription
	unsubscribe func()
}

// New creates a bridge. bus may be nil, in which case state is not
// published.
func New(url, subject string, areas Controller, bus *events.Bus, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		url:     url,
		subject: strings.TrimSuffix(subject, "."),
		areas:   areas,
		bus:     bus,
		logger:  logger.With("component", "nats-bridge"),
	}
}

// Start connects, subscribes to the command subjects, announces the daemon
// online and publishes every area's current state.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	conn, err := nats.Connect(b.url,
		nats.Name("pixeld"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				b.logger.Warn("NATS bridge disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			b.logger.Info("NATS bridge reconnected")
			b.publishRaw(c, SubjectAvail(b.subject), []byte(Online))
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	b.conn = conn
	b.logger.Info("NATS bridge connected", "url", b.url, "subject", b.subject)

	for _, s := range []struct {
		subject string
		handler nats.MsgHandler
	}{
		{SubjectSet(b.subject, "*"), b.handleSet},
		{SubjectEffect(b.subject, "*"), b.handleEffect},
	} {
		sub, err := conn.Subscribe(s.subject, s.handler)
		if err != nil {
			b.cleanup()
			return fmt.Errorf("failed to subscribe to %s: %w", s.subject, err)
		}
		b.subs = append(b.subs, sub)
	}

	if b.bus != nil {
		b.unsubscribe = b.bus.SubscribeTypes(b.forward, events.AreaStateChanged)
	}

	b.publishRaw(conn, SubjectAvail(b.subject), []byte(Online))
	for _, a := range b.areas.Areas() {
		b.publishState(conn, a.Name, a.State)
	}
	return nil
}

// areaToken extracts the area from <subject>.<area>.<verb>.
func (b *Bridge) areaToken(subject string) string {
	rest := strings.TrimPrefix(subject, b.subject+".")
	area, _, _ := strings.Cut(rest, ".")
	return area
}

func (b *Bridge) handleSet(msg *nats.Msg) {
	ref := b.areaToken(msg.Subject)
	id, err := b.areas.Resolve(ref)
	if err != nil {
		b.reply(msg, nil, err)
		return
	}
	cmd, err := engine.DecodeCommand(msg.Data)
	if err != nil {
		b.logger.Warn("Ignoring malformed command", "subject", msg.Subject, "error", err)
		b.reply(msg, nil, err)
		return
	}
	n, err := b.areas.Apply(id, cmd)
	b.reply(msg, n, err)
}

func (b *Bridge) handleEffect(msg *nats.Msg) {
	ref := b.areaToken(msg.Subject)
	id, err := b.areas.Resolve(ref)
	if err != nil {
		b.reply(msg, nil, err)
		return
	}
	var req engine.EffectRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		b.logger.Warn("Ignoring malformed effect request", "subject", msg.Subject, "error", err)
		b.reply(msg, nil, fmt.Errorf("invalid effect request: %w", err))
		return
	}
	n, err := b.areas.StartEffect(id, req)
	b.reply(msg, n, err)
}

// reply answers a request; fire-and-forget messages have no reply subject.
func (b *Bridge) reply(msg *nats.Msg, body any, err error) {
	if err != nil {
		b.logger.Debug("NATS command failed", "subject", msg.Subject, "error", err)
		body = map[string]string{"error": err.Error()}
	}
	if msg.Reply == "" {
		return
	}
	data, mErr := json.Marshal(body)
	if mErr != nil {
		b.logger.Warn("Failed to marshal reply", "error", mErr)
		return
	}
	if err := msg.Respond(data); err != nil {
		b.logger.Warn("Failed to send reply", "subject", msg.Reply, "error", err)
	}
}

// forward runs on the event bus; Publish only buffers so it does not block
// the tick.
func (b *Bridge) forward(evt events.Event) {
	if evt.Area == "" {
		return
	}
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return
	}
	b.publishRaw(conn, SubjectState(b.subject, evt.Area), evt.Data)
}

func (b *Bridge) publishState(conn *nats.Conn, area string, n engine.Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		b.logger.Warn("Failed to marshal state", "area", area, "error", err)
		return
	}
	b.publishRaw(conn, SubjectState(b.subject, area), data)
}

func (b *Bridge) publishRaw(conn *nats.Conn, subject string, data []byte) {
	if err := conn.Publish(subject, data); err != nil {
		b.logger.Warn("Failed to publish", "subject", subject, "error", err)
	}
}

// cleanup unsubscribes and closes the connection. Must hold b.mu.
func (b *Bridge) cleanup() {
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
	for _, sub := range b.subs {
		_ = sub.Unsubscribe()
	}
	b.subs = nil

	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
}

// Stop announces the daemon offline and closes the connection.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil && b.conn.IsConnected() {
		b.publishRaw(b.conn, SubjectAvail(b.subject), []byte(Offline))
		if err := b.conn.FlushTimeout(time.Second); err != nil {
			b.logger.Debug("Flush before close failed", "error", err)
		}
	}
	b.cleanup()
	b.logger.Info("NATS bridge stopped")
}

// IsConnected returns true if the bridge is connected to NATS.
func (b *Bridge) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil && b.conn.IsConnected()
}
