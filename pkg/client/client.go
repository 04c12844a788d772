// Package client talks to a running pixeld over its control socket or its
// HTTP API.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
)

var dial = net.Dial

// ClientInterface defines the methods for interacting with pixeld.
// Used for testability and mocking in the CLI.
type ClientInterface interface {
	ListAreas() ([]Area, error)
	GetArea(ref string) (Area, error)
	SetArea(ref string, cmd Command) (State, error)
	SetEffect(ref string, eff Effect) (State, error)
	ListStrips() (Layout, error)
	GetVersion() (Version, error)
	GetLogLevel() (string, error)
	SetLogLevel(level string) (string, error)
}

var (
	_ ClientInterface = (*Client)(nil)
	_ ClientInterface = (*HTTPClient)(nil)
)

// Client represents a connection to pixeld's control socket.
type Client struct {
	logger *slog.Logger
	socket string
}

// New creates a new socket client. An empty socket path falls back to the
// runtime directory.
func New(logger *slog.Logger, socket string) *Client {
	if socket == "" {
		if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
			socket = filepath.Join(dir, "pixeld.sock")
			logger.Debug("Using XDG runtime directory for socket", "dir", dir, "socket", socket)
		} else {
			socket = filepath.Join("/run/user", strconv.Itoa(os.Getuid()), "pixeld.sock")
			logger.Debug("Using /run/user for socket", "socket", socket)
		}
	} else {
		logger.Debug("Using provided socket path", "socket", socket)
	}

	return &Client{
		logger: logger,
		socket: socket,
	}
}

type socketRequest struct {
	Action string `json:"action"`
	Data   any    `json:"data,omitempty"`
}

// request sends one action and decodes the reply into resp.
func (c *Client) request(action string, data any, resp any) error {
	conn, err := dial("unix", c.socket)
	if err != nil {
		c.logger.Debug("Failed to connect to socket", "error", err, "socket", c.socket)
		return fmt.Errorf("failed to connect to socket: %w", err)
	}
	defer conn.Close()

	c.logger.Debug("Sending request", "action", action, "data", data)
	if err := json.NewEncoder(conn).Encode(socketRequest{Action: action, Data: data}); err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(conn).Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return decodeReply(raw, resp)
}

// decodeReply surfaces a server error or unmarshals the reply.
func decodeReply(raw json.RawMessage, resp any) error {
	var status struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &status); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if status.Error != "" {
		return fmt.Errorf("server error: %s", status.Error)
	}
	if resp == nil {
		return nil
	}
	if err := json.Unmarshal(raw, resp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// areaData merges the area reference into an action payload.
func areaData(ref string, payload any) (map[string]any, error) {
	data := map[string]any{}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(b, &data); err != nil {
			return nil, err
		}
	}
	data["area"] = ref
	return data, nil
}

// ListAreas returns every defined area.
func (c *Client) ListAreas() ([]Area, error) {
	var resp struct {
		Areas []Area `json:"areas"`
	}
	if err := c.request("list_areas", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Areas, nil
}

// GetArea returns one area by name or id.
func (c *Client) GetArea(ref string) (Area, error) {
	var resp struct {
		Area Area `json:"area"`
	}
	err := c.request("get_area", map[string]any{"area": ref}, &resp)
	return resp.Area, err
}

// SetArea applies a partial command to an area.
func (c *Client) SetArea(ref string, cmd Command) (State, error) {
	data, err := areaData(ref, cmd)
	if err != nil {
		return State{}, err
	}
	var resp struct {
		State State `json:"state"`
	}
	err = c.request("set_area", data, &resp)
	return resp.State, err
}

// SetEffect binds an effect to an area.
func (c *Client) SetEffect(ref string, eff Effect) (State, error) {
	data, err := areaData(ref, eff)
	if err != nil {
		return State{}, err
	}
	var resp struct {
		State State `json:"state"`
	}
	err = c.request("set_effect", data, &resp)
	return resp.State, err
}

// SetColor sets an area to a named color at full value. An off area keeps
// the color for the next time it is switched on.
func (c *Client) SetColor(ref, name string, on bool) (State, error) {
	data := map[string]any{"area": ref, "color": name}
	if !on {
		data["state"] = "OFF"
	}
	var resp struct {
		State State `json:"state"`
	}
	err := c.request("set_color", data, &resp)
	return resp.State, err
}

// ListStrips returns the strip layout.
func (c *Client) ListStrips() (Layout, error) {
	var resp Layout
	err := c.request("list_strips", nil, &resp)
	return resp, err
}

// Dump returns the daemon's text dump of strips and areas.
func (c *Client) Dump() (string, error) {
	var resp struct {
		Dump string `json:"dump"`
	}
	err := c.request("dump", nil, &resp)
	return resp.Dump, err
}

// GetVersion returns the daemon's build information.
func (c *Client) GetVersion() (Version, error) {
	var resp Version
	err := c.request("version", nil, &resp)
	return resp, err
}

// GetLogLevel returns the daemon's log level.
func (c *Client) GetLogLevel() (string, error) {
	var resp struct {
		Level string `json:"level"`
	}
	err := c.request("get_level", nil, &resp)
	return resp.Level, err
}

// SetLogLevel changes the daemon's log level.
func (c *Client) SetLogLevel(level string) (string, error) {
	var resp struct {
		Level string `json:"level"`
	}
	err := c.request("set_level", map[string]any{"level": level}, &resp)
	return resp.Level, err
}

// Event is a state change streamed by Subscribe.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Area      string          `json:"area"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Subscribe streams events for the named areas, or all areas when none are
// given, calling fn for each until ctx is cancelled or the daemon hangs up.
func (c *Client) Subscribe(ctx context.Context, areas []string, fn func(Event)) error {
	conn, err := dial("unix", c.socket)
	if err != nil {
		return fmt.Errorf("failed to connect to socket: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var data any
	if len(areas) > 0 {
		data = map[string]any{"areas": areas}
	}
	if err := json.NewEncoder(conn).Encode(socketRequest{Action: "subscribe_events", Data: data}); err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return fmt.Errorf("no subscription acknowledgement: %w", scanner.Err())
	}
	if err := decodeReply(scanner.Bytes(), nil); err != nil {
		return err
	}

	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			c.logger.Debug("Skipping undecodable event", "error", err)
			continue
		}
		fn(e)
	}
	if ctx.Err() != nil {
		return nil
	}
	return scanner.Err()
}
