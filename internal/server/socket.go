package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net"
	"slices"
	"strings"

	"github.com/jmylchreest/pixeld/internal/engine"
	"github.com/jmylchreest/pixeld/internal/events"
	"github.com/jmylchreest/pixeld/internal/http/handlers"
	"github.com/jmylchreest/pixeld/internal/logging"
	"github.com/jmylchreest/pixeld/pkg/color"
)

// subscriberBuffer bounds events queued for one socket subscriber.
const subscriberBuffer = 64

// request is one line of the socket protocol.
type request struct {
	Action string          `json:"action"`
	ID     string          `json:"id,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// areaRef is the area selector carried in a request's data.
type areaRef struct {
	Area json.RawMessage `json:"area"`
}

// ref accepts the area as a name or a number.
func (a areaRef) ref() string {
	if len(a.Area) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(a.Area, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(a.Area, &n) == nil {
		return n.String()
	}
	return ""
}

func (s *Server) acceptConnections() {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in acceptConnections", "recover", r)
		}
	}()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				s.logger.Info("Socket listener shutting down")
				return
			default:
				if errors.Is(err, net.ErrClosed) {
					return
				}
				s.logger.Error("Failed to accept connection", "error", err)
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in connection handler", "recover", r)
		}
	}()

	ctx, cancel := context.WithCancel(s.rootCtx)
	defer cancel()

	go func() {
		select {
		case <-s.shutdown:
			if uc, ok := conn.(*net.UnixConn); ok {
				_ = uc.CloseRead()
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	reader := bufio.NewReader(conn)

	for {
		if ctx.Err() != nil {
			return
		}

		line, err := reader.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				s.logger.Debug("Client disconnected")
			} else {
				s.logger.Error("Failed to read from connection", "error", err)
			}
			return
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("Failed to unmarshal request", "error", err, "request", string(line))
			s.sendError(conn, "", fmt.Sprintf("invalid JSON request: %s", err))
			continue
		}

		s.logger.Debug("Received request", "action", req.Action, "id", req.ID, "data", string(req.Data))

		if req.Action == "subscribe_events" {
			s.streamEvents(ctx, conn, reader, req)
			return
		}
		s.dispatch(conn, req)
	}
}

// dispatch runs one request/response action.
func (s *Server) dispatch(conn net.Conn, req request) {
	id := req.ID

	switch req.Action {
	case "ping":
		s.sendResponse(conn, id, map[string]any{"message": "pong"})

	case "health":
		s.sendResponse(conn, id, map[string]any{"health": "ok"})

	case "version":
		s.sendResponse(conn, id, map[string]any{
			"version":    s.info.Version,
			"commit":     s.info.Commit,
			"build_date": s.info.BuildDate,
		})

	case "list_areas":
		s.sendResponse(conn, id, map[string]any{"areas": handlers.AreasFromInfo(s.areas.Areas())})

	case "get_area":
		areaID, ok := s.resolveArea(conn, req)
		if !ok {
			return
		}
		info, err := s.areas.Area(areaID)
		if err != nil {
			s.sendError(conn, id, err.Error())
			return
		}
		s.sendResponse(conn, id, map[string]any{"area": handlers.AreaFromInfo(info)})

	case "set_area":
		areaID, ok := s.resolveArea(conn, req)
		if !ok {
			return
		}
		cmd, err := engine.DecodeCommand(req.Data)
		if err != nil {
			s.sendError(conn, id, err.Error())
			return
		}
		n, err := s.areas.Apply(areaID, cmd)
		if err != nil {
			s.sendError(conn, id, err.Error())
			return
		}
		s.sendResponse(conn, id, map[string]any{"state": n})

	case "set_effect":
		areaID, ok := s.resolveArea(conn, req)
		if !ok {
			return
		}
		// area was resolved above and may be numeric.
		var effReq struct {
			engine.EffectRequest
			Area json.RawMessage `json:"area"`
		}
		if err := json.Unmarshal(req.Data, &effReq); err != nil {
			s.sendError(conn, id, fmt.Sprintf("invalid effect request: %s", err))
			return
		}
		n, err := s.areas.StartEffect(areaID, effReq.EffectRequest)
		if err != nil {
			s.sendError(conn, id, err.Error())
			return
		}
		s.sendResponse(conn, id, map[string]any{"state": n})

	case "set_color":
		areaID, ok := s.resolveArea(conn, req)
		if !ok {
			return
		}
		var data struct {
			Color string `json:"color"`
			State string `json:"state"`
		}
		_ = json.Unmarshal(req.Data, &data)
		c, known := color.Named(data.Color)
		if !known {
			s.sendError(conn, id, fmt.Sprintf("unknown color %q", data.Color))
			return
		}
		on := !strings.EqualFold(strings.TrimSpace(data.State), engine.StateOff)
		if err := s.areas.SetAreaColor(areaID, c, on); err != nil {
			s.sendError(conn, id, err.Error())
			return
		}
		info, err := s.areas.Area(areaID)
		if err != nil {
			s.sendError(conn, id, err.Error())
			return
		}
		s.sendResponse(conn, id, map[string]any{"state": info.State})

	case "list_strips":
		strips := s.areas.Strips()
		total := 0
		for _, st := range strips {
			total += st.Length
		}
		s.sendResponse(conn, id, map[string]any{"pixels": total, "strips": handlers.StripsFromPixel(strips)})

	case "dump":
		var buf bytes.Buffer
		s.areas.Dump(&buf)
		s.sendResponse(conn, id, map[string]any{"dump": buf.String()})

	case "get_level":
		s.sendResponse(conn, id, map[string]any{"level": logging.Level()})

	case "set_level":
		var data struct {
			Level string `json:"level"`
		}
		_ = json.Unmarshal(req.Data, &data)
		if data.Level == "" {
			s.sendError(conn, id, "missing level for set_level")
			return
		}
		if !logging.IsValidLogLevel(data.Level) {
			s.sendError(conn, id, fmt.Sprintf("invalid log level %q; must be debug, info, warn, or error", data.Level))
			return
		}
		logging.SetLevel(data.Level)
		s.logger.Info("Log level changed via socket", "level", logging.Level())
		s.sendResponse(conn, id, map[string]any{"level": logging.Level()})

	default:
		s.logger.Warn("received unknown action", "action", req.Action)
		s.sendError(conn, id, "unknown action: "+req.Action)
	}
}

// resolveArea reads data.area and resolves it, answering with an error
// when it is missing or unknown.
func (s *Server) resolveArea(conn net.Conn, req request) (int, bool) {
	var ref areaRef
	if len(req.Data) > 0 {
		_ = json.Unmarshal(req.Data, &ref)
	}
	name := ref.ref()
	if name == "" {
		s.sendError(conn, req.ID, "missing area for "+req.Action)
		return 0, false
	}
	areaID, err := s.areas.Resolve(name)
	if err != nil {
		s.sendError(conn, req.ID, err.Error())
		return 0, false
	}
	return areaID, true
}

// streamEvents acknowledges a subscription and writes matching events as
// JSON lines until the client hangs up or the server stops.
func (s *Server) streamEvents(ctx context.Context, conn net.Conn, reader *bufio.Reader, req request) {
	var data struct {
		Areas []string `json:"areas"`
	}
	if len(req.Data) > 0 {
		_ = json.Unmarshal(req.Data, &data)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan events.Event, subscriberBuffer)
	unsub := s.eventBus.Subscribe(func(e events.Event) {
		if len(data.Areas) > 0 && !slices.Contains(data.Areas, e.Area) {
			return
		}
		select {
		case ch <- e:
		default:
			s.logger.Warn("socket subscriber too slow, dropping event", "type", e.Type, "area", e.Area)
		}
	})
	defer unsub()

	s.sendResponse(conn, req.ID, map[string]any{"subscribed": true})

	// Anything the client sends after subscribing is ignored; EOF ends the stream.
	go func() {
		_, _ = io.Copy(io.Discard, reader)
		cancel()
	}()

	enc := json.NewEncoder(conn)
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-ch:
			if err := enc.Encode(e); err != nil {
				s.logger.Debug("Event subscriber went away", "error", err)
				return
			}
		}
	}
}

func (s *Server) sendResponse(conn net.Conn, id string, data map[string]any) {
	response := map[string]any{"status": "ok"}
	if id != "" {
		response["id"] = id
	}
	maps.Copy(response, data)
	if err := json.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Error("Failed to send response", "error", err)
	}
}

func (s *Server) sendError(conn net.Conn, id string, message string) {
	s.logger.Debug("Sending error response to client", "id", id, "message", message)
	response := map[string]any{"status": "error", "error": message}
	if id != "" {
		response["id"] = id
	}
	if err := json.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Error("Failed to send error response", "error", err)
	}
}

