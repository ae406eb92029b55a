package ask

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/anatomy-explorer/backend/internal/model/chat"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/service/relay"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 54 * time.Second
	maxFrameSize = 64 << 10
)

// frame is one server→client WebSocket message.
type frame struct {
	chat.Event
	Done bool `json:"done,omitempty"`
}

func checkOrigin(origins []string) func(*http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed[o] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

// handleWebSocket 处理WebSocket连接: every inbound {organ, question} runs one
// relay session; sessions on a connection are sequential.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(maxFrameSize)
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	out := &wsSink{conn: conn}
	requests := make(chan []byte, 1)
	go h.readLoop(ctx, cancel, conn, requests)
	go pingLoop(ctx, conn)

	for raw := range requests {
		var req chat.Request
		if err := json.Unmarshal(raw, &req); err != nil {
			h.relay.Rejected()
			if out.reject("invalid request body") != nil {
				return
			}
			continue
		}
		req, err := relay.Validate(req)
		if err != nil {
			h.relay.Rejected()
			if out.reject(err.Error()) != nil {
				return
			}
			continue
		}

		res := h.relay.NewSession(req).Run(ctx, out)
		if ctx.Err() != nil || out.failed() {
			slog.Debug("websocket closed mid-stream", "outcome", res.Outcome)
			return
		}
	}
}

// readLoop feeds inbound messages to requests and cancels ctx once the peer
// goes away. At most one request waits behind the running session; later
// ones are dropped.
func (h *Handler) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, requests chan<- []byte) {
	defer close(requests)
	defer cancel()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "err", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		if ctx.Err() != nil {
			return
		}
		// keep reading while a session streams so a close frame is seen at once
		select {
		case requests <- raw:
		default:
			h.relay.Rejected()
			slog.Debug("websocket request dropped, one already pending")
		}
	}
}

// pingLoop 定期发送ping消息
func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

// wsSink serialises writes on one connection. The first failure is sticky.
type wsSink struct {
	conn *websocket.Conn
	mu   sync.Mutex
	err  error
}

func (s *wsSink) write(f frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteJSON(f); err != nil {
		s.err = err
	}
	return s.err
}

func (s *wsSink) failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err != nil
}

func (s *wsSink) Text(delta string) error {
	return s.write(frame{Event: chat.Event{Text: delta}})
}

func (s *wsSink) Error(message string) error {
	return s.write(frame{Event: chat.Event{Error: message}})
}

func (s *wsSink) Done() error {
	return s.write(frame{Done: true})
}

// reject answers a request that never became a session.
func (s *wsSink) reject(message string) error {
	if err := s.Error(message); err != nil {
		return err
	}
	return s.Done()
}
