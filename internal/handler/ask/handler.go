package ask

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/anatomy-explorer/backend/internal/model/chat"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/service/relay"
	"github.com/zhouzirui/anatomy-explorer/backend/pkg/utils"
)

// Handler serves organ questions over SSE and WebSocket.
type Handler struct {
	relay    *relay.Relay
	upgrader websocket.Upgrader
}

// New creates an ask handler. origins restricts WebSocket upgrades the same
// way CORS restricts fetches; empty allows any origin.
func New(r *relay.Relay, origins []string) *Handler {
	return &Handler{
		relay: r,
		upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin(origins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册问答路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/ask-organ", h.handleAsk)
	r.Get("/ask-organ/ws", h.handleWebSocket)
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.rejectBody(w, err)
		return
	}

	// drain so the server can detect the client going away mid-stream
	if _, err := io.Copy(io.Discard, r.Body); err != nil {
		h.rejectBody(w, err)
		return
	}

	req, err := relay.Validate(req)
	if err != nil {
		h.relay.Rejected()
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sw, err := utils.NewSSEWriter(w)
	if err != nil {
		slog.Error("ask-organ: response writer cannot stream", "err", err)
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	session := h.relay.NewSession(req)
	w.Header().Set("X-Stream-ID", session.ID)
	sw.Open()
	session.Run(r.Context(), sseSink{sw})
}

func (h *Handler) rejectBody(w http.ResponseWriter, err error) {
	h.relay.Rejected()
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		utils.RespondError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	utils.RespondError(w, http.StatusBadRequest, "invalid request body")
}

// sseSink writes relay output as data frames.
type sseSink struct {
	sw *utils.SSEWriter
}

func (s sseSink) Text(delta string) error {
	return s.sw.Send(chat.Event{Text: delta})
}

func (s sseSink) Error(message string) error {
	return s.sw.Send(chat.Event{Error: message})
}

func (s sseSink) Done() error {
	return s.sw.Done()
}
