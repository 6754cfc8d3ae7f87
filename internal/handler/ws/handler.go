// Package ws serves the chat over a websocket: one connection per session,
// replies streamed as delta frames, and a closed socket treated as the
// visitor leaving the page.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cvdeck/cv-deck/backend/internal/middleware"
	"github.com/cvdeck/cv-deck/backend/internal/model/chat"
	contactService "github.com/cvdeck/cv-deck/backend/internal/service/contact"
	"github.com/cvdeck/cv-deck/backend/internal/service/conversation"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
)

// Conversations is the session API the socket drives.
type Conversations interface {
	Session(ctx context.Context, sessionID string) (chat.Session, error)
	Send(ctx context.Context, visitorID, sessionID, content string, onDelta func(reply chat.Turn, delta string)) (conversation.Result, error)
	Stop(sessionID string) bool
}

// Lifecycle reacts to the visitor hiding or leaving the page.
type Lifecycle interface {
	HandleLifecycle(ctx context.Context, visitorID, sessionID string, trigger contactService.Trigger)
}

type Handler struct {
	conversations Conversations
	lifecycle     Lifecycle
	upgrader      websocket.Upgrader
	logger        *zap.Logger
}

// New builds the handler. Upgrades are accepted from allowedOrigins, or
// from anywhere when the list holds "*".
func New(conversations Conversations, lifecycle Lifecycle, allowedOrigins []string, logger *zap.Logger) *Handler {
	return &Handler{
		conversations: conversations,
		lifecycle:     lifecycle,
		upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin(allowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.Named("ws"),
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/ws/{sessionID}", h.handleWebSocket)
}

type inboundFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Event   string `json:"event,omitempty"`
}

type outboundFrame struct {
	Type       string      `json:"type"`
	SessionID  string      `json:"sessionId"`
	Turn       *chat.Turn  `json:"turn,omitempty"`
	Turns      []chat.Turn `json:"turns,omitempty"`
	Content    string      `json:"content,omitempty"`
	Generating bool        `json:"generating,omitempty"`
	Stopped    bool        `json:"stopped,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// connection serializes writes; gorilla allows one concurrent writer.
type connection struct {
	conn      *websocket.Conn
	sessionID string
	logger    *zap.Logger

	mu sync.Mutex
}

func (c *connection) send(frame outboundFrame) {
	frame.SessionID = c.sessionID
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(frame); err != nil {
		c.logger.Debug("write frame failed", zap.String("type", frame.Type), zap.Error(err))
	}
}

func (c *connection) sendError(message string) {
	c.send(outboundFrame{Type: "error", Error: message})
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.conversations.Session(r.Context(), sessionID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, conversation.ErrInvalidSession) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer raw.Close()

	visitorID := middleware.VisitorID(r.Context())
	conn := &connection{conn: raw, sessionID: sessionID, logger: h.logger}
	h.logger.Debug("connection opened", zap.String("session", sessionID))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = raw.SetReadDeadline(time.Now().Add(pongWait))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(pongWait))
	})
	go pingLoop(ctx, raw)

	conn.send(outboundFrame{Type: "history", Turns: session.Turns, Generating: session.Generating})

	var generations sync.WaitGroup
	h.readLoop(ctx, conn, visitorID, &generations)

	// Replies already in flight still land in the log before the close is
	// treated as the visitor leaving.
	generations.Wait()
	if visitorID != "" {
		h.lifecycle.HandleLifecycle(ctx, visitorID, sessionID, contactService.TriggerUnload)
	}
	h.logger.Debug("connection closed", zap.String("session", sessionID))
}

func (h *Handler) readLoop(ctx context.Context, conn *connection, visitorID string, generations *sync.WaitGroup) {
	for {
		var frame inboundFrame
		if err := conn.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("read failed", zap.Error(err))
			}
			if isBadFrame(err) {
				conn.sendError("invalid frame")
				continue
			}
			return
		}
		_ = conn.conn.SetReadDeadline(time.Now().Add(pongWait))

		switch frame.Type {
		case "message":
			generations.Add(1)
			go func() {
				defer generations.Done()
				h.generate(ctx, conn, visitorID, frame.Content)
			}()
		case "stop":
			h.conversations.Stop(conn.sessionID)
		case "lifecycle":
			trigger, ok := contactService.ParseTrigger(frame.Event)
			if !ok {
				conn.sendError("event must be hidden or unload")
				continue
			}
			if visitorID != "" {
				h.lifecycle.HandleLifecycle(ctx, visitorID, conn.sessionID, trigger)
			}
		default:
			conn.sendError("unsupported message type: " + frame.Type)
		}
	}
}

func (h *Handler) generate(ctx context.Context, conn *connection, visitorID, content string) {
	res, err := h.conversations.Send(ctx, visitorID, conn.sessionID, content, func(reply chat.Turn, delta string) {
		conn.send(outboundFrame{Type: "delta", Turn: &chat.Turn{ID: reply.ID, Role: reply.Role}, Content: delta})
	})
	if err != nil {
		conn.sendError(err.Error())
		return
	}
	if res.Apology != nil {
		conn.send(outboundFrame{Type: "error", Turn: res.Apology, Error: res.Apology.Content})
		return
	}
	reply := res.Reply
	conn.send(outboundFrame{Type: "message", Turn: &reply, Content: reply.Content, Stopped: res.Stopped})
}

func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// isBadFrame reports whether err came from decoding one frame rather than
// from the connection, which stays usable.
func isBadFrame(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
