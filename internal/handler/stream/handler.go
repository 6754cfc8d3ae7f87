package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cvdeck/cv-deck/backend/internal/middleware"
	"github.com/cvdeck/cv-deck/backend/internal/model/chat"
	"github.com/cvdeck/cv-deck/backend/internal/service/conversation"
	"github.com/cvdeck/cv-deck/backend/pkg/utils"
)

const msgMessagesRequired = "Invalid request: messages array required"

// Completer streams a reply to a stateless conversation.
type Completer interface {
	Reply(ctx context.Context, history []chat.Prompt, onChunk func(string) error) (string, error)
}

// Conversations runs a stored round-trip for one session.
type Conversations interface {
	Send(ctx context.Context, visitorID, sessionID, content string, onDelta func(reply chat.Turn, delta string)) (conversation.Result, error)
}

// Handler manages streaming AI responses.
type Handler struct {
	completer     Completer
	conversations Conversations
	logger        *zap.Logger
}

// New creates a new stream handler. A nil completer answers /chat with 500.
func New(completer Completer, conversations Conversations, logger *zap.Logger) *Handler {
	return &Handler{
		completer:     completer,
		conversations: conversations,
		logger:        logger.Named("stream"),
	}
}

// StreamEvent is the data payload of every server-sent event.
type StreamEvent struct {
	SessionID string     `json:"sessionId,omitempty"`
	Turn      *chat.Turn `json:"turn,omitempty"`
	Content   string     `json:"content,omitempty"`
	Stopped   bool       `json:"stopped,omitempty"`
	Finished  bool       `json:"finished,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// RegisterRoutes registers the streaming endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Post("/chat/sessions/{sessionID}/messages", h.handleSessionMessage)
}

// handleChat streams the reply as raw text chunks. The caller owns the
// conversation and sends it whole every time.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Messages == nil {
		http.Error(w, msgMessagesRequired, http.StatusBadRequest)
		return
	}
	if h.completer == nil {
		h.logger.Error("chat requested without a configured model")
		http.Error(w, "AI model not configured", http.StatusInternalServerError)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	history := make([]chat.Prompt, 0, len(payload.Messages))
	for _, m := range payload.Messages {
		role, ok := chat.ParseRole(m.Role)
		if !ok || role == chat.RoleSystem {
			continue
		}
		history = append(history, chat.Prompt{Role: role, Content: m.Content})
	}

	started := false
	start := func() {
		if !started {
			utils.SetupTextStreamHeaders(w)
			w.WriteHeader(http.StatusOK)
			started = true
		}
	}

	_, err := h.completer.Reply(r.Context(), history, func(chunk string) error {
		start()
		return utils.WriteTextChunk(w, flusher, chunk)
	})
	if err != nil {
		h.logger.Warn("chat stream failed", zap.Bool("started", started), zap.Error(err))
		if !started {
			utils.RespondJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "Internal server error",
				"message": err.Error(),
			})
		}
		return
	}
	start()
}

// handleSessionMessage runs a stored round-trip and reports it as
// server-sent events: start, delta..., then message or error, then end.
func (h *Handler) handleSessionMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sse := &eventWriter{w: w, flusher: flusher, sessionID: sessionID, logger: h.logger}
	res, err := h.conversations.Send(r.Context(), middleware.VisitorID(r.Context()), sessionID, payload.Content, func(reply chat.Turn, delta string) {
		sse.start()
		sse.send("delta", StreamEvent{SessionID: sessionID, Turn: &chat.Turn{ID: reply.ID, Role: reply.Role}, Content: delta})
	})
	if err != nil {
		utils.RespondError(w, sendStatus(err), err.Error())
		return
	}

	sse.start()
	if res.Apology != nil {
		sse.send("error", StreamEvent{SessionID: sessionID, Turn: res.Apology, Error: res.Apology.Content})
	} else {
		reply := res.Reply
		sse.send("message", StreamEvent{SessionID: sessionID, Turn: &reply, Content: reply.Content, Stopped: res.Stopped})
	}
	sse.send("end", StreamEvent{SessionID: sessionID, Finished: true, Stopped: res.Stopped})
}

func sendStatus(err error) int {
	switch {
	case errors.Is(err, conversation.ErrInvalidSession), errors.Is(err, conversation.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, conversation.ErrGenerating):
		return http.StatusConflict
	case errors.Is(err, conversation.ErrNoModel):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// eventWriter opens the event stream lazily so request errors can still
// use a proper status code.
type eventWriter struct {
	w         http.ResponseWriter
	flusher   http.Flusher
	sessionID string
	logger    *zap.Logger
	started   bool
	// broken is set once the client has gone; the round-trip carries on.
	broken bool
}

func (e *eventWriter) start() {
	if e.started {
		return
	}
	e.started = true
	utils.SetupSSEHeaders(e.w)
	e.w.WriteHeader(http.StatusOK)
	e.send("start", StreamEvent{SessionID: e.sessionID})
}

func (e *eventWriter) send(event string, data StreamEvent) {
	if e.broken {
		return
	}
	if err := utils.SendSSEEvent(e.w, e.flusher, event, data); err != nil {
		e.broken = true
		e.logger.Debug("client left the event stream", zap.String("session", e.sessionID), zap.Error(err))
	}
}
