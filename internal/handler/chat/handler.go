package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cvdeck/cv-deck/backend/internal/middleware"
	"github.com/cvdeck/cv-deck/backend/internal/model/chat"
	contactService "github.com/cvdeck/cv-deck/backend/internal/service/contact"
	"github.com/cvdeck/cv-deck/backend/internal/service/conversation"
	"github.com/cvdeck/cv-deck/backend/pkg/utils"
)

// Sessions 提供已保存的会话
type Sessions interface {
	Session(ctx context.Context, sessionID string) (chat.Session, error)
	Stop(sessionID string) bool
}

// Lifecycle 处理访客隐藏或离开页面的事件
type Lifecycle interface {
	HandleLifecycle(ctx context.Context, visitorID, sessionID string, trigger contactService.Trigger)
}

// Handler 聊天会话的HTTP处理器
type Handler struct {
	sessions  Sessions
	lifecycle Lifecycle
}

// New 创建聊天处理器
func New(sessions Sessions, lifecycle Lifecycle) *Handler {
	return &Handler{
		sessions:  sessions,
		lifecycle: lifecycle,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/sessions/{sessionID}", h.handleGetSession)
	r.Post("/chat/sessions/{sessionID}/stop", h.handleStop)
	r.Post("/chat/sessions/{sessionID}/lifecycle", h.handleLifecycle)
}

// handleGetSession 返回会话记录
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, conversation.ErrInvalidSession) {
			status = http.StatusBadRequest
		}
		utils.RespondError(w, status, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

// handleStop 停止正在生成的回复
func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if !conversation.ValidSessionID(sessionID) {
		utils.RespondError(w, http.StatusBadRequest, conversation.ErrInvalidSession.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"stopped": h.sessions.Stop(sessionID)})
}

// handleLifecycle 接收页面隐藏与卸载的 beacon。
// 浏览器以 text/plain 发送 beacon，因此不检查 Content-Type。
func (h *Handler) handleLifecycle(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if !conversation.ValidSessionID(sessionID) {
		utils.RespondError(w, http.StatusBadRequest, conversation.ErrInvalidSession.Error())
		return
	}

	var payload struct {
		Event string `json:"event"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	trigger, ok := contactService.ParseTrigger(payload.Event)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "event must be hidden or unload")
		return
	}

	if visitorID := middleware.VisitorID(r.Context()); visitorID != "" {
		h.lifecycle.HandleLifecycle(r.Context(), visitorID, sessionID, trigger)
	}
	utils.RespondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
