package profile

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	profileModel "github.com/cvdeck/cv-deck/backend/internal/model/profile"
	"github.com/cvdeck/cv-deck/backend/pkg/utils"
)

// Pages 生成公开的简历页面数据
type Pages interface {
	Page(ctx context.Context) (profileModel.Page, error)
}

// Handler profile服务的HTTP处理器
type Handler struct {
	pages Pages
}

// New 创建profile处理器
func New(pages Pages) *Handler {
	return &Handler{pages: pages}
}

// RegisterRoutes 注册profile相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/profile", h.handleGetProfile)
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	page, err := h.pages.Page(r.Context())
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, page)
}
