// Package contact serves the contact form and the chat contact endpoints.
package contact

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cvdeck/cv-deck/backend/internal/model/chat"
	contactModel "github.com/cvdeck/cv-deck/backend/internal/model/contact"
	contactService "github.com/cvdeck/cv-deck/backend/internal/service/contact"
	"github.com/cvdeck/cv-deck/backend/pkg/utils"
)

// Submissions stores contact form posts and chat contact records.
type Submissions interface {
	SubmitForm(ctx context.Context, form contactModel.Form) (contactService.Created, error)
	SubmitChatContact(ctx context.Context, sub contactModel.Submission) (contactModel.SubmitResult, error)
}

// Extractor reads contact fields out of visitor messages.
type Extractor interface {
	ExtractContact(ctx context.Context, messages []chat.Prompt) (contactModel.Info, error)
}

type Handler struct {
	submissions Submissions
	extractor   Extractor
	logger      *zap.Logger
}

// New builds the handler. A nil extractor makes extract-contact answer {}.
func New(submissions Submissions, extractor Extractor, logger *zap.Logger) *Handler {
	return &Handler{submissions: submissions, extractor: extractor, logger: logger.Named("contact")}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/contact", h.handleContactForm)
	r.Post("/chat/submit-contact", h.handleSubmitContact)
	r.Post("/chat/extract-contact", h.handleExtractContact)
}

func (h *Handler) handleContactForm(w http.ResponseWriter, r *http.Request) {
	var form contactModel.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		utils.RespondError(w, http.StatusBadRequest, contactService.MsgInvalidForm)
		return
	}

	if _, err := h.submissions.SubmitForm(r.Context(), form); err != nil {
		h.logger.Warn("contact form submission failed", zap.Error(err))
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, contactModel.SubmitResult{Success: true, Message: contactService.MsgFormThanks})
}

func (h *Handler) handleSubmitContact(w http.ResponseWriter, r *http.Request) {
	var sub contactModel.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.submissions.SubmitChatContact(r.Context(), sub)
	if err != nil {
		h.logger.Warn("chat contact submission failed", zap.Error(err))
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, res)
}

// handleExtractContact never fails: anything that goes wrong answers {}.
func (h *Handler) handleExtractContact(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Messages []chat.Turn `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || h.extractor == nil {
		utils.RespondJSON(w, http.StatusOK, contactModel.Info{})
		return
	}

	messages := slices.Collect(contactService.FilterForExtraction(payload.Messages))
	if len(messages) == 0 {
		utils.RespondJSON(w, http.StatusOK, contactModel.Info{})
		return
	}

	info, err := h.extractor.ExtractContact(r.Context(), messages)
	if err != nil {
		h.logger.Warn("contact extraction failed", zap.Error(err))
		info = contactModel.Info{}
	}
	utils.RespondJSON(w, http.StatusOK, contactModel.Normalize(info))
}
