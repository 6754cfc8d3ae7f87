package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/cvdeck/cv-deck/backend/internal/model/chat"
	"github.com/cvdeck/cv-deck/backend/internal/model/contact"
)

// ContactExtractor asks the model for contact details the visitor stated
// explicitly.
type ContactExtractor struct {
	chain    compose.Runnable[map[string]any, *schema.Message]
	validate *validator.Validate
	logger   *zap.Logger
}

// NewContactExtractor compiles the extraction chain. The model should be
// configured with a low temperature.
func NewContactExtractor(ctx context.Context, chatModel model.BaseChatModel, logger *zap.Logger) (*ContactExtractor, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(extractionSystemPrompt),
		schema.UserMessage("{conversation}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile extraction chain: %w", err)
	}

	return &ContactExtractor{
		chain:    runnable,
		validate: validator.New(),
		logger:   logger.Named("extractor"),
	}, nil
}

// ExtractContact reads the visitor's messages and returns whatever contact
// fields they mention. No messages means no model call.
func (e *ContactExtractor) ExtractContact(ctx context.Context, messages []chat.Prompt) (contact.Info, error) {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, m.Content)
	}
	if len(parts) == 0 {
		return contact.Info{}, nil
	}

	msg, err := e.chain.Invoke(ctx, map[string]any{"conversation": strings.Join(parts, "\n\n")})
	if err != nil {
		return contact.Info{}, fmt.Errorf("extraction invoke failed: %w", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return contact.Info{}, errors.New("empty extraction output")
	}

	info, err := e.parseExtraction(msg.Content)
	if err != nil {
		return contact.Info{}, fmt.Errorf("extraction output parse failed: %w", err)
	}
	return info, nil
}

// parseExtraction decodes the JSON object the model returned.
func (e *ContactExtractor) parseExtraction(content string) (contact.Info, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return contact.Info{}, fmt.Errorf("missing json object")
	}

	var payload extractionPayload
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &payload); err != nil {
		return contact.Info{}, err
	}

	info := contact.Info{
		Name:    deref(payload.Name),
		Email:   deref(payload.Email),
		Phone:   deref(payload.Phone),
		Company: deref(payload.Company),
		Message: deref(payload.Message),
	}
	if info.Email != "" && e.validate.Var(info.Email, "email") != nil {
		e.logger.Debug("dropping invalid extracted email")
		info.Email = ""
	}
	return contact.Normalize(info), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

type extractionPayload struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Company *string `json:"company"`
	Message *string `json:"message"`
}

// Template text is parsed as an FString: no literal braces.
const extractionSystemPrompt = "Extract contact information from user messages. Only extract fields that are explicitly mentioned by the user. " +
	"Answer with a single JSON object and nothing else. Use exactly these keys: name (the person's name), email (their email address), " +
	"phone (their phone number), company (their company name), message (the main message or inquiry). " +
	"Use null for any field that is not clearly stated."
