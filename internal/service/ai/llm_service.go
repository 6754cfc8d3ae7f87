package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/cvdeck/cv-deck/backend/internal/config"
	"github.com/cvdeck/cv-deck/backend/internal/model/chat"
	profileModel "github.com/cvdeck/cv-deck/backend/internal/model/profile"
)

// ProfileSource loads the data the system prompt is built from.
type ProfileSource interface {
	Load(ctx context.Context) (profileModel.Data, error)
}

// Service encapsulates AI-powered chat functionality
type Service struct {
	profiles ProfileSource
	cfg      config.AIConfig
	chain    compose.Runnable[map[string]any, *schema.Message]
	logger   *zap.Logger
}

// NewService creates a new AI service instance
func NewService(ctx context.Context, chatModel model.BaseChatModel, profiles ProfileSource, cfg config.AIConfig, logger *zap.Logger) (*Service, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", false),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		profiles: profiles,
		cfg:      cfg,
		chain:    runnable,
		logger:   logger.Named("ai"),
	}, nil
}

// StreamingEnabled reports whether replies are streamed chunk by chunk.
func (s *Service) StreamingEnabled() bool {
	return s.cfg.StreamResponse
}

// SystemPrompt builds the agent prompt from the stored profile, falling back
// to a generic prompt when the profile cannot be loaded.
func (s *Service) SystemPrompt(ctx context.Context) string {
	if s.profiles == nil {
		return FallbackSystemPrompt(s.cfg.AgentName)
	}
	data, err := s.profiles.Load(ctx)
	if err != nil {
		s.logger.Warn("profile unavailable, using fallback prompt", zap.Error(err))
		return FallbackSystemPrompt(s.cfg.AgentName)
	}
	return BuildSystemPrompt(s.cfg.AgentName, data)
}

// Reply runs the conversation through the model. With streaming enabled
// onChunk sees every non-empty delta; otherwise it sees the whole reply once.
// The text produced so far is returned even when an error cuts the reply
// short.
func (s *Service) Reply(ctx context.Context, history []chat.Prompt, onChunk func(string) error) (string, error) {
	input := s.buildChainInput(ctx, history)

	if !s.StreamingEnabled() {
		msg, err := s.chain.Invoke(ctx, input)
		if err != nil {
			return "", fmt.Errorf("failed to run AI chain: %w", err)
		}
		if msg.Content != "" {
			if err := onChunk(msg.Content); err != nil {
				return msg.Content, err
			}
		}
		return msg.Content, nil
	}

	stream, err := s.chain.Stream(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to stream AI chain output: %w", err)
	}
	defer stream.Close()

	var b strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return b.String(), fmt.Errorf("failed to receive stream chunk: %w", err)
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		b.WriteString(chunk.Content)
		if err := onChunk(chunk.Content); err != nil {
			return b.String(), err
		}
	}

	s.logger.Debug("reply complete", zap.Int("length", b.Len()), zap.Int("history", len(history)))
	return b.String(), nil
}

func (s *Service) buildChainInput(ctx context.Context, history []chat.Prompt) map[string]any {
	return map[string]any{
		"system":  s.SystemPrompt(ctx),
		"history": buildHistoryMessages(history),
	}
}

// buildHistoryMessages drops system prompts and empty turns; the system
// prompt is always rebuilt server-side.
func buildHistoryMessages(history []chat.Prompt) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history))
	for _, p := range history {
		if strings.TrimSpace(p.Content) == "" {
			continue
		}
		switch p.Role {
		case chat.RoleUser:
			messages = append(messages, schema.UserMessage(p.Content))
		case chat.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(p.Content, nil))
		}
	}
	return messages
}
