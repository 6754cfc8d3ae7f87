package conversation

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/cvdeck/cv-deck/backend/internal/model/chat"
)

var (
	ErrInvalidSession = errors.New("invalid session id")
	ErrEmptyMessage   = errors.New("message content is required")
	ErrGenerating     = errors.New("a reply is already being generated")
	ErrNoModel        = errors.New("no chat model configured")
)

var errStopped = errors.New("generation stopped")

// Replier produces the assistant's answer to a conversation.
type Replier interface {
	Reply(ctx context.Context, history []chat.Prompt, onChunk func(string) error) (string, error)
}

// Observer is told about every finished round-trip.
type Observer interface {
	ObserveAsync(ctx context.Context, visitorID string, turns []chat.Turn)
}

// Result describes one finished round-trip.
type Result struct {
	User    chat.Turn
	Reply   chat.Turn
	Apology *chat.Turn
	Stopped bool
	Turns   []chat.Turn
}

type Service struct {
	store    *Store
	guard    *Guard
	replier  Replier
	observer Observer
	logger   *zap.Logger
}

// NewService wires the round-trip. observer may be nil; a nil replier
// makes Send fail with ErrNoModel.
func NewService(store *Store, guard *Guard, replier Replier, observer Observer, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		guard:    guard,
		replier:  replier,
		observer: observer,
		logger:   logger.Named("conversation"),
	}
}

// Session returns the session's turns and whether a reply is in flight.
func (s *Service) Session(ctx context.Context, sessionID string) (chat.Session, error) {
	if !ValidSessionID(sessionID) {
		return chat.Session{}, ErrInvalidSession
	}
	return chat.Session{
		ID:         sessionID,
		Turns:      s.store.Load(ctx, sessionID),
		Generating: s.guard.Generating(sessionID),
	}, nil
}

// Stop halts the session's reply. Chunks arriving afterwards are dropped.
func (s *Service) Stop(sessionID string) bool {
	return s.guard.Stop(sessionID)
}

// Send appends the visitor's message, streams the reply into the log and
// hands each delta to onDelta along with the reply turn so far. A failed
// completion leaves an apology turn; a stopped one leaves whatever arrived
// before the stop.
func (s *Service) Send(ctx context.Context, visitorID, sessionID, content string, onDelta func(reply chat.Turn, delta string)) (Result, error) {
	if !ValidSessionID(sessionID) {
		return Result{}, ErrInvalidSession
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return Result{}, ErrEmptyMessage
	}
	if s.replier == nil {
		return Result{}, ErrNoModel
	}

	gen, ok := s.guard.Begin(ctx, sessionID)
	if !ok {
		return Result{}, ErrGenerating
	}
	defer gen.End()

	// Store writes must land even after the request or generation is gone.
	storeCtx := context.WithoutCancel(ctx)

	// The round-trip works on this sequence; the slot is only written to.
	res := Result{User: chat.NewTurn(chat.RoleUser, content)}
	turns := s.store.Append(storeCtx, sessionID, res.User)
	history := chat.Prompts(turns)

	started := false
	_, err := s.replier.Reply(gen.Context(), history, func(chunk string) error {
		if gen.Stopped() {
			return errStopped
		}
		if !started {
			res.Reply = chat.NewTurn(chat.RoleAssistant, "")
			turns = s.store.Push(storeCtx, sessionID, turns, res.Reply)
			started = true
		}
		turns = s.store.UpdateLast(storeCtx, sessionID, turns, func(t chat.Turn) chat.Turn {
			t.Content += chunk
			return t
		})
		res.Reply.Content += chunk
		if onDelta != nil {
			onDelta(res.Reply, chunk)
		}
		return nil
	})

	switch {
	case gen.Stopped():
		res.Stopped = true
	case err != nil:
		s.logger.Warn("completion failed", zap.String("session", sessionID), zap.Error(err))
		apology := chat.NewTurn(chat.RoleAssistant, chat.ApologyContent)
		res.Apology = &apology
		turns = s.store.Push(storeCtx, sessionID, turns, apology)
	case !started:
		res.Reply = chat.NewTurn(chat.RoleAssistant, "")
		turns = s.store.Push(storeCtx, sessionID, turns, res.Reply)
	}
	res.Turns = turns

	if s.observer != nil && visitorID != "" {
		s.observer.ObserveAsync(ctx, visitorID, turns)
	}
	return res, nil
}
