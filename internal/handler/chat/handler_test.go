package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap/zaptest"

	"github.com/cvdeck/cv-deck/backend/internal/middleware"
	"github.com/cvdeck/cv-deck/backend/internal/model/chat"
	contactService "github.com/cvdeck/cv-deck/backend/internal/service/contact"
	"github.com/cvdeck/cv-deck/backend/internal/service/conversation"
	"github.com/cvdeck/cv-deck/backend/internal/storage/kv"
)

type lifecycleCall struct {
	visitorID string
	sessionID string
	trigger   contactService.Trigger
}

type recordingLifecycle struct {
	calls []lifecycleCall
}

func (l *recordingLifecycle) HandleLifecycle(_ context.Context, visitorID, sessionID string, trigger contactService.Trigger) {
	l.calls = append(l.calls, lifecycleCall{visitorID, sessionID, trigger})
}

func setupRouter(t *testing.T) (*chi.Mux, *conversation.Store, *recordingLifecycle) {
	logger := zaptest.NewLogger(t)
	store := conversation.NewStore(kv.NewMemoryStore(), time.Hour, logger)
	svc := conversation.NewService(store, conversation.NewGuard(), nil, nil, logger)
	lifecycle := &recordingLifecycle{}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithVisitorID(req.Context(), "visitor-1")))
		})
	})
	New(svc, lifecycle).RegisterRoutes(r)
	return r, store, lifecycle
}

func TestGetSessionSeedsGreeting(t *testing.T) {
	r, _, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/chat/sessions/s1", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var session chat.Session
	if err := json.Unmarshal(resp.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(session.Turns) != 1 || session.Turns[0].ID != chat.GreetingID {
		t.Fatalf("expected greeting only, got %+v", session.Turns)
	}
	if session.Generating {
		t.Fatal("expected no generation in flight")
	}
}

func TestGetSessionInvalidID(t *testing.T) {
	r, _, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/chat/sessions/"+strings.Repeat("x", 200), nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestStopWithoutGeneration(t *testing.T) {
	r, _, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/chat/sessions/s1/stop", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"stopped":false`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestLifecycleBeacon(t *testing.T) {
	r, _, lifecycle := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/chat/sessions/s1/lifecycle", strings.NewReader(`{"event":"unload"}`))
	req.Header.Set("Content-Type", "text/plain;charset=UTF-8")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}
	want := lifecycleCall{"visitor-1", "s1", contactService.TriggerUnload}
	if len(lifecycle.calls) != 1 || lifecycle.calls[0] != want {
		t.Fatalf("expected %+v, got %+v", want, lifecycle.calls)
	}
}

func TestLifecycleRejectsUnknownEvent(t *testing.T) {
	r, _, lifecycle := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/chat/sessions/s1/lifecycle", strings.NewReader(`{"event":"visible"}`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if len(lifecycle.calls) != 0 {
		t.Fatalf("expected no lifecycle call, got %d", len(lifecycle.calls))
	}
}
