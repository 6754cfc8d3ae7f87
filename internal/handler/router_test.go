package handler

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cvdeck/cv-deck/backend/internal/config"
	"github.com/cvdeck/cv-deck/backend/internal/middleware"
	"github.com/cvdeck/cv-deck/backend/internal/repository"
	contactService "github.com/cvdeck/cv-deck/backend/internal/service/contact"
	"github.com/cvdeck/cv-deck/backend/internal/service/conversation"
	profileService "github.com/cvdeck/cv-deck/backend/internal/service/profile"
	"github.com/cvdeck/cv-deck/backend/internal/storage/kv"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zaptest.NewLogger(t)

	db, err := repository.Open(config.DatabaseConfig{Driver: "sqlite", URL: filepath.Join(t.TempDir(), "router.db")}, logger)
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))
	t.Cleanup(func() { _ = repository.Close(db) })

	store := kv.NewMemoryStore()
	contacts := contactService.NewService(repository.NewContactRepository(db), nil, logger)
	convStore := conversation.NewStore(store, time.Hour, logger)
	reconciler := contactService.NewReconciler(store, time.Hour, nil, contacts, convStore, logger)

	services := Services{
		Conversations: conversation.NewService(convStore, conversation.NewGuard(), nil, reconciler, logger),
		Contacts:      contacts,
		Reconciler:    reconciler,
		Profiles:      profileService.NewService(repository.NewProfileRepository(db)),
	}
	cfg := config.ServerConfig{
		AllowedOrigins:     []string{"https://cv.example"},
		RateLimitPerMinute: 1,
		RateLimitBurst:     1,
	}
	return NewRouter(cfg, services, logger)
}

func TestRouterIssuesVisitorCookie(t *testing.T) {
	r := newTestRouter(t)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusNoContent, resp.Code)
	cookies := resp.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.VisitorCookie, cookies[0].Name)
}

func TestRouterRejectsUnknownOrigin(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Origin", "https://evil.example")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestRouterServesEmptyProfile(t *testing.T) {
	r := newTestRouter(t)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/profile", nil))

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"experience":[]`)
}

func TestRouterRateLimitsWrites(t *testing.T) {
	r := newTestRouter(t)
	body := `{"name":"Dana","email":"dana@example.com","message":"Long enough message"}`

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body))
		req.RemoteAddr = "203.0.113.7:5000"
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		return resp.Code
	}

	assert.Equal(t, http.StatusOK, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	// Reads are not limited.
	for range 3 {
		resp := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/chat/sessions/s1", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		r.ServeHTTP(resp, req)
		assert.Equal(t, http.StatusOK, resp.Code)
	}
}

func TestRouterChatWithoutModel(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"messages":[]}`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}
