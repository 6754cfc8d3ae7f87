package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cvdeck/cv-deck/backend/internal/config"
	"github.com/cvdeck/cv-deck/backend/internal/handler"
	"github.com/cvdeck/cv-deck/backend/internal/logging"
	"github.com/cvdeck/cv-deck/backend/internal/repository"
	"github.com/cvdeck/cv-deck/backend/internal/service/ai"
	contactService "github.com/cvdeck/cv-deck/backend/internal/service/contact"
	"github.com/cvdeck/cv-deck/backend/internal/service/conversation"
	"github.com/cvdeck/cv-deck/backend/internal/service/email"
	profileService "github.com/cvdeck/cv-deck/backend/internal/service/profile"
	"github.com/cvdeck/cv-deck/backend/internal/storage/kv"
)

const (
	kvPrefix     = "cvdeck:"
	drainTimeout = 35 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Info("no .env file loaded, continuing with system environment variables only", zap.Error(envErr))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	db, err := repository.Open(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := repository.Close(db); err != nil {
			logger.Warn("close database failed", zap.Error(err))
		}
	}()
	if err := repository.Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	profiles := profileService.NewService(repository.NewProfileRepository(db))
	services := handler.Services{Profiles: profiles}

	// Interfaces stay nil unless the component really exists.
	var replier conversation.Replier
	var extractor contactService.Extractor
	if cfg.AI.Enabled() {
		aiSvc, err := newAIService(ctx, cfg.AI, profiles, logger)
		if err != nil {
			logger.Warn("continuing without AI chat", zap.Error(err))
		} else {
			services.Completer = aiSvc
			replier = aiSvc
			logger.Info("AI service initialized", zap.String("provider", string(cfg.AI.Provider)))
		}

		contactExtractor, err := newExtractor(ctx, cfg.AI, logger)
		if err != nil {
			logger.Warn("continuing without contact extraction", zap.Error(err))
		} else {
			services.Extractor = contactExtractor
			extractor = contactExtractor
		}
	} else {
		logger.Info("AI credentials not configured, skipping AI initialization")
	}

	var notifier contactService.Notifier
	if mailer := email.NewMailer(cfg.Email); mailer != nil {
		notifier = mailer
	} else {
		logger.Info("email notifications disabled")
	}
	services.Contacts = contactService.NewService(repository.NewContactRepository(db), notifier, logger)

	conversations := conversation.NewStore(store, cfg.Storage.SessionTTL, logger)
	reconciler := contactService.NewReconciler(store, cfg.Storage.ContactTTL, extractor, services.Contacts, conversations, logger)
	services.Reconciler = reconciler
	services.Conversations = conversation.NewService(conversations, conversation.NewGuard(), replier, reconciler, logger)

	router := handler.NewRouter(cfg.Server, services, logger)
	serveErr := startServer(ctx, cfg.Server, router, logger)

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := reconciler.Wait(drainCtx); err != nil {
		logger.Warn("contact cycles still running at shutdown", zap.Error(err))
	}
	return serveErr
}

func openStore(ctx context.Context, cfg config.StorageConfig) (kv.Store, error) {
	if cfg.Backend != "redis" {
		return kv.NewMemoryStore(), nil
	}
	store, err := kv.NewRedisStore(ctx, cfg.RedisURL, kvPrefix)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return store, nil
}

func newAIService(ctx context.Context, cfg config.AIConfig, profiles ai.ProfileSource, logger *zap.Logger) (*ai.Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, err
	}
	return ai.NewService(ctx, chatModel, profiles, cfg, logger)
}

func newExtractor(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (*ai.ContactExtractor, error) {
	chatModel, err := cfg.ForExtraction().NewChatModel(ctx)
	if err != nil {
		return nil, err
	}
	return ai.NewContactExtractor(ctx, chatModel, logger)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("CV deck backend listening", zap.String("addr", serverCfg.Addr))
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
