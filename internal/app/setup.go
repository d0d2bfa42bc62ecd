package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eloquentai/finchat/db"
	"github.com/eloquentai/finchat/internal/auth"
	"github.com/eloquentai/finchat/internal/chat"
	"github.com/eloquentai/finchat/internal/config"
	"github.com/eloquentai/finchat/internal/conversation"
	"github.com/eloquentai/finchat/internal/database"
	"github.com/eloquentai/finchat/internal/faq"
	"github.com/eloquentai/finchat/internal/knowledge"
	"github.com/eloquentai/finchat/internal/log"
	"github.com/eloquentai/finchat/internal/observability"
	"github.com/eloquentai/finchat/internal/provider"
	"github.com/eloquentai/finchat/internal/rag"
)

// tracingShutdownTimeout bounds the final span flush during teardown.
const tracingShutdownTimeout = 5 * time.Second

// Setup creates and initializes the application. Call Close to release
// the resources it acquired.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.tracingShutdown = provideTracing(ctx, cfg, logger)

	a.DBPool = provideDBPool(ctx, cfg, logger)

	a.Provider = provider.New(provider.Config{
		APIKey:         cfg.OpenAI.APIKey,
		BaseURL:        cfg.OpenAI.BaseURL,
		ChatModel:      cfg.OpenAI.ChatModel,
		EmbeddingModel: cfg.OpenAI.EmbeddingModel,
	}, logger)

	a.Knowledge = knowledge.NewStore(a.DBPool, a.Provider, logger)

	retriever := rag.New(a.Knowledge, provideFAQIndex(cfg, logger), logger)

	sessions, err := auth.New([]byte(cfg.Session.Secret),
		auth.WithTimeout(cfg.Session.Timeout),
		auth.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("creating session store: %w", err)
	}
	a.Sessions = sessions

	svc, err := chat.New(chat.Config{
		Provider:      a.Provider,
		Retriever:     retriever,
		Conversations: conversation.NewMemoryStore(),
		TopK:          cfg.Retrieval.TopK,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat service: %w", err)
	}
	a.Chat = svc

	return a, nil
}

// provideTracing sets up the optional OTLP trace exporter and returns
// the teardown hook. Tracing failures never block startup.
func provideTracing(ctx context.Context, cfg *config.Config, logger log.Logger) func() {
	if !cfg.Tracing.Enabled {
		return func() {}
	}

	shutdown, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		Environment: cfg.Tracing.Environment,
		ServiceName: cfg.Tracing.ServiceName,
	}, logger)
	if err != nil {
		logger.Warn("tracing setup failed, continuing without spans", "error", err)
		return func() {}
	}

	// Shutdown runs during teardown when the parent context is already
	// canceled, so the flush gets its own deadline.
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and connects the PostgreSQL pool. The
// vector tier is optional: with no configured URL, or a database that
// cannot be reached, the service runs on the keyword fallback alone.
func provideDBPool(ctx context.Context, cfg *config.Config, logger log.Logger) *pgxpool.Pool {
	if cfg.Database.URL == "" {
		logger.Warn("DATABASE_URL not set, vector store disabled")
		return nil
	}

	if err := db.Migrate(cfg.Database.URL, logger); err != nil {
		logger.Warn("database migration failed, vector store disabled", "error", err)
		return nil
	}

	pool, err := database.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Warn("database connection failed, vector store disabled", "error", err)
		return nil
	}

	return pool
}

// provideFAQIndex loads the keyword fallback index. A missing index
// file leaves the fallback tier empty rather than failing startup;
// `finchat index` builds one from the source dataset.
func provideFAQIndex(cfg *config.Config, logger log.Logger) *faq.Index {
	idx, err := faq.Load(cfg.FAQ.IndexPath, logger)
	if err != nil {
		logger.Warn("faq index unavailable, keyword fallback disabled",
			"path", cfg.FAQ.IndexPath, "error", err)
		return nil
	}
	return idx
}
