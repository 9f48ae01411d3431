// Package app assembles the service: configuration, database pool,
// Genkit, the knowledge base, tool kit, orchestrator, and the HTTP
// server. Setup builds everything fail-fast; Close releases it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/courtsideai/courtside/db"
	"github.com/courtsideai/courtside/internal/api"
	"github.com/courtsideai/courtside/internal/chat"
	"github.com/courtsideai/courtside/internal/config"
	"github.com/courtsideai/courtside/internal/document"
	"github.com/courtsideai/courtside/internal/knowledge"
	"github.com/courtsideai/courtside/internal/orchestrator"
	"github.com/courtsideai/courtside/internal/rag"
	"github.com/courtsideai/courtside/internal/tools"
)

const dbConnectTimeout = 10 * time.Second

// App is the assembled application.
type App struct {
	Config *config.Config

	Genkit    *genkit.Genkit
	Pool      *pgxpool.Pool
	Chats     *chat.Store
	Docs      *document.Store
	Knowledge *knowledge.Store
	Server    *api.Server
	Embedder  ai.Embedder

	logger *slog.Logger
}

// Setup builds the application from cfg. Migrations run first; any
// component that cannot initialize aborts startup.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, logger: logger}

	defer func() {
		if retErr != nil {
			a.Close()
		}
	}()

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	pool, err := providePool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit")
	}
	a.Genkit = g

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}
	a.Embedder = embedder

	a.Chats = chat.NewStore(chat.NewQueries(pool), pool, logger)
	a.Docs = document.NewStore(document.NewQueries(pool), pool, logger)
	a.Knowledge = knowledge.New(knowledge.NewQueries(pool), embedder, logger)

	retriever := rag.NewClient(cfg.RAGBaseURL, nil, logger)

	kit, err := tools.NewKit(g, tools.KitConfig{
		Documents: a.Docs,
		Retriever: retriever,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating tool kit: %w", err)
	}
	if err := kit.Register(g); err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Genkit:    g,
		Chats:     a.Chats,
		Retriever: retriever,
		Tools:     kit.All(g),
		Logger:    logger,
		MaxSteps:  cfg.MaxSteps,
	})
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}

	server, err := api.NewServer(api.ServerConfig{
		Logger:     logger,
		Turns:      api.NewTurns(orch),
		Chats:      a.Chats,
		Documents:  a.Docs,
		Search:     a.Knowledge,
		Owner:      cfg.Owner(),
		TrustProxy: cfg.TrustProxy,
		RateRPS:    cfg.RateRPS,
		RateBurst:  cfg.RateBurst,
	})
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}
	a.Server = server

	return a, nil
}

// Close releases the application's resources.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
		a.logger.Debug("database pool closed")
	}
}

// providePool opens the pgx pool and verifies connectivity. pgvector
// types are registered per connection so embedding columns scan into
// pgvector.Vector.
func providePool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, dbConnectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}
