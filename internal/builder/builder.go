// Package builder wires the coach service and its HTTP server from config.
package builder

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/cache"
	"github.com/park285/chess-coach/internal/coach"
	"github.com/park285/chess-coach/internal/config"
	"github.com/park285/chess-coach/internal/history"
	"github.com/park285/chess-coach/internal/llm"
	"github.com/park285/chess-coach/internal/prompts"
	"github.com/park285/chess-coach/internal/server"
)

const memoryHistoryCapacity = 1000

type Deps struct {
	Service *coach.Service
	Server  *server.Server
	Engine  *coach.StockfishEngine
	LLM     *llm.Client
	Cache   *cache.Store
	Repo    history.Repository
	DB      *sql.DB
}

// New builds every dependency. Redis and postgres are optional: without
// REDIS_URL nothing is cached, without DATABASE_URL history stays in memory.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	engine, err := coach.NewStockfishEngine(coach.EngineConfig{
		BinaryPath: cfg.StockfishPath,
		Ceiling:    cfg.EngineCeiling,
		Threads:    cfg.EngineThreads,
		HashMB:     cfg.EngineHashMB,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init engine: %w", err)
	}

	catalog, err := prompts.New(cfg.PromptDir)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	system, err := catalog.Render(prompts.KeySystem, nil)
	if err != nil {
		return nil, fmt.Errorf("render system prompt: %w", err)
	}

	var client *llm.Client
	if strings.TrimSpace(cfg.LLMAPIKey) != "" || !strings.Contains(cfg.LLMBaseURL, "api.openai.com") {
		client = llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey,
			llm.WithModel(cfg.LLMModel),
			llm.WithTimeout(cfg.LLMTimeout),
			llm.WithSystemPrompt(system),
			llm.WithLogger(logger.Named("llm")),
		)
	} else {
		logger.Warn("llm_disabled", zap.String("reason", "OPENAI_API_KEY is not set"))
	}

	d := &Deps{Engine: engine, LLM: client}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		store, err := cache.Open(ctx, cfg.RedisURL, time.Duration(cfg.CacheTTLSec)*time.Second)
		if err != nil {
			return nil, fmt.Errorf("init cache: %w", err)
		}
		d.Cache = store
	}

	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		db, err := history.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = d.Close()
			return nil, err
		}
		d.DB = db
		if err := history.EnsureSchema(ctx, db); err != nil {
			_ = d.Close()
			return nil, err
		}
		d.Repo = history.NewRepository(db)
	} else {
		d.Repo = history.NewMemoryRepository(memoryHistoryCapacity)
	}

	// A nil *llm.Client must not reach the service as a non-nil interface.
	var completer coach.Completer
	if client != nil {
		completer = client
	}
	svc, err := coach.NewService(engine, completer, catalog, d.Cache, d.Repo, coach.Config{
		MoveTime:     cfg.EngineMoveTime,
		HistoryLimit: cfg.HistoryLimit,
	}, logger.Named("coach"))
	if err != nil {
		_ = d.Close()
		return nil, err
	}
	d.Service = svc
	d.Server = server.New(svc, server.Options{AllowedOrigins: cfg.AllowedOrigins, Logger: logger.Named("http")})

	logger.Info("coach_ready",
		zap.String("engine", engine.Path()),
		zap.Bool("llm", client != nil),
		zap.Bool("cache", d.Cache != nil),
		zap.Bool("postgres", d.DB != nil),
	)
	return d, nil
}

// Close releases the cache and database connections.
func (d *Deps) Close() error {
	var err error
	if d.Cache != nil {
		err = multierr.Append(err, d.Cache.Close())
	}
	if d.DB != nil {
		err = multierr.Append(err, d.DB.Close())
	}
	return err
}
