package coach

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/uci"
)

// Engine answers best-move queries for a position.
type Engine interface {
	BestMove(ctx context.Context, fen string, movetime time.Duration) (uci.Result, error)
}

type EngineConfig struct {
	BinaryPath string
	// Ceiling of zero derives the limit from each request's movetime.
	Ceiling time.Duration
	Threads int
	HashMB  int
	// Env is appended to the engine's environment.
	Env []string
}

// StockfishEngine launches a fresh UCI process for every query.
type StockfishEngine struct {
	path    string
	cfg     EngineConfig
	logger  *zap.Logger
	options []uci.Option
}

func NewStockfishEngine(cfg EngineConfig, logger *zap.Logger) (*StockfishEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	raw := strings.TrimSpace(cfg.BinaryPath)
	if raw == "" {
		return nil, fmt.Errorf("%w: engine path is empty", uci.ErrEngineUnavailable)
	}
	path, err := exec.LookPath(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", uci.ErrEngineUnavailable, err)
	}

	opts := []uci.Option{uci.WithLogger(logger.Named("uci"))}
	if cfg.Threads > 0 {
		opts = append(opts, uci.WithSetOption("Threads", strconv.Itoa(cfg.Threads)))
	}
	if cfg.HashMB > 0 {
		opts = append(opts, uci.WithSetOption("Hash", strconv.Itoa(cfg.HashMB)))
	}
	if len(cfg.Env) > 0 {
		opts = append(opts, uci.WithEnv(cfg.Env...))
	}
	return &StockfishEngine{path: path, cfg: cfg, logger: logger, options: opts}, nil
}

func (e *StockfishEngine) Path() string { return e.path }

func (e *StockfishEngine) BestMove(ctx context.Context, fen string, movetime time.Duration) (uci.Result, error) {
	start := time.Now()
	res, err := uci.BestMove(ctx, e.path, uci.Request{FEN: fen, MoveTime: movetime, Ceiling: e.cfg.Ceiling}, e.options...)
	e.logger.Debug("engine_search",
		zap.String("fen", fen),
		zap.Duration("movetime", movetime),
		zap.Duration("took", time.Since(start)),
		zap.String("move", res.Move),
		zap.Int("depth", res.Info.Depth),
		zap.Error(err),
	)
	return res, err
}
