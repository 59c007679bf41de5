// Package coach answers chess questions: engine best moves translated to
// SAN, language-model explanations grounded in a board description, PGN
// replay and board diagrams.
package coach

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/board"
	"github.com/park285/chess-coach/internal/cache"
	"github.com/park285/chess-coach/internal/domain"
	"github.com/park285/chess-coach/internal/history"
	"github.com/park285/chess-coach/internal/notation"
	"github.com/park285/chess-coach/internal/pgn"
	"github.com/park285/chess-coach/internal/prompts"
	"github.com/park285/chess-coach/internal/render"
	"github.com/park285/chess-coach/internal/uci"
)

const maxHistoryLimit = 100

// Completer turns a prompt into model text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	MoveTime        time.Duration
	HistoryLimit    int
	BoardSquareSize int
}

type Service struct {
	engine  Engine
	llm     Completer
	prompts *prompts.Catalog
	cache   *cache.Store
	repo    history.Repository
	cfg     Config
	logger  *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewService requires an engine and a prompt catalog. llm, cache and repo
// are optional: without llm the explanation calls fail, without cache every
// query runs the engine, without repo nothing is recorded.
func NewService(engine Engine, llm Completer, catalog *prompts.Catalog, store *cache.Store, repo history.Repository, cfg Config, logger *zap.Logger) (*Service, error) {
	if engine == nil {
		return nil, errors.New("chess engine is required")
	}
	if catalog == nil {
		return nil, errors.New("prompt catalog is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MoveTime <= 0 {
		cfg.MoveTime = uci.DefaultMoveTime
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = history.DefaultLimit
	}
	if cfg.BoardSquareSize <= 0 {
		cfg.BoardSquareSize = render.DefaultSquareSize
	}
	return &Service{
		engine:  engine,
		llm:     llm,
		prompts: catalog,
		cache:   store,
		repo:    repo,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}, nil
}

// BestMoveResult is one engine answer. NoMove is set, with empty moves, when
// the side to move has no legal move or the engine reports none.
type BestMoveResult struct {
	FEN      string
	MoveUCI  string
	MoveSAN  string
	Ponder   string
	ScoreCP  *int
	Mate     *int
	Depth    int
	NoMove   bool
	Status   board.Status
	Duration time.Duration
	Cached   bool
}

func (s *Service) BestMove(ctx context.Context, fen string) (BestMoveResult, error) {
	res, _, err := s.bestMove(ctx, fen)
	if err != nil {
		return BestMoveResult{}, domainError(err)
	}
	s.record(ctx, &domain.Analysis{
		Kind:          domain.KindBestMove,
		FEN:           res.FEN,
		MoveUCI:       res.MoveUCI,
		MoveSAN:       res.MoveSAN,
		EngineLatency: res.Duration,
	})
	return res, nil
}

func (s *Service) bestMove(ctx context.Context, fen string) (BestMoveResult, *board.Position, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return BestMoveResult{}, nil, invalid("fen is required")
	}
	pos, err := board.Parse(fen)
	if err != nil {
		return BestMoveResult{}, nil, err
	}
	out := BestMoveResult{FEN: fen, Status: pos.Status()}
	if out.Status != board.Ongoing {
		out.NoMove = true
		return out, pos, nil
	}

	if s.cache != nil {
		hit, cerr := s.cache.GetBestMove(ctx, s.cfg.MoveTime, fen)
		if cerr != nil {
			s.logger.Warn("bestmove_cache_get_failed", zap.String("fen", fen), zap.Error(cerr))
		} else if hit != nil {
			out.MoveUCI, out.MoveSAN, out.Ponder = hit.MoveUCI, hit.MoveSAN, hit.Ponder
			out.ScoreCP, out.Mate, out.Depth, out.NoMove = hit.ScoreCP, hit.Mate, hit.Depth, hit.NoMove
			out.Cached = true
			return out, pos, nil
		}
	}

	start := s.now()
	res, err := s.engine.BestMove(ctx, fen, s.cfg.MoveTime)
	out.Duration = s.now().Sub(start)
	switch {
	case errors.Is(err, uci.ErrNoMoveFound):
		s.logger.Warn("engine_no_move", zap.String("fen", fen), zap.String("raw", res.Raw))
		out.NoMove = true
		return out, pos, nil
	case err != nil:
		s.logger.Error("engine_failed", zap.String("fen", fen), zap.Duration("took", out.Duration), zap.Error(err))
		return BestMoveResult{}, nil, err
	}

	moveUCI := uci.SanitizeMove(res.Move)
	m, err := board.ParseMove(moveUCI)
	if err != nil {
		return BestMoveResult{}, nil, errors.Join(ErrEngineBadMove, err)
	}
	san, err := notation.ToAlgebraic(pos, m)
	if err != nil {
		s.logger.Error("engine_illegal_move", zap.String("fen", fen), zap.String("move", moveUCI))
		return BestMoveResult{}, nil, errors.Join(ErrEngineBadMove, err)
	}
	out.MoveUCI = strings.ToLower(moveUCI)
	out.MoveSAN = san
	out.Ponder = uci.SanitizeMove(res.Ponder)
	out.Depth = res.Info.Depth
	if res.Info.Mate != 0 {
		mate := res.Info.Mate
		out.Mate = &mate
	} else if res.Info.Depth > 0 {
		cp := res.Info.ScoreCP
		out.ScoreCP = &cp
	}

	if s.cache != nil {
		entry := &cache.BestMove{
			MoveUCI: out.MoveUCI,
			MoveSAN: out.MoveSAN,
			Ponder:  out.Ponder,
			ScoreCP: out.ScoreCP,
			Mate:    out.Mate,
			Depth:   out.Depth,
		}
		if cerr := s.cache.PutBestMove(ctx, s.cfg.MoveTime, fen, entry); cerr != nil {
			s.logger.Warn("bestmove_cache_put_failed", zap.String("fen", fen), zap.Error(cerr))
		}
	}
	s.logger.Info("best_move",
		zap.String("fen", fen),
		zap.String("uci", out.MoveUCI),
		zap.String("san", out.MoveSAN),
		zap.Int("depth", out.Depth),
		zap.Duration("took", out.Duration),
	)
	return out, pos, nil
}

type CoachResult struct {
	BestMove    BestMoveResult
	PlayerColor string
	Explanation string
	AnalysisID  string
}

// Coach finds the best move and asks the language model to explain it from
// the board description.
func (s *Service) Coach(ctx context.Context, fen, playerColor string) (CoachResult, error) {
	if s.llm == nil {
		return CoachResult{}, domainError(ErrLLMUnavailable)
	}
	color, err := normalizeColor(playerColor)
	if err != nil {
		return CoachResult{}, domainError(err)
	}
	bm, pos, err := s.bestMove(ctx, fen)
	if err != nil {
		return CoachResult{}, domainError(err)
	}
	if color == "" {
		color = pos.Turn.String()
	}

	data := map[string]any{
		"FEN":         bm.FEN,
		"Description": render.Describe(pos),
		"PlayerColor": color,
		"MoveSAN":     bm.MoveSAN,
		"MoveUCI":     bm.MoveUCI,
		"Score":       formatScore(bm),
		"Status":      bm.Status.String(),
	}
	key := prompts.KeyCoachExplain
	if bm.NoMove {
		key = prompts.KeyCoachNoMove
	}
	text, err := s.complete(ctx, key, data)
	if err != nil {
		return CoachResult{}, domainError(err)
	}
	id := s.record(ctx, &domain.Analysis{
		Kind:          domain.KindCoach,
		FEN:           bm.FEN,
		PlayerColor:   color,
		MoveUCI:       bm.MoveUCI,
		MoveSAN:       bm.MoveSAN,
		Text:          text,
		EngineLatency: bm.Duration,
	})
	return CoachResult{BestMove: bm, PlayerColor: color, Explanation: text, AnalysisID: id}, nil
}

type AnalyzeResult struct {
	FEN        string
	Analysis   string
	AnalysisID string
}

// Analyze asks the language model for a positional assessment of fen.
func (s *Service) Analyze(ctx context.Context, fen string) (AnalyzeResult, error) {
	if s.llm == nil {
		return AnalyzeResult{}, domainError(ErrLLMUnavailable)
	}
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return AnalyzeResult{}, domainError(invalid("fen is required"))
	}
	pos, err := board.Parse(fen)
	if err != nil {
		return AnalyzeResult{}, domainError(err)
	}
	text, err := s.complete(ctx, prompts.KeyAnalyze, map[string]any{
		"FEN":         fen,
		"Description": render.Describe(pos),
		"SideToMove":  pos.Turn.String(),
	})
	if err != nil {
		return AnalyzeResult{}, domainError(err)
	}
	id := s.record(ctx, &domain.Analysis{Kind: domain.KindAnalyze, FEN: fen, Text: text})
	return AnalyzeResult{FEN: fen, Analysis: text, AnalysisID: id}, nil
}

// Chat forwards a free-form message. A supplied fen is validated and its
// description prepended.
func (s *Service) Chat(ctx context.Context, message, fen string) (string, error) {
	if s.llm == nil {
		return "", domainError(ErrLLMUnavailable)
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return "", domainError(invalid("message is required"))
	}
	fen = strings.TrimSpace(fen)
	if fen == "" {
		text, err := s.complete(ctx, prompts.KeyChatPlain, map[string]any{"Message": message})
		return text, domainError(err)
	}
	pos, err := board.Parse(fen)
	if err != nil {
		return "", domainError(err)
	}
	text, err := s.complete(ctx, prompts.KeyChatPosition, map[string]any{
		"FEN":         fen,
		"Description": render.Describe(pos),
		"Message":     message,
	})
	return text, domainError(err)
}

type PGNResult struct {
	StartFEN string
	SAN      []string
	UCI      []string
	FinalFEN string
	Status   board.Status
	PGN      string
}

// LoadPGN replays the mainline of a PGN game.
func (s *Service) LoadPGN(ctx context.Context, text string) (PGNResult, error) {
	game, err := pgn.ReadMoves(text)
	if err != nil {
		return PGNResult{}, domainError(err)
	}
	start, err := board.Parse(game.StartFEN)
	if err != nil {
		return PGNResult{}, domainError(errors.Join(pgn.ErrInvalidPGN, err))
	}
	line, err := notation.Line(start, game.Moves)
	if err != nil {
		return PGNResult{}, domainError(err)
	}
	s.logger.Debug("pgn_loaded", zap.Int("plies", len(line.SAN)), zap.String("final_fen", line.FinalFEN))
	return PGNResult{
		StartFEN: game.StartFEN,
		SAN:      line.SAN,
		UCI:      line.UCI,
		FinalFEN: line.FinalFEN,
		Status:   line.Status,
		PGN:      text,
	}, nil
}

// Describe returns the plain-text piece inventory of fen.
func (s *Service) Describe(fen string) (string, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return "", domainError(invalid("fen is required"))
	}
	text, err := render.DescribeFEN(fen)
	return text, domainError(err)
}

// BoardImage renders fen as a PNG, highlighting lastMove when given.
func (s *Service) BoardImage(ctx context.Context, fen, lastMove string) ([]byte, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return nil, domainError(invalid("fen is required"))
	}
	pos, err := board.Parse(fen)
	if err != nil {
		return nil, domainError(err)
	}
	opts := render.Options{SquareSize: s.cfg.BoardSquareSize}
	lastMove = strings.ToLower(strings.TrimSpace(lastMove))
	if lastMove != "" {
		m, err := board.ParseMove(lastMove)
		if err != nil {
			return nil, domainError(invalid("last move %q: %v", lastMove, err))
		}
		opts.LastMove = &m
	}

	if s.cache != nil {
		if png, cerr := s.cache.GetBoard(ctx, opts.SquareSize, lastMove, fen); cerr == nil && png != nil {
			return png, nil
		} else if cerr != nil {
			s.logger.Warn("board_cache_get_failed", zap.String("fen", fen), zap.Error(cerr))
		}
	}
	png, err := render.RenderPNG(ctx, pos, opts)
	if err != nil {
		return nil, domainError(err)
	}
	if s.cache != nil {
		if cerr := s.cache.PutBoard(ctx, opts.SquareSize, lastMove, fen, png); cerr != nil {
			s.logger.Warn("board_cache_put_failed", zap.String("fen", fen), zap.Error(cerr))
		}
	}
	return png, nil
}

// History lists recorded analyses, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]*domain.Analysis, error) {
	if s.repo == nil {
		return []*domain.Analysis{}, nil
	}
	if limit <= 0 {
		limit = s.cfg.HistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	items, err := s.repo.Recent(ctx, limit)
	return items, domainError(err)
}

func (s *Service) Analysis(ctx context.Context, id string) (*domain.Analysis, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, domainError(invalid("analysis id %q", id))
	}
	if s.repo == nil {
		return nil, domainError(history.ErrNotFound)
	}
	a, err := s.repo.Get(ctx, parsed.String())
	return a, domainError(err)
}

func (s *Service) complete(ctx context.Context, key string, data map[string]any) (string, error) {
	prompt, err := s.prompts.Render(key, data)
	if err != nil {
		return "", err
	}
	start := s.now()
	text, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		s.logger.Warn("llm_failed", zap.String("prompt", key), zap.Error(err))
		return "", err
	}
	s.logger.Debug("llm_answer", zap.String("prompt", key), zap.Duration("took", s.now().Sub(start)))
	return text, nil
}

// record stores a and returns its new ID. Failures are logged only.
func (s *Service) record(ctx context.Context, a *domain.Analysis) string {
	if s.repo == nil {
		return ""
	}
	a.ID = s.newID()
	a.CreatedAt = s.now().UTC()
	if err := s.repo.Insert(ctx, a); err != nil {
		s.logger.Warn("history_insert_failed", zap.String("kind", a.Kind), zap.Error(err))
		return ""
	}
	return a.ID
}

func normalizeColor(c string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(c)) {
	case "":
		return "", nil
	case "white", "w":
		return "white", nil
	case "black", "b":
		return "black", nil
	default:
		return "", invalid("player_color %q", c)
	}
}

func formatScore(bm BestMoveResult) string {
	switch {
	case bm.Mate != nil:
		return "mate in " + strconv.Itoa(*bm.Mate)
	case bm.ScoreCP != nil:
		return strconv.Itoa(*bm.ScoreCP) + " centipawns for the side to move"
	default:
		return ""
	}
}
