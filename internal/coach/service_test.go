package coach

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"

	"github.com/park285/chess-coach/internal/board"
	"github.com/park285/chess-coach/internal/cache"
	"github.com/park285/chess-coach/internal/domain"
	"github.com/park285/chess-coach/internal/history"
	"github.com/park285/chess-coach/internal/llm"
	"github.com/park285/chess-coach/internal/prompts"
	"github.com/park285/chess-coach/internal/uci"
	"github.com/park285/chess-coach/pkg/coachdto"
)

const (
	startFEN   = board.StartFEN
	foolsMate  = "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3"
	stalemate  = "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1"
	afterE4FEN = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
)

type fakeEngine struct {
	mu    sync.Mutex
	calls []string
	res   uci.Result
	err   error
}

func (f *fakeEngine) BestMove(ctx context.Context, fen string, movetime time.Duration) (uci.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fen)
	return f.res, f.err
}

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeLLM struct {
	prompts []string
	reply   string
	err     error
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type fixture struct {
	svc    *Service
	engine *fakeEngine
	llm    *fakeLLM
	repo   history.Repository
	store  *cache.Store
}

func newFixture(t *testing.T, withCache bool) *fixture {
	t.Helper()
	f := &fixture{
		engine: &fakeEngine{res: uci.Result{
			Move:   "e2e4",
			Ponder: "e7e5",
			Info:   uci.Info{Depth: 12, ScoreCP: 35, PV: []string{"e2e4", "e7e5"}},
			Raw:    "bestmove e2e4 ponder e7e5",
		}},
		llm:  &fakeLLM{reply: "Take the centre."},
		repo: history.NewMemoryRepository(100),
	}
	if withCache {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		f.store = cache.NewStore(rdb, time.Minute)
	}
	svc, err := NewService(f.engine, f.llm, prompts.MustNew(), f.store, f.repo, Config{MoveTime: 100 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	de, ok := coachdto.AsDomainError(err)
	if !ok {
		t.Fatalf("err = %v, want DomainError %s", err, code)
	}
	if de.Code != code {
		t.Fatalf("code = %s (%v), want %s", de.Code, err, code)
	}
}

func TestNewServiceRequiresEngineAndPrompts(t *testing.T) {
	if _, err := NewService(nil, nil, prompts.MustNew(), nil, nil, Config{}, nil); err == nil {
		t.Fatal("expected error without engine")
	}
	if _, err := NewService(&fakeEngine{}, nil, nil, nil, nil, Config{}, nil); err == nil {
		t.Fatal("expected error without prompts")
	}
}

func TestBestMoveTranslatesToSAN(t *testing.T) {
	f := newFixture(t, false)
	res, err := f.svc.BestMove(context.Background(), "  "+startFEN+" ")
	if err != nil {
		t.Fatalf("BestMove: %v", err)
	}
	if res.MoveSAN != "e4" || res.MoveUCI != "e2e4" || res.Ponder != "e7e5" {
		t.Fatalf("result = %+v", res)
	}
	if res.ScoreCP == nil || *res.ScoreCP != 35 || res.Mate != nil || res.Depth != 12 {
		t.Fatalf("score = %v mate = %v depth = %d", res.ScoreCP, res.Mate, res.Depth)
	}
	if diff := cmp.Diff([]string{startFEN}, f.engine.calls); diff != "" {
		t.Fatalf("engine calls (-want +got):\n%s", diff)
	}
	items, _ := f.repo.Recent(context.Background(), 10)
	if len(items) != 1 || items[0].Kind != domain.KindBestMove || items[0].MoveSAN != "e4" {
		t.Fatalf("history = %+v", items)
	}
}

func TestBestMoveSanitizesEngineOutput(t *testing.T) {
	f := newFixture(t, false)
	f.engine.res = uci.Result{Move: " g1f3\x00 junk", Info: uci.Info{Depth: 3, Mate: 4}}
	res, err := f.svc.BestMove(context.Background(), startFEN)
	if err != nil {
		t.Fatalf("BestMove: %v", err)
	}
	if res.MoveSAN != "Nf3" {
		t.Fatalf("SAN = %q", res.MoveSAN)
	}
	if res.Mate == nil || *res.Mate != 4 || res.ScoreCP != nil {
		t.Fatalf("mate = %v cp = %v", res.Mate, res.ScoreCP)
	}
}

func TestBestMoveRejectsMalformedFENBeforeEngine(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.svc.BestMove(context.Background(), "not a fen")
	wantCode(t, err, coachdto.CodeMalformedPosition)
	if !errors.Is(err, board.ErrMalformedPosition) {
		t.Fatalf("err = %v, want ErrMalformedPosition in chain", err)
	}
	if f.engine.callCount() != 0 {
		t.Fatal("engine launched for malformed FEN")
	}
	_, err = f.svc.BestMove(context.Background(), "")
	wantCode(t, err, coachdto.CodeInvalidRequest)
}

func TestBestMoveGameOverSkipsEngine(t *testing.T) {
	for _, tc := range []struct {
		fen    string
		status board.Status
	}{
		{foolsMate, board.Checkmate},
		{stalemate, board.Stalemate},
	} {
		f := newFixture(t, false)
		res, err := f.svc.BestMove(context.Background(), tc.fen)
		if err != nil {
			t.Fatalf("BestMove(%s): %v", tc.fen, err)
		}
		if !res.NoMove || res.Status != tc.status || res.MoveSAN != "" {
			t.Fatalf("result = %+v, want no move with %v", res, tc.status)
		}
		if f.engine.callCount() != 0 {
			t.Fatal("engine launched for finished game")
		}
	}
}

func TestBestMoveEngineNoMove(t *testing.T) {
	f := newFixture(t, false)
	f.engine.res = uci.Result{Raw: "bestmove (none)"}
	f.engine.err = &uci.EngineError{Op: "search", State: uci.StateResultReady, Err: uci.ErrNoMoveFound}
	res, err := f.svc.BestMove(context.Background(), startFEN)
	if err != nil {
		t.Fatalf("BestMove: %v", err)
	}
	if !res.NoMove {
		t.Fatalf("result = %+v, want NoMove", res)
	}
}

func TestBestMoveEngineFailures(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
	}{
		{"timeout", &uci.EngineError{Op: "search", Err: uci.ErrEngineTimeout}, coachdto.CodeEngineTimeout},
		{"crash", &uci.EngineError{Op: "search", Err: uci.ErrEngineCrashed}, coachdto.CodeEngineCrashed},
		{"unavailable", &uci.EngineError{Op: "start", Err: uci.ErrEngineUnavailable}, coachdto.CodeEngineUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, false)
			f.engine.err = tc.err
			_, err := f.svc.BestMove(context.Background(), startFEN)
			wantCode(t, err, tc.code)
			if !errors.Is(err, tc.err) {
				t.Fatalf("original error lost: %v", err)
			}
		})
	}
}

func TestBestMoveIllegalEngineAnswer(t *testing.T) {
	f := newFixture(t, false)
	f.engine.res = uci.Result{Move: "e2e5"}
	_, err := f.svc.BestMove(context.Background(), startFEN)
	wantCode(t, err, coachdto.CodeEngineBadMove)
}

func TestBestMoveUsesCache(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	first, err := f.svc.BestMove(ctx, startFEN)
	if err != nil || first.Cached {
		t.Fatalf("first = %+v, %v", first, err)
	}
	second, err := f.svc.BestMove(ctx, startFEN)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !second.Cached || second.MoveSAN != "e4" || second.ScoreCP == nil || *second.ScoreCP != 35 {
		t.Fatalf("second = %+v", second)
	}
	if f.engine.callCount() != 1 {
		t.Fatalf("engine calls = %d, want 1", f.engine.callCount())
	}
}

func TestCoachGroundsPromptInDescription(t *testing.T) {
	f := newFixture(t, false)
	res, err := f.svc.Coach(context.Background(), startFEN, "")
	if err != nil {
		t.Fatalf("Coach: %v", err)
	}
	if res.Explanation != "Take the centre." || res.PlayerColor != "white" || res.BestMove.MoveSAN != "e4" {
		t.Fatalf("result = %+v", res)
	}
	if res.AnalysisID == "" {
		t.Fatal("coach answer not recorded")
	}
	if len(f.llm.prompts) != 1 {
		t.Fatalf("prompts = %d", len(f.llm.prompts))
	}
	p := f.llm.prompts[0]
	for _, want := range []string{startFEN, "White pieces:", "King on e1", "Black pieces:", "best move for white is e4 (e2e4)", "35 centipawns"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
	stored, err := f.svc.Analysis(context.Background(), res.AnalysisID)
	if err != nil || stored.Text != "Take the centre." || stored.PlayerColor != "white" {
		t.Fatalf("Analysis = %+v, %v", stored, err)
	}
}

func TestCoachPlayerColor(t *testing.T) {
	f := newFixture(t, false)
	f.engine.res = uci.Result{Move: "e7e5"}
	res, err := f.svc.Coach(context.Background(), afterE4FEN, "B")
	if err != nil {
		t.Fatalf("Coach: %v", err)
	}
	if res.PlayerColor != "black" || res.BestMove.MoveSAN != "e5" {
		t.Fatalf("result = %+v", res)
	}
	_, err = f.svc.Coach(context.Background(), startFEN, "purple")
	wantCode(t, err, coachdto.CodeInvalidRequest)
}

func TestCoachFinishedGame(t *testing.T) {
	f := newFixture(t, false)
	res, err := f.svc.Coach(context.Background(), foolsMate, "white")
	if err != nil {
		t.Fatalf("Coach: %v", err)
	}
	if !res.BestMove.NoMove || !strings.Contains(f.llm.prompts[0], "checkmate") {
		t.Fatalf("result = %+v prompt = %q", res, f.llm.prompts[0])
	}
}

func TestCoachLLMFailure(t *testing.T) {
	f := newFixture(t, false)
	f.llm.err = &llm.StatusError{Status: 503}
	_, err := f.svc.Coach(context.Background(), startFEN, "white")
	wantCode(t, err, coachdto.CodeLLMUnavailable)

	svc, _ := NewService(f.engine, nil, prompts.MustNew(), nil, nil, Config{}, nil)
	_, err = svc.Coach(context.Background(), startFEN, "white")
	wantCode(t, err, coachdto.CodeLLMUnavailable)
}

func TestAnalyze(t *testing.T) {
	f := newFixture(t, false)
	res, err := f.svc.Analyze(context.Background(), afterE4FEN)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Analysis != "Take the centre." || res.AnalysisID == "" {
		t.Fatalf("result = %+v", res)
	}
	if !strings.Contains(f.llm.prompts[0], "Side to move: black") || !strings.Contains(f.llm.prompts[0], "Pawn on e4") {
		t.Fatalf("prompt = %q", f.llm.prompts[0])
	}
	if f.engine.callCount() != 0 {
		t.Fatal("analyze should not run the engine")
	}
	_, err = f.svc.Analyze(context.Background(), "8/8/8 w - - 0 1")
	wantCode(t, err, coachdto.CodeMalformedPosition)
}

func TestChat(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	if _, err := f.svc.Chat(ctx, "What is a fork?", ""); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if f.llm.prompts[0] != "What is a fork?" {
		t.Fatalf("plain prompt = %q", f.llm.prompts[0])
	}
	if _, err := f.svc.Chat(ctx, "Is my king safe?", startFEN); err != nil {
		t.Fatalf("Chat with fen: %v", err)
	}
	if p := f.llm.prompts[1]; !strings.HasPrefix(p, "The current board position (FEN) is: "+startFEN) || !strings.HasSuffix(p, "Is my king safe?") {
		t.Fatalf("position prompt = %q", p)
	}
	_, err := f.svc.Chat(ctx, "  ", "")
	wantCode(t, err, coachdto.CodeInvalidRequest)
	_, err = f.svc.Chat(ctx, "hi", "garbage")
	wantCode(t, err, coachdto.CodeMalformedPosition)
}

func TestLoadPGN(t *testing.T) {
	f := newFixture(t, false)
	text := "1. f3 e5 2. g4 Qh4# 0-1"
	res, err := f.svc.LoadPGN(context.Background(), text)
	if err != nil {
		t.Fatalf("LoadPGN: %v", err)
	}
	if diff := cmp.Diff([]string{"f3", "e5", "g4", "Qh4#"}, res.SAN); diff != "" {
		t.Fatalf("SAN (-want +got):\n%s", diff)
	}
	if res.FinalFEN != "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3" || res.Status != board.Checkmate || res.PGN != text {
		t.Fatalf("result = %+v", res)
	}
	_, err = f.svc.LoadPGN(context.Background(), "")
	wantCode(t, err, coachdto.CodeInvalidPGN)
}

func TestDescribe(t *testing.T) {
	f := newFixture(t, false)
	got, err := f.svc.Describe("4k3/8/8/8/8/8/8/4K3 w - - 0 1")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if got != "White pieces:\nKing on e1\nBlack pieces:\nKing on e8" {
		t.Fatalf("Describe = %q", got)
	}
	_, err = f.svc.Describe("x")
	wantCode(t, err, coachdto.CodeMalformedPosition)
}

func TestBoardImage(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	png, err := f.svc.BoardImage(ctx, afterE4FEN, "e2e4")
	if err != nil {
		t.Fatalf("BoardImage: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatal("not a PNG")
	}
	again, err := f.svc.BoardImage(ctx, afterE4FEN, "E2E4")
	if err != nil || !bytes.Equal(png, again) {
		t.Fatalf("cached image mismatch: %v", err)
	}
	_, err = f.svc.BoardImage(ctx, afterE4FEN, "z9")
	wantCode(t, err, coachdto.CodeInvalidRequest)
}

func TestHistoryAndAnalysisLookup(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := f.svc.BestMove(ctx, startFEN); err != nil {
			t.Fatalf("BestMove: %v", err)
		}
	}
	items, err := f.svc.History(ctx, 2)
	if err != nil || len(items) != 2 {
		t.Fatalf("History = %d items, %v", len(items), err)
	}
	_, err = f.svc.Analysis(ctx, "not-a-uuid")
	wantCode(t, err, coachdto.CodeInvalidRequest)
	_, err = f.svc.Analysis(ctx, "6f1c2a4e-8d4b-4c55-9a5e-0d7b2f7e9a11")
	wantCode(t, err, coachdto.CodeNotFound)

	bare, _ := NewService(f.engine, nil, prompts.MustNew(), nil, nil, Config{}, nil)
	items, err = bare.History(ctx, 0)
	if err != nil || len(items) != 0 {
		t.Fatalf("History without repo = %v, %v", items, err)
	}
}
