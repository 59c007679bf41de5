package coach

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/park285/chess-coach/internal/prompts"
	"github.com/park285/chess-coach/internal/uci"
)

const fakeEngineEnv = "COACH_FAKE_ENGINE"

// TestMain doubles as a scripted UCI engine when fakeEngineEnv is set.
func TestMain(m *testing.M) {
	if mode := os.Getenv(fakeEngineEnv); mode != "" {
		os.Exit(runFakeEngine(mode))
	}
	os.Exit(m.Run())
}

func runFakeEngine(mode string) int {
	out := bufio.NewWriter(os.Stdout)
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		cmd := sc.Text()
		switch {
		case cmd == "quit":
			return 0
		case strings.HasPrefix(cmd, "go"):
			switch mode {
			case "knight":
				fmt.Fprintln(out, "info depth 9 score cp 18 pv g1f3 d7d5")
				fmt.Fprintln(out, "bestmove g1f3 ponder d7d5")
			case "none":
				fmt.Fprintln(out, "bestmove (none)")
			case "exit":
				return 1
			}
			out.Flush()
		}
	}
	return 0
}

func fakeStockfish(t *testing.T, mode string) *StockfishEngine {
	t.Helper()
	e, err := NewStockfishEngine(EngineConfig{
		BinaryPath: os.Args[0],
		Ceiling:    5 * time.Second,
		Threads:    1,
		Env:        []string{fakeEngineEnv + "=" + mode},
	}, nil)
	if err != nil {
		t.Fatalf("NewStockfishEngine: %v", err)
	}
	return e
}

func TestStockfishEngineBestMove(t *testing.T) {
	e := fakeStockfish(t, "knight")
	res, err := e.BestMove(context.Background(), startFEN, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("BestMove: %v", err)
	}
	if res.Move != "g1f3" || res.Ponder != "d7d5" || res.Info.ScoreCP != 18 {
		t.Fatalf("result = %+v", res)
	}
}

func TestStockfishEngineFailures(t *testing.T) {
	if _, err := fakeStockfish(t, "none").BestMove(context.Background(), startFEN, 20*time.Millisecond); !errors.Is(err, uci.ErrNoMoveFound) {
		t.Fatalf("none: err = %v, want ErrNoMoveFound", err)
	}
	if _, err := fakeStockfish(t, "exit").BestMove(context.Background(), startFEN, 20*time.Millisecond); !errors.Is(err, uci.ErrEngineCrashed) {
		t.Fatalf("exit: err = %v, want ErrEngineCrashed", err)
	}
}

func TestNewStockfishEngineMissingBinary(t *testing.T) {
	for _, path := range []string{"", "/nonexistent/stockfish"} {
		if _, err := NewStockfishEngine(EngineConfig{BinaryPath: path}, nil); !errors.Is(err, uci.ErrEngineUnavailable) {
			t.Fatalf("path %q: err = %v, want ErrEngineUnavailable", path, err)
		}
	}
}

// TestServiceWithProcessEngine runs the whole best-move path through a real
// child process.
func TestServiceWithProcessEngine(t *testing.T) {
	svc, err := NewService(fakeStockfish(t, "knight"), nil, prompts.MustNew(), nil, nil, Config{MoveTime: 20 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	res, err := svc.BestMove(context.Background(), startFEN)
	if err != nil {
		t.Fatalf("BestMove: %v", err)
	}
	if res.MoveSAN != "Nf3" || res.Ponder != "d7d5" {
		t.Fatalf("result = %+v", res)
	}
}
