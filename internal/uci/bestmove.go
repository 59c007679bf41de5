package uci

import (
	"context"
	"fmt"
	"time"
)

const (
	DefaultMoveTime = 500 * time.Millisecond
	ceilingSlack    = 1500 * time.Millisecond
	minCeiling      = 2 * time.Second
)

// DefaultCeiling is the wall-clock limit applied around a search of the given
// movetime: the movetime plus slack for process start-up and output.
func DefaultCeiling(movetime time.Duration) time.Duration {
	c := movetime + ceilingSlack
	if c < minCeiling {
		return minCeiling
	}
	return c
}

// Request describes one best-move query.
type Request struct {
	FEN      string
	MoveTime time.Duration
	// Ceiling bounds the whole session; zero means DefaultCeiling(MoveTime).
	Ceiling time.Duration
}

// BestMove runs a complete session for req: start, handshake, position and
// search under the ceiling, closing the process on every path. An engine
// answer without a move returns the partial Result with ErrNoMoveFound.
func BestMove(ctx context.Context, binaryPath string, req Request, opts ...Option) (Result, error) {
	movetime := req.MoveTime
	if movetime <= 0 {
		movetime = DefaultMoveTime
	}
	ceiling := req.Ceiling
	if ceiling <= 0 {
		ceiling = DefaultCeiling(movetime)
	}
	ctx, cancel := context.WithTimeout(ctx, ceiling)
	defer cancel()

	s := NewSession(binaryPath, opts...)
	defer s.Close()

	if err := s.Start(ctx); err != nil {
		return Result{}, err
	}
	if err := s.Initialize(); err != nil {
		return Result{}, err
	}
	if err := s.SetPosition(req.FEN); err != nil {
		return Result{}, err
	}
	res, err := s.Search(ctx, movetime)
	if err != nil {
		return Result{}, err
	}
	if res.Move == "" {
		return res, &EngineError{Op: "search", State: StateResultReady, Err: fmt.Errorf("%w: %q", ErrNoMoveFound, res.Raw)}
	}
	return res, nil
}
