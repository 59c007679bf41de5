// Package uci drives one external UCI engine process per request: launch,
// handshake, position, a bounded search and teardown.
package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

type setOption struct {
	name  string
	value string
}

type config struct {
	logger  *zap.Logger
	env     []string
	options []setOption
}

// Option configures a Session.
type Option func(*config)

// WithLogger sets the session logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithEnv appends KEY=VALUE pairs to the engine's inherited environment.
func WithEnv(kv ...string) Option {
	return func(c *config) { c.env = append(c.env, kv...) }
}

// WithSetOption sends "setoption name <name> value <value>" after the handshake.
func WithSetOption(name, value string) Option {
	return func(c *config) { c.options = append(c.options, setOption{name: name, value: value}) }
}

// Session owns one engine process. It is not reused: create one per request
// and always Close it.
type Session struct {
	binaryPath string
	cfg        config

	mu     sync.Mutex
	state  State
	fen    string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan string
	done   chan struct{}
	closed bool
}

// Result is the outcome of one search. Move is empty when the engine
// answered without a move.
type Result struct {
	Move   string
	Ponder string
	Info   Info
	Raw    string
}

func NewSession(binaryPath string, opts ...Option) *Session {
	cfg := config{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Session{binaryPath: binaryPath, cfg: cfg, state: StateIdle}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// FEN returns the position handed to SetPosition.
func (s *Session) FEN() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fen
}

// Start launches the engine with stdin and stdout piped and stderr
// discarded. The process is also killed when ctx ends.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return s.errLocked("start", ErrInvalidState)
	}

	cmd := exec.CommandContext(ctx, s.binaryPath)
	if len(s.cfg.env) > 0 {
		cmd.Env = append(os.Environ(), s.cfg.env...)
	}
	cmd.Stderr = nil
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return s.errLocked("start", fmt.Errorf("%w: stdin pipe: %w", ErrEngineUnavailable, err))
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return s.errLocked("start", fmt.Errorf("%w: stdout pipe: %w", ErrEngineUnavailable, err))
	}
	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		s.cfg.logger.Warn("engine_launch_failed", zap.String("path", s.binaryPath), zap.Error(err))
		return s.errLocked("start", fmt.Errorf("%w: %w", ErrEngineUnavailable, err))
	}

	s.cmd = cmd
	s.stdin = stdin
	s.lines = make(chan string, 64)
	s.done = make(chan struct{})
	s.state = StateStarted
	go pump(stdout, s.lines, s.done)

	s.cfg.logger.Debug("engine_started", zap.String("path", s.binaryPath), zap.Int("pid", cmd.Process.Pid))
	return nil
}

// pump forwards trimmed stdout lines until the pipe closes or the session
// is torn down; lines is closed on exit so readers observe end-of-stream.
func pump(r io.Reader, lines chan<- string, done <-chan struct{}) {
	defer close(lines)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		select {
		case lines <- strings.TrimSpace(sc.Text()):
		case <-done:
			return
		}
	}
}

// Initialize sends the handshake and any configured options. It does not
// wait for uciok.
func (s *Session) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateStarted {
		return s.errLocked("initialize", ErrInvalidState)
	}
	if err := s.sendLocked("uci"); err != nil {
		return s.errLocked("initialize", err)
	}
	for _, o := range s.cfg.options {
		if err := s.sendLocked("setoption name " + o.name + " value " + o.value); err != nil {
			return s.errLocked("initialize", err)
		}
	}
	return nil
}

// SetPosition sends the FEN verbatim; validation is the caller's concern.
func (s *Session) SetPosition(fen string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateStarted && s.state != StatePositionSet {
		return s.errLocked("position", ErrInvalidState)
	}
	if err := s.sendLocked("position fen " + fen); err != nil {
		return s.errLocked("position", err)
	}
	s.fen = fen
	s.state = StatePositionSet
	return nil
}

// Search asks for a fixed-time search and reads until a bestmove line.
// Blank lines are skipped and info lines are parsed. Search has no timeout
// of its own; ctx is the ceiling, and its deadline is reported as
// ErrEngineTimeout.
func (s *Session) Search(ctx context.Context, movetime time.Duration) (Result, error) {
	s.mu.Lock()
	if s.state != StatePositionSet {
		err := s.errLocked("search", ErrInvalidState)
		s.mu.Unlock()
		return Result{}, err
	}
	ms := movetime.Milliseconds()
	if ms <= 0 {
		ms = 1
	}
	if err := s.sendLocked("go movetime " + strconv.FormatInt(ms, 10)); err != nil {
		err = s.errLocked("search", err)
		s.mu.Unlock()
		return Result{}, err
	}
	s.state = StateSearching
	lines := s.lines
	s.mu.Unlock()

	var last Info
	for {
		select {
		case <-ctx.Done():
			return Result{}, s.fail("search", ctxError(ctx))
		case line, ok := <-lines:
			if !ok {
				// A context-bound kill also closes the stream.
				if ctx.Err() != nil {
					return Result{}, s.fail("search", ctxError(ctx))
				}
				return Result{}, s.fail("search", ErrEngineCrashed)
			}
			switch {
			case line == "":
				continue
			case strings.HasPrefix(line, "info"):
				if info, ok := parseInfo(line); ok {
					last = info
				}
			case strings.HasPrefix(line, "bestmove"):
				move, ponder := parseBestMove(line)
				s.mu.Lock()
				s.state = StateResultReady
				s.mu.Unlock()
				return Result{Move: SanitizeMove(move), Ponder: SanitizeMove(ponder), Info: last, Raw: line}, nil
			}
		}
	}
}

// Close sends quit, then kills and reaps the process regardless of the
// reply. It is safe to call more than once and on a session never started.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	prev := s.state
	s.state = StateClosed
	if s.cmd == nil {
		return nil
	}

	_ = s.sendLocked("quit")
	_ = s.stdin.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	err := s.cmd.Wait()
	close(s.done)

	s.cfg.logger.Debug("engine_closed",
		zap.String("path", s.binaryPath),
		zap.Stringer("from_state", prev),
		zap.NamedError("wait", err),
	)
	return nil
}

// Terminated reports whether the process has been reaped.
func (s *Session) Terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil && s.cmd.ProcessState != nil
}

func (s *Session) sendLocked(line string) error {
	if _, err := io.WriteString(s.stdin, line+"\n"); err != nil {
		return fmt.Errorf("%w: write %q: %w", ErrEngineCrashed, line, err)
	}
	return nil
}

func (s *Session) errLocked(op string, err error) error {
	e := &EngineError{Op: op, State: s.state, Err: err}
	if s.state != StateClosed {
		s.state = StateFailed
	}
	if !errors.Is(err, ErrInvalidState) {
		s.cfg.logger.Warn("engine_failure",
			zap.String("op", op),
			zap.Stringer("state", e.State),
			zap.String("fen", s.fen),
			zap.Error(err),
		)
	}
	return e
}

func (s *Session) fail(op string, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errLocked(op, err)
}

func ctxError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrEngineTimeout, ctx.Err())
	}
	return ctx.Err()
}
