package uci

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineUnavailable reports that the engine executable could not be launched.
	ErrEngineUnavailable = errors.New("engine unavailable")
	// ErrEngineCrashed reports that the engine's output closed before a bestmove line.
	ErrEngineCrashed = errors.New("engine crashed")
	// ErrNoMoveFound reports a well-formed bestmove line without a move.
	ErrNoMoveFound = errors.New("engine found no move")
	// ErrEngineTimeout reports that the caller's wall-clock ceiling expired.
	ErrEngineTimeout = errors.New("engine timeout")
	// ErrInvalidState reports a call that the session's current state does not allow.
	ErrInvalidState = errors.New("invalid session state")
)

// State is the lifecycle position of a Session.
type State int

const (
	StateIdle State = iota
	StateStarted
	StatePositionSet
	StateSearching
	StateResultReady
	StateClosed
	StateFailed
)

var stateNames = [...]string{"idle", "started", "position-set", "searching", "result-ready", "closed", "failed"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// EngineError wraps a session failure with the operation and the state the
// session was in when it failed.
type EngineError struct {
	Op    string
	State State
	Err   error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("uci %s (%s): %v", e.Op, e.State, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }
