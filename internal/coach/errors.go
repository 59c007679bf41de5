package coach

import (
	"context"
	"errors"
	"fmt"

	"github.com/park285/chess-coach/internal/board"
	"github.com/park285/chess-coach/internal/history"
	"github.com/park285/chess-coach/internal/llm"
	"github.com/park285/chess-coach/internal/pgn"
	"github.com/park285/chess-coach/internal/uci"
	"github.com/park285/chess-coach/pkg/coachdto"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrLLMUnavailable = errors.New("language model not configured")
	// ErrEngineBadMove reports an engine answer that is not legal in the
	// position it was asked about.
	ErrEngineBadMove = errors.New("engine returned an illegal move")
)

// domainError wraps err with the DomainError describing it to clients. The
// original error stays in the chain for errors.Is.
func domainError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := coachdto.AsDomainError(err); ok {
		return err
	}
	de := classify(err)
	return fmt.Errorf("%w: %w", de, err)
}

func classify(err error) coachdto.DomainError {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return coachdto.DomainError{Code: coachdto.CodeInvalidRequest, Message: err.Error()}
	case errors.Is(err, board.ErrMalformedPosition):
		return coachdto.DomainError{Code: coachdto.CodeMalformedPosition, Message: err.Error()}
	case errors.Is(err, ErrEngineBadMove):
		return coachdto.DomainError{Code: coachdto.CodeEngineBadMove, Message: "engine returned an illegal move", Retryable: true}
	case errors.Is(err, board.ErrIllegalMove):
		return coachdto.DomainError{Code: coachdto.CodeIllegalMove, Message: err.Error()}
	case errors.Is(err, pgn.ErrInvalidPGN):
		return coachdto.DomainError{Code: coachdto.CodeInvalidPGN, Message: "Invalid PGN format."}
	case errors.Is(err, uci.ErrEngineTimeout), errors.Is(err, context.DeadlineExceeded):
		return coachdto.DomainError{Code: coachdto.CodeEngineTimeout, Message: "engine did not answer in time", Retryable: true}
	case errors.Is(err, uci.ErrEngineUnavailable):
		return coachdto.DomainError{Code: coachdto.CodeEngineUnavailable, Message: "engine unavailable"}
	case errors.Is(err, uci.ErrEngineCrashed):
		return coachdto.DomainError{Code: coachdto.CodeEngineCrashed, Message: "engine stopped unexpectedly", Retryable: true}
	case errors.Is(err, ErrLLMUnavailable), errors.Is(err, llm.ErrUnavailable), errors.Is(err, llm.ErrEmptyReply):
		return coachdto.DomainError{Code: coachdto.CodeLLMUnavailable, Message: "language model unavailable", Retryable: true}
	case errors.Is(err, history.ErrNotFound):
		return coachdto.DomainError{Code: coachdto.CodeNotFound, Message: "analysis not found"}
	default:
		return coachdto.DomainError{Code: coachdto.CodeInternal, Message: "internal error"}
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidRequest}, args...)...)
}
