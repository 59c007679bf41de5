package coachdto

import "errors"

// Error codes carried by DomainError.
const (
	CodeInvalidRequest    = "invalid_request"
	CodeMalformedPosition = "malformed_position"
	CodeIllegalMove       = "illegal_move"
	CodeInvalidPGN        = "invalid_pgn"
	CodeEngineUnavailable = "engine_unavailable"
	CodeEngineCrashed     = "engine_crashed"
	CodeEngineTimeout     = "engine_timeout"
	CodeEngineBadMove     = "engine_bad_move"
	CodeLLMUnavailable    = "llm_unavailable"
	CodeNotFound          = "not_found"
	CodeInternal          = "internal"
)

type DomainError struct {
	Code      string
	Message   string
	Retryable bool
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "coach service error"
}

// AsDomainError extracts a DomainError from err's chain.
func AsDomainError(err error) (DomainError, bool) {
	var de DomainError
	if errors.As(err, &de) {
		return de, true
	}
	var pde *DomainError
	if errors.As(err, &pde) && pde != nil {
		return *pde, true
	}
	return DomainError{}, false
}
