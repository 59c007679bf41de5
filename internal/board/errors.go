package board

import "errors"

var (
	// ErrMalformedPosition is returned when a FEN string fails structural validation.
	ErrMalformedPosition = errors.New("malformed position")

	// ErrIllegalMove is returned when a move is not a member of the legal move set.
	ErrIllegalMove = errors.New("illegal move")
)
