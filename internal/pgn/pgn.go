// Package pgn extracts the starting position and mainline moves of a PGN game.
package pgn

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

var ErrInvalidPGN = errors.New("invalid PGN")

// Game is the part of a PGN record the coach consumes.
type Game struct {
	StartFEN string
	// Moves is the mainline in coordinate notation.
	Moves []string
}

// ReadMoves parses the first game in text. Variations and comments are
// dropped; only the mainline survives.
func ReadMoves(text string) (Game, error) {
	if strings.TrimSpace(text) == "" {
		return Game{}, fmt.Errorf("%w: empty input", ErrInvalidPGN)
	}
	opt, err := nchess.PGN(strings.NewReader(text))
	if err != nil {
		return Game{}, fmt.Errorf("%w: %w", ErrInvalidPGN, err)
	}
	game := nchess.NewGame(opt)
	positions := game.Positions()
	if len(positions) == 0 {
		return Game{}, fmt.Errorf("%w: no position", ErrInvalidPGN)
	}

	moves := game.Moves()
	out := Game{StartFEN: positions[0].String(), Moves: make([]string, 0, len(moves))}
	uci := nchess.UCINotation{}
	for i, mv := range moves {
		if i >= len(positions) {
			break
		}
		out.Moves = append(out.Moves, strings.ToLower(uci.Encode(positions[i], mv)))
	}
	return out, nil
}
