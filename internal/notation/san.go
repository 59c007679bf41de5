// Package notation converts coordinate moves into Standard Algebraic Notation.
package notation

import (
	"fmt"
	"strings"

	"github.com/park285/chess-coach/internal/board"
)

// ToAlgebraic renders m as SAN for pos. m is matched against the legal move
// set by its coordinates; a move outside that set fails with an error
// wrapping board.ErrIllegalMove.
func ToAlgebraic(pos *board.Position, m board.Move) (string, error) {
	legal := pos.LegalMoves()
	for _, lm := range legal {
		if lm.Same(m) {
			return san(pos, lm, legal), nil
		}
	}
	return "", fmt.Errorf("%s in %s: %w", m.UCI(), pos.FEN(), board.ErrIllegalMove)
}

// FromCoordinate parses fen and a coordinate move and renders the move as SAN.
func FromCoordinate(fen, uci string) (string, error) {
	pos, err := board.Parse(fen)
	if err != nil {
		return "", err
	}
	m, err := board.ParseMove(uci)
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, board.ErrIllegalMove)
	}
	return ToAlgebraic(pos, m)
}

func san(pos *board.Position, m board.Move, legal []board.Move) string {
	var b strings.Builder
	switch {
	case m.Has(board.FlagCastleKingside):
		b.WriteString("O-O")
	case m.Has(board.FlagCastleQueenside):
		b.WriteString("O-O-O")
	default:
		piece := pos.At(m.From).Type()
		if piece == board.Pawn {
			if m.IsCapture() {
				b.WriteByte(m.From.FileLetter())
			}
		} else {
			b.WriteByte(piece.Letter())
			b.WriteString(disambiguate(pos, m, piece, legal))
		}
		if m.IsCapture() {
			b.WriteByte('x')
		}
		b.WriteString(m.To.String())
		if m.Promotion != board.NoPieceType {
			b.WriteByte('=')
			b.WriteByte(m.Promotion.Letter())
		}
	}
	switch {
	case m.Has(board.FlagCheckmate):
		b.WriteByte('#')
	case m.Has(board.FlagCheck):
		b.WriteByte('+')
	}
	return b.String()
}

// disambiguate returns the shortest origin qualifier that singles m out among
// legal moves of the same piece type landing on the same square: the file
// when no rival shares it, otherwise the rank when no rival shares that,
// otherwise the full square.
func disambiguate(pos *board.Position, m board.Move, piece board.PieceType, legal []board.Move) string {
	var rivals, sameFile, sameRank int
	for _, o := range legal {
		if o.To != m.To || o.From == m.From || pos.At(o.From).Type() != piece {
			continue
		}
		rivals++
		if o.From.File() == m.From.File() {
			sameFile++
		}
		if o.From.Rank() == m.From.Rank() {
			sameRank++
		}
	}
	switch {
	case rivals == 0:
		return ""
	case sameFile == 0:
		return string(m.From.FileLetter())
	case sameRank == 0:
		return string(m.From.RankDigit())
	}
	return m.From.String()
}
