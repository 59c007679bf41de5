package board

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

const maxPiecesPerSide = 16

// Parse builds a Position from a six-field FEN string. Structural invariants
// are checked (one king per side, no pawns on the back ranks, at most sixteen
// pieces per side, exactly eight squares per rank, the side not to move is
// not in check); reachability is not.
func Parse(fen string) (*Position, error) {
	fields := strings.Fields(fen)
	if len(fields) != 6 {
		return nil, fmt.Errorf("expected 6 fields, got %d: %w", len(fields), ErrMalformedPosition)
	}

	pos := &Position{EnPassant: NoSquare}
	if err := parsePlacement(pos, fields[0]); err != nil {
		return nil, err
	}

	switch fields[1] {
	case "w":
		pos.Turn = White
	case "b":
		pos.Turn = Black
	default:
		return nil, fmt.Errorf("invalid side to move %q: %w", fields[1], ErrMalformedPosition)
	}

	castling, err := parseCastling(fields[2])
	if err != nil {
		return nil, err
	}
	pos.Castling = castling

	ep, err := parseEnPassant(fields[3], pos.Turn)
	if err != nil {
		return nil, err
	}
	pos.EnPassant = ep

	half, err := strconv.Atoi(fields[4])
	if err != nil || half < 0 {
		return nil, fmt.Errorf("invalid half-move clock %q: %w", fields[4], ErrMalformedPosition)
	}
	pos.HalfMoveClock = half

	full, err := strconv.Atoi(fields[5])
	if err != nil || full < 1 {
		return nil, fmt.Errorf("invalid full-move number %q: %w", fields[5], ErrMalformedPosition)
	}
	pos.FullMoveNumber = full

	if err := validate(pos); err != nil {
		return nil, err
	}
	return pos, nil
}

// MustParse is Parse for known-good literals; it panics on error.
func MustParse(fen string) *Position {
	pos, err := Parse(fen)
	if err != nil {
		panic(err)
	}
	return pos
}

func parsePlacement(pos *Position, placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("expected 8 ranks, got %d: %w", len(ranks), ErrMalformedPosition)
	}
	for i, row := range ranks {
		rank := 7 - i
		file := 0
		prevDigit := false
		for j := 0; j < len(row); j++ {
			c := row[j]
			if c >= '1' && c <= '8' {
				if prevDigit {
					return fmt.Errorf("consecutive digits in rank %d: %w", rank+1, ErrMalformedPosition)
				}
				prevDigit = true
				file += int(c - '0')
				continue
			}
			prevDigit = false
			piece, ok := PieceFromFEN(c)
			if !ok {
				return fmt.Errorf("invalid piece character %q: %w", c, ErrMalformedPosition)
			}
			if file > 7 {
				return fmt.Errorf("rank %d has more than 8 squares: %w", rank+1, ErrMalformedPosition)
			}
			pos.Board[NewSquare(file, rank)] = piece
			file++
		}
		if file != 8 {
			return fmt.Errorf("rank %d describes %d squares: %w", rank+1, file, ErrMalformedPosition)
		}
	}
	return nil
}

func parseCastling(field string) (CastlingRights, error) {
	if field == "-" {
		return NoCastling, nil
	}
	var rights CastlingRights
	for i := 0; i < len(field); i++ {
		var r CastlingRights
		switch field[i] {
		case 'K':
			r = WhiteKingside
		case 'Q':
			r = WhiteQueenside
		case 'k':
			r = BlackKingside
		case 'q':
			r = BlackQueenside
		default:
			return 0, fmt.Errorf("invalid castling field %q: %w", field, ErrMalformedPosition)
		}
		if rights.Has(r) {
			return 0, fmt.Errorf("duplicate castling right in %q: %w", field, ErrMalformedPosition)
		}
		rights |= r
	}
	return rights, nil
}

func parseEnPassant(field string, turn Color) (Square, error) {
	if field == "-" {
		return NoSquare, nil
	}
	sq, err := ParseSquare(field)
	if err != nil {
		return NoSquare, fmt.Errorf("invalid en-passant square %q: %w", field, ErrMalformedPosition)
	}
	// The target lies behind a pawn that just advanced two squares.
	want := 5
	if turn == Black {
		want = 2
	}
	if sq.Rank() != want {
		return NoSquare, fmt.Errorf("en-passant square %s impossible with %s to move: %w", sq, turn, ErrMalformedPosition)
	}
	return sq, nil
}

func validate(pos *Position) error {
	var kings, pieces [2]int
	for sq := Square(0); sq < 64; sq++ {
		p := pos.Board[sq]
		if p == NoPiece {
			continue
		}
		pieces[p.Color()]++
		switch p.Type() {
		case King:
			kings[p.Color()]++
		case Pawn:
			if sq.Rank() == 0 || sq.Rank() == 7 {
				return fmt.Errorf("pawn on back rank %s: %w", sq, ErrMalformedPosition)
			}
		}
	}
	for _, c := range []Color{White, Black} {
		if kings[c] != 1 {
			return fmt.Errorf("%s has %d kings: %w", c, kings[c], ErrMalformedPosition)
		}
		if pieces[c] > maxPiecesPerSide {
			return fmt.Errorf("%s has %d pieces: %w", c, pieces[c], ErrMalformedPosition)
		}
	}
	if pos.IsInCheck(pos.Turn.Other()) {
		return fmt.Errorf("%s is in check with %s to move: %w", pos.Turn.Other(), pos.Turn, ErrMalformedPosition)
	}
	return nil
}

// FEN renders the position back into the six-field notation accepted by Parse.
func (p *Position) FEN() string {
	var b strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			piece := p.Board[NewSquare(file, rank)]
			if piece == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				b.WriteByte(byte('0' + empty))
				empty = 0
			}
			b.WriteByte(piece.FENLetter())
		}
		if empty > 0 {
			b.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			b.WriteByte('/')
		}
	}

	turn := "w"
	if p.Turn == Black {
		turn = "b"
	}
	fmt.Fprintf(&b, " %s %s %s %d %d", turn, p.Castling, p.EnPassant, p.HalfMoveClock, p.FullMoveNumber)
	return b.String()
}
