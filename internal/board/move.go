package board

import "fmt"

// MoveFlag records properties of a move derived during generation.
type MoveFlag uint16

const (
	FlagCapture MoveFlag = 1 << iota
	FlagEnPassant
	FlagDoublePush
	FlagCastleKingside
	FlagCastleQueenside
	FlagCheck
	FlagDoubleCheck
	FlagCheckmate
)

// Move is a coordinate move. Flags are only populated on moves returned by
// LegalMoves; a Move parsed from UCI text carries none.
type Move struct {
	From      Square
	To        Square
	Promotion PieceType
	Flags     MoveFlag
}

func (m Move) Has(f MoveFlag) bool { return m.Flags&f != 0 }

// IsCapture includes en-passant captures.
func (m Move) IsCapture() bool { return m.Has(FlagCapture | FlagEnPassant) }

func (m Move) IsCastle() bool { return m.Has(FlagCastleKingside | FlagCastleQueenside) }

// Same reports whether two moves have the same coordinates, ignoring flags.
func (m Move) Same(o Move) bool {
	return m.From == o.From && m.To == o.To && m.Promotion == o.Promotion
}

// UCI renders the move in coordinate notation, e.g. "e7e8q".
func (m Move) UCI() string {
	s := m.From.String() + m.To.String()
	if m.Promotion != NoPieceType {
		s += string(m.Promotion.Letter() + ('a' - 'A'))
	}
	return s
}

func (m Move) String() string { return m.UCI() }

// ParseMove parses a four or five character coordinate move.
func ParseMove(s string) (Move, error) {
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("coordinate move %q must have 4 or 5 characters", s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return Move{}, fmt.Errorf("coordinate move %q: %w", s, err)
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return Move{}, fmt.Errorf("coordinate move %q: %w", s, err)
	}
	m := Move{From: from, To: to}
	if len(s) == 5 {
		switch s[4] {
		case 'q', 'Q':
			m.Promotion = Queen
		case 'r', 'R':
			m.Promotion = Rook
		case 'b', 'B':
			m.Promotion = Bishop
		case 'n', 'N':
			m.Promotion = Knight
		default:
			return Move{}, fmt.Errorf("coordinate move %q: invalid promotion piece %q", s, s[4])
		}
	}
	return m, nil
}
