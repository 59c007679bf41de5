// Package board models a chess position: placement, side to move, castling
// rights, en-passant target and clocks, together with legal move generation
// and check, checkmate and stalemate detection.
package board

import "fmt"

// Color is the colour of a piece or of the side to move.
type Color uint8

const (
	White Color = iota
	Black
)

// Other returns the opposing colour.
func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// PieceType is a kind of piece without colour.
type PieceType uint8

const (
	NoPieceType PieceType = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var pieceNames = [...]string{"", "Pawn", "Knight", "Bishop", "Rook", "Queen", "King"}

// Name returns the English name of the piece type ("Knight").
func (t PieceType) Name() string {
	if int(t) < len(pieceNames) {
		return pieceNames[t]
	}
	return ""
}

// Letter returns the upper-case SAN letter, 'P' for pawns.
func (t PieceType) Letter() byte {
	const letters = " PNBRQK"
	if int(t) < len(letters) {
		return letters[t]
	}
	return '?'
}

func (t PieceType) String() string { return t.Name() }

// PieceTypeFromLetter maps a FEN/UCI letter of either case to a piece type.
func PieceTypeFromLetter(c byte) PieceType {
	switch c {
	case 'p', 'P':
		return Pawn
	case 'n', 'N':
		return Knight
	case 'b', 'B':
		return Bishop
	case 'r', 'R':
		return Rook
	case 'q', 'Q':
		return Queen
	case 'k', 'K':
		return King
	}
	return NoPieceType
}

// Piece is a coloured piece packed into one byte. The zero value is an
// empty square.
type Piece uint8

const NoPiece Piece = 0

const colorShift = 3

// MakePiece combines a colour and a piece type.
func MakePiece(c Color, t PieceType) Piece {
	if t == NoPieceType {
		return NoPiece
	}
	return Piece(uint8(c)<<colorShift | uint8(t))
}

func (p Piece) Type() PieceType { return PieceType(p & 0x7) }
func (p Piece) Color() Color    { return Color(p >> colorShift) }

// FENLetter returns the FEN letter: upper case for white, lower case for black.
func (p Piece) FENLetter() byte {
	l := p.Type().Letter()
	if p.Color() == Black {
		l += 'a' - 'A'
	}
	return l
}

func (p Piece) String() string {
	if p == NoPiece {
		return "empty"
	}
	return p.Color().String() + " " + p.Type().Name()
}

// PieceFromFEN converts a FEN placement letter into a piece.
func PieceFromFEN(c byte) (Piece, bool) {
	t := PieceTypeFromLetter(c)
	if t == NoPieceType {
		return NoPiece, false
	}
	if c >= 'a' && c <= 'z' {
		return MakePiece(Black, t), true
	}
	return MakePiece(White, t), true
}

// Square indexes the board from a1 (0) to h8 (63), rank-major.
type Square int8

const NoSquare Square = -1

// Named squares used by castling.
const (
	A1 Square = 0
	B1 Square = 1
	C1 Square = 2
	D1 Square = 3
	E1 Square = 4
	F1 Square = 5
	G1 Square = 6
	H1 Square = 7
	A8 Square = 56
	B8 Square = 57
	C8 Square = 58
	D8 Square = 59
	E8 Square = 60
	F8 Square = 61
	G8 Square = 62
	H8 Square = 63
)

// NewSquare builds a square from zero-based file and rank.
func NewSquare(file, rank int) Square {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoSquare
	}
	return Square(rank*8 + file)
}

func (s Square) File() int { return int(s) & 7 }
func (s Square) Rank() int { return int(s) >> 3 }

// FileLetter is 'a'..'h'.
func (s Square) FileLetter() byte { return byte('a' + s.File()) }

// RankDigit is '1'..'8'.
func (s Square) RankDigit() byte { return byte('1' + s.Rank()) }

func (s Square) String() string {
	if s < 0 || s > 63 {
		return "-"
	}
	return string([]byte{s.FileLetter(), s.RankDigit()})
}

// ParseSquare parses algebraic square names such as "e4".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return NoSquare, fmt.Errorf("invalid square %q", s)
	}
	return NewSquare(int(s[0]-'a'), int(s[1]-'1')), nil
}

// CastlingRights is a bitmask of the four castling options.
type CastlingRights uint8

const (
	WhiteKingside CastlingRights = 1 << iota
	WhiteQueenside
	BlackKingside
	BlackQueenside

	NoCastling CastlingRights = 0
)

// Has reports whether every right in r is present.
func (c CastlingRights) Has(r CastlingRights) bool { return c&r == r }

func (c CastlingRights) String() string {
	if c == NoCastling {
		return "-"
	}
	var b []byte
	if c.Has(WhiteKingside) {
		b = append(b, 'K')
	}
	if c.Has(WhiteQueenside) {
		b = append(b, 'Q')
	}
	if c.Has(BlackKingside) {
		b = append(b, 'k')
	}
	if c.Has(BlackQueenside) {
		b = append(b, 'q')
	}
	return string(b)
}
