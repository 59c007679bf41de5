package board

// Position is one chess position. It has value semantics: assigning a
// Position copies the whole board, which is how scratch copies are made.
type Position struct {
	Board          [64]Piece
	Turn           Color
	Castling       CastlingRights
	EnPassant      Square
	HalfMoveClock  int
	FullMoveNumber int
}

// Clone returns an independent copy.
func (p *Position) Clone() *Position {
	c := *p
	return &c
}

// At returns the piece on sq, or NoPiece.
func (p *Position) At(sq Square) Piece {
	if sq < 0 || sq > 63 {
		return NoPiece
	}
	return p.Board[sq]
}

// KingSquare returns the square of the king of colour c, or NoSquare.
func (p *Position) KingSquare(c Color) Square {
	king := MakePiece(c, King)
	for sq := Square(0); sq < 64; sq++ {
		if p.Board[sq] == king {
			return sq
		}
	}
	return NoSquare
}

// Apply returns the position after m. m must come from LegalMoves (or at
// least be pseudo-legal); Apply does not validate it.
func (p *Position) Apply(m Move) *Position {
	next := p.Clone()
	next.apply(m)
	return next
}

// Play validates m against the legal move set and returns the successor.
func (p *Position) Play(m Move) (*Position, error) {
	legal, ok := p.FindLegal(m)
	if !ok {
		return nil, illegal(m)
	}
	return p.Apply(legal), nil
}

func (p *Position) apply(m Move) {
	mover := p.Board[m.From]
	captured := p.Board[m.To]
	us := mover.Color()

	p.Board[m.From] = NoPiece
	p.Board[m.To] = mover

	switch {
	case mover.Type() == Pawn && m.To == p.EnPassant && m.From.File() != m.To.File() && captured == NoPiece:
		// The captured pawn sits beside the origin, not on the target.
		p.Board[NewSquare(m.To.File(), m.From.Rank())] = NoPiece
	case mover.Type() == King && m.From.File() == 4 && m.To.File() == 6:
		rank := m.From.Rank()
		p.Board[NewSquare(5, rank)] = p.Board[NewSquare(7, rank)]
		p.Board[NewSquare(7, rank)] = NoPiece
	case mover.Type() == King && m.From.File() == 4 && m.To.File() == 2:
		rank := m.From.Rank()
		p.Board[NewSquare(3, rank)] = p.Board[NewSquare(0, rank)]
		p.Board[NewSquare(0, rank)] = NoPiece
	}

	if m.Promotion != NoPieceType {
		p.Board[m.To] = MakePiece(us, m.Promotion)
	}

	p.EnPassant = NoSquare
	if mover.Type() == Pawn && abs(m.To.Rank()-m.From.Rank()) == 2 {
		p.EnPassant = NewSquare(m.From.File(), (m.From.Rank()+m.To.Rank())/2)
	}

	if mover.Type() == King {
		if us == White {
			p.Castling &^= WhiteKingside | WhiteQueenside
		} else {
			p.Castling &^= BlackKingside | BlackQueenside
		}
	}
	p.Castling &^= rookRight(m.From) | rookRight(m.To)

	if mover.Type() == Pawn || captured != NoPiece {
		p.HalfMoveClock = 0
	} else {
		p.HalfMoveClock++
	}
	if us == Black {
		p.FullMoveNumber++
	}
	p.Turn = us.Other()
}

// rookRight maps a rook home square to the castling right it guards.
func rookRight(sq Square) CastlingRights {
	switch sq {
	case H1:
		return WhiteKingside
	case A1:
		return WhiteQueenside
	case H8:
		return BlackKingside
	case A8:
		return BlackQueenside
	}
	return NoCastling
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
