package board

type offset struct{ df, dr int }

var (
	knightOffsets   = []offset{{-2, -1}, {-2, 1}, {-1, -2}, {-1, 2}, {1, -2}, {1, 2}, {2, -1}, {2, 1}}
	kingOffsets     = []offset{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}
	diagonalOffsets = []offset{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
	straightOffsets = []offset{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
)

func (s Square) step(o offset) Square {
	return NewSquare(s.File()+o.df, s.Rank()+o.dr)
}

// IsInCheck reports whether the king of the given side is attacked.
func (p *Position) IsInCheck(side Color) bool {
	king := p.KingSquare(side)
	if king == NoSquare {
		return false
	}
	return p.attackers(king, side.Other(), 1) > 0
}

// InCheck reports whether the side to move is in check.
func (p *Position) InCheck() bool { return p.IsInCheck(p.Turn) }

// IsAttacked reports whether sq is attacked by any piece of colour by.
func (p *Position) IsAttacked(sq Square, by Color) bool {
	return p.attackers(sq, by, 1) > 0
}

// checkers counts the pieces of colour by attacking the king of the other side.
func (p *Position) checkers(by Color) int {
	king := p.KingSquare(by.Other())
	if king == NoSquare {
		return 0
	}
	return p.attackers(king, by, 2)
}

// attackers counts pieces of colour by attacking sq, stopping once limit is reached.
func (p *Position) attackers(sq Square, by Color, limit int) int {
	n := 0

	// A pawn of colour by attacks sq from one rank behind it, relative to by.
	pawnRank := -1
	if by == Black {
		pawnRank = 1
	}
	pawn := MakePiece(by, Pawn)
	for _, df := range []int{-1, 1} {
		if p.At(sq.step(offset{df, pawnRank})) == pawn {
			if n++; n >= limit {
				return n
			}
		}
	}

	knight := MakePiece(by, Knight)
	for _, o := range knightOffsets {
		if p.At(sq.step(o)) == knight {
			if n++; n >= limit {
				return n
			}
		}
	}

	king := MakePiece(by, King)
	for _, o := range kingOffsets {
		if p.At(sq.step(o)) == king {
			if n++; n >= limit {
				return n
			}
		}
	}

	queen := MakePiece(by, Queen)
	n += p.sliderAttackers(sq, diagonalOffsets, MakePiece(by, Bishop), queen, limit-n)
	if n >= limit {
		return n
	}
	n += p.sliderAttackers(sq, straightOffsets, MakePiece(by, Rook), queen, limit-n)
	return n
}

func (p *Position) sliderAttackers(sq Square, dirs []offset, slider, queen Piece, limit int) int {
	n := 0
	for _, d := range dirs {
		for t := sq.step(d); t != NoSquare; t = t.step(d) {
			piece := p.Board[t]
			if piece == NoPiece {
				continue
			}
			if piece == slider || piece == queen {
				if n++; n >= limit {
					return n
				}
			}
			break
		}
	}
	return n
}
