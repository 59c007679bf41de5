package board

import "fmt"

var promotionPieces = []PieceType{Queen, Rook, Bishop, Knight}

// LegalMoves returns every legal move for the side to move. Moves are
// generated per origin square in ascending order, pseudo-legal moves are
// applied to a scratch copy and kept only if the mover's king is safe.
// Check, double-check and checkmate flags are filled in.
func (p *Position) LegalMoves() []Move {
	pseudo := p.pseudoMoves(make([]Move, 0, 48))
	legal := pseudo[:0]
	for _, m := range pseudo {
		next := *p
		next.apply(m)
		if next.IsInCheck(p.Turn) {
			continue
		}
		switch next.checkers(p.Turn) {
		case 0:
		case 1:
			m.Flags |= FlagCheck
		default:
			m.Flags |= FlagCheck | FlagDoubleCheck
		}
		if m.Has(FlagCheck) && !next.hasLegalMove() {
			m.Flags |= FlagCheckmate
		}
		legal = append(legal, m)
	}
	return legal
}

// FindLegal looks m up in the legal set by coordinates and returns the
// generated move, flags included.
func (p *Position) FindLegal(m Move) (Move, bool) {
	for _, lm := range p.LegalMoves() {
		if lm.Same(m) {
			return lm, true
		}
	}
	return Move{}, false
}

// Status is the game state from the point of view of the side to move.
type Status int

const (
	Ongoing Status = iota
	Checkmate
	Stalemate
)

func (s Status) String() string {
	switch s {
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	}
	return "ongoing"
}

// Status derives checkmate and stalemate from the absence of legal moves.
func (p *Position) Status() Status {
	if p.hasLegalMove() {
		return Ongoing
	}
	if p.InCheck() {
		return Checkmate
	}
	return Stalemate
}

func (p *Position) IsCheckmate() bool { return p.Status() == Checkmate }
func (p *Position) IsStalemate() bool { return p.Status() == Stalemate }

// hasLegalMove stops at the first legal move and skips flag computation.
func (p *Position) hasLegalMove() bool {
	for _, m := range p.pseudoMoves(make([]Move, 0, 48)) {
		next := *p
		next.apply(m)
		if !next.IsInCheck(p.Turn) {
			return true
		}
	}
	return false
}

// Perft counts the leaf nodes of the legal move tree to the given depth.
func (p *Position) Perft(depth int) uint64 {
	if depth <= 0 {
		return 1
	}
	var nodes uint64
	for _, m := range p.legalNoFlags() {
		if depth == 1 {
			nodes++
			continue
		}
		nodes += p.Apply(m).Perft(depth - 1)
	}
	return nodes
}

func (p *Position) legalNoFlags() []Move {
	pseudo := p.pseudoMoves(make([]Move, 0, 48))
	legal := pseudo[:0]
	for _, m := range pseudo {
		next := *p
		next.apply(m)
		if !next.IsInCheck(p.Turn) {
			legal = append(legal, m)
		}
	}
	return legal
}

func (p *Position) pseudoMoves(moves []Move) []Move {
	us := p.Turn
	for sq := Square(0); sq < 64; sq++ {
		piece := p.Board[sq]
		if piece == NoPiece || piece.Color() != us {
			continue
		}
		switch piece.Type() {
		case Pawn:
			moves = p.pawnMoves(moves, sq)
		case Knight:
			moves = p.stepMoves(moves, sq, knightOffsets)
		case Bishop:
			moves = p.slideMoves(moves, sq, diagonalOffsets)
		case Rook:
			moves = p.slideMoves(moves, sq, straightOffsets)
		case Queen:
			moves = p.slideMoves(moves, sq, diagonalOffsets)
			moves = p.slideMoves(moves, sq, straightOffsets)
		case King:
			moves = p.stepMoves(moves, sq, kingOffsets)
			moves = p.castleMoves(moves, sq)
		}
	}
	return moves
}

func (p *Position) pawnMoves(moves []Move, from Square) []Move {
	us := p.Turn
	dir, startRank, lastRank := 1, 1, 7
	if us == Black {
		dir, startRank, lastRank = -1, 6, 0
	}

	add := func(to Square, flags MoveFlag) {
		if to.Rank() == lastRank {
			for _, promo := range promotionPieces {
				moves = append(moves, Move{From: from, To: to, Promotion: promo, Flags: flags})
			}
			return
		}
		moves = append(moves, Move{From: from, To: to, Flags: flags})
	}

	one := from.step(offset{0, dir})
	if one != NoSquare && p.Board[one] == NoPiece {
		add(one, 0)
		if from.Rank() == startRank {
			two := one.step(offset{0, dir})
			if p.Board[two] == NoPiece {
				moves = append(moves, Move{From: from, To: two, Flags: FlagDoublePush})
			}
		}
	}

	for _, df := range []int{-1, 1} {
		to := from.step(offset{df, dir})
		if to == NoSquare {
			continue
		}
		target := p.Board[to]
		switch {
		case target != NoPiece && target.Color() != us:
			add(to, FlagCapture)
		case target == NoPiece && to == p.EnPassant && p.Board[NewSquare(to.File(), from.Rank())] == MakePiece(us.Other(), Pawn):
			moves = append(moves, Move{From: from, To: to, Flags: FlagEnPassant})
		}
	}
	return moves
}

func (p *Position) stepMoves(moves []Move, from Square, offsets []offset) []Move {
	for _, o := range offsets {
		to := from.step(o)
		if to == NoSquare {
			continue
		}
		target := p.Board[to]
		switch {
		case target == NoPiece:
			moves = append(moves, Move{From: from, To: to})
		case target.Color() != p.Turn:
			moves = append(moves, Move{From: from, To: to, Flags: FlagCapture})
		}
	}
	return moves
}

func (p *Position) slideMoves(moves []Move, from Square, dirs []offset) []Move {
	for _, d := range dirs {
		for to := from.step(d); to != NoSquare; to = to.step(d) {
			target := p.Board[to]
			if target == NoPiece {
				moves = append(moves, Move{From: from, To: to})
				continue
			}
			if target.Color() != p.Turn {
				moves = append(moves, Move{From: from, To: to, Flags: FlagCapture})
			}
			break
		}
	}
	return moves
}

type castleRule struct {
	right   CastlingRights
	king    Square
	rook    Square
	to      Square
	empty   []Square
	transit []Square
	flag    MoveFlag
}

var castleRules = [2][]castleRule{
	White: {
		{WhiteKingside, E1, H1, G1, []Square{F1, G1}, []Square{F1, G1}, FlagCastleKingside},
		{WhiteQueenside, E1, A1, C1, []Square{B1, C1, D1}, []Square{D1, C1}, FlagCastleQueenside},
	},
	Black: {
		{BlackKingside, E8, H8, G8, []Square{F8, G8}, []Square{F8, G8}, FlagCastleKingside},
		{BlackQueenside, E8, A8, C8, []Square{B8, C8, D8}, []Square{D8, C8}, FlagCastleQueenside},
	},
}

// castleMoves only emits castles whose right is held, whose king and rook
// stand on their home squares, whose intervening squares are empty and
// whose king neither starts in, passes through nor lands on an attacked square.
func (p *Position) castleMoves(moves []Move, from Square) []Move {
	us := p.Turn
	for _, r := range castleRules[us] {
		if !p.Castling.Has(r.right) || from != r.king {
			continue
		}
		if p.Board[r.rook] != MakePiece(us, Rook) {
			continue
		}
		if !p.allEmpty(r.empty) {
			continue
		}
		if p.IsAttacked(from, us.Other()) || p.anyAttacked(r.transit, us.Other()) {
			continue
		}
		moves = append(moves, Move{From: from, To: r.to, Flags: r.flag})
	}
	return moves
}

func (p *Position) allEmpty(squares []Square) bool {
	for _, sq := range squares {
		if p.Board[sq] != NoPiece {
			return false
		}
	}
	return true
}

func (p *Position) anyAttacked(squares []Square, by Color) bool {
	for _, sq := range squares {
		if p.IsAttacked(sq, by) {
			return true
		}
	}
	return false
}

func illegal(m Move) error {
	return fmt.Errorf("%s: %w", m.UCI(), ErrIllegalMove)
}
