package notation

import (
	"fmt"

	"github.com/park285/chess-coach/internal/board"
)

// LineResult is a replayed sequence of moves.
type LineResult struct {
	SAN      []string
	UCI      []string
	FinalFEN string
	Status   board.Status
}

// Line replays coordinate moves from pos and renders each in SAN. pos is not
// modified. The first illegal or unparsable move stops the replay; its error
// names the ply and wraps board.ErrIllegalMove.
func Line(pos *board.Position, moves []string) (LineResult, error) {
	cur := pos.Clone()
	res := LineResult{
		SAN: make([]string, 0, len(moves)),
		UCI: make([]string, 0, len(moves)),
	}
	for i, s := range moves {
		m, err := board.ParseMove(s)
		if err != nil {
			return LineResult{}, fmt.Errorf("ply %d: %v: %w", i+1, err, board.ErrIllegalMove)
		}
		legal := cur.LegalMoves()
		found := false
		for _, lm := range legal {
			if lm.Same(m) {
				res.SAN = append(res.SAN, san(cur, lm, legal))
				res.UCI = append(res.UCI, lm.UCI())
				cur = cur.Apply(lm)
				found = true
				break
			}
		}
		if !found {
			return LineResult{}, fmt.Errorf("ply %d: %s in %s: %w", i+1, m.UCI(), cur.FEN(), board.ErrIllegalMove)
		}
	}
	res.FinalFEN = cur.FEN()
	res.Status = cur.Status()
	return res, nil
}
