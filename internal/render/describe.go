// Package render turns positions into the artefacts handed to people and
// language models: a plain-text inventory of the board and a PNG diagram.
package render

import (
	"strings"

	"github.com/park285/chess-coach/internal/board"
)

const nonePlaceholder = "(none)"

// Describe lists every piece of pos, white first, one "<Piece> on <square>"
// line per piece in ascending square order (a1, b1, ... h8). A side without
// pieces gets a "(none)" line. The output is the only board fact base given
// to the language model, so it is derived from the placement alone.
func Describe(pos *board.Position) string {
	var b strings.Builder
	for i, side := range []board.Color{board.White, board.Black} {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(sideHeader(side))
		n := 0
		for sq := board.Square(0); sq < 64; sq++ {
			p := pos.At(sq)
			if p == board.NoPiece || p.Color() != side {
				continue
			}
			b.WriteByte('\n')
			b.WriteString(p.Type().Name())
			b.WriteString(" on ")
			b.WriteString(sq.String())
			n++
		}
		if n == 0 {
			b.WriteByte('\n')
			b.WriteString(nonePlaceholder)
		}
	}
	return b.String()
}

// DescribeFEN parses fen and describes it.
func DescribeFEN(fen string) (string, error) {
	pos, err := board.Parse(fen)
	if err != nil {
		return "", err
	}
	return Describe(pos), nil
}

func sideHeader(c board.Color) string {
	if c == board.White {
		return "White pieces:"
	}
	return "Black pieces:"
}
