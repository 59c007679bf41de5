package board

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseStartPosition(t *testing.T) {
	pos, err := Parse(StartFEN)
	if err != nil {
		t.Fatalf("Parse(start): %v", err)
	}
	if pos.Turn != White {
		t.Errorf("turn = %v, want white", pos.Turn)
	}
	if pos.Castling != WhiteKingside|WhiteQueenside|BlackKingside|BlackQueenside {
		t.Errorf("castling = %v, want KQkq", pos.Castling)
	}
	if pos.EnPassant != NoSquare {
		t.Errorf("en passant = %v, want none", pos.EnPassant)
	}
	if got := pos.At(E1); got != MakePiece(White, King) {
		t.Errorf("e1 = %v, want white King", got)
	}
	if got := pos.At(D8); got != MakePiece(Black, Queen) {
		t.Errorf("d8 = %v, want black Queen", got)
	}
	if pos.HalfMoveClock != 0 || pos.FullMoveNumber != 1 {
		t.Errorf("clocks = %d/%d, want 0/1", pos.HalfMoveClock, pos.FullMoveNumber)
	}
}

func TestFENRoundTrip(t *testing.T) {
	fens := []string{
		StartFEN,
		"rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6 0 2",
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"4k3/8/8/8/8/8/8/4K3 b - - 37 80",
		"r3k2r/8/8/8/8/8/8/R3K2R b Kq - 3 12",
		"rnbqkbnr/ppp1pppp/8/8/3pP3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 3",
	}
	for _, fen := range fens {
		pos, err := Parse(fen)
		if err != nil {
			t.Fatalf("Parse(%q): %v", fen, err)
		}
		if got := pos.FEN(); got != fen {
			t.Errorf("FEN() = %q, want %q", got, fen)
		}
		back, err := Parse(pos.FEN())
		if err != nil {
			t.Fatalf("re-Parse(%q): %v", pos.FEN(), err)
		}
		if diff := cmp.Diff(pos, back); diff != "" {
			t.Errorf("round trip mismatch for %q (-want +got):\n%s", fen, diff)
		}
	}
}

func TestParseMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":                 "",
		"five fields":           "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0",
		"seven ranks":           "rnbqkbnr/pppppppp/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"short rank":            "rnbqkbnr/ppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"long rank":             "rnbqkbnr/ppppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"digit overflow":        "rnbqkbnr/pppppppp/9/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"consecutive digits":    "rnbqkbnr/pppppppp/44/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"bad piece":             "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKXNR w KQkq - 0 1",
		"bad side":              "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1",
		"bad castling":          "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQxq - 0 1",
		"duplicate castling":    "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KKq - 0 1",
		"bad en passant":        "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq e9 0 1",
		"wrong en passant rank": "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq e3 0 1",
		"negative clock":        "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - -1 1",
		"zero move number":      "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 0",
		"no white king":         "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQQBNR w kq - 0 1",
		"two black kings":       "rnbkkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQ - 0 1",
		"pawn on back rank":     "rnbqkbnP/pppppppp/8/8/8/8/PPPPPPP1/RNBQKBNR w KQkq - 0 1",
		"seventeen pieces":      "rnbqkbnr/pppppppp/8/8/8/N7/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"opponent in check":     "4k3/8/8/8/8/8/8/4QK2 w - - 0 1",
	}
	for name, fen := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(fen)
			if !errors.Is(err, ErrMalformedPosition) {
				t.Fatalf("Parse(%q) err = %v, want ErrMalformedPosition", fen, err)
			}
		})
	}
}

func TestParseMove(t *testing.T) {
	m, err := ParseMove("e7e8Q")
	if err != nil {
		t.Fatalf("ParseMove: %v", err)
	}
	want := Move{From: NewSquare(4, 6), To: NewSquare(4, 7), Promotion: Queen}
	if !m.Same(want) {
		t.Fatalf("ParseMove = %+v, want %+v", m, want)
	}
	if m.UCI() != "e7e8q" {
		t.Fatalf("UCI() = %q, want e7e8q", m.UCI())
	}
	for _, bad := range []string{"", "e2", "e2e", "e2e4e4", "i2e4", "e2e9", "e7e8k"} {
		if _, err := ParseMove(bad); err == nil {
			t.Errorf("ParseMove(%q) succeeded, want error", bad)
		}
	}
}
