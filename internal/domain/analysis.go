package domain

import "time"

// Analysis kinds.
const (
	KindBestMove = "best_move"
	KindCoach    = "coach"
	KindAnalyze  = "analyze"
)

// Analysis is one recorded answer of the coach.
type Analysis struct {
	ID            string
	Kind          string
	FEN           string
	PlayerColor   string
	MoveUCI       string
	MoveSAN       string
	Text          string
	EngineLatency time.Duration
	CreatedAt     time.Time
}
