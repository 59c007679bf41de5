package coachdto

import "time"

// BestMoveResponse keeps the original "best_move" (SAN) field and adds the
// engine details beside it.
type BestMoveResponse struct {
	BestMove string `json:"best_move"`
	UCI      string `json:"uci,omitempty"`
	Ponder   string `json:"ponder,omitempty"`
	ScoreCP  *int   `json:"score_cp,omitempty"`
	Mate     *int   `json:"mate,omitempty"`
	Depth    int    `json:"depth,omitempty"`
	NoMove   bool   `json:"no_move,omitempty"`
	Cached   bool   `json:"cached,omitempty"`
	TookMS   int64  `json:"took_ms"`
}

type CoachResponse struct {
	BestMove    string `json:"best_move"`
	UCI         string `json:"uci,omitempty"`
	Explanation string `json:"explanation"`
	AnalysisID  string `json:"analysis_id,omitempty"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

type AnalyzeResponse struct {
	Analysis   string `json:"analysis"`
	AnalysisID string `json:"analysis_id,omitempty"`
}

type PGNResponse struct {
	Moves    []string `json:"moves"`
	MovesUCI []string `json:"moves_uci"`
	FinalFEN string   `json:"final_fen"`
	Status   string   `json:"status"`
	PGN      string   `json:"pgn"`
}

type DescribeResponse struct {
	Description string `json:"description"`
}

type Analysis struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	FEN         string    `json:"fen"`
	PlayerColor string    `json:"player_color,omitempty"`
	MoveUCI     string    `json:"move_uci,omitempty"`
	MoveSAN     string    `json:"move_san,omitempty"`
	Text        string    `json:"text,omitempty"`
	EngineMS    int64     `json:"engine_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

type HistoryResponse struct {
	Items []Analysis `json:"items"`
}

type ErrorResponse struct {
	Code      string `json:"code"`
	Detail    string `json:"detail"`
	Retryable bool   `json:"retryable,omitempty"`
}
