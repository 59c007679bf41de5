package coachdto

type MoveRequest struct {
	FEN string `json:"fen"`
}

type CoachRequest struct {
	FEN         string `json:"fen"`
	PlayerColor string `json:"player_color,omitempty"`
}

type ChatRequest struct {
	Message string `json:"message"`
	FEN     string `json:"fen,omitempty"`
}

type AnalyzeRequest struct {
	FEN string `json:"fen"`
}

type PGNRequest struct {
	PGN string `json:"pgn"`
}

type DescribeRequest struct {
	FEN string `json:"fen"`
}
