// Package cache keeps engine answers and rendered boards in redis so repeated
// requests for the same position skip the engine process.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultTTL = time.Hour

// BestMove is the cached form of one engine answer.
type BestMove struct {
	MoveUCI string `json:"move_uci"`
	MoveSAN string `json:"move_san"`
	Ponder  string `json:"ponder,omitempty"`
	ScoreCP *int   `json:"score_cp,omitempty"`
	Mate    *int   `json:"mate,omitempty"`
	Depth   int    `json:"depth,omitempty"`
	NoMove  bool   `json:"no_move,omitempty"`
}

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

// Open parses a redis URL and pings the server.
func Open(ctx context.Context, url string, ttl time.Duration) (*Store, error) {
	opt, err := redis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return NewStore(rdb, ttl), nil
}

func (s *Store) Close() error { return s.rdb.Close() }

func (s *Store) TTL() time.Duration { return s.ttl }

func (s *Store) keyBestMove(movetime time.Duration, fen string) string {
	return "bestmove:" + strconv.FormatInt(movetime.Milliseconds(), 10) + ":" + strings.TrimSpace(fen)
}

func (s *Store) keyBoard(size int, last, fen string) string {
	return "board:" + strconv.Itoa(size) + ":" + last + ":" + strings.TrimSpace(fen)
}

// GetBestMove returns nil, nil on a miss.
func (s *Store) GetBestMove(ctx context.Context, movetime time.Duration, fen string) (*BestMove, error) {
	raw, err := s.rdb.Get(ctx, s.keyBestMove(movetime, fen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var bm BestMove
	if err := json.Unmarshal(raw, &bm); err != nil {
		return nil, err
	}
	return &bm, nil
}

func (s *Store) PutBestMove(ctx context.Context, movetime time.Duration, fen string, bm *BestMove) error {
	raw, err := json.Marshal(bm)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.keyBestMove(movetime, fen), raw, s.ttl).Err()
}

// GetBoard returns nil, nil on a miss.
func (s *Store) GetBoard(ctx context.Context, size int, last, fen string) ([]byte, error) {
	raw, err := s.rdb.Get(ctx, s.keyBoard(size, last, fen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return raw, err
}

func (s *Store) PutBoard(ctx context.Context, size int, last, fen string, png []byte) error {
	return s.rdb.Set(ctx, s.keyBoard(size, last, fen), png, s.ttl).Err()
}
