package builder

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/park285/chess-coach/internal/config"
)

func baseConfig() *config.AppConfig {
	return &config.AppConfig{
		ListenAddr:     ":0",
		AllowedOrigins: []string{"*"},
		StockfishPath:  os.Args[0],
		EngineMoveTime: 100 * time.Millisecond,
		LLMBaseURL:     "https://api.openai.com/v1",
		LLMModel:       "gpt-3.5-turbo",
		LLMTimeout:     time.Second,
		CacheTTLSec:    60,
		HistoryLimit:   20,
	}
}

func TestNewInMemory(t *testing.T) {
	d, err := New(context.Background(), baseConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()
	if d.Service == nil || d.Server == nil || d.Repo == nil {
		t.Fatalf("deps = %+v", d)
	}
	if d.Cache != nil || d.DB != nil {
		t.Fatal("optional stores built without configuration")
	}
	if d.LLM != nil {
		t.Fatal("LLM client built without an API key")
	}
}

func TestNewWithRedisAndLLM(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := baseConfig()
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.LLMAPIKey = "sk-test"

	d, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.Cache == nil || d.LLM == nil {
		t.Fatalf("deps = %+v", d)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNewFailures(t *testing.T) {
	cfg := baseConfig()
	cfg.StockfishPath = "/nonexistent/stockfish"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected engine error")
	}

	cfg = baseConfig()
	cfg.RedisURL = "redis://127.0.0.1:1"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected redis error")
	}

	cfg = baseConfig()
	cfg.PromptDir = "/nonexistent/prompts"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected prompt dir error")
	}

	if _, err := New(context.Background(), nil, nil); err == nil {
		t.Fatal("expected nil config error")
	}
}
