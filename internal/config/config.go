package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

type AppConfig struct {
	ListenAddr     string
	AllowedOrigins []string

	StockfishPath  string
	EngineMoveTime time.Duration
	// EngineCeiling of zero lets the engine derive it from the movetime.
	EngineCeiling time.Duration
	EngineThreads int
	EngineHashMB  int

	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
	LLMTimeout time.Duration

	RedisURL    string
	CacheTTLSec int

	DatabaseURL  string
	HistoryLimit int

	PromptDir string
}

// Load reads the environment. When COACH_CONFIG names a YAML file its
// KEY: value pairs fill in variables the environment leaves unset.
func Load() (*AppConfig, error) {
	overlay, err := loadOverlay(strings.TrimSpace(os.Getenv("COACH_CONFIG")))
	if err != nil {
		return nil, err
	}
	get := func(key string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		return strings.TrimSpace(overlay[key])
	}

	cfg := &AppConfig{
		ListenAddr:     ":8000",
		AllowedOrigins: []string{"*"},
		EngineMoveTime: 500 * time.Millisecond,
		LLMBaseURL:     "https://api.openai.com/v1",
		LLMModel:       "gpt-3.5-turbo",
		LLMTimeout:     30 * time.Second,
		CacheTTLSec:    3600,
		HistoryLimit:   20,
	}

	if v := get("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := get("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}

	cfg.StockfishPath = get("STOCKFISH_PATH")
	if v := get("ENGINE_MOVETIME_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EngineMoveTime = time.Duration(n) * time.Millisecond
		}
	}
	if v := get("ENGINE_CEILING_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EngineCeiling = time.Duration(n) * time.Millisecond
		}
	}
	if v := get("ENGINE_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EngineThreads = n
		}
	}
	if v := get("ENGINE_HASH_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EngineHashMB = n
		}
	}

	if v := get("LLM_BASE_URL"); v != "" {
		cfg.LLMBaseURL = strings.TrimRight(v, "/")
	}
	cfg.LLMAPIKey = get("OPENAI_API_KEY")
	if v := get("LLM_MODEL"); v != "" {
		cfg.LLMModel = v
	}
	if v := get("LLM_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LLMTimeout = time.Duration(n) * time.Second
		}
	}

	cfg.RedisURL = get("REDIS_URL")
	if v := get("CACHE_TTL_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheTTLSec = n
		}
	}
	cfg.DatabaseURL = get("DATABASE_URL")
	if v := get("HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryLimit = n
		}
	}
	cfg.PromptDir = get("PROMPT_DIR")

	if cfg.StockfishPath == "" {
		return nil, errors.New("STOCKFISH_PATH is required")
	}
	if len(cfg.AllowedOrigins) == 0 {
		return nil, errors.New("ALLOWED_ORIGINS must name at least one origin")
	}
	return cfg, nil
}

func loadOverlay(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config overlay: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse config overlay %s: %w", path, err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch vv := v.(type) {
		case nil:
		case string:
			out[strings.ToUpper(k)] = vv
		case []any:
			parts := make([]string, 0, len(vv))
			for _, p := range vv {
				parts = append(parts, fmt.Sprint(p))
			}
			out[strings.ToUpper(k)] = strings.Join(parts, ",")
		case map[string]any:
			return nil, fmt.Errorf("config overlay key %s: nested values are not supported", k)
		default:
			out[strings.ToUpper(k)] = fmt.Sprint(vv)
		}
	}
	return out, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
