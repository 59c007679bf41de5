// Package llm is a small client for OpenAI-compatible chat completion APIs.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

var (
	// ErrUnavailable covers transport failures and non-2xx answers.
	ErrUnavailable = errors.New("language model unavailable")
	// ErrEmptyReply is returned when the API answers without any choice text.
	ErrEmptyReply = errors.New("language model returned no text")
)

// StatusError carries the HTTP status of a failed call.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm api error: status=%d body=%s", e.Status, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrUnavailable }

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type Client struct {
	baseURL string
	apiKey  string
	model   string
	system  string
	http    *fasthttp.Client
	logger  *zap.Logger

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func WithModel(model string) Option {
	return func(c *Client) {
		if strings.TrimSpace(model) != "" {
			c.model = strings.TrimSpace(model)
		}
	}
}

// WithSystemPrompt prepends a system message to every completion.
func WithSystemPrompt(s string) Option {
	return func(c *Client) { c.system = strings.TrimSpace(s) }
}

// WithDialer replaces the TCP dialer, e.g. with an in-memory listener.
func WithDialer(dial fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         strings.TrimSpace(apiKey),
		model:          "gpt-3.5-turbo",
		http:           &fasthttp.Client{ReadTimeout: 60 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		logger:         zap.NewNop(),
		defaultTimeout: 30 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends prompt as a single user message and returns the trimmed
// reply of the first choice.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	msgs := make([]Message, 0, 2)
	if c.system != "" {
		msgs = append(msgs, Message{Role: "system", Content: c.system})
	}
	msgs = append(msgs, Message{Role: "user", Content: prompt})

	var resp chatResponse
	start := time.Now()
	if err := c.doJSON(ctx, "/chat/completions", chatRequest{Model: c.model, Messages: msgs}, &resp); err != nil {
		c.logger.Warn("llm_complete_failed", zap.String("model", c.model), zap.Duration("took", time.Since(start)), zap.Error(err))
		return "", err
	}
	for _, ch := range resp.Choices {
		if text := strings.TrimSpace(ch.Message.Content); text != "" {
			c.logger.Debug("llm_complete", zap.String("model", c.model), zap.Duration("took", time.Since(start)), zap.Int("chars", len(text)))
			return text, nil
		}
	}
	return "", ErrEmptyReply
}

func (c *Client) doJSON(ctx context.Context, path string, in any, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req.SetBody(payload)

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("%w: request failed: %w", ErrUnavailable, err)
			if attempt == attempts {
				return lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			serr := &StatusError{Status: status, Body: truncate(string(resp.Body()), 512)}
			if attempt == attempts || !shouldRetryStatus(status) {
				return serr
			}
			lastErr = serr
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
		}
		return nil
	}

	if lastErr == nil {
		lastErr = ErrUnavailable
	}
	return lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
