package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func serve(t *testing.T, h fasthttp.RequestHandler) Option {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: h}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		_ = srv.Shutdown()
		_ = ln.Close()
	})
	return WithDialer(func(string) (net.Conn, error) { return ln.Dial() })
}

func reply(ctx *fasthttp.RequestCtx, text string) {
	ctx.SetContentType("application/json")
	_ = json.NewEncoder(ctx).Encode(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": text}}},
	})
}

func TestCompleteSendsPromptAndReturnsReply(t *testing.T) {
	var got chatRequest
	var auth, path string
	dial := serve(t, func(ctx *fasthttp.RequestCtx) {
		path = string(ctx.Path())
		auth = string(ctx.Request.Header.Peek("Authorization"))
		if err := json.Unmarshal(ctx.PostBody(), &got); err != nil {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}
		reply(ctx, "  Nf3 develops a piece.  ")
	})
	c := NewClient("http://llm.test/v1/", "sk-test", dial, WithModel("coach-model"), WithSystemPrompt("be brief"))

	text, err := c.Complete(context.Background(), "why Nf3?")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "Nf3 develops a piece." {
		t.Fatalf("text = %q", text)
	}
	if path != "/v1/chat/completions" || auth != "Bearer sk-test" {
		t.Fatalf("path=%q auth=%q", path, auth)
	}
	if got.Model != "coach-model" || len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "why Nf3?" {
		t.Fatalf("request = %+v", got)
	}
}

func TestCompleteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	dial := serve(t, func(ctx *fasthttp.RequestCtx) {
		if calls.Add(1) < 3 {
			ctx.SetStatusCode(fasthttp.StatusBadGateway)
			return
		}
		reply(ctx, "ok")
	})
	c := NewClient("http://llm.test", "", dial, WithRetry(3))
	text, err := c.Complete(context.Background(), "p")
	if err != nil || text != "ok" {
		t.Fatalf("Complete = %q, %v", text, err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	dial := serve(t, func(ctx *fasthttp.RequestCtx) {
		calls.Add(1)
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		ctx.SetBodyString(`{"error":"bad key"}`)
	})
	c := NewClient("http://llm.test", "bad", dial, WithRetry(3))
	_, err := c.Complete(context.Background(), "p")
	var serr *StatusError
	if !errors.As(err, &serr) || serr.Status != fasthttp.StatusUnauthorized {
		t.Fatalf("err = %v, want 401 StatusError", err)
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable in chain", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestCompleteEmptyReply(t *testing.T) {
	dial := serve(t, func(ctx *fasthttp.RequestCtx) { reply(ctx, "   ") })
	c := NewClient("http://llm.test", "", dial)
	if _, err := c.Complete(context.Background(), "p"); !errors.Is(err, ErrEmptyReply) {
		t.Fatalf("err = %v, want ErrEmptyReply", err)
	}
}

func TestCompleteHonoursContextDeadline(t *testing.T) {
	dial := serve(t, func(ctx *fasthttp.RequestCtx) {
		time.Sleep(2 * time.Second)
		reply(ctx, "late")
	})
	c := NewClient("http://llm.test", "", dial, WithRetry(1))
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	if _, err := c.Complete(ctx, "p"); err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("Complete took %v", time.Since(start))
	}
}
