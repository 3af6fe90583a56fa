package rewrite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/STARREPORTS/internal/types"
)

func newTestGateway(t *testing.T, provider string, handler http.HandlerFunc) (*Gateway, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	g := NewGateway(types.RewriteConfig{
		Providers: map[string]types.ProviderConfig{
			provider: {BaseURL: server.URL, Model: "test-model", APIKeyEnv: "TEST_KEY"},
		},
	})
	g.SetGetenv(func(key string) string {
		if key == "TEST_KEY" {
			return "env-key"
		}
		return ""
	})
	return g, &calls
}

func TestRewriteEmptyTextMakesNoCall(t *testing.T) {
	g, calls := newTestGateway(t, ProviderOpenAI, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream should not be called")
	})

	for _, text := range []string{"", "   \n\t"} {
		_, err := g.Rewrite(context.Background(), Request{Text: text, Provider: ProviderOpenAI})
		if !errors.Is(err, ErrTextRequired) {
			t.Errorf("Rewrite(%q) error = %v, want ErrTextRequired", text, err)
		}
		if StatusOf(err) != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", StatusOf(err))
		}
	}
	if atomic.LoadInt32(calls) != 0 {
		t.Errorf("upstream calls = %d, want 0", *calls)
	}
}

func TestRewriteUnknownProvider(t *testing.T) {
	g := NewGateway(types.RewriteConfig{})
	_, err := g.Rewrite(context.Background(), Request{Text: "hi", Provider: "mystery"})
	if !errors.Is(err, ErrUnknownProvider) || StatusOf(err) != http.StatusBadRequest {
		t.Errorf("error = %v, status %d", err, StatusOf(err))
	}
}

func TestRewriteMissingKey(t *testing.T) {
	g := NewGateway(types.RewriteConfig{})
	g.SetGetenv(func(string) string { return "" })
	_, err := g.Rewrite(context.Background(), Request{Text: "hi", Provider: ProviderAnthropic})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("error = %v, want ErrMissingAPIKey", err)
	}
}

// errorBody renders an upstream error in the shape each provider's API uses
func errorBody(provider string, status int) string {
	switch provider {
	case ProviderAnthropic:
		return `{"type":"error","error":{"type":"upstream_error","message":"nope"}}`
	case ProviderGoogle:
		return fmt.Sprintf(`{"error":{"code":%d,"message":"nope","status":"FAILED"}}`, status)
	default:
		return `{"error":{"message":"nope","type":"upstream_error","param":null,"code":null}}`
	}
}

func TestRewriteStatusMapping(t *testing.T) {
	tests := []struct {
		name      string
		upstream  int
		want      int
		sentinel  error
		retriable bool
	}{
		{name: "rate limited", upstream: http.StatusTooManyRequests, want: http.StatusTooManyRequests, sentinel: ErrRateLimited, retriable: true},
		{name: "payment required", upstream: http.StatusPaymentRequired, want: http.StatusPaymentRequired, sentinel: ErrPaymentRequired, retriable: false},
		{name: "server error", upstream: http.StatusBadGateway, want: http.StatusInternalServerError, sentinel: ErrUpstream, retriable: false},
		{name: "unauthorized", upstream: http.StatusUnauthorized, want: http.StatusInternalServerError, sentinel: ErrUpstream, retriable: false},
	}

	providers := []string{ProviderLovable, ProviderOpenAI, ProviderGoogle, ProviderAnthropic}
	for _, provider := range providers {
		for _, tt := range tests {
			t.Run(provider+"/"+tt.name, func(t *testing.T) {
				g, calls := newTestGateway(t, provider, func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(tt.upstream)
					w.Write([]byte(errorBody(provider, tt.upstream)))
				})

				_, err := g.Rewrite(context.Background(), Request{Text: "Ada reads well", Provider: provider})
				if !errors.Is(err, tt.sentinel) {
					t.Fatalf("error = %v, want %v", err, tt.sentinel)
				}
				if got := StatusOf(err); got != tt.want {
					t.Errorf("status = %d, want %d", got, tt.want)
				}
				if got := IsRetriable(err); got != tt.retriable {
					t.Errorf("retriable = %v, want %v", got, tt.retriable)
				}
				if atomic.LoadInt32(calls) != 1 {
					t.Errorf("upstream calls = %d, want exactly 1 (no retries)", *calls)
				}
			})
		}
	}
}

func TestRewriteUnreachableUpstream(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	g := NewGateway(types.RewriteConfig{
		Providers: map[string]types.ProviderConfig{
			ProviderOpenAI: {BaseURL: url},
		},
	})
	_, err := g.Rewrite(context.Background(), Request{Text: "x", Provider: ProviderOpenAI, CustomAPIKey: "k"})
	if !errors.Is(err, ErrUpstream) || StatusOf(err) != http.StatusInternalServerError {
		t.Errorf("error = %v, status %d", err, StatusOf(err))
	}
}

func TestRewriteOpenAICompatible(t *testing.T) {
	g, _ := newTestGateway(t, ProviderOpenAI, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer custom" {
			t.Errorf("Authorization = %q, want custom key", got)
		}
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Model != "test-model" || len(body.Messages) != 2 {
			t.Errorf("body = %+v", body)
		}
		if !strings.Contains(body.Messages[0].Content, "Be warm") || !strings.Contains(body.Messages[0].Content, "Ada") {
			t.Errorf("system prompt missing style or name: %q", body.Messages[0].Content)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"\"Ada is a keen reader.\""}}]}`))
	})

	resp, err := g.Rewrite(context.Background(), Request{
		Text:         "ada reads good",
		StyleGuide:   "Be warm",
		StudentName:  "Ada",
		Provider:     ProviderOpenAI,
		CustomAPIKey: "custom",
	})
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	if resp.RewrittenText != "Ada is a keen reader." {
		t.Errorf("RewrittenText = %q", resp.RewrittenText)
	}
}

func TestRewriteGoogle(t *testing.T) {
	g, _ := newTestGateway(t, ProviderGoogle, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/test-model:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "env-key" {
			t.Errorf("api key header = %q", r.Header.Get("x-goog-api-key"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Ada "},{"text":"reads well."}]}}]}`))
	})

	resp, err := g.Rewrite(context.Background(), Request{Text: "ada reads", Provider: ProviderGoogle})
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	if resp.RewrittenText != "Ada reads well." {
		t.Errorf("RewrittenText = %q", resp.RewrittenText)
	}
}

func TestRewriteAnthropic(t *testing.T) {
	g, _ := newTestGateway(t, ProviderAnthropic, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "env-key" || r.Header.Get("anthropic-version") == "" {
			t.Errorf("headers = %v", r.Header)
		}
		var body struct {
			System []struct {
				Text string `json:"text"`
			} `json:"system"`
			MaxTokens int `json:"max_tokens"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if len(body.System) != 1 || body.MaxTokens != maxRewriteTokens {
			t.Errorf("body = %+v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"test-model","content":[{"type":"text","text":"Ada reads with care."}]}`))
	})

	resp, err := g.Rewrite(context.Background(), Request{Text: "ada reads", Provider: ProviderAnthropic})
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	if resp.RewrittenText != "Ada reads with care." {
		t.Errorf("RewrittenText = %q", resp.RewrittenText)
	}
}

func TestRewriteEmptyCompletion(t *testing.T) {
	g, _ := newTestGateway(t, ProviderOpenAI, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[]}`))
	})
	_, err := g.Rewrite(context.Background(), Request{Text: "x", Provider: ProviderOpenAI})
	if !errors.Is(err, ErrEmptyCompletion) || StatusOf(err) != http.StatusInternalServerError {
		t.Errorf("error = %v", err)
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(Request{Text: "  ada   reads \n\n\n well "})
	if p.User != "ada reads\n\nwell" {
		t.Errorf("User = %q", p.User)
	}
	if strings.Contains(p.System, "writing style") {
		t.Error("style section should be omitted without a style guide")
	}
}
