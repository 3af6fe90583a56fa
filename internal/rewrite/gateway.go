// Package rewrite turns free-text teacher comments into the school voice
// through an upstream language model.
package rewrite

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/STARREPORTS/internal/stringutils"
	"github.com/STARREPORTS/internal/types"
)

const defaultTimeout = 30 * time.Second

// Request is the rewrite request body
type Request struct {
	Text         string `json:"text"`
	StyleGuide   string `json:"styleGuide,omitempty"`
	StudentName  string `json:"studentName,omitempty"`
	Provider     string `json:"provider"`
	CustomAPIKey string `json:"customApiKey,omitempty"`
}

// Response is the rewrite success body
type Response struct {
	RewrittenText string `json:"rewrittenText"`
}

// Rewriter is implemented by Gateway
type Rewriter interface {
	Rewrite(ctx context.Context, req Request) (Response, error)
}

type providerEntry struct {
	provider  Provider
	apiKeyEnv string
}

// Gateway routes rewrite requests to the selected provider. It never
// retries.
type Gateway struct {
	providers  map[string]providerEntry
	httpClient *http.Client
	getenv     func(string) string
}

// NewGateway builds a gateway from cfg, falling back to DefaultProviders
// for anything cfg leaves out
func NewGateway(cfg types.RewriteConfig) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	g := &Gateway{
		providers:  make(map[string]providerEntry),
		httpClient: &http.Client{Timeout: timeout},
		getenv:     os.Getenv,
	}

	for name, def := range DefaultProviders() {
		pc := def
		if override, ok := cfg.Providers[name]; ok {
			if override.BaseURL != "" {
				pc.BaseURL = override.BaseURL
			}
			if override.Model != "" {
				pc.Model = override.Model
			}
			if override.APIKeyEnv != "" {
				pc.APIKeyEnv = override.APIKeyEnv
			}
		}
		p, _ := newProvider(name, pc)
		g.providers[name] = providerEntry{provider: p, apiKeyEnv: pc.APIKeyEnv}
	}
	return g
}

// SetGetenv replaces the environment lookup used for API keys
func (g *Gateway) SetGetenv(fn func(string) string) {
	g.getenv = fn
}

// Providers lists the provider names the gateway accepts
func (g *Gateway) Providers() []string {
	return []string{ProviderLovable, ProviderOpenAI, ProviderGoogle, ProviderAnthropic}
}

// Rewrite validates req and forwards it to its provider. Empty text fails
// before any network call.
func (g *Gateway) Rewrite(ctx context.Context, req Request) (Response, error) {
	if stringutils.IsEmpty(req.Text) {
		return Response{}, newError(http.StatusBadRequest, ErrTextRequired, "")
	}
	if req.Provider == "" {
		req.Provider = ProviderLovable
	}
	entry, ok := g.providers[req.Provider]
	if !ok {
		return Response{}, newError(http.StatusBadRequest, ErrUnknownProvider, req.Provider)
	}

	apiKey := req.CustomAPIKey
	if apiKey == "" && entry.apiKeyEnv != "" {
		apiKey = g.getenv(entry.apiKeyEnv)
	}
	if apiKey == "" {
		return Response{}, newError(http.StatusInternalServerError, ErrMissingAPIKey, req.Provider)
	}

	start := time.Now()
	text, err := entry.provider.Complete(ctx, g.httpClient, BuildPrompt(req), apiKey)
	if err != nil {
		log.Printf("[REWRITE] %s failed after %v: %v", req.Provider, time.Since(start).Round(time.Millisecond), stringutils.Truncate(err.Error(), 300))
		var gerr *Error
		if !errors.As(err, &gerr) {
			err = newError(http.StatusInternalServerError, ErrUpstream, err.Error())
		}
		return Response{}, err
	}

	text = stringutils.StripQuotes(text)
	if text == "" {
		return Response{}, newError(http.StatusInternalServerError, ErrEmptyCompletion, req.Provider)
	}
	log.Printf("[REWRITE] %s rewrote %d chars in %v", req.Provider, len(req.Text), time.Since(start).Round(time.Millisecond))
	return Response{RewrittenText: text}, nil
}
