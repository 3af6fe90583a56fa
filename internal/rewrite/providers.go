package rewrite

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/STARREPORTS/internal/types"
	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	"google.golang.org/genai"
)

// Provider names
const (
	ProviderLovable   = "lovable"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderAnthropic = "anthropic"
)

// DefaultProviders are used for providers missing from the config
func DefaultProviders() map[string]types.ProviderConfig {
	return map[string]types.ProviderConfig{
		ProviderLovable: {
			BaseURL:   "https://ai.gateway.lovable.dev/v1",
			Model:     "google/gemini-2.5-flash",
			APIKeyEnv: "LOVABLE_API_KEY",
		},
		ProviderOpenAI: {
			BaseURL:   "https://api.openai.com/v1",
			Model:     "gpt-4o-mini",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		ProviderGoogle: {
			BaseURL:   "https://generativelanguage.googleapis.com/",
			Model:     "gemini-2.0-flash",
			APIKeyEnv: "GOOGLE_API_KEY",
		},
		ProviderAnthropic: {
			BaseURL:   "https://api.anthropic.com/",
			Model:     "claude-3-5-haiku-latest",
			APIKeyEnv: "ANTHROPIC_API_KEY",
		},
	}
}

// Provider sends one prompt to an upstream model
type Provider interface {
	Complete(ctx context.Context, client *http.Client, prompt Prompt, apiKey string) (string, error)
}

func newProvider(name string, cfg types.ProviderConfig) (Provider, bool) {
	switch name {
	case ProviderLovable, ProviderOpenAI:
		return &chatCompletions{baseURL: cfg.BaseURL, model: cfg.Model}, true
	case ProviderGoogle:
		return &generateContent{baseURL: cfg.BaseURL, model: cfg.Model}, true
	case ProviderAnthropic:
		return &messages{baseURL: cfg.BaseURL, model: cfg.Model}, true
	}
	return nil, false
}

// sdkError maps a failed SDK call onto the gateway's statuses. Anything that
// is not an upstream API answer is a plain upstream failure.
func sdkError(err error) *Error {
	var oerr *openai.Error
	if errors.As(err, &oerr) {
		return upstreamError(oerr.StatusCode, strings.TrimSpace(oerr.RawJSON()))
	}
	var aerr *anthropic.Error
	if errors.As(err, &aerr) {
		return upstreamError(aerr.StatusCode, strings.TrimSpace(aerr.RawJSON()))
	}
	var gerr genai.APIError
	if errors.As(err, &gerr) {
		return upstreamError(gerr.Code, gerr.Message)
	}
	var gptr *genai.APIError
	if errors.As(err, &gptr) {
		return upstreamError(gptr.Code, gptr.Message)
	}
	return newError(http.StatusInternalServerError, ErrUpstream, err.Error())
}

// chatCompletions speaks the OpenAI chat completions API, which the lovable
// gateway also implements
type chatCompletions struct {
	baseURL string
	model   string
}

func (p *chatCompletions) Complete(ctx context.Context, client *http.Client, prompt Prompt, apiKey string) (string, error) {
	c := openai.NewClient(
		openaioption.WithBaseURL(p.baseURL),
		openaioption.WithAPIKey(apiKey),
		openaioption.WithHTTPClient(client),
		openaioption.WithMaxRetries(0),
	)
	resp, err := c.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		},
	})
	if err != nil {
		return "", sdkError(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// generateContent speaks the Gemini API
type generateContent struct {
	baseURL string
	model   string
}

func (p *generateContent) Complete(ctx context.Context, client *http.Client, prompt Prompt, apiKey string) (string, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  client,
		HTTPOptions: genai.HTTPOptions{BaseURL: p.baseURL},
	})
	if err != nil {
		return "", newError(http.StatusInternalServerError, ErrUpstream, err.Error())
	}
	resp, err := c.Models.GenerateContent(ctx, p.model, genai.Text(prompt.User), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
	})
	if err != nil {
		return "", sdkError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if !part.Thought {
			text.WriteString(part.Text)
		}
	}
	return text.String(), nil
}

// messages speaks the Anthropic messages API
type messages struct {
	baseURL string
	model   string
}

const maxRewriteTokens = 1024

func (p *messages) Complete(ctx context.Context, client *http.Client, prompt Prompt, apiKey string) (string, error) {
	c := anthropic.NewClient(
		anthropicoption.WithBaseURL(p.baseURL),
		anthropicoption.WithAPIKey(apiKey),
		anthropicoption.WithHTTPClient(client),
		anthropicoption.WithMaxRetries(0),
	)
	resp, err := c.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: maxRewriteTokens,
		System:    []anthropic.TextBlockParam{{Text: prompt.System}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.User)),
		},
	})
	if err != nil {
		return "", sdkError(err)
	}
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}
