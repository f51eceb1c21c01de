package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/ppiankov/continuum/internal/util"
)

// OllamaProvider implements the Provider interface for Ollama local models
type OllamaProvider struct {
	client *api.Client
	config Config
}

// NewOllamaProvider creates a new Ollama provider. An empty BaseURL falls
// back to OLLAMA_HOST and then to the local default.
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("ollama model must be specified (e.g., llama3.1:8b, mistral)")
	}

	client, err := newOllamaClient(config.BaseURL, config.Timeout, config.HTTPProxy, config.HTTPSProxy, config.NoProxy)
	if err != nil {
		return nil, err
	}

	return &OllamaProvider{
		client: client,
		config: config,
	}, nil
}

// newOllamaClient is shared with the embedder
func newOllamaClient(baseURL string, timeout int, httpProxy, httpsProxy, noProxy string) (*api.Client, error) {
	if baseURL == "" {
		client, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama client: %w", err)
		}
		return client, nil
	}

	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse ollama base URL: %w", err)
	}

	return api.NewClient(u, util.NewHTTPClient(timeout, httpProxy, httpsProxy, noProxy)), nil
}

// NewOllamaClient builds a raw ollama API client from configuration
func NewOllamaClient(config Config) (*api.Client, error) {
	return newOllamaClient(config.BaseURL, config.Timeout, config.HTTPProxy, config.HTTPSProxy, config.NoProxy)
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// IsAvailable checks if the Ollama server answers
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	return p.client.Heartbeat(ctx) == nil
}

// Complete runs one non-streaming chat exchange
func (p *OllamaProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrEmptyInput
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model: p.config.model(req, ""),
		Messages: []api.Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		Stream: &stream,
		Options: map[string]any{
			"temperature": p.config.temperature(req),
			"num_predict": p.config.maxTokens(req),
		},
	}
	if req.JSON {
		chatReq.Format = json.RawMessage(`"json"`)
	}

	var (
		text   strings.Builder
		model  string
		tokens int
	)
	err := p.client.Chat(ctx, chatReq, func(cr api.ChatResponse) error {
		text.WriteString(cr.Message.Content)
		if cr.Done {
			model = cr.Model
			tokens = cr.PromptEvalCount + cr.EvalCount
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama API error: %w", err)
	}

	out := strings.TrimSpace(text.String())
	if tokens == 0 {
		// Rough estimate: 1 token ~ 4 characters
		tokens = (len(req.Prompt) + len(out)) / 4
	}

	return &CompletionResponse{
		Text:       out,
		Model:      model,
		TokensUsed: tokens,
	}, nil
}
