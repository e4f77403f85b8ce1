package provider

import (
	"context"
	"errors"

	"github.com/mahfuz-oronno/pathshala/config"
	openai_provider "github.com/mahfuz-oronno/pathshala/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI    Client = "openai"
	Anthropic Client = "anthropic"
)

// Provider is the interface that all LLM implementations must satisfy
type Provider interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
	Completion(ctx context.Context, system, user string) (string, error)
}

// NewProvider creates a new LLM client based on the provided configuration
func NewProvider(client Client, cfg config.OpenAIConfig) (Provider, error) {
	switch client {
	case OpenAI:
		if cfg.APIKey == "" {
			return nil, errors.New("openai api key not set")
		}
		return openai_provider.NewClient(cfg.APIKey, cfg.CompletionModel, cfg.EmbeddingModel,
			cfg.Temperature, cfg.MaxTokens, cfg.Timeout, cfg.MaxRetries), nil
	case Anthropic:
		return nil, errors.New("anthropic client not implemented yet")
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
