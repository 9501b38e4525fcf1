// Package ai implements the semantic code analyzer backed by an external
// text-completion service
package ai

import (
	"context"
	"fmt"

	"charm.land/fantasy"
	"charm.land/fantasy/providers/openai"
)

const systemPrompt = `You are a security analyst reviewing third-party packages submitted to a multi-tenant application marketplace. You receive source files together with a description of the platform's tenant-isolation architecture and a list of legitimate platform idioms that must never be flagged. Report only real vulnerabilities; respond in the exact JSON format requested.`

// TextCompleter is the single blocking text-completion call the analyzer
// depends on. Provider identity and model choice are configuration, not part
// of this contract.
type TextCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// FantasyClient implements TextCompleter over an OpenAI-compatible endpoint
type FantasyClient struct {
	model fantasy.LanguageModel
}

// NewFantasyClient creates a text-completion client for the configured
// provider endpoint and model
func NewFantasyClient(ctx context.Context, baseURL, apiKey, modelName string) (*FantasyClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required for AI analysis")
	}

	provider, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithAPIKey(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	model, err := provider.LanguageModel(ctx, modelName)
	if err != nil {
		return nil, fmt.Errorf("failed to create language model: %w", err)
	}

	return &FantasyClient{model: model}, nil
}

// Complete sends one prompt and returns the raw response text
func (c *FantasyClient) Complete(ctx context.Context, prompt string) (string, error) {
	agent := fantasy.NewAgent(c.model, fantasy.WithSystemPrompt(systemPrompt))
	result, err := agent.Generate(ctx, fantasy.AgentCall{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	return result.Response.Content.Text(), nil
}
