package rewrite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	coreconfig "github.com/AzielCF/az-tweetcast/core/config"
	"github.com/AzielCF/az-tweetcast/schedules/domain"
)

const systemPrompt = "You are a professional tweet rewriter. Follow the user's instructions carefully and rewrite the tweet exactly as requested. Only return the rewritten tweet text, nothing else."

var (
	ErrNotConfigured = errors.New("ai rewrite not configured")
	ErrEmptyPrompt   = errors.New("ai rewrite prompt is required")
	ErrEmptyReply    = errors.New("ai returned empty response")
)

type Config struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	TopP        float64
}

func ConfigFrom(cfg coreconfig.AIConfig) Config {
	return Config{
		Provider:    cfg.Provider,
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		TopP:        cfg.TopP,
	}
}

// New builds the rewriter for the configured provider.
func New(ctx context.Context, cfg Config) (domain.TextRewriter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	switch strings.ToLower(cfg.Provider) {
	case "", "openai", "openrouter":
		return NewOpenAIRewriter(cfg), nil
	case "gemini":
		return NewGeminiRewriter(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}

func userMessage(prompt, text string) string {
	return prompt + "\n\nOriginal tweet:\n" + text
}

func checkPrompt(prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	return prompt, nil
}
