package rewrite

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sirupsen/logrus"
)

const (
	DefaultOpenRouterURL = "https://openrouter.ai/api/v1/"
	DefaultOpenAIModel   = "openai/gpt-4o-mini"
)

// OpenAIRewriter talks to any OpenAI-compatible chat endpoint, OpenRouter by default.
type OpenAIRewriter struct {
	client openai.Client
	cfg    Config
}

func NewOpenAIRewriter(cfg Config) *OpenAIRewriter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenRouterURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithHeader("X-Title", "az-tweetcast"),
		option.WithMaxRetries(1),
	)
	return &OpenAIRewriter{client: client, cfg: cfg}
}

func (r *OpenAIRewriter) Rewrite(ctx context.Context, text, prompt string) (string, error) {
	prompt, err := checkPrompt(prompt)
	if err != nil {
		return "", err
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(r.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userMessage(prompt, text)),
		},
	}
	if r.cfg.Temperature > 0 {
		params.Temperature = openai.Float(r.cfg.Temperature)
	}
	if r.cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(r.cfg.MaxTokens))
	}
	if r.cfg.TopP > 0 {
		params.TopP = openai.Float(r.cfg.TopP)
	}

	completion, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to rewrite tweet: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", ErrEmptyReply
	}
	out := strings.TrimSpace(completion.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptyReply
	}

	logrus.WithFields(logrus.Fields{
		"model":         r.cfg.Model,
		"input_tokens":  completion.Usage.PromptTokens,
		"output_tokens": completion.Usage.CompletionTokens,
	}).Debug("[REWRITE] OpenAI rewrite completed")
	return out, nil
}
