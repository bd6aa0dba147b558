package rewrite

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.0-flash"

type GeminiRewriter struct {
	client *genai.Client
	cfg    Config
}

func NewGeminiRewriter(ctx context.Context, cfg Config) (*GeminiRewriter, error) {
	// OpenRouter style ids ("vendor/model") are not Gemini model names.
	if cfg.Model == "" || strings.Contains(cfg.Model, "/") {
		cfg.Model = DefaultGeminiModel
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiRewriter{client: client, cfg: cfg}, nil
}

func (r *GeminiRewriter) Rewrite(ctx context.Context, text, prompt string) (string, error) {
	prompt, err := checkPrompt(prompt)
	if err != nil {
		return "", err
	}

	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, ""),
	}
	if r.cfg.Temperature > 0 {
		genCfg.Temperature = genai.Ptr(float32(r.cfg.Temperature))
	}
	if r.cfg.TopP > 0 {
		genCfg.TopP = genai.Ptr(float32(r.cfg.TopP))
	}
	if r.cfg.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(r.cfg.MaxTokens)
	}

	resp, err := r.client.Models.GenerateContent(ctx, r.cfg.Model, genai.Text(userMessage(prompt, text)), genCfg)
	if err != nil {
		return "", fmt.Errorf("failed to rewrite tweet: %w", err)
	}
	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return "", ErrEmptyReply
	}
	logrus.Debugf("[REWRITE] Gemini rewrite completed with %s", r.cfg.Model)
	return out, nil
}
