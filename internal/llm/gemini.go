package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// geminiModels genai.Client.Models 中用到的部分，便于测试替换
type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiAdapter 基于 Google Gemini API 的 ModelAdapter
type GeminiAdapter struct {
	models    geminiModels
	modelName string
}

var _ ModelAdapter = (*GeminiAdapter)(nil)

// NewGeminiAdapter 创建 Gemini 客户端
func NewGeminiAdapter(ctx context.Context, apiKey, modelName string) (*GeminiAdapter, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key must not be empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newGeminiAdapter(client.Models, modelName), nil
}

func newGeminiAdapter(models geminiModels, modelName string) *GeminiAdapter {
	if strings.TrimSpace(modelName) == "" {
		modelName = defaultGeminiModel
	}
	return &GeminiAdapter{models: models, modelName: modelName}
}

func (g *GeminiAdapter) SummarizeBounded(ctx context.Context, text string, minLen, maxLen int) (string, error) {
	return g.generate(ctx, buildSummaryPrompt(text, minLen, maxLen), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0),
		MaxOutputTokens: int32(maxTokensFor(maxLen)),
		Seed:            genai.Ptr[int32](0),
	})
}

func (g *GeminiAdapter) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(opts.Temperature),
		SystemInstruction: genai.NewContentFromText(chatSystemPrompt, genai.RoleUser),
	}
	if opts.MaxLength > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxLength)
	}
	if !opts.DoSample {
		cfg.Seed = genai.Ptr[int32](0)
		cfg.TopK = genai.Ptr[float32](float32(max(opts.NumBeams, 1)))
	}
	return g.generate(ctx, prompt, cfg)
}

func (g *GeminiAdapter) generate(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	resp, err := g.models.GenerateContent(ctx, g.modelName, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", ErrEmptyOutput
	}
	return output, nil
}
