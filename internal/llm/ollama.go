package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ollama/ollama/api"
)

const defaultOllamaModel = "llama3.1"

// ollamaGenerator api.Client 中用到的部分
type ollamaGenerator interface {
	Generate(ctx context.Context, req *api.GenerateRequest, fn api.GenerateResponseFunc) error
}

// OllamaAdapter 基于本地 Ollama 服务的 ModelAdapter
type OllamaAdapter struct {
	client    ollamaGenerator
	modelName string
}

var _ ModelAdapter = (*OllamaAdapter)(nil)

// NewOllamaAdapter 从 OLLAMA_HOST 环境变量创建客户端
func NewOllamaAdapter(modelName string) (*OllamaAdapter, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return NewOllamaAdapterWithClient(client, modelName), nil
}

// NewOllamaAdapterWithClient 使用已有客户端
func NewOllamaAdapterWithClient(client *api.Client, modelName string) *OllamaAdapter {
	return newOllamaAdapter(client, modelName)
}

func newOllamaAdapter(client ollamaGenerator, modelName string) *OllamaAdapter {
	if strings.TrimSpace(modelName) == "" {
		modelName = defaultOllamaModel
	}
	return &OllamaAdapter{client: client, modelName: modelName}
}

func (o *OllamaAdapter) SummarizeBounded(ctx context.Context, text string, minLen, maxLen int) (string, error) {
	return o.generate(ctx, buildSummaryPrompt(text, minLen, maxLen), map[string]any{
		"temperature": 0,
		"seed":        0,
		"num_predict": maxTokensFor(maxLen),
	})
}

func (o *OllamaAdapter) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	return o.generate(ctx, prompt, ollamaOptions(opts))
}

// ollamaOptions Ollama 不支持束搜索，不采样时用 top_k=1 和固定种子保证确定性
func ollamaOptions(opts GenerateOptions) map[string]any {
	options := map[string]any{
		"temperature": opts.Temperature,
	}
	if opts.MaxLength > 0 {
		options["num_predict"] = opts.MaxLength
	}
	if !opts.DoSample {
		options["top_k"] = 1
		options["seed"] = 0
	}
	if opts.NoRepeatNgramSize > 0 {
		options["repeat_last_n"] = 64
		options["repeat_penalty"] = 1.3
	}
	return options
}

func (o *OllamaAdapter) generate(ctx context.Context, prompt string, options map[string]any) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:   o.modelName,
		Prompt:  prompt,
		System:  chatSystemPrompt,
		Stream:  &stream,
		Options: options,
	}

	var builder strings.Builder
	err := o.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		builder.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", ErrEmptyOutput
	}
	return output, nil
}
