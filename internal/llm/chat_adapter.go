package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const chatSystemPrompt = "Você é um recrutador técnico. Responda sempre em português, de forma objetiva e baseada apenas no texto fornecido."

// ChatAdapter 把 eino 聊天模型适配为 ModelAdapter
type ChatAdapter struct {
	chat model.BaseChatModel
}

var _ ModelAdapter = (*ChatAdapter)(nil)

// NewChatAdapter 包装任意 eino 聊天模型
func NewChatAdapter(chat model.BaseChatModel) *ChatAdapter {
	return &ChatAdapter{chat: chat}
}

func (a *ChatAdapter) SummarizeBounded(ctx context.Context, text string, minLen, maxLen int) (string, error) {
	return a.complete(ctx, buildSummaryPrompt(text, minLen, maxLen),
		model.WithTemperature(0),
		model.WithMaxTokens(maxTokensFor(maxLen)),
		WithSeed(0),
	)
}

func (a *ChatAdapter) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	return a.complete(ctx, prompt, chatOptions(opts)...)
}

func (a *ChatAdapter) complete(ctx context.Context, prompt string, opts ...model.Option) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(chatSystemPrompt),
		schema.UserMessage(prompt),
	}
	resp, err := a.chat.Generate(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("聊天模型调用失败: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", ErrEmptyOutput
	}
	return strings.TrimSpace(resp.Content), nil
}

// chatOptions 聊天接口没有束搜索，不采样时固定种子，用频率惩罚近似 no-repeat n-gram
func chatOptions(opts GenerateOptions) []model.Option {
	out := []model.Option{model.WithTemperature(opts.Temperature)}
	if opts.MaxLength > 0 {
		out = append(out, model.WithMaxTokens(opts.MaxLength))
	}
	if !opts.DoSample {
		out = append(out, WithSeed(0))
	}
	if opts.NoRepeatNgramSize > 0 {
		out = append(out, WithFrequencyPenalty(0.5))
	}
	return out
}
