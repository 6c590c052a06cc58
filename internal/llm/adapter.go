package llm

import (
	"context"
	"errors"
	"time"
)

// ErrModelUnavailable 未配置模型时所有调用返回该错误
var ErrModelUnavailable = errors.New("模型不可用")

// ErrEmptyOutput 模型返回了空文本
var ErrEmptyOutput = errors.New("模型返回空结果")

// GenerateOptions 确定性解码参数，各后端尽量映射
type GenerateOptions struct {
	MaxLength         int
	NumBeams          int
	NoRepeatNgramSize int
	Temperature       float32
	DoSample          bool
	EarlyStopping     bool
}

// DefaultGenerateOptions 回答问题时使用的解码参数
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		MaxLength:         800,
		NumBeams:          3,
		NoRepeatNgramSize: 2,
		Temperature:       0.1,
		DoSample:          false,
		EarlyStopping:     true,
	}
}

// ModelAdapter 生成式模型的最小能力集合
//
// 进程内只创建一个实例并注入到摘要器和回答引擎，实现须支持并发调用。
type ModelAdapter interface {
	// SummarizeBounded 生成长度在 [minLen, maxLen] 个词之间的摘要
	SummarizeBounded(ctx context.Context, text string, minLen, maxLen int) (string, error)
	// Generate 根据提示词生成文本
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// Unavailable 未配置任何模型时使用，所有调用都失败，使上层退化到规则分析
type Unavailable struct{}

var _ ModelAdapter = Unavailable{}

func (Unavailable) SummarizeBounded(context.Context, string, int, int) (string, error) {
	return "", ErrModelUnavailable
}

func (Unavailable) Generate(context.Context, string, GenerateOptions) (string, error) {
	return "", ErrModelUnavailable
}

const (
	defaultTimeout   = 60 * time.Second
	defaultRetryWait = time.Second
)
