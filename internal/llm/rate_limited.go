package llm

import (
	"context"
	"time"

	"smart-resume-analyzer/internal/ratelimit"
)

// RateLimitedAdapter 为任意 ModelAdapter 增加限流和重试
type RateLimitedAdapter struct {
	original    ModelAdapter
	rateLimiter *ratelimit.TokenBucket
}

var _ ModelAdapter = (*RateLimitedAdapter)(nil)

// NewRateLimitedAdapter 创建限流代理，qpm<=0 时默认为 30
func NewRateLimitedAdapter(original ModelAdapter, qpm, maxRetries int, retryWait time.Duration) *RateLimitedAdapter {
	if qpm <= 0 {
		qpm = 30
	}
	return &RateLimitedAdapter{
		original:    original,
		rateLimiter: ratelimit.NewTokenBucket(qpm, qpm/2).WithRetryPolicy(retryWait, maxRetries),
	}
}

func (rl *RateLimitedAdapter) SummarizeBounded(ctx context.Context, text string, minLen, maxLen int) (string, error) {
	var out string
	err := rl.rateLimiter.RetryWithBackoff(ctx, func() error {
		var callErr error
		out, callErr = rl.original.SummarizeBounded(ctx, text, minLen, maxLen)
		return callErr
	})
	return out, err
}

func (rl *RateLimitedAdapter) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	var out string
	err := rl.rateLimiter.RetryWithBackoff(ctx, func() error {
		var callErr error
		out, callErr = rl.original.Generate(ctx, prompt, opts)
		return callErr
	})
	return out, err
}
