package llm

import (
	"context"
	"errors"
	"sync"
)

// MockResponse MockAdapter 的单次预期响应
type MockResponse struct {
	Content string
	Error   error
}

// MockCall 记录一次调用
type MockCall struct {
	Operation string // "summarize" 或 "generate"
	Input     string
	MinLen    int
	MaxLen    int
	Options   GenerateOptions
}

// MockAdapter 用于测试的 ModelAdapter 实现
//
// 设置了 SequentialResponses 时按顺序返回，否则总是返回 ExpectedResponse/ExpectedError。
type MockAdapter struct {
	ExpectedResponse string
	ExpectedError    error

	SequentialResponses []MockResponse

	mu            sync.Mutex
	responseIndex int
	calls         []MockCall
}

var _ ModelAdapter = (*MockAdapter)(nil)

// NewMockAdapter 创建返回固定响应的 MockAdapter
func NewMockAdapter(expectedResponse string, expectedError error) *MockAdapter {
	return &MockAdapter{ExpectedResponse: expectedResponse, ExpectedError: expectedError}
}

// NewMockAdapterSequential 创建按顺序返回响应的 MockAdapter
func NewMockAdapterSequential(responses ...MockResponse) *MockAdapter {
	return &MockAdapter{SequentialResponses: responses}
}

func (m *MockAdapter) SummarizeBounded(_ context.Context, text string, minLen, maxLen int) (string, error) {
	return m.respond(MockCall{Operation: "summarize", Input: text, MinLen: minLen, MaxLen: maxLen})
}

func (m *MockAdapter) Generate(_ context.Context, prompt string, opts GenerateOptions) (string, error) {
	return m.respond(MockCall{Operation: "generate", Input: prompt, Options: opts})
}

func (m *MockAdapter) respond(call MockCall) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)

	if len(m.SequentialResponses) > 0 {
		if m.responseIndex >= len(m.SequentialResponses) {
			return "", errors.New("mock adapter has run out of sequential responses")
		}
		resp := m.SequentialResponses[m.responseIndex]
		m.responseIndex++
		return resp.Content, resp.Error
	}
	return m.ExpectedResponse, m.ExpectedError
}

// Calls 返回所有已记录的调用
func (m *MockAdapter) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}
