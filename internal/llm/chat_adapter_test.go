package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubChatModel 记录收到的消息和选项
type stubChatModel struct {
	content  string
	err      error
	messages []*schema.Message
	options  []model.Option
}

func (s *stubChatModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	s.messages = input
	s.options = opts
	if s.err != nil {
		return nil, s.err
	}
	return schema.AssistantMessage(s.content, nil), nil
}

func (s *stubChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func TestChatAdapterGenerate(t *testing.T) {
	stub := &stubChatModel{content: "  Sim. O candidato possui experiência com Go  "}
	adapter := NewChatAdapter(stub)

	out, err := adapter.Generate(context.Background(), "pergunta", DefaultGenerateOptions())
	require.NoError(t, err)
	assert.Equal(t, "Sim. O candidato possui experiência com Go", out)

	require.Len(t, stub.messages, 2)
	assert.Equal(t, schema.System, stub.messages[0].Role)
	assert.Equal(t, "pergunta", stub.messages[1].Content)

	common := model.GetCommonOptions(&model.Options{}, stub.options...)
	require.NotNil(t, common.Temperature)
	assert.InDelta(t, 0.1, *common.Temperature, 1e-6)
	require.NotNil(t, common.MaxTokens)
	assert.Equal(t, 800, *common.MaxTokens)

	extra := model.GetImplSpecificOptions(&qwenExtraOptions{}, stub.options...)
	require.NotNil(t, extra.Seed)
	assert.Equal(t, 0, *extra.Seed)
	require.NotNil(t, extra.FrequencyPenalty)
}

func TestChatAdapterErrors(t *testing.T) {
	_, err := NewChatAdapter(&stubChatModel{err: errors.New("boom")}).Generate(context.Background(), "p", DefaultGenerateOptions())
	assert.ErrorContains(t, err, "boom")

	_, err = NewChatAdapter(&stubChatModel{content: "   "}).SummarizeBounded(context.Background(), "texto", 30, 130)
	assert.ErrorIs(t, err, ErrEmptyOutput)
}

func TestChatAdapterSummarizeBoundedPrompt(t *testing.T) {
	stub := &stubChatModel{content: "Resumo curto."}
	_, err := NewChatAdapter(stub).SummarizeBounded(context.Background(), "conteúdo do currículo", 30, 130)
	require.NoError(t, err)

	assert.Contains(t, stub.messages[1].Content, "entre 30 e 130 palavras")
	assert.Contains(t, stub.messages[1].Content, "conteúdo do currículo")
	common := model.GetCommonOptions(&model.Options{}, stub.options...)
	require.NotNil(t, common.MaxTokens)
	assert.Equal(t, 260, *common.MaxTokens)
}

func TestQwenChatModelGenerate(t *testing.T) {
	var received chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","model":"qwen-plus","choices":[{"index":0,"message":{"role":"assistant","content":"Não. Falta experiência com nuvem."},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	qwen, err := NewQwenChatModel("test-key", "", server.URL, 5*time.Second)
	require.NoError(t, err)

	out, err := NewChatAdapter(qwen).Generate(context.Background(), "pergunta", DefaultGenerateOptions())
	require.NoError(t, err)
	assert.Equal(t, "Não. Falta experiência com nuvem.", out)

	assert.Equal(t, "qwen-plus", received.Model)
	require.Len(t, received.Messages, 2)
	assert.Equal(t, "system", received.Messages[0].Role)
	require.NotNil(t, received.MaxTokens)
	assert.Equal(t, 800, *received.MaxTokens)
	require.NotNil(t, received.Seed)
}

func TestQwenChatModelHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit"}}`))
	}))
	defer server.Close()

	qwen, err := NewQwenChatModel("test-key", "qwen-turbo", server.URL, time.Second)
	require.NoError(t, err)
	_, err = qwen.Generate(context.Background(), []*schema.Message{schema.UserMessage("oi")})
	assert.ErrorContains(t, err, "429")

	_, err = NewQwenChatModel(" ", "", "", 0)
	assert.Error(t, err)
}
