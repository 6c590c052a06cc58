package processor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-resume-analyzer/internal/llm"
	"smart-resume-analyzer/internal/parser"
)

const (
	// 只有学历标记，结构化摘要短于50字符
	educationOnlyText = "Concluí o mestrado em letras e hoje trabalho com revisão de textos literários, traduções e acompanhamento editorial de livros."
	// 没有任何可识别部分，结构化摘要为通用句子（55字符）
	plainText = "Trabalho há bastante tempo com atendimento ao público, organização de eventos culturais e produção de conteúdo para redes sociais."
	richText  = "Carlos Lima\n" +
		"Engenheiro de software com 7 anos de experiência\n" +
		"Habilidades: Go, Python, Kubernetes, Docker e PostgreSQL\n\n" +
		"Certificações: CKA Certified Kubernetes Administrator\n\n" +
		"Bacharel em Ciência da Computação"
)

func TestSummarizeEmptyAndShortInput(t *testing.T) {
	mock := llm.NewMockAdapter("não deveria ser usado", nil)
	s := NewSummarizer(mock)
	ctx := context.Background()

	assert.Equal(t, EmptyTextMessage, s.Summarize(ctx, ""))
	assert.Equal(t, EmptyTextMessage, s.Summarize(ctx, "  \n\t "))
	assert.Equal(t, TooShortTextMessage, s.Summarize(ctx, "Python Docker"))
	assert.Empty(t, mock.Calls(), "过短的输入不应调用模型")
}

func TestSummarizeUsesStructuredSummaryWhenLongEnough(t *testing.T) {
	mock := llm.NewMockAdapter("resumo do modelo", nil)
	s := NewSummarizer(mock)

	summary := s.Summarize(context.Background(), richText)

	assert.Equal(t, parser.BuildSummary(richText), summary)
	assert.Greater(t, utf8.RuneCountInString(summary), 80)
	assert.Empty(t, mock.Calls(), "结构化摘要足够长时不应调用模型")
}

func TestSummarizeModelOnlyWhenStructuredTooShort(t *testing.T) {
	mock := llm.NewMockAdapter("  Revisor editorial com mestrado em letras.  ", nil)
	s := NewSummarizer(mock)

	summary := s.Summarize(context.Background(), educationOnlyText)

	assert.Equal(t, "Revisor editorial com mestrado em letras.", summary)
	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "summarize", calls[0].Operation)
	assert.Equal(t, 30, calls[0].MinLen)
	assert.Equal(t, 130, calls[0].MaxLen)
	assert.Equal(t, parser.Normalize(educationOnlyText), calls[0].Input)
}

func TestSummarizeCombinesStructuredAndModel(t *testing.T) {
	mock := llm.NewMockAdapter("Profissional de comunicação e eventos.", nil)
	s := NewSummarizer(mock)

	summary := s.Summarize(context.Background(), plainText)

	assert.Equal(t, parser.GenericSummary+" Profissional de comunicação e eventos.", summary)
}

func TestSummarizeDegradesWhenModelFails(t *testing.T) {
	ctx := context.Background()

	failing := NewSummarizer(llm.NewMockAdapter("", errors.New("timeout")))
	assert.Equal(t, parser.GenericSummary, failing.Summarize(ctx, plainText))

	empty := NewSummarizer(llm.NewMockAdapter("   ", nil))
	assert.Equal(t, parser.GenericSummary, empty.Summarize(ctx, plainText))

	unavailable := NewSummarizer(nil)
	assert.Equal(t, "Formação acadêmica mencionada.", unavailable.Summarize(ctx, educationOnlyText))
}

func TestSummarizeTruncatesModelInput(t *testing.T) {
	mock := llm.NewMockAdapter("Texto repetitivo.", nil)
	s := NewSummarizer(mock)

	s.Summarize(context.Background(), strings.Repeat("lorem ipsum dolor ", 300))

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 3000, utf8.RuneCountInString(calls[0].Input))
}

func TestSummarizeRecoversFromPanic(t *testing.T) {
	s := NewSummarizer(panicAdapter{})
	assert.Equal(t, "Erro ao gerar resumo: boom", s.Summarize(context.Background(), plainText))
}

func TestSummarizeRecordsPath(t *testing.T) {
	rec := &fakeRecorder{}
	s := NewSummarizer(llm.NewMockAdapter("", errors.New("falhou")), WithSummaryRecorder(rec))
	ctx := context.Background()

	s.Summarize(ctx, "")
	s.Summarize(ctx, richText)
	s.Summarize(ctx, plainText)

	assert.Equal(t, []string{"empty", "structured", "degraded"}, rec.summaries)
	assert.Equal(t, []string{"summarize:failure"}, rec.modelCalls)
}

func TestWithSummarizerSettingsKeepsDefaultsForZeroFields(t *testing.T) {
	s := NewSummarizer(nil, WithSummarizerSettings(SummarizerSettings{MinInputLength: 10}))
	expected := DefaultSummarizerSettings()
	expected.MinInputLength = 10
	assert.Equal(t, expected, s.settings)
}
