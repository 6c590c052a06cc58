package processor

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"smart-resume-analyzer/internal/llm"
	"smart-resume-analyzer/internal/logger"
	"smart-resume-analyzer/internal/parser"
	"smart-resume-analyzer/internal/tracing"
)

const (
	EmptyTextMessage    = "Texto vazio, não foi possível gerar resumo."
	TooShortTextMessage = "Texto muito curto para gerar um resumo significativo."
	summaryErrorPrefix  = "Erro ao gerar resumo: "
)

// 摘要路径，用于指标
const (
	summaryPathEmpty      = "empty"
	summaryPathTooShort   = "too_short"
	summaryPathStructured = "structured"
	summaryPathModel      = "model"
	summaryPathCombined   = "combined"
	summaryPathDegraded   = "degraded"
	summaryPathError      = "error"
)

// SummarizerSettings 摘要阈值
type SummarizerSettings struct {
	MinInputLength        int // 清洗后短于该长度直接返回"过短"
	StructuredEnough      int // 结构化摘要长于该值时不调用模型
	StructuredTooShort    int // 结构化摘要短于该值时只用模型结果
	MaxModelInputLength   int
	ModelSummaryMinLength int
	ModelSummaryMaxLength int
}

// DefaultSummarizerSettings 默认阈值
func DefaultSummarizerSettings() SummarizerSettings {
	return SummarizerSettings{
		MinInputLength:        100,
		StructuredEnough:      80,
		StructuredTooShort:    50,
		MaxModelInputLength:   3000,
		ModelSummaryMinLength: 30,
		ModelSummaryMaxLength: 130,
	}
}

// Summarizer 生成简历摘要：优先结构化摘要，不足时调用模型补充
type Summarizer struct {
	model    llm.ModelAdapter
	recorder Recorder
	tracer   trace.Tracer
	settings SummarizerSettings
}

// SummarizerOption 摘要器配置选项
type SummarizerOption func(*Summarizer)

// WithSummaryRecorder 设置统计接收者
func WithSummaryRecorder(r Recorder) SummarizerOption {
	return func(s *Summarizer) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithSummarizerSettings 覆盖默认阈值，零值字段保持默认
func WithSummarizerSettings(settings SummarizerSettings) SummarizerOption {
	return func(s *Summarizer) {
		def := s.settings
		if settings.MinInputLength > 0 {
			def.MinInputLength = settings.MinInputLength
		}
		if settings.StructuredEnough > 0 {
			def.StructuredEnough = settings.StructuredEnough
		}
		if settings.StructuredTooShort > 0 {
			def.StructuredTooShort = settings.StructuredTooShort
		}
		if settings.MaxModelInputLength > 0 {
			def.MaxModelInputLength = settings.MaxModelInputLength
		}
		if settings.ModelSummaryMinLength > 0 {
			def.ModelSummaryMinLength = settings.ModelSummaryMinLength
		}
		if settings.ModelSummaryMaxLength > 0 {
			def.ModelSummaryMaxLength = settings.ModelSummaryMaxLength
		}
		s.settings = def
	}
}

// NewSummarizer 创建摘要器，model 为 nil 时视为模型不可用
func NewSummarizer(model llm.ModelAdapter, opts ...SummarizerOption) *Summarizer {
	if model == nil {
		model = llm.Unavailable{}
	}
	s := &Summarizer{
		model:    model,
		recorder: nopRecorder{},
		tracer:   otel.Tracer("smart-resume-analyzer/processor"),
		settings: DefaultSummarizerSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize 生成摘要，任何情况下都返回字符串
func (s *Summarizer) Summarize(ctx context.Context, text string) (summary string) {
	ctx, span := s.tracer.Start(ctx, "Summarizer.Summarize")
	defer span.End()

	path := summaryPathError
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%v", r)
			tracing.RecordError(span, err, tracing.ErrorTypeInternal)
			logger.Error().Interface("panic", r).Msg("生成摘要时发生异常")
			summary = summaryErrorPrefix + err.Error()
			path = summaryPathError
		}
		span.SetAttributes(attribute.String("summary.path", path))
		s.recorder.ObserveSummary(path)
	}()

	summary, path = s.summarize(ctx, span, text)
	return summary
}

func (s *Summarizer) summarize(ctx context.Context, span trace.Span, text string) (string, string) {
	if strings.TrimSpace(text) == "" {
		return EmptyTextMessage, summaryPathEmpty
	}

	normalized := parser.Normalize(text)
	if length := utf8.RuneCountInString(normalized); length < s.settings.MinInputLength {
		logger.Debug().Err(NewInputTooShortError("summarize", length)).Msg("文本过短，跳过摘要")
		return TooShortTextMessage, summaryPathTooShort
	}

	structured := parser.BuildSummary(text)
	structuredLength := utf8.RuneCountInString(structured)
	if structuredLength > s.settings.StructuredEnough {
		return structured, summaryPathStructured
	}

	modelSummary, err := s.model.SummarizeBounded(ctx, truncateRunes(normalized, s.settings.MaxModelInputLength),
		s.settings.ModelSummaryMinLength, s.settings.ModelSummaryMaxLength)
	if err == nil && strings.TrimSpace(modelSummary) == "" {
		err = llm.ErrEmptyOutput
	}
	if err != nil {
		err = NewModelError("summarize", err)
		s.recorder.ObserveModelCall("summarize", outcomeOf(err))
		tracing.RecordError(span, err, tracing.ErrorTypeModel)
		logger.Warn().Err(err).Msg("模型摘要失败，使用结构化摘要")
		return structured, summaryPathDegraded
	}
	s.recorder.ObserveModelCall("summarize", outcomeOf(nil))

	modelSummary = strings.TrimSpace(modelSummary)
	if structuredLength < s.settings.StructuredTooShort {
		return modelSummary, summaryPathModel
	}
	return structured + " " + modelSummary, summaryPathCombined
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
