package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"smart-resume-analyzer/internal/logger"
	"smart-resume-analyzer/internal/storage"
	"smart-resume-analyzer/internal/tracing"
	"smart-resume-analyzer/internal/types"
)

// 分析模式，用于指标标签
const (
	ModeSummary = "summary"
	ModeAnswer  = "answer"
)

// 默认逐个处理文件
const defaultMaxConcurrency = 1

var (
	ErrNoFiles          = errors.New("nenhum arquivo enviado")
	ErrInvalidRequestID = errors.New("request_id deve ser um UUID válido")
	ErrMissingUserID    = errors.New("user_id é obrigatório")
	ErrLogsUnavailable  = errors.New("consulta de registros indisponível")
)

// UnsupportedFileError 文件类型无法处理
type UnsupportedFileError struct {
	Filename string
}

func (e *UnsupportedFileError) Error() string {
	return fmt.Sprintf("tipo de arquivo não suportado: %s", e.Filename)
}

// TextExtractor 从上传文件中取文本
type TextExtractor interface {
	Supported(filename string, data []byte) bool
	ExtractText(ctx context.Context, filename string, data []byte) string
}

// Summarizer 生成简历摘要
type Summarizer interface {
	Summarize(ctx context.Context, text string) string
}

// Answerer 回答关于简历的问题
type Answerer interface {
	Answer(ctx context.Context, resumeText, query string) types.Decision
}

// Observer 接收请求级统计
type Observer interface {
	ObserveFile(mode string)
	ObservePersistError(sink string)
}

type nopObserver struct{}

func (nopObserver) ObserveFile(string) {}
func (nopObserver) ObservePersistError(string) {}

// UploadedFile 一个已读入内存的上传文件
type UploadedFile struct {
	Filename string
	Data     []byte
}

// AnalyzeRequest 分析请求
type AnalyzeRequest struct {
	RequestID string
	UserID    string
	Query     string
	Files     []UploadedFile
}

// AnalyzeResponse 以文件名为键的结果
type AnalyzeResponse map[string]types.FileResult

// AnalyzeHandler 协调提取、归档、摘要/问答和审计记录
type AnalyzeHandler struct {
	extractor  TextExtractor
	summarizer Summarizer
	answerer   Answerer

	saver    storage.LogSaver
	reader   storage.LogReader
	cache    storage.SummaryCache
	archiver storage.Archiver
	observer Observer

	maxConcurrency int
	now            func() time.Time
	tracer         trace.Tracer
}

// Option 配置 AnalyzeHandler
type Option func(*AnalyzeHandler)

// WithLogSaver 审计记录下游
func WithLogSaver(s storage.LogSaver) Option {
	return func(h *AnalyzeHandler) { h.saver = s }
}

// WithLogReader 审计记录查询
func WithLogReader(r storage.LogReader) Option {
	return func(h *AnalyzeHandler) { h.reader = r }
}

// WithSummaryCache 摘要缓存
func WithSummaryCache(c storage.SummaryCache) Option {
	return func(h *AnalyzeHandler) { h.cache = c }
}

// WithArchiver 原始文件归档
func WithArchiver(a storage.Archiver) Option {
	return func(h *AnalyzeHandler) { h.archiver = a }
}

// WithObserver 请求统计
func WithObserver(o Observer) Option {
	return func(h *AnalyzeHandler) {
		if o != nil {
			h.observer = o
		}
	}
}

// WithMaxConcurrency 单个请求内并行处理的文件数，结果与顺序处理一致
func WithMaxConcurrency(n int) Option {
	return func(h *AnalyzeHandler) {
		if n > 0 {
			h.maxConcurrency = n
		}
	}
}

// WithClock 测试用
func WithClock(now func() time.Time) Option {
	return func(h *AnalyzeHandler) { h.now = now }
}

// NewAnalyzeHandler 创建处理器，storage 相关依赖均可为空
func NewAnalyzeHandler(extractor TextExtractor, summarizer Summarizer, answerer Answerer, opts ...Option) *AnalyzeHandler {
	h := &AnalyzeHandler{
		extractor:      extractor,
		summarizer:     summarizer,
		answerer:       answerer,
		observer:       nopObserver{},
		maxConcurrency: defaultMaxConcurrency,
		now:            time.Now,
		tracer:         otel.Tracer("smart-resume-analyzer/handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Validate 检查必填字段和文件类型
func (h *AnalyzeHandler) Validate(req *AnalyzeRequest) error {
	if len(req.Files) == 0 {
		return ErrNoFiles
	}
	if _, err := uuid.Parse(strings.TrimSpace(req.RequestID)); err != nil {
		return ErrInvalidRequestID
	}
	if strings.TrimSpace(req.UserID) == "" {
		return ErrMissingUserID
	}
	for _, f := range req.Files {
		if !h.extractor.Supported(f.Filename, f.Data) {
			return &UnsupportedFileError{Filename: f.Filename}
		}
	}
	return nil
}

// HandleAnalyze 处理一次分析请求。单个文件的失败以文本形式写进结果，
// 持久化失败只记录日志
func (h *AnalyzeHandler) HandleAnalyze(ctx context.Context, req *AnalyzeRequest) (AnalyzeResponse, error) {
	if err := h.Validate(req); err != nil {
		tracing.RecordError(trace.SpanFromContext(ctx), err, tracing.ErrorTypeValidation)
		return nil, err
	}
	req.RequestID = strings.TrimSpace(req.RequestID)
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("request.id", req.RequestID),
		attribute.String("user.id", tracing.SafeAttributeValue("user.id", req.UserID, tracing.DefaultMaxLength)),
	)
	query := strings.TrimSpace(req.Query)

	ctx = logger.WithRequest(ctx, req.RequestID, req.UserID)
	mode := ModeSummary
	if query != "" {
		mode = ModeAnswer
	}
	logger.Ctx(ctx).Info().Int("files", len(req.Files)).Str("mode", mode).Msg("开始分析请求")

	results := make(AnalyzeResponse, len(req.Files))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, h.maxConcurrency)

	for _, f := range req.Files {
		wg.Add(1)
		sem <- struct{}{}
		go func(f UploadedFile) {
			defer wg.Done()
			defer func() { <-sem }()

			result := h.analyzeFile(ctx, req.RequestID, f, query)
			h.observer.ObserveFile(mode)

			mu.Lock()
			// 同名文件后到者覆盖
			results[f.Filename] = result
			mu.Unlock()
		}(f)
	}
	wg.Wait()

	h.saveLog(ctx, types.AnalysisLog{
		RequestID: req.RequestID,
		UserID:    req.UserID,
		Timestamp: h.now().UTC(),
		Query:     query,
		Resultado: results,
	})
	return results, nil
}

func (h *AnalyzeHandler) analyzeFile(ctx context.Context, requestID string, f UploadedFile, query string) types.FileResult {
	ctx, span := h.tracer.Start(ctx, "analyze.file", trace.WithAttributes(
		attribute.String("file.name", tracing.SafeAttributeValue("file.name", f.Filename, tracing.DefaultMaxLength)),
		attribute.Int("file.size", len(f.Data)),
	))
	defer span.End()

	h.archive(ctx, requestID, f)
	text := h.extractor.ExtractText(ctx, f.Filename, f.Data)

	if query == "" {
		return types.FileResult{Summary: h.summarize(ctx, text)}
	}

	decision := h.answerer.Answer(ctx, text, query)
	span.SetAttributes(
		attribute.String("decision.answer", string(decision.Answer)),
		attribute.String("decision.source", string(decision.Source)),
	)
	return types.FileResult{
		Answer:        decision.Answer,
		Justification: decision.Justification,
		ResumeSummary: h.summarize(ctx, text),
	}
}

// summarize 先查缓存，未命中时生成并回写
func (h *AnalyzeHandler) summarize(ctx context.Context, text string) string {
	if h.cache == nil {
		return h.summarizer.Summarize(ctx, text)
	}

	if cached, ok, err := h.cache.GetSummary(ctx, text); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("读取摘要缓存失败")
	} else if ok {
		return cached
	}

	summary := h.summarizer.Summarize(ctx, text)
	if err := h.cache.SetSummary(ctx, text, summary); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("写入摘要缓存失败")
	}
	return summary
}

func (h *AnalyzeHandler) archive(ctx context.Context, requestID string, f UploadedFile) {
	if h.archiver == nil || len(f.Data) == 0 {
		return
	}
	key, err := h.archiver.ArchiveOriginal(ctx, requestID, f.Filename, f.Data)
	if err != nil {
		tracing.RecordError(trace.SpanFromContext(ctx), err, tracing.ErrorTypeObjectStorage)
		h.observer.ObservePersistError("minio")
		logger.Ctx(ctx).Warn().Err(err).Str("filename", f.Filename).Msg("归档原始文件失败")
		return
	}
	logger.Ctx(ctx).Debug().Str("object", key).Msg("原始文件已归档")
}

func (h *AnalyzeHandler) saveLog(ctx context.Context, log types.AnalysisLog) {
	if h.saver == nil {
		return
	}
	if err := h.saver.SaveLog(ctx, log); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("保存分析记录失败")
	}
}

// HandleGetLogs 按请求ID查询审计记录
func (h *AnalyzeHandler) HandleGetLogs(ctx context.Context, requestID string) ([]types.AnalysisLog, error) {
	if h.reader == nil {
		return nil, ErrLogsUnavailable
	}
	if _, err := uuid.Parse(strings.TrimSpace(requestID)); err != nil {
		return nil, ErrInvalidRequestID
	}
	logs, err := h.reader.FindLogsByRequestID(ctx, strings.TrimSpace(requestID))
	if err != nil {
		return nil, fmt.Errorf("查询分析记录失败: %w", err)
	}
	return logs, nil
}
