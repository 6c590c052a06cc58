// Package ocr 把上传的简历文件转换为纯文本
package ocr

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	einoParser "github.com/cloudwego/eino/components/document/parser"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/encoding/charmap"

	"smart-resume-analyzer/internal/logger"
	"smart-resume-analyzer/internal/tracing"
)

// ErrorPrefix 提取失败时返回文本的前缀，后续流程把它当作普通文本处理
const ErrorPrefix = "[ERRO OCR]"

// Kind 文件类别
type Kind string

const (
	KindText        Kind = "text"
	KindPDF         Kind = "pdf"
	KindImage       Kind = "image"
	KindUnsupported Kind = "unsupported"
)

var extensionKinds = map[string]Kind{
	".txt":  KindText,
	".md":   KindText,
	".pdf":  KindPDF,
	".png":  KindImage,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".tif":  KindImage,
	".tiff": KindImage,
	".bmp":  KindImage,
	".webp": KindImage,
	".gif":  KindImage,
}

// Observer 接收提取结果的统计
type Observer interface {
	ObserveOCR(kind, outcome string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveOCR(string, string, time.Duration) {}

// Extractor 按文件类型分派到 PDF 解析器或 Tika
type Extractor struct {
	pdf      einoParser.Parser
	tika     *TikaClient
	observer Observer
	tracer   trace.Tracer
}

// Option 配置 Extractor
type Option func(*Extractor)

// WithPDFParser 设置 PDF 解析器
func WithPDFParser(p einoParser.Parser) Option {
	return func(e *Extractor) {
		e.pdf = p
	}
}

// WithTika 设置 Tika 客户端，用于图片 OCR 以及扫描版 PDF
func WithTika(c *TikaClient) Option {
	return func(e *Extractor) {
		e.tika = c
	}
}

// WithObserver 设置统计接收者
func WithObserver(o Observer) Option {
	return func(e *Extractor) {
		if o != nil {
			e.observer = o
		}
	}
}

// NewExtractor 创建提取器
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		observer: nopObserver{},
		tracer:   otel.Tracer("smart-resume-analyzer/ocr"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DetectKind 先看扩展名，再嗅探内容
func DetectKind(filename string, data []byte) Kind {
	if kind, ok := extensionKinds[strings.ToLower(filepath.Ext(filename))]; ok {
		return kind
	}
	if len(data) == 0 {
		return KindUnsupported
	}
	contentType := http.DetectContentType(data)
	switch {
	case contentType == "application/pdf":
		return KindPDF
	case strings.HasPrefix(contentType, "image/"):
		return KindImage
	case strings.HasPrefix(contentType, "text/plain"):
		return KindText
	}
	return KindUnsupported
}

// Supported 是否能处理该文件
func (e *Extractor) Supported(filename string, data []byte) bool {
	return DetectKind(filename, data) != KindUnsupported
}

// ExtractText 返回文件文本，失败时返回以 ErrorPrefix 开头的说明
func (e *Extractor) ExtractText(ctx context.Context, filename string, data []byte) string {
	ctx, span := e.tracer.Start(ctx, "ocr.ExtractText", trace.WithAttributes(
		attribute.String("file.name", filename),
		attribute.Int("file.size", len(data)),
	))
	defer span.End()

	start := time.Now()
	kind := DetectKind(filename, data)
	span.SetAttributes(attribute.String("file.kind", string(kind)))

	if len(data) == 0 {
		e.observer.ObserveOCR(string(kind), "empty", time.Since(start))
		return ErrorPrefix + " arquivo vazio"
	}

	text, err := e.extract(ctx, kind, filename, data)
	outcome := "success"
	if err != nil {
		outcome = "failure"
		tracing.RecordError(span, err, tracing.ErrorTypeOCR)
		logger.Ctx(ctx).Warn().Err(err).Str("file", filename).Str("kind", string(kind)).Msg("文本提取失败")
		text = fmt.Sprintf("%s %v", ErrorPrefix, err)
	} else if strings.TrimSpace(text) == "" {
		outcome = "no_text"
		text = ErrorPrefix + " nenhum texto encontrado em " + filename
	}
	e.observer.ObserveOCR(string(kind), outcome, time.Since(start))
	return text
}

func (e *Extractor) extract(ctx context.Context, kind Kind, filename string, data []byte) (string, error) {
	switch kind {
	case KindText:
		return decodeText(data), nil
	case KindPDF:
		return e.extractPDF(ctx, filename, data)
	case KindImage:
		if e.tika == nil {
			return "", fmt.Errorf("OCR de imagem indisponível para %s", filename)
		}
		text, err := e.tika.Extract(ctx, filename, http.DetectContentType(data), data)
		if err != nil {
			return "", fmt.Errorf("falha no OCR de %s: %w", filename, err)
		}
		return collapseOCRLines(text), nil
	default:
		return "", fmt.Errorf("tipo de arquivo não suportado: %s", filename)
	}
}

// extractPDF 优先用内嵌文本，拿不到时交给 Tika 做 OCR
func (e *Extractor) extractPDF(ctx context.Context, filename string, data []byte) (string, error) {
	var pdfErr error
	if e.pdf != nil {
		text, err := parsePDF(ctx, e.pdf, filename, data)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
		pdfErr = err
	}
	if e.tika != nil {
		text, err := e.tika.Extract(ctx, filename, "application/pdf", data)
		if err == nil {
			return text, nil
		}
		return "", fmt.Errorf("falha ao ler PDF %s: %w", filename, err)
	}
	if pdfErr != nil {
		return "", fmt.Errorf("falha ao ler PDF %s: %w", filename, pdfErr)
	}
	if e.pdf == nil {
		return "", fmt.Errorf("leitor de PDF indisponível para %s", filename)
	}
	return "", nil
}

// decodeText 非 UTF-8 内容按 Latin-1 解码
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return strings.TrimPrefix(string(data), "\ufeff")
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "")
	}
	return string(decoded)
}

// collapseOCRLines OCR 结果按空格拼接成一段
func collapseOCRLines(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
