package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorType span 上 error.type 属性的取值
type ErrorType string

const (
	ErrorTypeHTTP          ErrorType = "http"
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeDB            ErrorType = "db"
	ErrorTypeRedis         ErrorType = "redis"
	ErrorTypeRabbitMQ      ErrorType = "rabbitmq"
	ErrorTypeObjectStorage ErrorType = "object_storage"
	ErrorTypeModel         ErrorType = "model"
	ErrorTypeOCR           ErrorType = "ocr"
	ErrorTypeInternal      ErrorType = "internal"
)

// RecordError 记录错误并把 span 置为失败，attrs 为附加属性
func RecordError(span trace.Span, err error, errorType ErrorType, attrs ...attribute.KeyValue) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetAttributes(
		attribute.String("error.type", string(errorType)),
		attribute.String("error.message", TruncateString(err.Error(), DefaultMaxLength)),
	)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	span.SetStatus(codes.Error, err.Error())
}

// RecordHTTPStatus 按响应状态码标记请求 span，2xx/3xx 不做处理。
// 4xx 只打标签，5xx 同时把 span 置为失败
func RecordHTTPStatus(span trace.Span, statusCode int, detail string) {
	if span == nil || statusCode < 400 {
		return
	}
	category := "client_error"
	if statusCode >= 500 {
		category = "server_error"
	}
	span.SetAttributes(
		attribute.String("error.type", string(ErrorTypeHTTP)),
		attribute.String("error.category", category),
		attribute.Int("http.status_code", statusCode),
	)
	if statusCode >= 500 {
		span.SetStatus(codes.Error, TruncateString(detail, DefaultMaxLength))
	}
}
