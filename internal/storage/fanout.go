package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"smart-resume-analyzer/internal/constants"
	"smart-resume-analyzer/internal/logger"
	"smart-resume-analyzer/internal/types"
)

// LogSaver 保存一次分析请求的审计记录
type LogSaver interface {
	SaveLog(ctx context.Context, log types.AnalysisLog) error
}

// LogReader 按请求ID读取审计记录
type LogReader interface {
	FindLogsByRequestID(ctx context.Context, requestID string) ([]types.AnalysisLog, error)
}

// SummaryCache 按文本内容缓存摘要
type SummaryCache interface {
	GetSummary(ctx context.Context, text string) (string, bool, error)
	SetSummary(ctx context.Context, text, summary string) error
}

// Archiver 归档原始上传文件
type Archiver interface {
	ArchiveOriginal(ctx context.Context, requestID, filename string, data []byte) (string, error)
}

// JSONPublisher 发布 JSON 消息
type JSONPublisher interface {
	PublishJSON(ctx context.Context, exchange, routingKey string, data any, persistent bool) error
}

var (
	_ LogSaver      = (*MySQL)(nil)
	_ LogReader     = (*MySQL)(nil)
	_ SummaryCache  = (*Redis)(nil)
	_ Archiver      = (*MinIO)(nil)
	_ JSONPublisher = (*RabbitMQ)(nil)
)

// EventLogSaver 把审计记录作为 analysis.completed 事件发布
type EventLogSaver struct {
	publisher  JSONPublisher
	exchange   string
	routingKey string
	timeout    time.Duration
}

// NewEventLogSaver 创建事件发布型 LogSaver
func NewEventLogSaver(publisher JSONPublisher, exchange, routingKey string, timeout time.Duration) *EventLogSaver {
	if routingKey == "" {
		routingKey = constants.EventAnalysisCompleted
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &EventLogSaver{publisher: publisher, exchange: exchange, routingKey: routingKey, timeout: timeout}
}

// SaveLog 发布事件
func (s *EventLogSaver) SaveLog(ctx context.Context, log types.AnalysisLog) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	msg := NewAnalysisCompletedMessage(constants.EventAnalysisCompleted, log)
	return s.publisher.PublishJSON(ctx, s.exchange, s.routingKey, msg, true)
}

// LoggingSaver 把审计记录写入结构化日志
type LoggingSaver struct{}

// SaveLog 记录一条 info 日志
func (LoggingSaver) SaveLog(ctx context.Context, log types.AnalysisLog) error {
	files := make([]string, 0, len(log.Resultado))
	for name := range log.Resultado {
		files = append(files, name)
	}
	sort.Strings(files)
	logger.Ctx(ctx).Info().
		Str("request_id", log.RequestID).
		Str("user_id", log.UserID).
		Time("timestamp", log.Timestamp).
		Str("query", log.Query).
		Strs("files", files).
		Msg("análise registrada")
	return nil
}

type namedSaver struct {
	name  string
	saver LogSaver
}

// LogFanout 依次写入所有下游，单个失败不影响其他
type LogFanout struct {
	sinks   []namedSaver
	onError func(sink string, err error)
}

// NewLogFanout 创建空的扇出器
func NewLogFanout() *LogFanout {
	return &LogFanout{}
}

// Add 追加一个下游
func (f *LogFanout) Add(name string, saver LogSaver) *LogFanout {
	if saver != nil {
		f.sinks = append(f.sinks, namedSaver{name: name, saver: saver})
	}
	return f
}

// OnError 注册失败回调，用于统计
func (f *LogFanout) OnError(fn func(sink string, err error)) *LogFanout {
	f.onError = fn
	return f
}

// Sinks 返回下游名称
func (f *LogFanout) Sinks() []string {
	names := make([]string, len(f.sinks))
	for i, s := range f.sinks {
		names[i] = s.name
	}
	return names
}

// SaveLog 写入所有下游，返回合并后的错误
func (f *LogFanout) SaveLog(ctx context.Context, log types.AnalysisLog) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.saver.SaveLog(ctx, log); err != nil {
			if f.onError != nil {
				f.onError(s.name, err)
			}
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
