package storage

import (
	"time"

	"smart-resume-analyzer/internal/types"
)

// AnalysisCompletedMessage 分析完成事件
type AnalysisCompletedMessage struct {
	Event     string                      `json:"event"`
	RequestID string                      `json:"request_id"`
	UserID    string                      `json:"user_id"`
	Timestamp time.Time                   `json:"timestamp"`
	Query     string                      `json:"query,omitempty"`
	FileCount int                         `json:"file_count"`
	Answers   map[string]types.Answer     `json:"answers,omitempty"` // 仅问答模式
	Resultado map[string]types.FileResult `json:"resultado"`
}

// NewAnalysisCompletedMessage 由审计记录生成事件
func NewAnalysisCompletedMessage(event string, log types.AnalysisLog) AnalysisCompletedMessage {
	msg := AnalysisCompletedMessage{
		Event:     event,
		RequestID: log.RequestID,
		UserID:    log.UserID,
		Timestamp: log.Timestamp.UTC(),
		Query:     log.Query,
		FileCount: len(log.Resultado),
		Resultado: log.Resultado,
	}
	if log.Query != "" {
		msg.Answers = make(map[string]types.Answer, len(log.Resultado))
		for name, r := range log.Resultado {
			msg.Answers[name] = r.Answer
		}
	}
	return msg
}
