package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"gorm.io/datatypes"

	"smart-resume-analyzer/internal/types"
)

// AnalysisLogRecord 分析请求审计表
type AnalysisLogRecord struct {
	ID        string         `gorm:"type:char(36);primaryKey"`
	RequestID string         `gorm:"type:char(36);not null;index:idx_analysis_logs_request_id"`
	UserID    string         `gorm:"type:varchar(255);not null;index:idx_analysis_logs_user_id"`
	Query     string         `gorm:"type:text"`
	FileCount int            `gorm:"not null;default:0"`
	Results   datatypes.JSON `gorm:"type:json"`
	LoggedAt  time.Time      `gorm:"type:datetime(6);not null;index:idx_analysis_logs_logged_at"`
	CreatedAt time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
}

func (AnalysisLogRecord) TableName() string {
	return "analysis_logs"
}

// NewAnalysisLogRecord 由审计记录生成表行，主键为 UUIDv7
func NewAnalysisLogRecord(log types.AnalysisLog) (*AnalysisLogRecord, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成记录ID失败: %w", err)
	}
	results, err := json.Marshal(log.Resultado)
	if err != nil {
		return nil, fmt.Errorf("序列化分析结果失败: %w", err)
	}
	return &AnalysisLogRecord{
		ID:        id.String(),
		RequestID: log.RequestID,
		UserID:    log.UserID,
		Query:     log.Query,
		FileCount: len(log.Resultado),
		Results:   datatypes.JSON(results),
		LoggedAt:  log.Timestamp.UTC(),
	}, nil
}

// ToAnalysisLog 还原为审计记录
func (r *AnalysisLogRecord) ToAnalysisLog() (types.AnalysisLog, error) {
	out := types.AnalysisLog{
		RequestID: r.RequestID,
		UserID:    r.UserID,
		Timestamp: r.LoggedAt,
		Query:     r.Query,
		Resultado: map[string]types.FileResult{},
	}
	if len(r.Results) > 0 {
		if err := json.Unmarshal(r.Results, &out.Resultado); err != nil {
			return out, fmt.Errorf("解析分析结果失败: %w", err)
		}
	}
	return out, nil
}
