package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// 发件箱消息状态
const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// OutboxMessage 待投递的事件，与审计记录在同一事务中写入
type OutboxMessage struct {
	ID               uint64         `gorm:"primaryKey;autoIncrement"`
	AggregateID      string         `gorm:"type:char(36);not null;index"` // 请求ID
	EventType        string         `gorm:"type:varchar(128);not null"`
	Payload          datatypes.JSON `gorm:"type:json;not null"`
	TargetExchange   string         `gorm:"type:varchar(255);not null"`
	TargetRoutingKey string         `gorm:"type:varchar(255);not null"`
	Status           string         `gorm:"type:varchar(16);default:'PENDING';not null;index:idx_outbox_status_created_at,priority:1"`
	RetryCount       int            `gorm:"not null;default:0"`
	CreatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_outbox_status_created_at,priority:2"`
	ProcessedAt      *time.Time     `gorm:"type:datetime(6)"`
	ErrorMessage     string         `gorm:"type:text"`
}

func (OutboxMessage) TableName() string {
	return "outbox_messages"
}

// NewOutboxMessage 序列化事件负载，状态为 PENDING
func NewOutboxMessage(aggregateID, eventType, exchange, routingKey string, payload any) (*OutboxMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化事件负载失败: %w", err)
	}
	return &OutboxMessage{
		AggregateID:      aggregateID,
		EventType:        eventType,
		Payload:          datatypes.JSON(body),
		TargetExchange:   exchange,
		TargetRoutingKey: routingKey,
		Status:           OutboxStatusPending,
	}, nil
}

// MarkPublished 根据一次投递结果更新状态，重试次数达到 maxRetries 后置为 FAILED
func (m *OutboxMessage) MarkPublished(err error, now time.Time, maxRetries int) {
	if err == nil {
		m.Status = OutboxStatusSent
		m.ProcessedAt = &now
		m.ErrorMessage = ""
		return
	}
	m.RetryCount++
	m.ErrorMessage = err.Error()
	if m.RetryCount >= maxRetries {
		m.Status = OutboxStatusFailed
		m.ProcessedAt = &now
	}
}
