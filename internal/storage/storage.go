package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"smart-resume-analyzer/internal/config"
	"smart-resume-analyzer/internal/logger"
	"smart-resume-analyzer/internal/outbox"
)

// Storage 聚合所有可选的存储依赖，未配置或初始化失败的组件为 nil
type Storage struct {
	MySQL    *MySQL
	Redis    *Redis
	MinIO    *MinIO
	RabbitMQ *RabbitMQ
	// Relay 仅在 MySQL、RabbitMQ 都可用且开启 use_outbox 时存在，由调用方 Start
	Relay *outbox.MessageRelay

	cfg *config.Config
}

// NewStorage 按配置初始化各组件，单个组件失败只记录警告
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	s := &Storage{cfg: cfg}
	var initErrors []string
	var err error

	if cfg.MySQL.Host != "" {
		if s.MySQL, err = NewMySQL(&cfg.MySQL); err != nil {
			initErrors = append(initErrors, fmt.Sprintf("MySQL: %v", err))
		}
	}
	if cfg.Redis.Address != "" {
		if s.Redis, err = NewRedis(&cfg.Redis); err != nil {
			initErrors = append(initErrors, fmt.Sprintf("Redis: %v", err))
		}
	}
	if cfg.MinIO.Endpoint != "" {
		if s.MinIO, err = NewMinIO(ctx, &cfg.MinIO); err != nil {
			initErrors = append(initErrors, fmt.Sprintf("MinIO: %v", err))
		}
	}
	if cfg.RabbitMQ.URL != "" {
		if s.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ); err != nil {
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ: %v", err))
		}
	}

	if cfg.RabbitMQ.UseOutbox && s.MySQL != nil && s.RabbitMQ != nil {
		s.MySQL.EnableOutbox(cfg.RabbitMQ.AnalysisExchange, cfg.RabbitMQ.AnalysisRoutingKey)
		s.Relay = outbox.NewMessageRelay(s.MySQL.DB(), s.RabbitMQ,
			outbox.WithPollingInterval(time.Duration(cfg.RabbitMQ.OutboxPollSeconds)*time.Second),
			outbox.WithBatchSize(cfg.RabbitMQ.OutboxBatchSize),
			outbox.WithMaxRetries(cfg.RabbitMQ.OutboxMaxRetries),
		)
	}

	if len(initErrors) > 0 {
		logger.Warn().Str("errors", strings.Join(initErrors, "; ")).Msg("部分存储组件初始化失败，相关功能将被跳过")
	}
	logger.Info().
		Bool("mysql", s.MySQL != nil).
		Bool("redis", s.Redis != nil).
		Bool("minio", s.MinIO != nil).
		Bool("rabbitmq", s.RabbitMQ != nil).
		Bool("outbox", s.Relay != nil).
		Msg("存储组件初始化完成")
	return s, nil
}

// LogSaver 组合日志、MySQL 与 RabbitMQ 下游，发件箱模式下事件由 MySQL 事务写入
func (s *Storage) LogSaver(onError func(sink string, err error)) *LogFanout {
	f := NewLogFanout().Add("log", LoggingSaver{}).OnError(onError)
	if s.MySQL != nil {
		f.Add("mysql", s.MySQL)
	}
	if s.RabbitMQ != nil && (s.MySQL == nil || !s.MySQL.OutboxEnabled()) {
		f.Add("rabbitmq", NewEventLogSaver(s.RabbitMQ, s.cfg.RabbitMQ.AnalysisExchange, s.cfg.RabbitMQ.AnalysisRoutingKey,
			time.Duration(s.cfg.RabbitMQ.PublishTimeoutSeconds)*time.Second))
	}
	return f
}

// LogReader 未启用 MySQL 时返回 nil
func (s *Storage) LogReader() LogReader {
	if s.MySQL == nil {
		return nil
	}
	return s.MySQL
}

// SummaryCache 未启用 Redis 时返回 nil
func (s *Storage) SummaryCache() SummaryCache {
	if s.Redis == nil {
		return nil
	}
	return s.Redis
}

// Archiver 未启用 MinIO 时返回 nil
func (s *Storage) Archiver() Archiver {
	if s.MinIO == nil {
		return nil
	}
	return s.MinIO
}

// Close 停止中继并关闭所有连接
func (s *Storage) Close() {
	if s.Relay != nil {
		s.Relay.Stop()
	}
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭MySQL连接失败")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭Redis连接失败")
		}
	}
}

var _ outbox.Publisher = (*RabbitMQ)(nil)
