package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"smart-resume-analyzer/internal/config"
	"smart-resume-analyzer/internal/constants"
	"smart-resume-analyzer/internal/storage/models"
	"smart-resume-analyzer/internal/tracing"
	"smart-resume-analyzer/internal/types"
)

type spanCtxKey struct{}

// GormTracingPlugin 为每条 GORM 操作创建 span
type GormTracingPlugin struct {
	tracer trace.Tracer
	dbName string
}

// NewGormTracingPlugin 创建追踪插件，tracer 为空时使用全局 provider
func NewGormTracingPlugin(dbName string, tracer trace.Tracer) *GormTracingPlugin {
	if tracer == nil {
		tracer = otel.Tracer("smart-resume-analyzer/storage/mysql")
	}
	return &GormTracingPlugin{tracer: tracer, dbName: dbName}
}

// Name 插件名
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 在增删改查前后注册回调
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		op       string
		name     string
		register func(name string, before, after func(*gorm.DB)) error
	}{
		{"INSERT", "create", func(n string, b, a func(*gorm.DB)) error {
			if err := cb.Create().Before("gorm:create").Register("otel:before_"+n, b); err != nil {
				return err
			}
			return cb.Create().After("gorm:create").Register("otel:after_"+n, a)
		}},
		{"SELECT", "query", func(n string, b, a func(*gorm.DB)) error {
			if err := cb.Query().Before("gorm:query").Register("otel:before_"+n, b); err != nil {
				return err
			}
			return cb.Query().After("gorm:query").Register("otel:after_"+n, a)
		}},
		{"DELETE", "delete", func(n string, b, a func(*gorm.DB)) error {
			if err := cb.Delete().Before("gorm:delete").Register("otel:before_"+n, b); err != nil {
				return err
			}
			return cb.Delete().After("gorm:delete").Register("otel:after_"+n, a)
		}},
		{"RAW", "raw", func(n string, b, a func(*gorm.DB)) error {
			if err := cb.Raw().Before("gorm:raw").Register("otel:before_"+n, b); err != nil {
				return err
			}
			return cb.Raw().After("gorm:raw").Register("otel:after_"+n, a)
		}},
	}
	for _, h := range hooks {
		if err := h.register(h.name, p.before(h.op), p.after); err != nil {
			return fmt.Errorf("注册 %s 追踪回调失败: %w", h.name, err)
		}
	}
	return nil
}

func (p *GormTracingPlugin) before(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		ctx, span := p.tracer.Start(ctx, operation+" "+table,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", table),
			))
		db.Statement.Context = context.WithValue(ctx, spanCtxKey{}, span)
	}
}

func (p *GormTracingPlugin) after(db *gorm.DB) {
	span, ok := db.Statement.Context.Value(spanCtxKey{}).(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	if sql := db.Statement.SQL.String(); sql != "" {
		span.SetAttributes(attribute.String("db.statement", tracing.SafeSQL(sql)))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

	switch {
	case db.Error == nil:
		span.SetStatus(codes.Ok, "")
	case errors.Is(db.Error, gorm.ErrRecordNotFound):
		span.SetStatus(codes.Ok, "record not found")
	default:
		tracing.RecordError(span, db.Error, tracing.ErrorTypeDB)
	}
}

// MySQL 保存分析审计记录
type MySQL struct {
	db     *gorm.DB
	outbox *outboxTarget
}

// outboxTarget 启用发件箱时事件的投递目标
type outboxTarget struct {
	exchange   string
	routingKey string
}

func gormLogLevel(level int) gormlogger.LogLevel {
	switch level {
	case 2:
		return gormlogger.Error
	case 3:
		return gormlogger.Warn
	case 4:
		return gormlogger.Info
	default:
		return gormlogger.Silent
	}
}

// NewMySQL 连接 MySQL、注册追踪插件并迁移 analysis_logs 表
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		PrepareStmt:                              true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	m, err := newMySQLWithDB(db, cfg.Database)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if err := db.Session(&gorm.Session{Logger: gormlogger.Discard}).AutoMigrate(&models.AnalysisLogRecord{}, &models.OutboxMessage{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}
	return m, nil
}

func newMySQLWithDB(db *gorm.DB, dbName string) (*MySQL, error) {
	if err := db.Use(NewGormTracingPlugin(dbName, nil)); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}
	return &MySQL{db: db}, nil
}

// DB 返回 GORM 实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// EnableOutbox 之后的 SaveLog 会在同一事务中写入 analysis.completed 事件
func (m *MySQL) EnableOutbox(exchange, routingKey string) {
	if routingKey == "" {
		routingKey = constants.EventAnalysisCompleted
	}
	m.outbox = &outboxTarget{exchange: exchange, routingKey: routingKey}
}

// OutboxEnabled 是否通过发件箱发布事件
func (m *MySQL) OutboxEnabled() bool {
	return m.outbox != nil
}

// SaveLog 写入一条审计记录，启用发件箱时连同事件一起提交
func (m *MySQL) SaveLog(ctx context.Context, log types.AnalysisLog) error {
	record, err := models.NewAnalysisLogRecord(log)
	if err != nil {
		return err
	}
	if m.outbox == nil {
		if err := m.db.WithContext(ctx).Create(record).Error; err != nil {
			return fmt.Errorf("写入分析日志失败: %w", err)
		}
		return nil
	}

	msg, err := models.NewOutboxMessage(log.RequestID, constants.EventAnalysisCompleted,
		m.outbox.exchange, m.outbox.routingKey, NewAnalysisCompletedMessage(constants.EventAnalysisCompleted, log))
	if err != nil {
		return err
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("写入分析日志失败: %w", err)
		}
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("写入发件箱失败: %w", err)
		}
		return nil
	})
}

// FindLogsByRequestID 按请求ID查询审计记录，按记录时间升序
func (m *MySQL) FindLogsByRequestID(ctx context.Context, requestID string) ([]types.AnalysisLog, error) {
	var records []models.AnalysisLogRecord
	if err := m.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("logged_at ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("查询分析日志失败: %w", err)
	}

	logs := make([]types.AnalysisLog, 0, len(records))
	for i := range records {
		log, err := records[i].ToAnalysisLog()
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, nil
}

// Close 关闭连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}
