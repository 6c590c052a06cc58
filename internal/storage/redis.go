package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"smart-resume-analyzer/internal/config"
	"smart-resume-analyzer/internal/constants"
	"smart-resume-analyzer/internal/tracing"
)

// Redis 摘要缓存，键为文本 MD5
type Redis struct {
	Client *redis.Client
	ttl    time.Duration
}

// NewRedis 创建 Redis 客户端并接入 OpenTelemetry
func NewRedis(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
		MaxRetries:   cfg.MaxRetries,
	})

	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return newRedisWithClient(client, time.Duration(cfg.SummaryTTLMinutes)*time.Minute), nil
}

func newRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = constants.DefaultSummaryTTL
	}
	return &Redis{Client: client, ttl: ttl}
}

// SummaryKey 摘要缓存键 summary:<md5(text)>
func SummaryKey(text string) string {
	sum := md5.Sum([]byte(text))
	return fmt.Sprintf(constants.KeySummaryCache, hex.EncodeToString(sum[:]))
}

// GetSummary 读取缓存的摘要，未命中时 ok 为 false
func (r *Redis) GetSummary(ctx context.Context, text string) (summary string, ok bool, err error) {
	key := SummaryKey(text)
	val, err := r.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		recordCacheError(ctx, err, key)
		return "", false, fmt.Errorf("读取摘要缓存失败: %w", err)
	}
	return val, true, nil
}

// SetSummary 写入摘要缓存
func (r *Redis) SetSummary(ctx context.Context, text, summary string) error {
	key := SummaryKey(text)
	if err := r.Client.Set(ctx, key, summary, r.ttl).Err(); err != nil {
		recordCacheError(ctx, err, key)
		return fmt.Errorf("写入摘要缓存失败: %w", err)
	}
	return nil
}

func recordCacheError(ctx context.Context, err error, key string) {
	tracing.RecordError(trace.SpanFromContext(ctx), err, tracing.ErrorTypeRedis,
		attribute.String("cache.key", tracing.SafeRedisKey(key)))
}

// Ping 检查连接
func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

// Close 关闭连接
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}
