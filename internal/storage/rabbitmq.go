package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"smart-resume-analyzer/internal/config"
	"smart-resume-analyzer/internal/logger"
)

// RabbitMQ 发布分析事件
type RabbitMQ struct {
	conn     *amqp.Connection
	channels chan *amqp.Channel
	cfg      *config.RabbitMQConfig
}

// NewRabbitMQ 建立连接，声明交换机、队列和绑定
func NewRabbitMQ(cfg *config.RabbitMQConfig) (*RabbitMQ, error) {
	if cfg == nil {
		return nil, fmt.Errorf("RabbitMQ配置不能为空")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("RabbitMQ URL配置不能为空")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("无法连接到RabbitMQ服务器: %w", err)
	}

	size := cfg.ChannelPoolSize
	if size <= 0 {
		size = 1
	}
	r := &RabbitMQ{conn: conn, channels: make(chan *amqp.Channel, size), cfg: cfg}

	if err := r.declareTopology(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return r, nil
}

func (r *RabbitMQ) declareTopology() error {
	ch, err := r.getChannel()
	if err != nil {
		return err
	}
	defer r.putChannel(ch)

	if err := ch.ExchangeDeclare(r.cfg.AnalysisExchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("声明exchange失败: %w", err)
	}
	if r.cfg.AnalysisQueue == "" {
		return nil
	}
	if _, err := ch.QueueDeclare(r.cfg.AnalysisQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("声明队列失败: %w", err)
	}
	if err := ch.QueueBind(r.cfg.AnalysisQueue, r.cfg.AnalysisRoutingKey, r.cfg.AnalysisExchange, false, nil); err != nil {
		return fmt.Errorf("绑定队列到exchange失败: %w", err)
	}
	logger.Info().
		Str("exchange", r.cfg.AnalysisExchange).
		Str("queue", r.cfg.AnalysisQueue).
		Str("routing_key", r.cfg.AnalysisRoutingKey).
		Msg("RabbitMQ拓扑已就绪")
	return nil
}

// getChannel 池中没有空闲通道时新建
func (r *RabbitMQ) getChannel() (*amqp.Channel, error) {
	select {
	case ch := <-r.channels:
		if !ch.IsClosed() {
			return ch, nil
		}
	default:
	}
	ch, err := r.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("无法获取RabbitMQ通道: %w", err)
	}
	return ch, nil
}

// putChannel 池满时直接关闭
func (r *RabbitMQ) putChannel(ch *amqp.Channel) {
	if ch == nil || ch.IsClosed() {
		return
	}
	select {
	case r.channels <- ch:
	default:
		_ = ch.Close()
	}
}

// PublishJSON 以 JSON 发布消息
func (r *RabbitMQ) PublishJSON(ctx context.Context, exchange, routingKey string, data any, persistent bool) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("JSON序列化失败: %w", err)
	}
	return r.PublishRaw(ctx, exchange, routingKey, body, persistent)
}

// PublishRaw 发布已序列化的 JSON 消息
func (r *RabbitMQ) PublishRaw(ctx context.Context, exchange, routingKey string, body []byte, persistent bool) error {
	ch, err := r.getChannel()
	if err != nil {
		return err
	}

	deliveryMode := amqp.Transient
	if persistent {
		deliveryMode = amqp.Persistent
	}
	err = ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		DeliveryMode: deliveryMode,
		ContentType:  "application/json",
		Body:         body,
		Timestamp:    time.Now(),
	})
	// 发布失败的通道可能已被服务端关闭，putChannel 会丢弃它
	r.putChannel(ch)
	if err != nil {
		return fmt.Errorf("发布消息失败: %w", err)
	}
	return nil
}

// Close 关闭通道和连接
func (r *RabbitMQ) Close() error {
	for {
		select {
		case ch := <-r.channels:
			_ = ch.Close()
		default:
			return r.conn.Close()
		}
	}
}
