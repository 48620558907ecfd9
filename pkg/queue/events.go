package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"promogen/models"
)

// EventQueue 生成事件的发布与订阅
// 每个实例声明自己的独占队列绑定到 fanout 交换机，所有副本都能收到全部事件
type EventQueue interface {
	Publish(ctx context.Context, ev models.GenerationEvent) error
	Consume(ctx context.Context, handle func(ev models.GenerationEvent) error) error
	Close() error
}

var (
	eventOnce     sync.Once
	eventInstance EventQueue
	eventInitErr  error
)

// InitEventQueue 使用单例模式初始化 RabbitMQ（首次调用生效，后续调用忽略）
func InitEventQueue(dsn, exchange string) error {
	eventOnce.Do(func() {
		inst, err := newAMQPEventQueue(dsn, exchange)
		if err != nil {
			eventInitErr = err
			zap.L().Error("failed to init AMQP event queue", zap.Error(err))
			return
		}
		eventInstance = inst
	})
	return eventInitErr
}

// GetEventQueue 返回单例，未初始化或初始化失败会返回错误
func GetEventQueue() (EventQueue, error) {
	if eventInstance == nil {
		if eventInitErr != nil {
			return nil, eventInitErr
		}
		return nil, errors.New("event queue not initialized; call InitEventQueue")
	}
	return eventInstance, nil
}

// --- AMQP 实现 ---------------------------------------------------------
type amqpEventQueue struct {
	conn      *amqp.Connection
	ch        *amqp.Channel
	exchange  string
	queueName string

	mu sync.Mutex // amqp.Channel 的 Publish 不是并发安全的
}

func newAMQPEventQueue(dsn, exchange string) (*amqpEventQueue, error) {
	conn, err := amqp.Dial(dsn)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	// 匿名独占队列，连接断开后自动删除
	q, err := ch.QueueDeclare(
		"",    // name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		amqp.Table{"x-message-ttl": int32(60000)},
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	if err := ch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	_ = ch.Qos(16, 0, false)

	return &amqpEventQueue{conn: conn, ch: ch, exchange: exchange, queueName: q.Name}, nil
}

func (q *amqpEventQueue) Publish(ctx context.Context, ev models.GenerationEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ch.Publish(
		q.exchange, "", false, false,
		amqp.Publishing{ContentType: "application/json", Body: b, DeliveryMode: amqp.Persistent},
	)
}

// Consume 阻塞消费，直到 ctx 结束或连接关闭
// handle 返回错误的消息直接丢弃，事件只用于通知，不重试
func (q *amqpEventQueue) Consume(ctx context.Context, handle func(ev models.GenerationEvent) error) error {
	deliveries, err := q.ch.Consume(q.queueName, "", false, true, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case del, ok := <-deliveries:
			if !ok {
				return errors.New("event delivery channel closed")
			}
			var ev models.GenerationEvent
			if err := json.Unmarshal(del.Body, &ev); err != nil {
				zap.L().Warn("invalid generation event payload", zap.Error(err))
				_ = del.Nack(false, false)
				continue
			}
			if err := handle(ev); err != nil {
				zap.L().Warn("handle generation event failed",
					zap.String("generation_id", ev.GenerationID), zap.Error(err))
				_ = del.Nack(false, false)
				continue
			}
			_ = del.Ack(false)
		}
	}
}

func (q *amqpEventQueue) Close() error {
	if q.ch != nil {
		_ = q.ch.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
