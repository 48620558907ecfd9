package sse

import (
	"context"
	"encoding/json"

	"promogen/models"
)

// Hub 按用户 ID 管理 SSE 订阅者
//
// 每个用户对应一组客户端通道，发布到该用户的生成事件会广播到所有通道。
// 订阅、取消订阅与发布都经过内部通道，在 Run 所在的单个 goroutine 中串行处理，
// 因此 topics 不需要加锁。
type Hub struct {
	// topic -> 客户端 channel 集合，channel 由 SSE handler 创建和关闭，Hub 只负责发送
	topics map[string]map[chan []byte]struct{}

	subscribe   chan subscription
	unsubscribe chan subscription
	publish     chan topicMessage
	done        chan struct{}
}

type subscription struct {
	ch    chan []byte
	topic string
}

type topicMessage struct {
	topic string
	msg   []byte
}

var defaultHub *Hub

// NewHub publish 通道带 100 的缓冲，短时间的突发发布不会阻塞生成流程
func NewHub() *Hub {
	return &Hub{
		topics:      make(map[string]map[chan []byte]struct{}),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		publish:     make(chan topicMessage, 100),
		done:        make(chan struct{}),
	}
}

// SetDefaultHub sets the package-level default hub
func SetDefaultHub(h *Hub) {
	defaultHub = h
}

// GetHub returns the default hub (may be nil if not set)
func GetHub() *Hub {
	return defaultHub
}

// Run 事件循环，ctx 结束时返回
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-h.subscribe:
			subs, ok := h.topics[s.topic]
			if !ok {
				subs = make(map[chan []byte]struct{})
				h.topics[s.topic] = subs
			}
			subs[s.ch] = struct{}{}
		case s := <-h.unsubscribe:
			if subs, ok := h.topics[s.topic]; ok {
				delete(subs, s.ch)
				if len(subs) == 0 {
					delete(h.topics, s.topic)
				}
			}
		case tm := <-h.publish:
			for ch := range h.topics[tm.topic] {
				select {
				case ch <- tm.msg:
				default:
					// 客户端读得慢就丢弃
				}
			}
		}
	}
}

// PublishTopic 写入 publish 缓冲通道，缓冲满时丢弃并返回 false
func (h *Hub) PublishTopic(topic string, msg []byte) bool {
	select {
	case h.publish <- topicMessage{topic: topic, msg: msg}:
		return true
	case <-h.done:
		return false
	default:
		return false
	}
}

// Publish 把生成事件推送给该用户的所有连接
func (h *Hub) Publish(ctx context.Context, ev models.GenerationEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if !h.PublishTopic(ev.UserID, b) {
		return errHubBusy
	}
	return nil
}

// Subscribe 调用方提供带缓冲的 channel，不再使用时负责取消订阅
func (h *Hub) Subscribe(ch chan []byte, topic string) bool {
	select {
	case h.subscribe <- subscription{ch: ch, topic: topic}:
		return true
	case <-h.done:
		return false
	}
}

// Unsubscribe 取消某个通道对 topic 的订阅
func (h *Hub) Unsubscribe(ch chan []byte, topic string) {
	select {
	case h.unsubscribe <- subscription{ch: ch, topic: topic}:
	case <-h.done:
	}
}
