// Package notify 在进程内向订阅者广播文档状态变化。
package notify

import (
	"sync"

	"docflow-go/internal/model"
	"docflow-go/pkg/log"
)

const subscriberBuffer = 32

// Subscription 是一个订阅者的事件通道。
type Subscription struct {
	id     uint64
	events chan model.StatusEvent
}

// Events 返回只读事件通道，Unsubscribe 之后会被关闭。
func (s *Subscription) Events() <-chan model.StatusEvent {
	return s.events
}

// Hub 管理订阅者。锁只保护内存中的订阅表，发送不阻塞：慢订阅者会丢事件。
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*Subscription
}

// NewHub 创建一个空的 Hub。
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]*Subscription)}
}

// Subscribe 注册一个新的订阅者。
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	sub := &Subscription{id: h.nextID, events: make(chan model.StatusEvent, subscriberBuffer)}
	h.subs[sub.id] = sub
	return sub
}

// Unsubscribe 移除订阅者并关闭它的通道，重复调用无副作用。
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub.id]; !ok {
		return
	}
	delete(h.subs, sub.id)
	close(sub.events)
}

// Publish 把事件投递给所有订阅者。
func (h *Hub) Publish(event model.StatusEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, sub := range h.subs {
		select {
		case sub.events <- event:
		default:
			log.Warnf("[Publish] 订阅者 %d 处理过慢，丢弃事件: documentId=%s", id, event.DocumentID)
		}
	}
}

// Len 返回当前订阅者数量。
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
