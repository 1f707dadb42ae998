package event

import (
	"time"

	"barsim/logger"
)

// EventType 事件类型
type EventType string

const (
	EventTypeOrderPlaced   EventType = "order_placed"   // 订单挂入
	EventTypeOrderFilled   EventType = "order_filled"   // 订单成交
	EventTypeOrderRejected EventType = "order_rejected" // 订单被拒绝
	EventTypeTradeClosed   EventType = "trade_closed"   // 持仓平仓
	EventTypeSessionStart  EventType = "session_start"  // 回放会话开始
	EventTypeSessionEnd    EventType = "session_end"    // 回放会话结束
	EventTypeError         EventType = "error"          // 错误
)

// EventSeverity 事件严重级别
type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// Event 事件结构
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      map[string]interface{}
}

// GetEventSeverity 根据事件类型返回严重级别
func GetEventSeverity(t EventType) EventSeverity {
	switch t {
	case EventTypeOrderRejected:
		return SeverityWarning
	case EventTypeError:
		return SeverityCritical
	default:
		return SeverityInfo
	}
}

// EventBus 事件总线
type EventBus struct {
	eventCh    chan *Event
	bufferSize int
}

// NewEventBus 创建事件总线
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = 1000 // 默认1000
	}
	return &EventBus{
		eventCh:    make(chan *Event, bufferSize),
		bufferSize: bufferSize,
	}
}

// Publish 发布事件（非阻塞）
func (eb *EventBus) Publish(event *Event) {
	if event == nil {
		return
	}

	// 设置时间戳
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case eb.eventCh <- event:
		// 成功发布
	default:
		// Channel 满了，记录警告但不阻塞回放循环
		logger.Warn("⚠️ 事件队列已满，丢弃事件: %s", event.Type)
	}
}

// Subscribe 订阅事件（返回 channel）
func (eb *EventBus) Subscribe() <-chan *Event {
	return eb.eventCh
}

// Close 关闭事件总线
func (eb *EventBus) Close() {
	close(eb.eventCh)
}
