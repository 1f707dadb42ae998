package event

import (
	"context"
	"sync"

	"barsim/logger"
)

// Handler 事件处理函数
// 在事件中心的消费协程中串行调用，耗时操作应自行异步化
type Handler func(e *Event)

// Center 事件中心
// 总线的唯一消费者，把事件扇出给注册的处理器（持久化、推送、指标）
type Center struct {
	bus      *EventBus
	mu       sync.RWMutex
	handlers []Handler
	wg       sync.WaitGroup
	started  bool
}

// NewCenter 创建事件中心
func NewCenter(bus *EventBus) *Center {
	return &Center{bus: bus}
}

// AttachHandler 注册事件处理器（必须在 Start 之前调用才保证收到全部事件）
func (c *Center) AttachHandler(h Handler) {
	if h == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

// Start 启动消费协程
func (c *Center) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.loop(ctx)
	logger.Info("📡 事件中心已启动")
}

// Wait 等待消费协程退出（总线关闭且余量处理完毕）
func (c *Center) Wait() {
	c.wg.Wait()
}

func (c *Center) loop(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			// 尽量清空余量再退出
			c.drain()
			return
		case e, ok := <-c.bus.Subscribe():
			if !ok {
				return
			}
			c.dispatch(e)
		}
	}
}

func (c *Center) drain() {
	for {
		select {
		case e, ok := <-c.bus.Subscribe():
			if !ok {
				return
			}
			c.dispatch(e)
		default:
			return
		}
	}
}

func (c *Center) dispatch(e *Event) {
	c.mu.RLock()
	handlers := c.handlers
	c.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("❌ 事件处理器panic: %v (事件: %s)", r, e.Type)
				}
			}()
			h(e)
		}()
	}
}
