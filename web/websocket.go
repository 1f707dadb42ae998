package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"barsim/event"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源（生产环境应该限制）
	},
}

// Hub WebSocket 推送中心
// 把回测事件实时广播给所有已连接的客户端
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub 创建推送中心
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
	}
}

// Run 运行推送中心（随 context 退出）
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			// 解除连接协程在注册/注销通道上的阻塞
			close(h.done)
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					delete(h.clients, conn)
					conn.Close()
				}
			}
			h.mu.Unlock()
		}
	}
}

// EventHandler 返回可挂接到事件中心的处理器
// 每个事件序列化为 {"type": ..., "timestamp": ..., "data": ...} 推送
func (h *Hub) EventHandler() event.Handler {
	return func(e *event.Event) {
		message := map[string]interface{}{
			"type":      string(e.Type),
			"severity":  string(event.GetEventSeverity(e.Type)),
			"timestamp": e.Timestamp.UnixMilli(),
			"data":      e.Data,
		}
		data, err := json.Marshal(message)
		if err != nil {
			return
		}
		select {
		case h.broadcast <- data:
		default:
			// Channel 满了，丢弃消息
		}
	}
}

// add 注册连接，推送中心已停止时返回 false
func (h *Hub) add(conn *websocket.Conn) bool {
	select {
	case h.register <- conn:
		return true
	case <-h.done:
		return false
	}
}

// remove 注销连接，推送中心停止后直接放行
func (h *Hub) remove(conn *websocket.Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	if !s.hub.add(conn) {
		conn.Close()
		return
	}

	// 保持连接，客户端断开后注销
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.hub.remove(conn)
			break
		}
	}
}
