package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// TestHubShutdownUnblocksConnections 推送中心退出后注册/注销不再阻塞连接协程
func TestHubShutdownUnblocksConnections(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("推送中心未随 context 退出")
	}

	added := make(chan bool, 1)
	go func() {
		added <- hub.add(nil)
	}()
	select {
	case ok := <-added:
		if ok {
			t.Error("推送中心已停止仍接受注册")
		}
	case <-time.After(time.Second):
		t.Fatal("停止后注册仍阻塞")
	}

	removed := make(chan struct{})
	go func() {
		hub.remove(nil)
		close(removed)
	}()
	select {
	case <-removed:
	case <-time.After(time.Second):
		t.Fatal("停止后注销仍阻塞")
	}
}

func waitClientCount(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		hub.mu.RLock()
		n := len(hub.clients)
		hub.mu.RUnlock()
		if n == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("客户端数 = %d, 期望 %d", n, want)
		}
		time.Sleep(time.Millisecond)
	}
}

// TestHubRegisterUnregister 正常运行时的注册与注销
func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	serverConns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- conn
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("连接失败: %v", err)
	}
	defer client.Close()
	conn := <-serverConns

	if !hub.add(conn) {
		t.Fatal("运行中的推送中心拒绝注册")
	}
	waitClientCount(t, hub, 1)

	hub.remove(conn)
	waitClientCount(t, hub, 0)
}
