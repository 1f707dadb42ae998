package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"barsim/logger"
)

// Server 独立的指标暴露端口
type Server struct {
	srv *http.Server
}

// NewServer 创建指标服务
func NewServer(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		srv: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}
}

// Start 启动指标服务（非阻塞）
func (s *Server) Start() {
	go func() {
		logger.Info("📊 Prometheus指标服务启动: %s/metrics", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("❌ 指标服务异常退出: %v", err)
		}
	}()
}

// Stop 优雅停止
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
