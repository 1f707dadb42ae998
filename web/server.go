// Package web 提供回测服务的HTTP接口
// 回测执行、历史会话查询、缓存管理、WebSocket事件推送
package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"barsim/config"
	"barsim/database"
	"barsim/feed"
	"barsim/logger"
)

// Server Web服务器
type Server struct {
	server  *http.Server
	cfg     *config.Config
	db      database.Database
	fetcher *feed.Fetcher
	hub     *Hub
}

// NewServer 创建Web服务器
func NewServer(cfg *config.Config, db database.Database, fetcher *feed.Fetcher) *Server {
	if !cfg.Web.Enabled {
		return nil
	}

	// 设置Gin模式
	if strings.ToLower(cfg.System.LogLevel) == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:     cfg,
		db:      db,
		fetcher: fetcher,
		hub:     NewHub(),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(GinLoggerMiddleware(gin.Mode() == gin.DebugMode))
	r.Use(I18nMiddleware())

	s.setupRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // 回测同步执行，放宽写超时
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Hub 返回事件推送中心（用于挂接事件处理器）
func (s *Server) Hub() *Hub {
	if s == nil {
		return nil
	}
	return s.hub
}

func (s *Server) setupRoutes(r *gin.Engine) {
	r.GET("/health", s.handleHealth)
	r.GET("/ws", s.handleWebSocket)

	api := r.Group("/api")
	{
		api.POST("/backtest", s.handleRunBacktest)

		api.GET("/sessions", s.handleListSessions)
		api.GET("/sessions/:id", s.handleGetSession)
		api.GET("/sessions/:id/orders", s.handleGetOrders)
		api.GET("/sessions/:id/trades", s.handleGetTrades)
		api.GET("/sessions/:id/equity", s.handleGetEquity)
		api.GET("/sessions/:id/events", s.handleGetEvents)
		api.DELETE("/sessions/:id", s.handleDeleteSession)

		api.GET("/cache", s.handleListCache)
		api.GET("/cache/stats", s.handleCacheStats)
		api.DELETE("/cache/:key", s.handleDeleteCache)
		api.DELETE("/cache", s.handleClearCache)

		api.GET("/system/status", s.handleSystemStatus)
	}
}

// Start 启动Web服务器
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}

	go s.hub.Run(ctx)

	go func() {
		logger.Info("🌐 Web服务器启动在 http://%s:%d", s.cfg.Web.Host, s.cfg.Web.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("❌ Web服务器启动失败: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop 停止Web服务器
func (s *Server) Stop() {
	if s == nil || s.server == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logger.Error("❌ Web服务器关闭失败: %v", err)
	} else {
		logger.Info("✅ Web服务器已关闭")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	dbStatus := "ok"
	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			dbStatus = fmt.Sprintf("error: %v", err)
		}
	} else {
		dbStatus = "disabled"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": dbStatus,
		"time":     time.Now().Unix(),
	})
}
