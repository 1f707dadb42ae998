package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"barsim/database"
	"barsim/logger"

	"gorm.io/gorm"
)

func (s *Server) requireDatabase(c *gin.Context) bool {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"message": "数据库未启用",
		})
		return false
	}
	return true
}

func parseLimit(c *gin.Context, defaultLimit int) int {
	raw := c.Query("limit")
	if raw == "" {
		return defaultLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultLimit
	}
	return limit
}

func (s *Server) handleListSessions(c *gin.Context) {
	if !s.requireDatabase(c) {
		return
	}

	sessions, err := s.db.ListSessions(c.Request.Context(), parseLimit(c, 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": fmt.Sprintf("查询会话失败: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"sessions": sessions,
		"count":    len(sessions),
	})
}

func (s *Server) handleGetSession(c *gin.Context) {
	if !s.requireDatabase(c) {
		return
	}

	session, err := s.db.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, gorm.ErrRecordNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"success": false,
			"message": fmt.Sprintf("查询会话失败: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": session,
	})
}

func (s *Server) handleGetOrders(c *gin.Context) {
	if !s.requireDatabase(c) {
		return
	}

	filter := &database.OrderFilter{
		SessionID: c.Param("id"),
		Status:    c.Query("status"),
		Limit:     parseLimit(c, 1000),
	}
	orders, err := s.db.GetOrders(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": fmt.Sprintf("查询订单失败: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"orders":  orders,
		"count":   len(orders),
	})
}

func (s *Server) handleGetTrades(c *gin.Context) {
	if !s.requireDatabase(c) {
		return
	}

	filter := &database.TradeFilter{
		SessionID: c.Param("id"),
		Status:    c.Query("status"),
		Limit:     parseLimit(c, 1000),
	}
	trades, err := s.db.GetTrades(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": fmt.Sprintf("查询持仓失败: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"trades":  trades,
		"count":   len(trades),
	})
}

func (s *Server) handleGetEquity(c *gin.Context) {
	if !s.requireDatabase(c) {
		return
	}

	points, err := s.db.GetEquityCurve(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": fmt.Sprintf("查询权益曲线失败: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"equity":  points,
		"count":   len(points),
	})
}

func (s *Server) handleGetEvents(c *gin.Context) {
	if !s.requireDatabase(c) {
		return
	}

	filter := &database.EventFilter{
		SessionID: c.Param("id"),
		Type:      c.Query("type"),
		Limit:     parseLimit(c, 1000),
	}
	events, err := s.db.GetEvents(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": fmt.Sprintf("查询事件失败: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"events":  events,
		"count":   len(events),
	})
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	if !s.requireDatabase(c) {
		return
	}

	sessionID := c.Param("id")
	if err := s.db.DeleteSession(c.Request.Context(), sessionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": fmt.Sprintf("删除会话失败: %v", err),
		})
		return
	}

	logger.Info("✅ 已删除会话: %s", sessionID)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("会话 %s 已删除", sessionID),
	})
}
