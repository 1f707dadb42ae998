package web

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"

	"barsim/logger"
	"barsim/monitor"
)

func (s *Server) requireCache(c *gin.Context) bool {
	if s.fetcher == nil || s.fetcher.Cache() == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"message": "缓存未启用",
		})
		return false
	}
	return true
}

func (s *Server) handleListCache(c *gin.Context) {
	if !s.requireCache(c) {
		return
	}

	entries, err := s.fetcher.Cache().List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": fmt.Sprintf("查询缓存列表失败: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"caches":  entries,
		"count":   len(entries),
	})
}

func (s *Server) handleCacheStats(c *gin.Context) {
	if !s.requireCache(c) {
		return
	}

	stats, err := s.fetcher.Cache().Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": fmt.Sprintf("统计缓存失败: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   stats,
	})
}

func (s *Server) handleDeleteCache(c *gin.Context) {
	if !s.requireCache(c) {
		return
	}

	cacheKey := c.Param("key")
	if err := s.fetcher.Cache().Delete(cacheKey); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": fmt.Sprintf("删除缓存失败: %v", err),
		})
		return
	}

	logger.Info("✅ 已删除缓存: %s", cacheKey)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("缓存 %s 已删除", cacheKey),
	})
}

func (s *Server) handleClearCache(c *gin.Context) {
	if !s.requireCache(c) {
		return
	}

	if err := s.fetcher.Cache().Clear(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": fmt.Sprintf("清空缓存失败: %v", err),
		})
		return
	}

	logger.Info("✅ 已清空K线缓存")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "缓存已清空",
	})
}

func (s *Server) handleSystemStatus(c *gin.Context) {
	snapshot, err := monitor.Collect()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": fmt.Sprintf("采集系统指标失败: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"system":     snapshot,
		"go_version": runtime.Version(),
	})
}
