package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"barsim/logger"
	"barsim/replay"
	"barsim/report"
)

// BacktestRequest 回测请求
type BacktestRequest struct {
	Strategy       string    `json:"strategy" binding:"required"` // "sma_cross"
	Symbol         string    `json:"symbol" binding:"required"`   // "BTCUSDT"
	Interval       string    `json:"interval" binding:"required"` // "1m", "5m", "1h"
	StartTime      time.Time `json:"start_time" binding:"required"`
	EndTime        time.Time `json:"end_time" binding:"required"`
	InitialBalance float64   `json:"initial_balance" binding:"required"`
	SpreadBps      float64   `json:"spread_bps"`   // 0 则用配置默认
	SlippageBps    float64   `json:"slippage_bps"` // 0 则用配置默认
	RandomSeed     int64     `json:"random_seed"`
	HigherInterval string    `json:"higher_interval"` // 大周期视图，如 "15m"
	FastPeriod     int       `json:"fast_period"`     // 默认5
	SlowPeriod     int       `json:"slow_period"`     // 默认20
	StopPct        float64   `json:"stop_pct"`        // 默认0.02
	TargetPct      float64   `json:"target_pct"`      // 默认0.04
}

// BacktestResponse 回测响应
type BacktestResponse struct {
	Success    bool           `json:"success"`
	Message    string         `json:"message"`
	Result     *report.Report `json:"result,omitempty"`
	ReportPath string         `json:"report_path,omitempty"`
}

func (s *Server) handleRunBacktest(c *gin.Context) {
	var req BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, BacktestResponse{
			Success: false,
			Message: fmt.Sprintf("请求参数错误: %v", err),
		})
		return
	}

	if req.Strategy != "sma_cross" {
		c.JSON(http.StatusBadRequest, BacktestResponse{
			Success: false,
			Message: fmt.Sprintf("不支持的策略: %s", req.Strategy),
		})
		return
	}

	if !req.EndTime.After(req.StartTime) {
		c.JSON(http.StatusBadRequest, BacktestResponse{
			Success: false,
			Message: "结束时间必须晚于开始时间",
		})
		return
	}

	if s.fetcher == nil {
		c.JSON(http.StatusServiceUnavailable, BacktestResponse{
			Success: false,
			Message: "数据源未启用",
		})
		return
	}

	logger.Info("📊 开始回测: 策略=%s, 交易对=%s, 周期=%s",
		req.Strategy, req.Symbol, req.Interval)

	// 1. 获取历史数据（优先缓存）
	candles, err := s.fetcher.GetHistoricalData(
		c.Request.Context(), req.Symbol, req.Interval, req.StartTime, req.EndTime)
	if err != nil {
		logger.Error("❌ 获取历史数据失败: %v", err)
		c.JSON(http.StatusInternalServerError, BacktestResponse{
			Success: false,
			Message: fmt.Sprintf("获取历史数据失败: %v", err),
		})
		return
	}
	if len(candles) == 0 {
		c.JSON(http.StatusBadRequest, BacktestResponse{
			Success: false,
			Message: "未获取到历史数据",
		})
		return
	}

	logger.Info("✅ 获取历史数据成功: %d 根K线", len(candles))

	// 2. 组装回放参数
	runCfg := replay.Config{
		Symbol:         req.Symbol,
		Interval:       req.Interval,
		InitialBalance: req.InitialBalance,
		SpreadBps:      req.SpreadBps,
		SlippageBps:    req.SlippageBps,
		RandomSeed:     req.RandomSeed,
		HigherInterval: req.HigherInterval,
	}
	if runCfg.SpreadBps == 0 {
		runCfg.SpreadBps = s.cfg.Sim.SpreadBps
	}
	if runCfg.SlippageBps == 0 {
		runCfg.SlippageBps = s.cfg.Sim.SlippageBps
	}

	fast, slow := req.FastPeriod, req.SlowPeriod
	if fast <= 0 {
		fast = 5
	}
	if slow <= fast {
		slow = 20
	}
	stopPct, targetPct := req.StopPct, req.TargetPct
	if stopPct <= 0 {
		stopPct = 0.02
	}
	if targetPct <= 0 {
		targetPct = 0.04
	}
	strategy := replay.NewSMACrossStrategy(fast, slow, stopPct, targetPct)

	// 3. 执行回放
	opts := []replay.RunnerOption{}
	if s.db != nil {
		opts = append(opts, replay.WithDatabase(s.db))
	}
	runner := replay.NewRunner(runCfg, candles, strategy, opts...)

	result, err := runner.Run(c.Request.Context())
	if err != nil {
		logger.Error("❌ 回测执行失败: %v", err)
		c.JSON(http.StatusInternalServerError, BacktestResponse{
			Success: false,
			Message: fmt.Sprintf("回测执行失败: %v", err),
		})
		return
	}

	// 4. 生成报告
	rpt := report.Build(result)
	reportPath, err := rpt.Save("", GetLanguage(c))
	if err != nil {
		logger.Warn("⚠️ 报告保存失败: %v", err)
		reportPath = ""
	}

	c.JSON(http.StatusOK, BacktestResponse{
		Success:    true,
		Message:    fmt.Sprintf("回测完成: %d 根K线, %d 笔交易", result.Bars, rpt.Metrics.TotalTrades),
		Result:     rpt,
		ReportPath: reportPath,
	})
}
