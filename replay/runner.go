// Package replay 回放驱动层
// 把历史K线逐根喂给撮合引擎，调用策略产生信号并转换为订单，
// 记录权益曲线，会话结果可落库并交给报告层
package replay

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"barsim/database"
	"barsim/engine"
	"barsim/event"
	"barsim/logger"
	"barsim/market"
	"barsim/metrics"
	"barsim/utils"
)

// EquityPoint 权益点
type EquityPoint struct {
	Timestamp int64   `json:"timestamp"`
	Balance   float64 `json:"balance"`
	Equity    float64 `json:"equity"`
}

// Result 回放结果
type Result struct {
	SessionID      string          `json:"session_id"`
	Symbol         string          `json:"symbol"`
	Interval       string          `json:"interval"`
	Strategy       string          `json:"strategy"`
	StartTime      time.Time       `json:"start_time"`
	EndTime        time.Time       `json:"end_time"`
	InitialBalance float64         `json:"initial_balance"`
	FinalBalance   float64         `json:"final_balance"`
	Stats          engine.Stats    `json:"stats"`
	Equity         []EquityPoint   `json:"equity"`
	Orders         []*engine.Order `json:"orders"`
	Trades         []*engine.Trade `json:"trades"`
	Bars           int             `json:"bars"`
}

// Config 回放参数
type Config struct {
	Symbol         string
	Interval       string
	InitialBalance float64
	SpreadBps      float64
	SlippageBps    float64
	RandomSeed     int64   // 0表示默认种子
	PositionPct    float64 // 每次开仓占用权益比例，默认0.95
	HigherInterval string  // 大周期视图（如 "15m"），空字符串表示关闭
}

// Runner 回放执行器
type Runner struct {
	cfg      Config
	candles  []*market.Candle
	strategy StrategyAdapter
	bus      *event.EventBus
	db       database.Database
	view     *TimeframeView
}

// RunnerOption 回放执行器选项
type RunnerOption func(*Runner)

// WithEventBus 注入事件总线
func WithEventBus(bus *event.EventBus) RunnerOption {
	return func(r *Runner) { r.bus = bus }
}

// WithDatabase 注入持久化层（会话、订单、持仓、权益曲线落库）
func WithDatabase(db database.Database) RunnerOption {
	return func(r *Runner) { r.db = db }
}

// NewRunner 创建回放执行器
func NewRunner(cfg Config, candles []*market.Candle, strategy StrategyAdapter, opts ...RunnerOption) *Runner {
	if cfg.PositionPct <= 0 || cfg.PositionPct > 1 {
		cfg.PositionPct = 0.95
	}
	r := &Runner{
		cfg:      cfg,
		candles:  candles,
		strategy: strategy,
	}
	if cfg.HigherInterval != "" {
		view, err := NewTimeframeView(cfg.HigherInterval)
		if err != nil {
			logger.Warn("⚠️ 大周期视图不可用: %v", err)
		} else {
			r.view = view
		}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FormingBar 当前仍在累积中的大周期K线（未启用大周期视图时为 nil）
func (r *Runner) FormingBar() *market.Candle {
	if r.view == nil {
		return nil
	}
	return r.view.Forming()
}

// Run 执行回放
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if len(r.candles) == 0 {
		logger.Error("❌ 回放失败: K线数据为空")
		return nil, fmt.Errorf("candles data is empty")
	}
	if r.strategy == nil {
		return nil, fmt.Errorf("strategy is nil")
	}

	sessionID := utils.GenerateSessionID()
	pm := metrics.GetPrometheusMetrics()

	seed := r.cfg.RandomSeed
	if seed == 0 {
		seed = 1
	}

	eng := engine.New(r.cfg.InitialBalance,
		engine.WithSessionID(sessionID),
		engine.WithSpreadBps(r.cfg.SpreadBps),
		engine.WithSlippage(rand.New(rand.NewSource(seed)), r.cfg.SlippageBps),
		engine.WithEventBus(r.bus),
	)

	logger.Info("🚀 开始回放: %s 策略=%s, %d 根K线 (会话 %s)",
		r.cfg.Symbol, r.strategy.GetName(), len(r.candles), sessionID)
	pm.RecordSessionStart()
	r.publishSession(event.EventTypeSessionStart, sessionID)
	r.saveSessionStart(ctx, sessionID)

	equity := make([]EquityPoint, 0, len(r.candles))

	for i, candle := range r.candles {
		// 外部取消检查（每千根一次，避免每根都查）
		if i%1000 == 0 {
			select {
			case <-ctx.Done():
				r.finishSession(ctx, sessionID, eng, "FAILED")
				return nil, ctx.Err()
			default:
			}
		}

		barStart := time.Now()

		// 1. 推进引擎（触发检查、止损止盈、权益结算）
		if err := eng.ProcessCandle(candle); err != nil {
			r.finishSession(ctx, sessionID, eng, "FAILED")
			return nil, fmt.Errorf("第 %d 根K线处理失败: %w", i, err)
		}

		// 2. 记录权益
		stats := eng.Stats()
		equity = append(equity, EquityPoint{
			Timestamp: candle.Timestamp,
			Balance:   stats.Balance,
			Equity:    stats.Equity,
		})

		// 3. 大周期视图：窗口封闭时通知多周期策略
		if r.view != nil {
			if higher := r.view.Push(candle); higher != nil {
				if mts, ok := r.strategy.(MultiTimeframeStrategy); ok {
					mts.OnHigherCandle(higher)
				}
			}
		}

		// 4. 策略信号
		signal := r.strategy.OnCandle(candle)
		r.applySignal(eng, candle, signal, stats)

		pm.RecordBar(r.cfg.Symbol, r.cfg.Interval, time.Since(barStart))

		// 5. 进度显示
		if i%10000 == 0 && i > 0 {
			progress := float64(i) / float64(len(r.candles)) * 100
			logger.Info("⏳ 回放进度: %.1f%% (权益 %.2f)", progress, stats.Equity)
			if forming := r.FormingBar(); forming != nil {
				logger.Debug("👀 %s 大周期累积中: O=%.4f H=%.4f L=%.4f C=%.4f",
					r.cfg.HigherInterval, forming.Open, forming.High, forming.Low, forming.Close)
			}
			pm.SetAccountState(sessionID, stats.Balance, stats.Equity, stats.MaxDrawdown)
		}
	}

	// 数据耗尽：强制平掉所有持仓
	forced := r.forceCloseAll(eng)
	if forced > 0 {
		logger.Info("📊 回放结束，强制平仓 %d 笔", forced)
	}

	finalStats := eng.Stats()
	pm.SetAccountState(sessionID, finalStats.Balance, finalStats.Equity, finalStats.MaxDrawdown)
	pm.RecordSessionFinish("finished")
	r.publishSession(event.EventTypeSessionEnd, sessionID)

	logger.Info("✅ 回放完成: %d 笔订单 / %d 笔持仓, 期末余额 %.2f",
		len(eng.Orders()), len(eng.Trades()), finalStats.Balance)

	result := &Result{
		SessionID:      sessionID,
		Symbol:         r.cfg.Symbol,
		Interval:       r.cfg.Interval,
		Strategy:       r.strategy.GetName(),
		StartTime:      time.UnixMilli(r.candles[0].Timestamp),
		EndTime:        time.UnixMilli(r.candles[len(r.candles)-1].Timestamp),
		InitialBalance: r.cfg.InitialBalance,
		FinalBalance:   finalStats.Balance,
		Stats:          finalStats,
		Equity:         equity,
		Orders:         eng.Orders(),
		Trades:         eng.Trades(),
		Bars:           len(r.candles),
	}

	r.persistResult(ctx, result)
	r.finishSession(ctx, sessionID, eng, "FINISHED")

	return result, nil
}

// applySignal 把策略信号转换为引擎操作
func (r *Runner) applySignal(eng *engine.Engine, candle *market.Candle, signal Signal, stats engine.Stats) {
	pm := metrics.GetPrometheusMetrics()

	switch signal.Action {
	case ActionBuy, ActionSell:
		side := engine.SideLong
		if signal.Action == ActionSell {
			side = engine.SideShort
		}
		// 同方向已有持仓时不加仓，反向持仓先平掉
		if r.hasOpenSide(eng, side) {
			return
		}
		r.closeOpenTrades(eng)

		quantity := stats.Equity * r.cfg.PositionPct / candle.Close
		if quantity <= 0 {
			return
		}

		order, err := eng.PlaceOrder(engine.OrderSpec{
			Symbol:     r.cfg.Symbol,
			Side:       side,
			Kind:       engine.OrderMarket,
			Quantity:   quantity,
			StopLoss:   signal.StopLoss,
			TakeProfit: signal.TakeProfit,
		})
		if err != nil {
			logger.Warn("⚠️ 信号下单被拒: %v (%s)", err, signal.Reason)
		}
		if order != nil {
			pm.RecordOrder(r.cfg.Symbol, string(side), string(engine.OrderMarket), string(order.Status))
		}

	case ActionClose:
		r.closeOpenTrades(eng)
	}
}

// hasOpenSide 是否已有指定方向的持仓
func (r *Runner) hasOpenSide(eng *engine.Engine, side engine.Side) bool {
	for _, t := range eng.Trades() {
		if t.Status == engine.TradeOpen && t.Side == side {
			return true
		}
	}
	return false
}

// closeOpenTrades 平掉全部持仓
func (r *Runner) closeOpenTrades(eng *engine.Engine) int {
	closed := 0
	for _, t := range eng.Trades() {
		if t.Status != engine.TradeOpen {
			continue
		}
		if err := eng.CloseTradeMarket(t.ID); err != nil {
			logger.Warn("⚠️ 平仓失败: %v", err)
			continue
		}
		metrics.GetPrometheusMetrics().RecordTradeClosed(t.Symbol, string(t.Side), t.PnL)
		closed++
	}
	return closed
}

func (r *Runner) forceCloseAll(eng *engine.Engine) int {
	return r.closeOpenTrades(eng)
}

func (r *Runner) publishSession(t event.EventType, sessionID string) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(&event.Event{
		Type: t,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"symbol":     r.cfg.Symbol,
			"strategy":   r.strategy.GetName(),
		},
	})
}

// saveSessionStart 会话落库（RUNNING状态）
func (r *Runner) saveSessionStart(ctx context.Context, sessionID string) {
	if r.db == nil {
		return
	}
	record := &database.SessionRecord{
		ID:             sessionID,
		Symbol:         r.cfg.Symbol,
		Interval:       r.cfg.Interval,
		StartTime:      r.candles[0].Timestamp,
		EndTime:        r.candles[len(r.candles)-1].Timestamp,
		InitialBalance: r.cfg.InitialBalance,
		SpreadBps:      r.cfg.SpreadBps,
		SlippageBps:    r.cfg.SlippageBps,
		RandomSeed:     r.cfg.RandomSeed,
		Status:         "RUNNING",
	}
	if err := r.db.SaveSession(ctx, record); err != nil {
		logger.Warn("⚠️ 会话落库失败: %v", err)
	}
}

// finishSession 更新会话终态
func (r *Runner) finishSession(ctx context.Context, sessionID string, eng *engine.Engine, status string) {
	if status == "FAILED" {
		metrics.GetPrometheusMetrics().RecordSessionFinish("failed")
	}
	if r.db == nil {
		return
	}
	record, err := r.db.GetSession(ctx, sessionID)
	if err != nil {
		logger.Warn("⚠️ 读取会话失败: %v", err)
		return
	}
	stats := eng.Stats()
	record.FinalBalance = stats.Balance
	record.Equity = stats.Equity
	record.MaxEquity = stats.MaxEquity
	record.MaxDrawdown = stats.MaxDrawdown
	record.Status = status
	if err := r.db.UpdateSession(ctx, record); err != nil {
		logger.Warn("⚠️ 会话状态更新失败: %v", err)
	}
}

// persistResult 订单、持仓、权益曲线批量落库
func (r *Runner) persistResult(ctx context.Context, result *Result) {
	if r.db == nil {
		return
	}

	orders := make([]*database.OrderRecord, 0, len(result.Orders))
	for _, o := range result.Orders {
		orders = append(orders, database.FromOrder(o))
	}
	if err := r.db.BatchSaveOrders(ctx, orders); err != nil {
		logger.Warn("⚠️ 订单落库失败: %v", err)
	}

	trades := make([]*database.TradeRecord, 0, len(result.Trades))
	for _, t := range result.Trades {
		trades = append(trades, database.FromTrade(t))
	}
	if err := r.db.BatchSaveTrades(ctx, trades); err != nil {
		logger.Warn("⚠️ 持仓落库失败: %v", err)
	}

	points := make([]*database.EquityRecord, 0, len(result.Equity))
	for _, p := range result.Equity {
		points = append(points, &database.EquityRecord{
			SessionID: result.SessionID,
			Timestamp: p.Timestamp,
			Balance:   p.Balance,
			Equity:    p.Equity,
		})
	}
	if err := r.db.BatchSaveEquityPoints(ctx, points); err != nil {
		logger.Warn("⚠️ 权益曲线落库失败: %v", err)
	}
}
