package engine

import (
	"fmt"
	"math/rand"

	"barsim/event"
	"barsim/logger"
	"barsim/market"
)

// TradeClosedCallback 平仓回调（同步调用，每笔平仓恰好触发一次）
type TradeClosedCallback func(*Trade)

// Engine 回测撮合引擎
// 严格单线程同步：所有公开方法运行到返回为止，内部无锁，
// 实例应由单个回放循环独占；K线必须按时间戳非递减顺序推入
type Engine struct {
	sessionID   string
	spreadBps   float64
	pricer      *FillPricer
	state       State
	orders      []*Order
	trades      []*Trade
	lastQuote   *Quote
	now         int64 // 最近一根K线的时间戳（毫秒），0表示尚未推入K线
	nextOrderID int64
	nextTradeID int64

	onTradeClosed TradeClosedCallback
	events        *event.EventBus
}

// Option 引擎构造选项
type Option func(*Engine)

// WithSessionID 设置会话标识
func WithSessionID(id string) Option {
	return func(e *Engine) { e.sessionID = id }
}

// WithSpreadBps 设置点差假设（基点）
func WithSpreadBps(bps float64) Option {
	return func(e *Engine) { e.spreadBps = bps }
}

// WithRandom 注入随机源（种子化后整个回测可复现）
func WithRandom(rng *rand.Rand) Option {
	return func(e *Engine) { e.pricer = NewFillPricer(rng, DefaultSlippageBps) }
}

// WithSlippage 注入随机源并设置最大滑点（基点）
func WithSlippage(rng *rand.Rand, maxBps float64) Option {
	return func(e *Engine) { e.pricer = NewFillPricer(rng, maxBps) }
}

// WithTradeClosedCallback 注册平仓回调
func WithTradeClosedCallback(cb TradeClosedCallback) Option {
	return func(e *Engine) { e.onTradeClosed = cb }
}

// WithEventBus 注册事件总线（订单/持仓生命周期事件）
func WithEventBus(bus *event.EventBus) Option {
	return func(e *Engine) { e.events = bus }
}

// WithInitialTrades 用历史持仓列表预热引擎（会话恢复）
// 未平仓的持仓会继续参与后续K线的止损止盈评估
func WithInitialTrades(trades []*Trade) Option {
	return func(e *Engine) {
		for _, t := range trades {
			if t == nil {
				continue
			}
			e.trades = append(e.trades, t)
			if t.ID >= e.nextTradeID {
				e.nextTradeID = t.ID + 1
			}
			if t.OrderID >= e.nextOrderID {
				e.nextOrderID = t.OrderID + 1
			}
		}
	}
}

// New 创建回测引擎
func New(initialBalance float64, opts ...Option) *Engine {
	e := &Engine{
		spreadBps:   DefaultSpreadBps,
		state:       newState(initialBalance),
		nextOrderID: 1,
		nextTradeID: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.pricer == nil {
		e.pricer = NewFillPricer(nil, DefaultSlippageBps)
	}
	return e
}

// PlaceOrder 下单
// 参数校验失败的订单直接转入 REJECTED 并保留在台账中（审计）；
// 合法订单挂入后立即用最近报价做一次零宽K线触发检查，
// 使市价单无需等待下一根K线即可成交
func (e *Engine) PlaceOrder(spec OrderSpec) (*Order, error) {
	order := &Order{
		ID:         e.nextOrderID,
		SessionID:  e.sessionID,
		Symbol:     spec.Symbol,
		Side:       spec.Side,
		Kind:       spec.Kind,
		Status:     OrderPending,
		Quantity:   spec.Quantity,
		LimitPrice: spec.LimitPrice,
		StopPrice:  spec.StopPrice,
		StopLoss:   spec.StopLoss,
		TakeProfit: spec.TakeProfit,
		CreatedAt:  e.now,
	}
	e.nextOrderID++
	e.orders = append(e.orders, order)

	if reason := validateSpec(spec); reason != "" {
		order.Status = OrderRejected
		order.RejectReason = reason
		logger.Warn("⚠️ 订单被拒绝: id=%d %s", order.ID, reason)
		e.publish(event.EventTypeOrderRejected, map[string]interface{}{
			"order_id": order.ID,
			"symbol":   order.Symbol,
			"reason":   reason,
		})
		return order, fmt.Errorf("订单参数非法: %s", reason)
	}

	e.publish(event.EventTypeOrderPlaced, map[string]interface{}{
		"order_id": order.ID,
		"symbol":   order.Symbol,
		"side":     string(order.Side),
		"kind":     string(order.Kind),
		"quantity": order.Quantity,
	})

	// 立即触发检查：用最近报价构造零宽价格区间
	// 首根K线之前没有报价，订单保持 PENDING 等待第一根K线
	if e.lastQuote != nil {
		mid := (e.lastQuote.Bid + e.lastQuote.Ask) / 2
		e.evaluateOrder(order, mid, mid, *e.lastQuote)
	}

	return order, nil
}

// validateSpec 校验下单参数，返回空串表示合法
func validateSpec(spec OrderSpec) string {
	if spec.Symbol == "" {
		return "缺少交易对"
	}
	if !spec.Side.IsValid() {
		return fmt.Sprintf("未知方向: %s", spec.Side)
	}
	if !spec.Kind.IsValid() {
		return fmt.Sprintf("未知订单类型: %s", spec.Kind)
	}
	if spec.Quantity <= 0 {
		return "数量必须为正"
	}
	if spec.Kind == OrderLimit && spec.LimitPrice <= 0 {
		return "限价单缺少限价"
	}
	if spec.Kind == OrderStop && spec.StopPrice <= 0 {
		return "止损触发单缺少触发价"
	}
	return ""
}

// ProcessCandle 推进一根K线的模拟时间
// 固定顺序执行：合成报价 → 订单触发评估 → 持仓止损止盈评估 → 权益/回撤更新
// 乱序K线直接报错且不修改任何状态（静默接受会破坏高水位/回撤的单调性）
func (e *Engine) ProcessCandle(candle *market.Candle) error {
	if candle == nil {
		return fmt.Errorf("K线为空")
	}
	if candle.Timestamp < e.now {
		return fmt.Errorf("K线时间戳乱序: %d < %d", candle.Timestamp, e.now)
	}
	e.now = candle.Timestamp

	// 1. 合成报价
	quote := SynthesizeQuote(candle.Timestamp, candle.Close, e.spreadBps)
	e.lastQuote = &quote

	// 2. 订单触发评估
	for _, order := range e.orders {
		e.evaluateOrder(order, candle.High, candle.Low, quote)
	}

	// 3. 持仓止损止盈评估
	for _, trade := range e.trades {
		e.evaluateTrade(trade, candle)
	}

	// 4. 权益/回撤更新
	unrealized := 0.0
	for _, trade := range e.trades {
		unrealized += unrealizedPnL(trade, quote)
	}
	e.state.markToMarket(unrealized)

	return nil
}

// Stats 返回状态快照
func (e *Engine) Stats() Stats {
	open, closed := 0, 0
	for _, t := range e.trades {
		if t.Status == TradeOpen {
			open++
		} else {
			closed++
		}
	}
	return Stats{
		Balance:      e.state.Balance,
		Equity:       e.state.Equity,
		MaxEquity:    e.state.MaxEquity,
		MaxDrawdown:  e.state.MaxDrawdown,
		OpenTrades:   open,
		ClosedTrades: closed,
	}
}

// Orders 返回全部订单（按创建顺序）
// 返回的对象由引擎独占所有权，调用方不得修改
func (e *Engine) Orders() []*Order {
	out := make([]*Order, len(e.orders))
	copy(out, e.orders)
	return out
}

// Trades 返回全部持仓（按创建顺序）
func (e *Engine) Trades() []*Trade {
	out := make([]*Trade, len(e.trades))
	copy(out, e.trades)
	return out
}

// LastQuote 返回最近一次合成的报价，尚未推入K线时返回 nil
func (e *Engine) LastQuote() *Quote {
	if e.lastQuote == nil {
		return nil
	}
	q := *e.lastQuote
	return &q
}

// SessionID 返回会话标识
func (e *Engine) SessionID() string {
	return e.sessionID
}

// publish 发布引擎事件（未配置总线时为空操作）
func (e *Engine) publish(t event.EventType, data map[string]interface{}) {
	if e.events == nil {
		return
	}
	if e.sessionID != "" {
		data["session_id"] = e.sessionID
	}
	e.events.Publish(&event.Event{Type: t, Data: data})
}
