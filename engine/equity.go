package engine

// State 引擎账户状态
// 只由引擎自身在K线推进或下单时修改；MaxEquity 和 MaxDrawdown
// 按构造单调不减（依赖K线时间有序输入）
type State struct {
	Balance     float64 // 已实现余额
	Equity      float64 // 余额 + 浮动盈亏
	MaxEquity   float64 // 权益高水位
	MaxDrawdown float64 // 最大回撤（%）
}

// newState 创建初始状态
func newState(initialBalance float64) State {
	return State{
		Balance:   initialBalance,
		Equity:    initialBalance,
		MaxEquity: initialBalance,
	}
}

// markToMarket 按浮动盈亏刷新权益，并更新高水位和最大回撤
// 回撤公式: (maxEquity - equity) / maxEquity * 100
// maxEquity 为0或负时视为无回撤，避免除零产生 NaN/Inf
func (s *State) markToMarket(unrealized float64) {
	s.Equity = s.Balance + unrealized

	if s.Equity > s.MaxEquity {
		s.MaxEquity = s.Equity
	}

	if s.MaxEquity <= 0 {
		return
	}
	drawdown := (s.MaxEquity - s.Equity) / s.MaxEquity * 100
	if drawdown > s.MaxDrawdown {
		s.MaxDrawdown = drawdown
	}
}

// unrealizedPnL 计算单个持仓的浮动盈亏
// 按对持有者不利的一侧报价估值：多头按 bid（假想卖出），
// 空头按 ask（假想买回）
func unrealizedPnL(t *Trade, quote Quote) float64 {
	if t.Status != TradeOpen {
		return 0
	}
	if t.Side == SideShort {
		return (t.EntryPrice - quote.Ask) * t.Quantity
	}
	return (quote.Bid - t.EntryPrice) * t.Quantity
}
