package replay

import (
	"fmt"

	"barsim/indicators"
	"barsim/market"
)

// 信号动作
const (
	ActionBuy   = "buy"   // 开多
	ActionSell  = "sell"  // 开空
	ActionClose = "close" // 平掉当前持仓
	ActionHold  = "hold"  // 观望
)

// Signal 交易信号
type Signal struct {
	Action     string  // buy / sell / close / hold
	StopLoss   float64 // 0表示不设止损
	TakeProfit float64 // 0表示不设止盈
	Reason     string
}

// StrategyAdapter 策略适配器接口
type StrategyAdapter interface {
	OnCandle(candle *market.Candle) Signal
	GetName() string
}

// SMACrossStrategy 均线交叉策略（默认策略）
// 快线上穿慢线开多，下穿平仓后开空；止损止盈按入场价的千分比挂出
type SMACrossStrategy struct {
	fastPeriod int
	slowPeriod int
	stopPct    float64 // 止损距离（如 0.02 表示 2%）
	targetPct  float64 // 止盈距离

	closes []float64
}

// NewSMACrossStrategy 创建均线交叉策略
func NewSMACrossStrategy(fastPeriod, slowPeriod int, stopPct, targetPct float64) *SMACrossStrategy {
	if fastPeriod <= 0 {
		fastPeriod = 10
	}
	if slowPeriod <= fastPeriod {
		slowPeriod = fastPeriod * 3
	}
	return &SMACrossStrategy{
		fastPeriod: fastPeriod,
		slowPeriod: slowPeriod,
		stopPct:    stopPct,
		targetPct:  targetPct,
	}
}

// GetName 策略名称
func (s *SMACrossStrategy) GetName() string {
	return fmt.Sprintf("sma_cross_%d_%d", s.fastPeriod, s.slowPeriod)
}

// OnCandle 按K线产生信号
func (s *SMACrossStrategy) OnCandle(candle *market.Candle) Signal {
	s.closes = append(s.closes, candle.Close)
	// 只保留判断穿越所需的窗口，长回测不会无限增长
	if len(s.closes) > s.slowPeriod+1 {
		s.closes = s.closes[len(s.closes)-s.slowPeriod-1:]
	}

	// 慢线需要两个点才能判断穿越
	if len(s.closes) < s.slowPeriod+1 {
		return Signal{Action: ActionHold}
	}

	fast := indicators.SMA(s.closes, s.fastPeriod)
	slow := indicators.SMA(s.closes, s.slowPeriod)

	if indicators.CrossOver(fast, slow) {
		sig := Signal{Action: ActionBuy, Reason: "金叉"}
		if s.stopPct > 0 {
			sig.StopLoss = candle.Close * (1 - s.stopPct)
		}
		if s.targetPct > 0 {
			sig.TakeProfit = candle.Close * (1 + s.targetPct)
		}
		return sig
	}

	if indicators.CrossUnder(fast, slow) {
		return Signal{Action: ActionClose, Reason: "死叉"}
	}

	return Signal{Action: ActionHold}
}
