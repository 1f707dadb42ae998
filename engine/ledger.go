package engine

import (
	"fmt"

	"barsim/event"
	"barsim/logger"
	"barsim/market"
)

// evaluateTrade 对单个 OPEN 持仓做止损止盈检查
// 同一根K线同时触及止损和止盈时，按悲观假设先止损；
// 已平仓的持仓直接跳过，保证重复评估幂等且回调不重复触发
func (e *Engine) evaluateTrade(trade *Trade, candle *market.Candle) {
	if trade.Status != TradeOpen {
		return
	}

	if trade.Side == SideLong {
		// 多头：先查止损（低点触及），再查止盈（高点触及）
		if trade.StopLoss > 0 && candle.Low <= trade.StopLoss {
			e.closeTrade(trade, trade.StopLoss)
			return
		}
		if trade.TakeProfit > 0 && candle.High >= trade.TakeProfit {
			e.closeTrade(trade, trade.TakeProfit)
		}
		return
	}

	// 空头：止损在上方（高点触及），止盈在下方（低点触及）
	if trade.StopLoss > 0 && candle.High >= trade.StopLoss {
		e.closeTrade(trade, trade.StopLoss)
		return
	}
	if trade.TakeProfit > 0 && candle.Low <= trade.TakeProfit {
		e.closeTrade(trade, trade.TakeProfit)
	}
}

// CloseTradeMarket 按当前报价主动平掉一笔 OPEN 持仓
// 多头按买价离场、空头按卖价离场；回放驱动层在策略反向信号
// 或数据耗尽强制平仓时使用
func (e *Engine) CloseTradeMarket(tradeID int64) error {
	if e.lastQuote == nil {
		return fmt.Errorf("尚无报价，无法平仓")
	}

	for _, t := range e.trades {
		if t.ID != tradeID {
			continue
		}
		if t.Status != TradeOpen {
			return fmt.Errorf("持仓 %d 不在OPEN状态: %s", tradeID, t.Status)
		}

		price := e.lastQuote.Bid
		if t.Side == SideShort {
			price = e.lastQuote.Ask
		}
		e.closeTrade(t, price)
		return nil
	}

	return fmt.Errorf("持仓不存在: %d", tradeID)
}

// closeTrade 平仓：写入离场字段，计算并冻结盈亏，盈亏计入余额
// pnl = (exitPrice - entryPrice) × quantity × 方向系数
func (e *Engine) closeTrade(trade *Trade, exitPrice float64) {
	trade.Status = TradeClosed
	trade.ExitPrice = exitPrice
	trade.ExitTime = e.now
	trade.PnL = (exitPrice - trade.EntryPrice) * trade.Quantity * trade.Side.Direction()

	e.state.Balance += trade.PnL

	logger.Debug("📉 持仓平仓: id=%d %s %s 入场=%.8g 离场=%.8g 盈亏=%.8g",
		trade.ID, trade.Symbol, trade.Side, trade.EntryPrice, exitPrice, trade.PnL)

	e.publish(event.EventTypeTradeClosed, map[string]interface{}{
		"trade_id":   trade.ID,
		"order_id":   trade.OrderID,
		"symbol":     trade.Symbol,
		"side":       string(trade.Side),
		"exit_price": exitPrice,
		"pnl":        trade.PnL,
	})

	if e.onTradeClosed != nil {
		e.onTradeClosed(trade)
	}
}
