package engine

import (
	"barsim/event"
	"barsim/logger"
)

// evaluateOrder 对单个 PENDING 订单做触发检查
// high/low 为本次评估的价格区间（K线的最高/最低价，下单即时检查时
// 为最近报价中间价构成的零宽区间）；quote 为本次评估所用的合成报价
// 已终态的订单直接跳过，保证重复评估幂等
func (e *Engine) evaluateOrder(order *Order, high, low float64, quote Quote) {
	if order.Status != OrderPending {
		return
	}

	switch order.Kind {
	case OrderMarket:
		// 市价单无条件成交：多头吃卖价，空头吃买价，附加不利滑点
		base := quote.Ask
		if order.Side == SideShort {
			base = quote.Bid
		}
		e.fillOrder(order, e.pricer.MarketFill(order.Side, base))

	case OrderLimit:
		// 限价单：价格触及即按挂单价成交，不加滑点
		// （假设被动单在其挂出的价位被动成交）
		if order.Side == SideLong && low <= order.LimitPrice {
			e.fillOrder(order, order.LimitPrice)
		} else if order.Side == SideShort && high >= order.LimitPrice {
			e.fillOrder(order, order.LimitPrice)
		}

	case OrderStop:
		// 突破单：触发后转为主动成交，按触发价加不利滑点
		if order.Side == SideLong && high >= order.StopPrice {
			e.fillOrder(order, e.pricer.MarketFill(order.Side, order.StopPrice))
		} else if order.Side == SideShort && low <= order.StopPrice {
			e.fillOrder(order, e.pricer.MarketFill(order.Side, order.StopPrice))
		}
	}
}

// fillOrder 订单成交：写入成交字段（仅此一次），生成一个新持仓
// 数量、方向和附带的止损止盈随成交转入持仓
func (e *Engine) fillOrder(order *Order, price float64) {
	order.Status = OrderFilled
	order.FilledAt = e.now
	order.FillPrice = price

	trade := &Trade{
		ID:         e.nextTradeID,
		OrderID:    order.ID,
		SessionID:  e.sessionID,
		Symbol:     order.Symbol,
		Side:       order.Side,
		Status:     TradeOpen,
		EntryPrice: price,
		Quantity:   order.Quantity,
		EntryTime:  e.now,
		StopLoss:   order.StopLoss,
		TakeProfit: order.TakeProfit,
	}
	e.nextTradeID++
	e.trades = append(e.trades, trade)

	logger.Debug("📈 订单成交: id=%d %s %s 价格=%.8g 数量=%.8g",
		order.ID, order.Symbol, order.Side, price, order.Quantity)

	e.publish(event.EventTypeOrderFilled, map[string]interface{}{
		"order_id":   order.ID,
		"trade_id":   trade.ID,
		"symbol":     order.Symbol,
		"side":       string(order.Side),
		"fill_price": price,
		"quantity":   order.Quantity,
	})
}
