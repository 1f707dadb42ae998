package database

import (
	"barsim/engine"
)

// 引擎内存对象与持久化记录的互转
// 引擎不感知持久化层，转换集中在这里

// FromOrder 引擎订单转持久化记录
func FromOrder(o *engine.Order) *OrderRecord {
	return &OrderRecord{
		SessionID:    o.SessionID,
		OrderID:      o.ID,
		Symbol:       o.Symbol,
		Side:         string(o.Side),
		Kind:         string(o.Kind),
		Status:       string(o.Status),
		Quantity:     o.Quantity,
		LimitPrice:   o.LimitPrice,
		StopPrice:    o.StopPrice,
		FillPrice:    o.FillPrice,
		RejectReason: o.RejectReason,
		PlacedAt:     o.CreatedAt,
		FilledAt:     o.FilledAt,
	}
}

// FromTrade 引擎持仓转持久化记录
func FromTrade(t *engine.Trade) *TradeRecord {
	return &TradeRecord{
		SessionID:  t.SessionID,
		TradeID:    t.ID,
		OrderID:    t.OrderID,
		Symbol:     t.Symbol,
		Side:       string(t.Side),
		Status:     string(t.Status),
		EntryPrice: t.EntryPrice,
		Quantity:   t.Quantity,
		EntryTime:  t.EntryTime,
		StopLoss:   t.StopLoss,
		TakeProfit: t.TakeProfit,
		ExitPrice:  t.ExitPrice,
		ExitTime:   t.ExitTime,
		PnL:        t.PnL,
	}
}

// ToTrade 持久化记录转引擎持仓（会话恢复用）
func ToTrade(r *TradeRecord) *engine.Trade {
	return &engine.Trade{
		ID:         r.TradeID,
		OrderID:    r.OrderID,
		SessionID:  r.SessionID,
		Symbol:     r.Symbol,
		Side:       engine.Side(r.Side),
		Status:     engine.TradeStatus(r.Status),
		EntryPrice: r.EntryPrice,
		Quantity:   r.Quantity,
		EntryTime:  r.EntryTime,
		StopLoss:   r.StopLoss,
		TakeProfit: r.TakeProfit,
		ExitPrice:  r.ExitPrice,
		ExitTime:   r.ExitTime,
		PnL:        r.PnL,
	}
}
