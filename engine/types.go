// Package engine 回测撮合引擎
// 按K线逐根推进的单会话模拟引擎：订单触发、滑点成交、止损止盈、
// 已实现/未实现盈亏与回撤统计
package engine

// Side 持仓方向
type Side string

const (
	SideLong  Side = "LONG"  // 做多
	SideShort Side = "SHORT" // 做空
)

// Direction 返回盈亏计算的方向系数（多头+1，空头-1）
func (s Side) Direction() float64 {
	if s == SideShort {
		return -1
	}
	return 1
}

// IsValid 检查方向是否合法
func (s Side) IsValid() bool {
	return s == SideLong || s == SideShort
}

// OrderKind 订单类型
type OrderKind string

const (
	OrderMarket OrderKind = "MARKET" // 市价单
	OrderLimit  OrderKind = "LIMIT"  // 限价单
	OrderStop   OrderKind = "STOP"   // 止损触发单（突破单）
)

// IsValid 检查订单类型是否合法
func (k OrderKind) IsValid() bool {
	return k == OrderMarket || k == OrderLimit || k == OrderStop
}

// OrderStatus 订单生命周期状态（单向流转，终态不可逆）
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"   // 等待触发
	OrderFilled    OrderStatus = "FILLED"    // 已成交（终态）
	OrderCancelled OrderStatus = "CANCELLED" // 已撤销（终态，引擎目前不主动触发）
	OrderRejected  OrderStatus = "REJECTED"  // 已拒绝（终态，参数校验失败）
)

// TradeStatus 持仓生命周期状态
type TradeStatus string

const (
	TradeOpen   TradeStatus = "OPEN"   // 持仓中
	TradeClosed TradeStatus = "CLOSED" // 已平仓（终态）
)

// OrderSpec 下单请求参数
// 价格类字段取0表示未设置
type OrderSpec struct {
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Kind       OrderKind `json:"kind"`
	Quantity   float64   `json:"quantity"`
	LimitPrice float64   `json:"limit_price,omitempty"` // 限价单必填
	StopPrice  float64   `json:"stop_price,omitempty"`  // 止损触发单必填
	StopLoss   float64   `json:"stop_loss,omitempty"`   // 附带止损位（随成交转入持仓）
	TakeProfit float64   `json:"take_profit,omitempty"` // 附带止盈位
}

// Order 订单
// 由引擎分配标识和创建时间；PENDING 之后的状态流转为单向，
// 成交字段（FilledAt/FillPrice）只写入一次
type Order struct {
	ID           int64       `json:"id"`
	SessionID    string      `json:"session_id"`
	Symbol       string      `json:"symbol"`
	Side         Side        `json:"side"`
	Kind         OrderKind   `json:"kind"`
	Status       OrderStatus `json:"status"`
	Quantity     float64     `json:"quantity"`
	LimitPrice   float64     `json:"limit_price,omitempty"`
	StopPrice    float64     `json:"stop_price,omitempty"`
	StopLoss     float64     `json:"stop_loss,omitempty"`
	TakeProfit   float64     `json:"take_profit,omitempty"`
	CreatedAt    int64       `json:"created_at"` // 模拟时间（毫秒）
	FilledAt     int64       `json:"filled_at,omitempty"`
	FillPrice    float64     `json:"fill_price,omitempty"`
	RejectReason string      `json:"reject_reason,omitempty"`
}

// Trade 持仓（由订单成交产生）
// PnL 在平仓时计算并冻结，OPEN 状态下无定义
type Trade struct {
	ID         int64       `json:"id"`
	OrderID    int64       `json:"order_id"`
	SessionID  string      `json:"session_id"`
	Symbol     string      `json:"symbol"`
	Side       Side        `json:"side"`
	Status     TradeStatus `json:"status"`
	EntryPrice float64     `json:"entry_price"`
	Quantity   float64     `json:"quantity"`
	EntryTime  int64       `json:"entry_time"` // 模拟时间（毫秒）
	StopLoss   float64     `json:"stop_loss,omitempty"`
	TakeProfit float64     `json:"take_profit,omitempty"`
	ExitPrice  float64     `json:"exit_price,omitempty"`
	ExitTime   int64       `json:"exit_time,omitempty"`
	PnL        float64     `json:"pnl"`
	Commission float64     `json:"commission"` // 预留：手续费成本建模，当前为0
	Swap       float64     `json:"swap"`       // 预留：隔夜利息成本建模，当前为0
}

// Stats 引擎状态快照（只读）
type Stats struct {
	Balance      float64 `json:"balance"`       // 已实现余额
	Equity       float64 `json:"equity"`        // 权益（余额+浮动盈亏）
	MaxEquity    float64 `json:"max_equity"`    // 权益高水位
	MaxDrawdown  float64 `json:"max_drawdown"`  // 最大回撤（%）
	OpenTrades   int     `json:"open_trades"`   // 持仓数量
	ClosedTrades int     `json:"closed_trades"` // 已平仓数量
}
