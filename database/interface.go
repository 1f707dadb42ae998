package database

import (
	"context"
	"time"
)

// Database 数据库接口
type Database interface {
	// 会话
	SaveSession(ctx context.Context, session *SessionRecord) error
	UpdateSession(ctx context.Context, session *SessionRecord) error
	GetSession(ctx context.Context, sessionID string) (*SessionRecord, error)
	ListSessions(ctx context.Context, limit int) ([]*SessionRecord, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// 订单记录
	SaveOrder(ctx context.Context, order *OrderRecord) error
	BatchSaveOrders(ctx context.Context, orders []*OrderRecord) error
	GetOrders(ctx context.Context, filter *OrderFilter) ([]*OrderRecord, error)

	// 持仓记录
	SaveTrade(ctx context.Context, trade *TradeRecord) error
	BatchSaveTrades(ctx context.Context, trades []*TradeRecord) error
	GetTrades(ctx context.Context, filter *TradeFilter) ([]*TradeRecord, error)

	// 事件记录
	SaveEvent(ctx context.Context, event *EventRecord) error
	GetEvents(ctx context.Context, filter *EventFilter) ([]*EventRecord, error)

	// 权益曲线
	BatchSaveEquityPoints(ctx context.Context, points []*EquityRecord) error
	GetEquityCurve(ctx context.Context, sessionID string) ([]*EquityRecord, error)

	// 系统指标
	SaveSystemMetrics(ctx context.Context, metrics *SystemMetrics) error
	GetRecentSystemMetrics(ctx context.Context, limit int) ([]*SystemMetrics, error)

	// 健康检查
	Ping(ctx context.Context) error

	// 关闭连接
	Close() error
}

// 数据模型

// SessionRecord 回测会话记录
type SessionRecord struct {
	ID             string    `gorm:"primaryKey;size:64" json:"id"`
	Symbol         string    `gorm:"index;size:50" json:"symbol"`
	Interval       string    `gorm:"size:10" json:"interval"`
	StartTime      int64     `json:"start_time"` // 数据区间起点（毫秒）
	EndTime        int64     `json:"end_time"`
	InitialBalance float64   `json:"initial_balance"`
	FinalBalance   float64   `json:"final_balance"`
	Equity         float64   `json:"equity"`
	MaxEquity      float64   `json:"max_equity"`
	MaxDrawdown    float64   `json:"max_drawdown"`
	SpreadBps      float64   `json:"spread_bps"`
	SlippageBps    float64   `json:"slippage_bps"`
	RandomSeed     int64     `json:"random_seed"`
	Status         string    `gorm:"index;size:20" json:"status"` // RUNNING, FINISHED, FAILED
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// OrderRecord 订单持久化记录
type OrderRecord struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID    string    `gorm:"index:idx_order_session;size:64" json:"session_id"`
	OrderID      int64     `gorm:"index:idx_order_session" json:"order_id"` // 会话内订单ID
	Symbol       string    `gorm:"size:50" json:"symbol"`
	Side         string    `gorm:"size:10" json:"side"`
	Kind         string    `gorm:"size:10" json:"kind"`
	Status       string    `gorm:"index;size:20" json:"status"`
	Quantity     float64   `json:"quantity"`
	LimitPrice   float64   `json:"limit_price"`
	StopPrice    float64   `json:"stop_price"`
	FillPrice    float64   `json:"fill_price"`
	RejectReason string    `gorm:"size:200" json:"reject_reason"`
	PlacedAt     int64     `json:"placed_at"` // 模拟时间（毫秒）
	FilledAt     int64     `json:"filled_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// TradeRecord 持仓持久化记录
type TradeRecord struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID  string    `gorm:"index:idx_trade_session;size:64" json:"session_id"`
	TradeID    int64     `gorm:"index:idx_trade_session" json:"trade_id"` // 会话内持仓ID
	OrderID    int64     `json:"order_id"`
	Symbol     string    `gorm:"size:50" json:"symbol"`
	Side       string    `gorm:"size:10" json:"side"`
	Status     string    `gorm:"index;size:10" json:"status"`
	EntryPrice float64   `json:"entry_price"`
	Quantity   float64   `json:"quantity"`
	EntryTime  int64     `json:"entry_time"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	ExitPrice  float64   `json:"exit_price"`
	ExitTime   int64     `json:"exit_time"`
	PnL        float64   `json:"pnl"`
	CreatedAt  time.Time `json:"created_at"`
}

// EventRecord 事件持久化记录
type EventRecord struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"index;size:64" json:"session_id"`
	Type      string    `gorm:"index;size:50" json:"type"`
	Severity  string    `gorm:"size:20" json:"severity"`
	Timestamp int64     `json:"timestamp"`
	Data      string    `gorm:"type:text" json:"data"` // JSON载荷
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// EquityRecord 权益曲线采样点
type EquityRecord struct {
	ID        int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string  `gorm:"index:idx_equity_session;size:64" json:"session_id"`
	Timestamp int64   `gorm:"index:idx_equity_session" json:"timestamp"`
	Balance   float64 `json:"balance"`
	Equity    float64 `json:"equity"`
}

// SystemMetrics 系统指标记录
type SystemMetrics struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	MemoryUsedMB  float64   `json:"memory_used_mb"`
	Goroutines    int       `json:"goroutines"`
	Timestamp     time.Time `gorm:"index" json:"timestamp"`
}

// 查询过滤器

// OrderFilter 订单查询过滤
type OrderFilter struct {
	SessionID string
	Symbol    string
	Status    string
	Limit     int
}

// TradeFilter 持仓查询过滤
type TradeFilter struct {
	SessionID string
	Symbol    string
	Status    string
	Limit     int
}

// EventFilter 事件查询过滤
type EventFilter struct {
	SessionID string
	Type      string
	StartTime int64
	EndTime   int64
	Limit     int
}
