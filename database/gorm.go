package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormDatabase GORM 数据库实现
type GormDatabase struct {
	db *gorm.DB
}

// DBConfig 数据库配置
type DBConfig struct {
	Type            string        // sqlite, postgres, mysql
	DSN             string        // 数据源名称
	MaxOpenConns    int           // 最大打开连接数
	MaxIdleConns    int           // 最大空闲连接数
	ConnMaxLifetime time.Duration // 连接最大生命周期
	LogLevel        string        // 日志级别: silent, error, warn, info
}

// NewGormDatabase 创建 GORM 数据库实例
func NewGormDatabase(config *DBConfig) (*GormDatabase, error) {
	var dialector gorm.Dialector

	switch config.Type {
	case "sqlite":
		dialector = sqlite.Open(config.DSN)
	case "postgres", "postgresql":
		dialector = postgres.Open(config.DSN)
	case "mysql":
		dialector = mysql.Open(config.DSN)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}

	// 日志级别
	logLevel := logger.Silent
	switch config.LogLevel {
	case "error":
		logLevel = logger.Error
	case "warn":
		logLevel = logger.Warn
	case "info":
		logLevel = logger.Info
	}

	// 打开数据库
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 获取底层 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// 配置连接池
	if config.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	// 自动迁移
	if err := db.AutoMigrate(
		&SessionRecord{},
		&OrderRecord{},
		&TradeRecord{},
		&EventRecord{},
		&EquityRecord{},
		&SystemMetrics{},
	); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}

	return &GormDatabase{db: db}, nil
}

// SaveSession 保存会话
func (g *GormDatabase) SaveSession(ctx context.Context, session *SessionRecord) error {
	return g.db.WithContext(ctx).Create(session).Error
}

// UpdateSession 更新会话
func (g *GormDatabase) UpdateSession(ctx context.Context, session *SessionRecord) error {
	return g.db.WithContext(ctx).Save(session).Error
}

// GetSession 按ID获取会话
func (g *GormDatabase) GetSession(ctx context.Context, sessionID string) (*SessionRecord, error) {
	var session SessionRecord
	if err := g.db.WithContext(ctx).First(&session, "id = ?", sessionID).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions 按创建时间倒序列出会话
func (g *GormDatabase) ListSessions(ctx context.Context, limit int) ([]*SessionRecord, error) {
	var sessions []*SessionRecord
	query := g.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// DeleteSession 删除会话及其全部关联记录
func (g *GormDatabase) DeleteSession(ctx context.Context, sessionID string) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&OrderRecord{}, "session_id = ?", sessionID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&TradeRecord{}, "session_id = ?", sessionID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&EventRecord{}, "session_id = ?", sessionID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&EquityRecord{}, "session_id = ?", sessionID).Error; err != nil {
			return err
		}
		return tx.Delete(&SessionRecord{}, "id = ?", sessionID).Error
	})
}

// SaveOrder 保存订单记录
func (g *GormDatabase) SaveOrder(ctx context.Context, order *OrderRecord) error {
	return g.db.WithContext(ctx).Create(order).Error
}

// BatchSaveOrders 批量保存订单记录
func (g *GormDatabase) BatchSaveOrders(ctx context.Context, orders []*OrderRecord) error {
	if len(orders) == 0 {
		return nil
	}
	return g.db.WithContext(ctx).CreateInBatches(orders, 100).Error
}

// GetOrders 查询订单记录
func (g *GormDatabase) GetOrders(ctx context.Context, filter *OrderFilter) ([]*OrderRecord, error) {
	query := g.db.WithContext(ctx).Model(&OrderRecord{})

	if filter.SessionID != "" {
		query = query.Where("session_id = ?", filter.SessionID)
	}
	if filter.Symbol != "" {
		query = query.Where("symbol = ?", filter.Symbol)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	query = query.Order("order_id ASC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var orders []*OrderRecord
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// SaveTrade 保存持仓记录
func (g *GormDatabase) SaveTrade(ctx context.Context, trade *TradeRecord) error {
	return g.db.WithContext(ctx).Create(trade).Error
}

// BatchSaveTrades 批量保存持仓记录
func (g *GormDatabase) BatchSaveTrades(ctx context.Context, trades []*TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}
	return g.db.WithContext(ctx).CreateInBatches(trades, 100).Error
}

// GetTrades 查询持仓记录
func (g *GormDatabase) GetTrades(ctx context.Context, filter *TradeFilter) ([]*TradeRecord, error) {
	query := g.db.WithContext(ctx).Model(&TradeRecord{})

	if filter.SessionID != "" {
		query = query.Where("session_id = ?", filter.SessionID)
	}
	if filter.Symbol != "" {
		query = query.Where("symbol = ?", filter.Symbol)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	query = query.Order("trade_id ASC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var trades []*TradeRecord
	if err := query.Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}

// SaveEvent 保存事件记录
func (g *GormDatabase) SaveEvent(ctx context.Context, event *EventRecord) error {
	return g.db.WithContext(ctx).Create(event).Error
}

// GetEvents 查询事件记录
func (g *GormDatabase) GetEvents(ctx context.Context, filter *EventFilter) ([]*EventRecord, error) {
	query := g.db.WithContext(ctx).Model(&EventRecord{})

	if filter.SessionID != "" {
		query = query.Where("session_id = ?", filter.SessionID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.StartTime > 0 {
		query = query.Where("timestamp >= ?", filter.StartTime)
	}
	if filter.EndTime > 0 {
		query = query.Where("timestamp <= ?", filter.EndTime)
	}

	query = query.Order("timestamp DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var events []*EventRecord
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// BatchSaveEquityPoints 批量保存权益曲线点
func (g *GormDatabase) BatchSaveEquityPoints(ctx context.Context, points []*EquityRecord) error {
	if len(points) == 0 {
		return nil
	}
	return g.db.WithContext(ctx).CreateInBatches(points, 500).Error
}

// GetEquityCurve 按时间升序获取会话权益曲线
func (g *GormDatabase) GetEquityCurve(ctx context.Context, sessionID string) ([]*EquityRecord, error) {
	var points []*EquityRecord
	if err := g.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp ASC").
		Find(&points).Error; err != nil {
		return nil, err
	}
	return points, nil
}

// SaveSystemMetrics 保存系统指标
func (g *GormDatabase) SaveSystemMetrics(ctx context.Context, metrics *SystemMetrics) error {
	return g.db.WithContext(ctx).Create(metrics).Error
}

// GetRecentSystemMetrics 获取最近的系统指标
func (g *GormDatabase) GetRecentSystemMetrics(ctx context.Context, limit int) ([]*SystemMetrics, error) {
	if limit <= 0 {
		limit = 100
	}
	var metrics []*SystemMetrics
	if err := g.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&metrics).Error; err != nil {
		return nil, err
	}
	return metrics, nil
}

// Ping 健康检查
func (g *GormDatabase) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭数据库连接
func (g *GormDatabase) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
