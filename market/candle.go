// Package market K线数据类型
// 引擎、聚合器和数据层共享的基础行情类型
package market

import "time"

// Candle K线数据（单根OHLCV）
type Candle struct {
	Symbol    string  `json:"symbol"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Timestamp int64   `json:"timestamp"` // 毫秒时间戳（K线开盘时间）
	IsClosed  bool    `json:"is_closed"` // 是否已完结
}

// Time 返回K线开盘时间
func (c *Candle) Time() time.Time {
	return time.UnixMilli(c.Timestamp)
}

// Range 返回K线的价格区间（最高价-最低价）
func (c *Candle) Range() float64 {
	return c.High - c.Low
}

// IsValid 检查K线数据是否合法（OHLC关系和正价格）
func (c *Candle) IsValid() bool {
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return false
	}
	if c.High < c.Low {
		return false
	}
	if c.Open > c.High || c.Open < c.Low {
		return false
	}
	if c.Close > c.High || c.Close < c.Low {
		return false
	}
	return true
}

// IntervalSeconds 将周期字符串转换为秒数
// 支持 "1m", "5m", "15m", "1h", "4h", "1d"
func IntervalSeconds(interval string) int64 {
	switch interval {
	case "1m":
		return 60
	case "3m":
		return 180
	case "5m":
		return 300
	case "15m":
		return 900
	case "30m":
		return 1800
	case "1h":
		return 3600
	case "4h":
		return 14400
	case "1d":
		return 86400
	default:
		return 0
	}
}
