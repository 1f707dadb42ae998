// Package aggregate 将基础周期K线合成更大周期
// 纯函数，不持有状态，由回放层调用（引擎本身只消费基础周期）
package aggregate

import (
	"barsim/market"
)

// bucketStart 计算时间戳所属窗口的起点（毫秒）
func bucketStart(tsMs, windowSec int64) int64 {
	windowMs := windowSec * 1000
	return tsMs / windowMs * windowMs
}

// Aggregate 把基础K线按窗口合成大周期K线
// 窗口对齐到 floor(time/window)×window，开=首开，高=最高，低=最低，收=末收，量=累加
// 输入假定按时间升序，窗口秒数必须为正，否则返回 nil
func Aggregate(baseBars []*market.Candle, windowSec int64) []*market.Candle {
	if windowSec <= 0 || len(baseBars) == 0 {
		return nil
	}

	result := make([]*market.Candle, 0, len(baseBars)/int(windowSec)+1)
	var current *market.Candle

	for _, b := range baseBars {
		if b == nil {
			continue
		}
		start := bucketStart(b.Timestamp, windowSec)

		// 1. 进入新窗口时封闭上一根
		if current == nil || start != current.Timestamp {
			if current != nil {
				current.IsClosed = true
				result = append(result, current)
			}
			current = &market.Candle{
				Symbol:    b.Symbol,
				Open:      b.Open,
				High:      b.High,
				Low:       b.Low,
				Close:     b.Close,
				Volume:    b.Volume,
				Timestamp: start,
				IsClosed:  false,
			}
			continue
		}

		// 2. 在当前窗口内累积
		if b.High > current.High {
			current.High = b.High
		}
		if b.Low < current.Low {
			current.Low = b.Low
		}
		current.Close = b.Close
		current.Volume += b.Volume
	}

	if current != nil {
		current.IsClosed = true
		result = append(result, current)
	}
	return result
}

// FormingBar 返回最新窗口仍在累积中的K线（IsClosed=false）
// 没有输入时返回 nil
func FormingBar(baseBars []*market.Candle, windowSec int64) *market.Candle {
	if windowSec <= 0 || len(baseBars) == 0 {
		return nil
	}

	last := baseBars[len(baseBars)-1]
	if last == nil {
		return nil
	}
	start := bucketStart(last.Timestamp, windowSec)

	var forming *market.Candle
	// 从尾部向前收集落在最新窗口内的基础K线
	for i := len(baseBars) - 1; i >= 0; i-- {
		b := baseBars[i]
		if b == nil || bucketStart(b.Timestamp, windowSec) != start {
			break
		}
		if forming == nil {
			forming = &market.Candle{
				Symbol:    b.Symbol,
				Open:      b.Open,
				High:      b.High,
				Low:       b.Low,
				Close:     b.Close,
				Volume:    b.Volume,
				Timestamp: start,
				IsClosed:  false,
			}
			continue
		}
		// 向前遍历，越早的K线提供开盘价
		forming.Open = b.Open
		if b.High > forming.High {
			forming.High = b.High
		}
		if b.Low < forming.Low {
			forming.Low = b.Low
		}
		forming.Volume += b.Volume
	}
	return forming
}

// AggregateInterval 按周期字符串聚合（"5m"、"1h" 等）
// 无法识别的周期返回 nil
func AggregateInterval(baseBars []*market.Candle, interval string) []*market.Candle {
	sec := market.IntervalSeconds(interval)
	if sec <= 0 {
		return nil
	}
	return Aggregate(baseBars, sec)
}
