package replay

import (
	"fmt"

	"barsim/aggregate"
	"barsim/market"
)

// MultiTimeframeStrategy 策略可选扩展
// 实现后可在回放中额外接收已封闭的大周期K线
type MultiTimeframeStrategy interface {
	OnHigherCandle(candle *market.Candle)
}

// TimeframeView 回放过程中的大周期视图
// 逐根喂入基础K线，窗口滚动时产出封闭的大周期K线，随时可取仍在累积的当前K线
type TimeframeView struct {
	windowSec int64
	bucket    []*market.Candle // 当前窗口内的基础K线
}

// NewTimeframeView 按周期字符串创建视图（"5m"、"1h" 等）
func NewTimeframeView(interval string) (*TimeframeView, error) {
	sec := market.IntervalSeconds(interval)
	if sec <= 0 {
		return nil, fmt.Errorf("无法识别的大周期: %s", interval)
	}
	return &TimeframeView{windowSec: sec}, nil
}

// WindowSeconds 窗口秒数
func (v *TimeframeView) WindowSeconds() int64 {
	return v.windowSec
}

// Push 喂入一根基础K线
// 当该K线落入新窗口时，返回上一窗口封闭后的大周期K线，否则返回 nil
func (v *TimeframeView) Push(candle *market.Candle) *market.Candle {
	if candle == nil {
		return nil
	}

	windowMs := v.windowSec * 1000
	start := candle.Timestamp / windowMs * windowMs

	var completed *market.Candle
	if len(v.bucket) > 0 {
		curStart := v.bucket[0].Timestamp / windowMs * windowMs
		if start != curStart {
			bars := aggregate.Aggregate(v.bucket, v.windowSec)
			if len(bars) > 0 {
				completed = bars[len(bars)-1]
			}
			v.bucket = v.bucket[:0]
		}
	}

	v.bucket = append(v.bucket, candle)
	return completed
}

// Forming 返回当前窗口仍在累积中的大周期K线（没有数据时为 nil）
func (v *TimeframeView) Forming() *market.Candle {
	return aggregate.FormingBar(v.bucket, v.windowSec)
}
