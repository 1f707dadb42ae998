// Package indicators 技术指标库
// 为回放策略提供常用指标计算
package indicators

import (
	"math"

	"barsim/market"
)

// Closes 提取收盘价序列
func Closes(candles []*market.Candle) []float64 {
	values := make([]float64, len(candles))
	for i, c := range candles {
		values[i] = c.Close
	}
	return values
}

// SMA 简单移动平均
func SMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	result := make([]float64, len(values)-period+1)
	sum := 0.0

	// 计算第一个 SMA
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	result[0] = sum / float64(period)

	// 滑动计算后续 SMA
	for i := period; i < len(values); i++ {
		sum = sum - values[i-period] + values[i]
		result[i-period+1] = sum / float64(period)
	}

	return result
}

// EMA 指数移动平均
func EMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	result := make([]float64, len(values))
	multiplier := 2.0 / (float64(period) + 1.0)

	// 第一个 EMA 使用 SMA
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	result[period-1] = sum / float64(period)

	for i := period; i < len(values); i++ {
		result[i] = (values[i] * multiplier) + (result[i-1] * (1 - multiplier))
	}

	return result[period-1:]
}

// StdDev 滚动标准差
func StdDev(values []float64, period int) []float64 {
	if period <= 1 || len(values) < period {
		return nil
	}

	result := make([]float64, len(values)-period+1)
	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]
		mean := 0.0
		for _, v := range window {
			mean += v
		}
		mean /= float64(period)

		variance := 0.0
		for _, v := range window {
			variance += (v - mean) * (v - mean)
		}
		result[i-period+1] = math.Sqrt(variance / float64(period))
	}

	return result
}

// RSI 相对强弱指数（Wilder平滑）
func RSI(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period+1 {
		return nil
	}

	gains := make([]float64, len(values)-1)
	losses := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			gains[i-1] = change
		} else {
			losses[i-1] = -change
		}
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	result := make([]float64, 0, len(values)-period)
	result = append(result, rsiValue(avgGain, avgLoss))

	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
		result = append(result, rsiValue(avgGain, avgLoss))
	}

	return result
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// ATR 平均真实波幅
func ATR(candles []*market.Candle, period int) []float64 {
	if period <= 0 || len(candles) < period+1 {
		return nil
	}

	trs := make([]float64, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		highLow := candles[i].High - candles[i].Low
		highClose := math.Abs(candles[i].High - candles[i-1].Close)
		lowClose := math.Abs(candles[i].Low - candles[i-1].Close)
		trs[i-1] = math.Max(highLow, math.Max(highClose, lowClose))
	}

	// Wilder平滑
	atr := 0.0
	for i := 0; i < period; i++ {
		atr += trs[i]
	}
	atr /= float64(period)

	result := make([]float64, 0, len(trs)-period+1)
	result = append(result, atr)
	for i := period; i < len(trs); i++ {
		atr = (atr*float64(period-1) + trs[i]) / float64(period)
		result = append(result, atr)
	}

	return result
}

// CrossOver 判断 fast 是否在最后一根上穿 slow
// 两个序列按尾部对齐
func CrossOver(fast, slow []float64) bool {
	if len(fast) < 2 || len(slow) < 2 {
		return false
	}
	f0, f1 := fast[len(fast)-2], fast[len(fast)-1]
	s0, s1 := slow[len(slow)-2], slow[len(slow)-1]
	return f0 <= s0 && f1 > s1
}

// CrossUnder 判断 fast 是否在最后一根下穿 slow
func CrossUnder(fast, slow []float64) bool {
	if len(fast) < 2 || len(slow) < 2 {
		return false
	}
	f0, f1 := fast[len(fast)-2], fast[len(fast)-1]
	s0, s1 := slow[len(slow)-2], slow[len(slow)-1]
	return f0 >= s0 && f1 < s1
}
