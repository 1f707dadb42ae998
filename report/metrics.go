// Package report 回测绩效与风险报告
// 基于权益曲线和已平仓持仓计算绩效指标，渲染多语言Markdown报告
package report

import (
	"math"

	"barsim/engine"
	"barsim/replay"
)

// Metrics 绩效指标
type Metrics struct {
	// 收益指标
	TotalReturn      float64 `json:"total_return"`      // 总收益率 (%)
	AnnualizedReturn float64 `json:"annualized_return"` // 年化收益率 (%)

	// 风险指标
	MaxDrawdown         float64 `json:"max_drawdown"`          // 最大回撤 (%)
	MaxDrawdownDuration int     `json:"max_drawdown_duration"` // 最大回撤持续（K线数）
	Volatility          float64 `json:"volatility"`            // 年化波动率 (%)

	// 风险调整收益
	SharpeRatio  float64 `json:"sharpe_ratio"`
	SortinoRatio float64 `json:"sortino_ratio"`
	CalmarRatio  float64 `json:"calmar_ratio"`

	// 交易指标
	TotalTrades  int     `json:"total_trades"`
	WinRate      float64 `json:"win_rate"`      // 胜率 (%)
	ProfitFactor float64 `json:"profit_factor"` // 总盈利/总亏损
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"`
	LargestWin   float64 `json:"largest_win"`
	LargestLoss  float64 `json:"largest_loss"`

	// 连续性指标
	MaxConsecutiveWins   int `json:"max_consecutive_wins"`
	MaxConsecutiveLosses int `json:"max_consecutive_losses"`
}

// CalculateMetrics 计算全部绩效指标
func CalculateMetrics(equity []replay.EquityPoint, trades []*engine.Trade, initialBalance float64) Metrics {
	if len(equity) == 0 {
		return Metrics{}
	}

	returns := calculateReturns(equity)
	periodsPerYear := annualizationFactor(equity)
	closed := closedTrades(trades)

	return Metrics{
		TotalReturn:      calculateTotalReturn(equity, initialBalance),
		AnnualizedReturn: calculateAnnualizedReturn(equity, initialBalance),

		MaxDrawdown:         calculateMaxDrawdown(equity),
		MaxDrawdownDuration: calculateMaxDrawdownDuration(equity),
		Volatility:          calculateVolatility(returns, periodsPerYear),

		SharpeRatio:  calculateSharpeRatio(returns, periodsPerYear),
		SortinoRatio: calculateSortinoRatio(returns, periodsPerYear),
		CalmarRatio:  calculateCalmarRatio(equity, initialBalance),

		TotalTrades:  len(closed),
		WinRate:      calculateWinRate(closed),
		ProfitFactor: calculateProfitFactor(closed),
		AvgWin:       calculateAvgWin(closed),
		AvgLoss:      calculateAvgLoss(closed),
		LargestWin:   calculateLargestWin(closed),
		LargestLoss:  calculateLargestLoss(closed),

		MaxConsecutiveWins:   calculateMaxConsecutiveWins(closed),
		MaxConsecutiveLosses: calculateMaxConsecutiveLosses(closed),
	}
}

// closedTrades 过滤出已平仓的持仓
func closedTrades(trades []*engine.Trade) []*engine.Trade {
	closed := make([]*engine.Trade, 0, len(trades))
	for _, t := range trades {
		if t != nil && t.Status == engine.TradeClosed {
			closed = append(closed, t)
		}
	}
	return closed
}

// calculateReturns 计算逐K线收益率序列
func calculateReturns(equity []replay.EquityPoint) []float64 {
	if len(equity) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1].Equity > 0 {
			returns[i-1] = (equity[i].Equity - equity[i-1].Equity) / equity[i-1].Equity
		}
	}
	return returns
}

// annualizationFactor 根据K线间隔推算每年周期数
// 权益点间隔不是日线时直接用252个交易日假设会失真
func annualizationFactor(equity []replay.EquityPoint) float64 {
	if len(equity) < 2 {
		return 252
	}
	spanMs := equity[len(equity)-1].Timestamp - equity[0].Timestamp
	if spanMs <= 0 {
		return 252
	}
	avgIntervalMs := float64(spanMs) / float64(len(equity)-1)
	yearMs := 365.0 * 86400 * 1000
	return yearMs / avgIntervalMs
}

// calculateTotalReturn 总收益率
func calculateTotalReturn(equity []replay.EquityPoint, initialBalance float64) float64 {
	if len(equity) == 0 || initialBalance == 0 {
		return 0
	}
	finalEquity := equity[len(equity)-1].Equity
	return (finalEquity - initialBalance) / initialBalance * 100
}

// calculateAnnualizedReturn 年化收益率
func calculateAnnualizedReturn(equity []replay.EquityPoint, initialBalance float64) float64 {
	if len(equity) < 2 || initialBalance == 0 {
		return 0
	}

	days := float64(equity[len(equity)-1].Timestamp-equity[0].Timestamp) / (1000 * 86400)
	if days == 0 {
		return 0
	}

	totalReturn := calculateTotalReturn(equity, initialBalance)
	return (math.Pow(1+totalReturn/100, 365/days) - 1) * 100
}

// calculateMaxDrawdown 最大回撤
func calculateMaxDrawdown(equity []replay.EquityPoint) float64 {
	if len(equity) == 0 {
		return 0
	}

	maxDrawdown := 0.0
	peak := equity[0].Equity

	for _, point := range equity {
		if point.Equity > peak {
			peak = point.Equity
		}
		if peak > 0 {
			drawdown := (peak - point.Equity) / peak * 100
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return maxDrawdown
}

// calculateMaxDrawdownDuration 最长回撤持续（K线数）
func calculateMaxDrawdownDuration(equity []replay.EquityPoint) int {
	if len(equity) == 0 {
		return 0
	}

	maxDuration := 0
	currentDuration := 0
	peak := equity[0].Equity
	inDrawdown := false

	for _, point := range equity {
		if point.Equity > peak {
			peak = point.Equity
			if inDrawdown {
				if currentDuration > maxDuration {
					maxDuration = currentDuration
				}
				currentDuration = 0
				inDrawdown = false
			}
		} else if point.Equity < peak {
			inDrawdown = true
			currentDuration++
		}
	}

	if currentDuration > maxDuration {
		maxDuration = currentDuration
	}

	return maxDuration
}

// calculateVolatility 年化波动率
func calculateVolatility(returns []float64, periodsPerYear float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	variance /= float64(len(returns))

	return math.Sqrt(variance) * math.Sqrt(periodsPerYear) * 100
}

// calculateSharpeRatio 夏普比率（年化2%无风险利率）
func calculateSharpeRatio(returns []float64, periodsPerYear float64) float64 {
	if len(returns) == 0 || periodsPerYear <= 0 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	variance /= float64(len(returns))
	stdDev := math.Sqrt(variance)

	if stdDev == 0 {
		return 0
	}

	riskFreeRate := 0.02 / periodsPerYear
	return (mean - riskFreeRate) / stdDev * math.Sqrt(periodsPerYear)
}

// calculateSortinoRatio 索提诺比率（只计下行波动）
func calculateSortinoRatio(returns []float64, periodsPerYear float64) float64 {
	if len(returns) == 0 || periodsPerYear <= 0 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	downVariance := 0.0
	downCount := 0
	for _, r := range returns {
		if r < 0 {
			downVariance += r * r
			downCount++
		}
	}

	if downCount == 0 {
		return 0
	}

	downStdDev := math.Sqrt(downVariance / float64(downCount))
	if downStdDev == 0 {
		return 0
	}

	riskFreeRate := 0.02 / periodsPerYear
	return (mean - riskFreeRate) / downStdDev * math.Sqrt(periodsPerYear)
}

// calculateCalmarRatio 卡玛比率（年化收益 / 最大回撤）
func calculateCalmarRatio(equity []replay.EquityPoint, initialBalance float64) float64 {
	annualizedReturn := calculateAnnualizedReturn(equity, initialBalance)
	maxDrawdown := calculateMaxDrawdown(equity)

	if maxDrawdown == 0 {
		return 0
	}
	return annualizedReturn / maxDrawdown
}

// calculateWinRate 胜率
func calculateWinRate(closed []*engine.Trade) float64 {
	if len(closed) == 0 {
		return 0
	}

	winCount := 0
	for _, t := range closed {
		if t.PnL > 0 {
			winCount++
		}
	}
	return float64(winCount) / float64(len(closed)) * 100
}

// calculateProfitFactor 利润因子
func calculateProfitFactor(closed []*engine.Trade) float64 {
	totalProfit := 0.0
	totalLoss := 0.0

	for _, t := range closed {
		if t.PnL > 0 {
			totalProfit += t.PnL
		} else {
			totalLoss += math.Abs(t.PnL)
		}
	}

	if totalLoss == 0 {
		return 0
	}
	return totalProfit / totalLoss
}

// calculateAvgWin 平均盈利
func calculateAvgWin(closed []*engine.Trade) float64 {
	totalWin := 0.0
	winCount := 0
	for _, t := range closed {
		if t.PnL > 0 {
			totalWin += t.PnL
			winCount++
		}
	}
	if winCount == 0 {
		return 0
	}
	return totalWin / float64(winCount)
}

// calculateAvgLoss 平均亏损
func calculateAvgLoss(closed []*engine.Trade) float64 {
	totalLoss := 0.0
	lossCount := 0
	for _, t := range closed {
		if t.PnL < 0 {
			totalLoss += math.Abs(t.PnL)
			lossCount++
		}
	}
	if lossCount == 0 {
		return 0
	}
	return totalLoss / float64(lossCount)
}

// calculateLargestWin 最大单笔盈利
func calculateLargestWin(closed []*engine.Trade) float64 {
	largest := 0.0
	for _, t := range closed {
		if t.PnL > largest {
			largest = t.PnL
		}
	}
	return largest
}

// calculateLargestLoss 最大单笔亏损
func calculateLargestLoss(closed []*engine.Trade) float64 {
	largest := 0.0
	for _, t := range closed {
		if t.PnL < 0 && math.Abs(t.PnL) > largest {
			largest = math.Abs(t.PnL)
		}
	}
	return largest
}

// calculateMaxConsecutiveWins 最大连胜
func calculateMaxConsecutiveWins(closed []*engine.Trade) int {
	maxStreak, streak := 0, 0
	for _, t := range closed {
		if t.PnL > 0 {
			streak++
			if streak > maxStreak {
				maxStreak = streak
			}
		} else {
			streak = 0
		}
	}
	return maxStreak
}

// calculateMaxConsecutiveLosses 最大连亏
func calculateMaxConsecutiveLosses(closed []*engine.Trade) int {
	maxStreak, streak := 0, 0
	for _, t := range closed {
		if t.PnL < 0 {
			streak++
			if streak > maxStreak {
				maxStreak = streak
			}
		} else {
			streak = 0
		}
	}
	return maxStreak
}
