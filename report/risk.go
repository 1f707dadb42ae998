package report

import (
	"math"
	"sort"

	"barsim/replay"
)

// RiskMetrics 风险指标
type RiskMetrics struct {
	VaR95  float64 `json:"var_95"`  // 95% 置信度的风险价值
	VaR99  float64 `json:"var_99"`  // 99% 置信度的风险价值
	CVaR95 float64 `json:"cvar_95"` // 95% 置信度的条件风险价值
	CVaR99 float64 `json:"cvar_99"` // 99% 置信度的条件风险价值
}

// CalculateRiskMetrics 历史模拟法计算 VaR 与 CVaR
func CalculateRiskMetrics(equity []replay.EquityPoint) RiskMetrics {
	if len(equity) < 2 {
		return RiskMetrics{}
	}

	returns := calculateReturns(equity)

	return RiskMetrics{
		VaR95:  historicalVaR(returns, 0.95) * 100, // 转换为百分比
		VaR99:  historicalVaR(returns, 0.99) * 100,
		CVaR95: conditionalVaR(returns, 0.95) * 100,
		CVaR99: conditionalVaR(returns, 0.99) * 100,
	}
}

// historicalVaR 历史模拟法 VaR
func historicalVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	index := int(float64(len(sorted)) * (1 - confidence))
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	if index < 0 {
		index = 0
	}

	return math.Abs(sorted[index]) // VaR 是正数，表示损失
}

// conditionalVaR 条件风险价值（Expected Shortfall）
func conditionalVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	index := int(float64(len(sorted)) * (1 - confidence))
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	if index < 0 {
		return 0
	}

	// 尾部平均损失
	sum := 0.0
	count := 0
	for i := 0; i <= index; i++ {
		sum += sorted[i]
		count++
	}
	if count == 0 {
		return 0
	}

	return math.Abs(sum / float64(count))
}
