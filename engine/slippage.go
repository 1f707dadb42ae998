package engine

import "math/rand"

// DefaultSlippageBps 市价类成交的最大不利滑点（基点）
// 模拟K线内部的价格噪声：滑点总是朝对交易者不利的方向
const DefaultSlippageBps = 2.0

// FillPricer 成交定价器
// 随机源可注入（种子化），保证同一历史窗口的回测结果可复现
type FillPricer struct {
	rng    *rand.Rand
	maxBps float64
}

// NewFillPricer 创建成交定价器
// rng 为 nil 时使用固定种子，保证默认行为确定
func NewFillPricer(rng *rand.Rand, maxBps float64) *FillPricer {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	if maxBps < 0 {
		maxBps = 0
	}
	return &FillPricer{rng: rng, maxBps: maxBps}
}

// MarketFill 计算市价类成交价：基准价加上单边随机不利扰动
// 多头买入价格上移，空头卖出价格下移；限价成交不经过此函数
func (p *FillPricer) MarketFill(side Side, base float64) float64 {
	perturbation := base * p.rng.Float64() * p.maxBps / 10000
	if side == SideShort {
		return base - perturbation
	}
	return base + perturbation
}
