package replay

import (
	"context"
	"math"
	"testing"

	"barsim/engine"
	"barsim/market"
)

// scriptedStrategy 按K线序号出信号的测试桩
type scriptedStrategy struct {
	count   int
	buyAt   int
	closeAt int
}

func (s *scriptedStrategy) GetName() string { return "scripted" }

func (s *scriptedStrategy) OnCandle(c *market.Candle) Signal {
	s.count++
	switch s.count {
	case s.buyAt:
		return Signal{Action: ActionBuy, Reason: "脚本买入"}
	case s.closeAt:
		return Signal{Action: ActionClose, Reason: "脚本平仓"}
	}
	return Signal{Action: ActionHold}
}

func trendCandles(n int, start float64, step float64) []*market.Candle {
	candles := make([]*market.Candle, 0, n)
	price := start
	for i := 0; i < n; i++ {
		candles = append(candles, &market.Candle{
			Symbol:    "BTCUSDT",
			Open:      price,
			High:      price + 0.5,
			Low:       price - 0.5,
			Close:     price,
			Volume:    100,
			Timestamp: int64(i) * 60000,
			IsClosed:  true,
		})
		price += step
	}
	return candles
}

// TestRunnerBasicFlow 完整回放流程：开仓、平仓、权益曲线、无遗留持仓
func TestRunnerBasicFlow(t *testing.T) {
	candles := trendCandles(100, 100, 0.1)
	strategy := &scriptedStrategy{buyAt: 10, closeAt: 50}

	runner := NewRunner(Config{
		Symbol:         "BTCUSDT",
		Interval:       "1m",
		InitialBalance: 10000,
		SpreadBps:      2,
		SlippageBps:    2,
		RandomSeed:     42,
	}, candles, strategy)

	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("回放失败: %v", err)
	}

	if result.Bars != 100 {
		t.Errorf("K线数量: 期望 100, 实际 %d", result.Bars)
	}
	if len(result.Equity) != 100 {
		t.Errorf("权益曲线长度: 期望 100, 实际 %d", len(result.Equity))
	}
	if len(result.Orders) != 1 {
		t.Fatalf("期望1笔订单, 实际 %d", len(result.Orders))
	}
	if result.Orders[0].Status != engine.OrderFilled {
		t.Errorf("订单应已成交: %s", result.Orders[0].Status)
	}

	// 上涨趋势中第10根买入第50根平仓，应当盈利
	if len(result.Trades) != 1 {
		t.Fatalf("期望1笔持仓, 实际 %d", len(result.Trades))
	}
	trade := result.Trades[0]
	if trade.Status != engine.TradeClosed {
		t.Error("回放结束后不应有未平仓持仓")
	}
	if trade.PnL <= 0 {
		t.Errorf("上涨趋势多头应盈利: %.4f", trade.PnL)
	}
	if math.Abs(result.FinalBalance-(10000+trade.PnL)) > 1e-6 {
		t.Errorf("期末余额应等于初始余额加盈亏: %.4f", result.FinalBalance)
	}

	t.Logf("✅ 回放结果: 盈亏=%.2f 期末余额=%.2f 最大回撤=%.2f%%",
		trade.PnL, result.FinalBalance, result.Stats.MaxDrawdown)
}

// TestRunnerForcedClose 数据耗尽时强制平仓
func TestRunnerForcedClose(t *testing.T) {
	candles := trendCandles(30, 100, 0.1)
	strategy := &scriptedStrategy{buyAt: 5, closeAt: -1} // 从不主动平仓

	runner := NewRunner(Config{
		Symbol:         "BTCUSDT",
		Interval:       "1m",
		InitialBalance: 10000,
		RandomSeed:     7,
	}, candles, strategy)

	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("回放失败: %v", err)
	}

	for _, tr := range result.Trades {
		if tr.Status != engine.TradeClosed {
			t.Errorf("强制平仓后仍有OPEN持仓: id=%d", tr.ID)
		}
	}
	if result.Stats.OpenTrades != 0 {
		t.Errorf("期望0笔未平仓, 实际 %d", result.Stats.OpenTrades)
	}
}

// TestRunnerReproducible 相同配置与种子结果一致
func TestRunnerReproducible(t *testing.T) {
	run := func() *Result {
		candles := trendCandles(60, 100, 0.05)
		runner := NewRunner(Config{
			Symbol:         "BTCUSDT",
			Interval:       "1m",
			InitialBalance: 10000,
			SpreadBps:      2,
			SlippageBps:    2,
			RandomSeed:     1234,
		}, candles, &scriptedStrategy{buyAt: 10, closeAt: 40})
		result, err := runner.Run(context.Background())
		if err != nil {
			t.Fatalf("回放失败: %v", err)
		}
		return result
	}

	a := run()
	b := run()
	if a.FinalBalance != b.FinalBalance {
		t.Errorf("相同种子期末余额不一致: %.8f vs %.8f", a.FinalBalance, b.FinalBalance)
	}
	if a.Trades[0].EntryPrice != b.Trades[0].EntryPrice {
		t.Errorf("相同种子入场价不一致: %.8f vs %.8f",
			a.Trades[0].EntryPrice, b.Trades[0].EntryPrice)
	}
}

// TestRunnerEmptyData 空数据直接报错
func TestRunnerEmptyData(t *testing.T) {
	runner := NewRunner(Config{Symbol: "BTCUSDT", InitialBalance: 10000},
		nil, &scriptedStrategy{})
	if _, err := runner.Run(context.Background()); err == nil {
		t.Error("空K线数据应报错")
	}
}

// TestSMACrossSignals 均线交叉策略在趋势反转处出信号
func TestSMACrossSignals(t *testing.T) {
	strategy := NewSMACrossStrategy(3, 6, 0.02, 0.05)

	// 先跌后涨制造金叉
	prices := []float64{110, 109, 108, 107, 106, 105, 104, 103, 102, 101, 100,
		102, 104, 106, 108, 110, 112}

	var sawBuy bool
	for i, p := range prices {
		c := &market.Candle{
			Symbol: "BTCUSDT", Open: p, High: p + 0.5, Low: p - 0.5, Close: p,
			Volume: 10, Timestamp: int64(i) * 60000, IsClosed: true,
		}
		sig := strategy.OnCandle(c)
		if sig.Action == ActionBuy {
			sawBuy = true
			if sig.StopLoss >= p || sig.TakeProfit <= p {
				t.Errorf("止损止盈应夹住入场价: sl=%.2f tp=%.2f close=%.2f",
					sig.StopLoss, sig.TakeProfit, p)
			}
		}
	}
	if !sawBuy {
		t.Error("上涨反转应产生买入信号")
	}
}
