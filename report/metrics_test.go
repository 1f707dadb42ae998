package report

import (
	"math"
	"strings"
	"testing"
	"time"

	"barsim/engine"
	"barsim/i18n"
	"barsim/replay"
)

func equityCurve(values []float64) []replay.EquityPoint {
	points := make([]replay.EquityPoint, len(values))
	base := int64(1700000000000)
	for i, v := range values {
		points[i] = replay.EquityPoint{
			Timestamp: base + int64(i)*60000,
			Balance:   v,
			Equity:    v,
		}
	}
	return points
}

func closedTrade(pnl float64) *engine.Trade {
	return &engine.Trade{Status: engine.TradeClosed, PnL: pnl}
}

func TestTotalReturnAndDrawdown(t *testing.T) {
	// 10000 -> 11000 -> 9900 -> 10500：峰值11000，谷底9900
	equity := equityCurve([]float64{10000, 11000, 9900, 10500})
	m := CalculateMetrics(equity, nil, 10000)

	if math.Abs(m.TotalReturn-5.0) > 1e-9 {
		t.Errorf("TotalReturn = %f, 期望 5.0", m.TotalReturn)
	}
	wantDD := (11000.0 - 9900.0) / 11000.0 * 100
	if math.Abs(m.MaxDrawdown-wantDD) > 1e-9 {
		t.Errorf("MaxDrawdown = %f, 期望 %f", m.MaxDrawdown, wantDD)
	}
}

func TestTradeStatistics(t *testing.T) {
	trades := []*engine.Trade{
		closedTrade(100),
		closedTrade(50),
		closedTrade(-30),
		closedTrade(200),
		closedTrade(-70),
		{Status: engine.TradeOpen}, // 未平仓不计入
	}
	equity := equityCurve([]float64{10000, 10250})
	m := CalculateMetrics(equity, trades, 10000)

	if m.TotalTrades != 5 {
		t.Fatalf("TotalTrades = %d, 期望 5", m.TotalTrades)
	}
	if math.Abs(m.WinRate-60.0) > 1e-9 {
		t.Errorf("WinRate = %f, 期望 60.0", m.WinRate)
	}
	wantPF := 350.0 / 100.0
	if math.Abs(m.ProfitFactor-wantPF) > 1e-9 {
		t.Errorf("ProfitFactor = %f, 期望 %f", m.ProfitFactor, wantPF)
	}
	if math.Abs(m.AvgWin-350.0/3.0) > 1e-9 {
		t.Errorf("AvgWin = %f", m.AvgWin)
	}
	if math.Abs(m.AvgLoss-50.0) > 1e-9 {
		t.Errorf("AvgLoss = %f, 期望 50", m.AvgLoss)
	}
}

func TestConsecutiveStreaks(t *testing.T) {
	trades := []*engine.Trade{
		closedTrade(10), closedTrade(20), closedTrade(30),
		closedTrade(-5), closedTrade(-5),
		closedTrade(15),
	}
	equity := equityCurve([]float64{10000, 10065})
	m := CalculateMetrics(equity, trades, 10000)

	if m.MaxConsecutiveWins != 3 {
		t.Errorf("MaxConsecutiveWins = %d, 期望 3", m.MaxConsecutiveWins)
	}
	if m.MaxConsecutiveLosses != 2 {
		t.Errorf("MaxConsecutiveLosses = %d, 期望 2", m.MaxConsecutiveLosses)
	}
}

func TestRiskMetricsOrdering(t *testing.T) {
	// 含若干大幅下跌的曲线，CVaR 损失应不小于 VaR
	values := []float64{10000}
	cur := 10000.0
	moves := []float64{0.01, -0.02, 0.005, -0.05, 0.02, -0.01, 0.015, -0.03, 0.01, -0.008,
		0.012, -0.025, 0.007, -0.015, 0.02, -0.04, 0.01, -0.01, 0.005, -0.02}
	for _, mv := range moves {
		cur *= 1 + mv
		values = append(values, cur)
	}
	risk := CalculateRiskMetrics(equityCurve(values))

	if risk.VaR95 <= 0 {
		t.Fatalf("VaR95 = %f, 期望为正", risk.VaR95)
	}
	if risk.CVaR95 < risk.VaR95 {
		t.Errorf("CVaR95 (%f) 应不小于 VaR95 (%f)", risk.CVaR95, risk.VaR95)
	}
	if risk.VaR99 < risk.VaR95 {
		t.Errorf("VaR99 (%f) 应不小于 VaR95 (%f)", risk.VaR99, risk.VaR95)
	}
}

func TestEmptyInputs(t *testing.T) {
	m := CalculateMetrics(nil, nil, 10000)
	if m.TotalTrades != 0 || m.TotalReturn != 0 {
		t.Errorf("空输入应返回零值指标: %+v", m)
	}
	risk := CalculateRiskMetrics(nil)
	if risk.VaR95 != 0 {
		t.Errorf("空曲线 VaR95 = %f, 期望 0", risk.VaR95)
	}
}

func TestReportRender(t *testing.T) {
	if err := i18n.Init("zh-CN"); err != nil {
		t.Fatalf("i18n初始化失败: %v", err)
	}

	result := &replay.Result{
		SessionID:      "bt_test_0001",
		Symbol:         "BTCUSDT",
		Interval:       "1m",
		Strategy:       "sma_cross_5_20",
		StartTime:      time.Unix(1700000000, 0),
		EndTime:        time.Unix(1700086400, 0),
		InitialBalance: 10000,
		FinalBalance:   10500,
		Equity:         equityCurve([]float64{10000, 10200, 10100, 10500}),
		Trades:         []*engine.Trade{closedTrade(300), closedTrade(200)},
		Bars:           4,
	}
	report := Build(result)

	content, err := report.Render("zh-CN")
	if err != nil {
		t.Fatalf("渲染报告失败: %v", err)
	}
	for _, want := range []string{"回测报告", "BTCUSDT", "bt_test_0001", "10500.00", "5.00%"} {
		if !strings.Contains(content, want) {
			t.Errorf("报告缺少内容: %q", want)
		}
	}

	english, err := report.Render("en-US")
	if err != nil {
		t.Fatalf("渲染英文报告失败: %v", err)
	}
	if !strings.Contains(english, "Backtest Report") {
		t.Errorf("英文报告缺少标题")
	}
}

func TestReportSave(t *testing.T) {
	if err := i18n.Init("zh-CN"); err != nil {
		t.Fatalf("i18n初始化失败: %v", err)
	}
	dir := t.TempDir()

	result := &replay.Result{
		SessionID:      "bt_test_0002",
		Symbol:         "ETHUSDT",
		Interval:       "5m",
		Strategy:       "sma_cross_5_20",
		StartTime:      time.Unix(1700000000, 0),
		EndTime:        time.Unix(1700086400, 0),
		InitialBalance: 10000,
		FinalBalance:   9800,
		Equity:         equityCurve([]float64{10000, 9900, 9800}),
		Bars:           3,
	}
	report := Build(result)

	path, err := report.Save(dir, "zh-CN")
	if err != nil {
		t.Fatalf("保存报告失败: %v", err)
	}
	if !strings.HasSuffix(path, ".md") {
		t.Errorf("报告路径异常: %s", path)
	}

	csvPath, err := report.SaveEquityCurveCSV(dir)
	if err != nil {
		t.Fatalf("导出权益曲线失败: %v", err)
	}
	if !strings.Contains(csvPath, "bt_test_0002") {
		t.Errorf("CSV路径异常: %s", csvPath)
	}
}
