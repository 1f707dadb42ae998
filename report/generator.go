package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"barsim/engine"
	"barsim/i18n"
	"barsim/replay"
	"barsim/utils"
)

// Report 完整回测报告
type Report struct {
	Result  *replay.Result `json:"result"`
	Metrics Metrics        `json:"metrics"`
	Risk    RiskMetrics    `json:"risk"`
}

// Build 基于回放结果计算报告
func Build(result *replay.Result) *Report {
	return &Report{
		Result:  result,
		Metrics: CalculateMetrics(result.Equity, result.Trades, result.InitialBalance),
		Risk:    CalculateRiskMetrics(result.Equity),
	}
}

const reportTemplate = `# {{.L.Title}}

- {{.L.Session}}: {{.SessionID}}
- {{.L.Symbol}}: {{.Symbol}} ({{.Interval}}, {{.Strategy}})
- {{.L.Period}}: {{.StartDate}} ~ {{.EndDate}} ({{.Bars}} {{.L.Bars}})
- {{.L.GeneratedAt}}: {{.GeneratedAt}}

## {{.L.Overview}}

| | |
|---|---|
| {{.L.InitialBalance}} | {{.InitialBalance}} |
| {{.L.FinalBalance}} | {{.FinalBalance}} |
| {{.L.TotalReturn}} | {{.TotalReturn}} |
| {{.L.AnnualizedReturn}} | {{.AnnualizedReturn}} |
| {{.L.MaxDrawdown}} | {{.MaxDrawdown}} |
| {{.L.MaxDrawdownDuration}} | {{.MaxDrawdownDuration}} |
| {{.L.Volatility}} | {{.Volatility}} |
| {{.L.Sharpe}} | {{.SharpeRatio}} |
| {{.L.Sortino}} | {{.SortinoRatio}} |
| {{.L.Calmar}} | {{.CalmarRatio}} |

## {{.L.Risk}}

| | |
|---|---|
| {{.L.VaR95}} | {{.VaR95}} |
| {{.L.CVaR95}} | {{.CVaR95}} |

## {{.L.Trading}}

| | |
|---|---|
| {{.L.TotalTrades}} | {{.TotalTrades}} |
| {{.L.WinRate}} | {{.WinRate}} |
| {{.L.ProfitFactor}} | {{.ProfitFactor}} |
| {{.L.AvgWin}} | {{.AvgWin}} |
| {{.L.AvgLoss}} | {{.AvgLoss}} |
| {{.L.MaxWinStreak}} | {{.MaxWinStreak}} |
| {{.L.MaxLossStreak}} | {{.MaxLossStreak}} |
| {{.L.TotalOrders}} | {{.TotalOrders}} |
| {{.L.RejectedOrders}} | {{.RejectedOrders}} |
`

// labels 报告标签（按语言翻译）
type labels struct {
	Title, Session, Symbol, Period, Overview, GeneratedAt, Bars  string
	InitialBalance, FinalBalance, TotalReturn, AnnualizedReturn  string
	MaxDrawdown, MaxDrawdownDuration, Volatility                 string
	Sharpe, Sortino, Calmar, Risk, VaR95, CVaR95                 string
	Trading, TotalTrades, WinRate, ProfitFactor, AvgWin, AvgLoss string
	MaxWinStreak, MaxLossStreak, TotalOrders, RejectedOrders     string
}

func loadLabels(lang string) labels {
	t := func(key string) string { return i18n.TWithLang(lang, key) }
	return labels{
		Title:               t("report.title"),
		Session:             t("report.session"),
		Symbol:              t("report.symbol"),
		Period:              t("report.period"),
		Overview:            t("report.overview"),
		GeneratedAt:         t("report.generated_at"),
		Bars:                t("report.bars"),
		InitialBalance:      t("report.initial_balance"),
		FinalBalance:        t("report.final_balance"),
		TotalReturn:         t("report.total_return"),
		AnnualizedReturn:    t("report.annualized_return"),
		MaxDrawdown:         t("report.max_drawdown"),
		MaxDrawdownDuration: t("report.max_drawdown_duration"),
		Volatility:          t("report.volatility"),
		Sharpe:              t("report.sharpe_ratio"),
		Sortino:             t("report.sortino_ratio"),
		Calmar:              t("report.calmar_ratio"),
		Risk:                t("report.risk"),
		VaR95:               t("report.var_95"),
		CVaR95:              t("report.cvar_95"),
		Trading:             t("report.trading"),
		TotalTrades:         t("report.total_trades"),
		WinRate:             t("report.win_rate"),
		ProfitFactor:        t("report.profit_factor"),
		AvgWin:              t("report.avg_win"),
		AvgLoss:             t("report.avg_loss"),
		MaxWinStreak:        t("report.max_win_streak"),
		MaxLossStreak:       t("report.max_loss_streak"),
		TotalOrders:         t("report.total_orders"),
		RejectedOrders:      t("report.rejected_orders"),
	}
}

// Render 渲染 Markdown 报告文本
func (r *Report) Render(lang string) (string, error) {
	rejected := 0
	for _, o := range r.Result.Orders {
		if o.Status == engine.OrderRejected {
			rejected++
		}
	}

	data := map[string]interface{}{
		"L":                   loadLabels(lang),
		"SessionID":           r.Result.SessionID,
		"Symbol":              r.Result.Symbol,
		"Interval":            r.Result.Interval,
		"Strategy":            r.Result.Strategy,
		"StartDate":           r.Result.StartTime.Format("2006-01-02"),
		"EndDate":             r.Result.EndTime.Format("2006-01-02"),
		"Bars":                r.Result.Bars,
		"GeneratedAt":         utils.NowConfiguredTimezone().Format("2006-01-02 15:04:05"),
		"InitialBalance":      fmt.Sprintf("%.2f", r.Result.InitialBalance),
		"FinalBalance":        fmt.Sprintf("%.2f", r.Result.FinalBalance),
		"TotalReturn":         fmt.Sprintf("%.2f%%", r.Metrics.TotalReturn),
		"AnnualizedReturn":    fmt.Sprintf("%.2f%%", r.Metrics.AnnualizedReturn),
		"MaxDrawdown":         fmt.Sprintf("%.2f%%", r.Metrics.MaxDrawdown),
		"MaxDrawdownDuration": fmt.Sprintf("%d", r.Metrics.MaxDrawdownDuration),
		"Volatility":          fmt.Sprintf("%.2f%%", r.Metrics.Volatility),
		"SharpeRatio":         fmt.Sprintf("%.2f", r.Metrics.SharpeRatio),
		"SortinoRatio":        fmt.Sprintf("%.2f", r.Metrics.SortinoRatio),
		"CalmarRatio":         fmt.Sprintf("%.2f", r.Metrics.CalmarRatio),
		"VaR95":               fmt.Sprintf("%.4f%%", r.Risk.VaR95),
		"CVaR95":              fmt.Sprintf("%.4f%%", r.Risk.CVaR95),
		"TotalTrades":         fmt.Sprintf("%d", r.Metrics.TotalTrades),
		"WinRate":             fmt.Sprintf("%.1f%%", r.Metrics.WinRate),
		"ProfitFactor":        fmt.Sprintf("%.2f", r.Metrics.ProfitFactor),
		"AvgWin":              fmt.Sprintf("%.2f", r.Metrics.AvgWin),
		"AvgLoss":             fmt.Sprintf("%.2f", r.Metrics.AvgLoss),
		"MaxWinStreak":        fmt.Sprintf("%d", r.Metrics.MaxConsecutiveWins),
		"MaxLossStreak":       fmt.Sprintf("%d", r.Metrics.MaxConsecutiveLosses),
		"TotalOrders":         fmt.Sprintf("%d", len(r.Result.Orders)),
		"RejectedOrders":      fmt.Sprintf("%d", rejected),
	}

	tmpl, err := template.New("report").Parse(reportTemplate)
	if err != nil {
		return "", fmt.Errorf("解析报告模板失败: %w", err)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("渲染报告模板失败: %w", err)
	}

	return sb.String(), nil
}

// Save 渲染并写入 Markdown 报告，返回文件路径
func (r *Report) Save(reportDir, lang string) (string, error) {
	if reportDir == "" {
		reportDir = filepath.Join("data", "reports")
	}
	if err := os.MkdirAll(reportDir, 0755); err != nil {
		return "", fmt.Errorf("创建报告目录失败: %w", err)
	}

	content, err := r.Render(lang)
	if err != nil {
		return "", err
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := fmt.Sprintf("%s_%s_%s.md", r.Result.Strategy, r.Result.Symbol, timestamp)
	reportPath := filepath.Join(reportDir, filename)

	if err := os.WriteFile(reportPath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("写入报告文件失败: %w", err)
	}

	return reportPath, nil
}

// SaveEquityCurveCSV 导出权益曲线CSV，返回文件路径
func (r *Report) SaveEquityCurveCSV(reportDir string) (string, error) {
	if reportDir == "" {
		reportDir = filepath.Join("data", "reports")
	}
	if err := os.MkdirAll(reportDir, 0755); err != nil {
		return "", fmt.Errorf("创建报告目录失败: %w", err)
	}

	filename := fmt.Sprintf("equity_%s.csv", r.Result.SessionID)
	csvPath := filepath.Join(reportDir, filename)

	file, err := os.Create(csvPath)
	if err != nil {
		return "", fmt.Errorf("创建CSV文件失败: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"timestamp", "balance", "equity"}); err != nil {
		return "", err
	}
	for _, p := range r.Result.Equity {
		record := []string{
			fmt.Sprintf("%d", p.Timestamp),
			fmt.Sprintf("%.8f", p.Balance),
			fmt.Sprintf("%.8f", p.Equity),
		}
		if err := writer.Write(record); err != nil {
			return "", err
		}
	}

	return csvPath, nil
}
