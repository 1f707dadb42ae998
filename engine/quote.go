package engine

// DefaultSpreadBps 默认点差假设（收盘价的2个基点）
// OHLCV数据没有tick级买卖盘信息，用固定相对点差合成报价
const DefaultSpreadBps = 2.0

// Quote 合成报价（每根K线重新计算，不持久化）
type Quote struct {
	Time   int64   `json:"time"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Spread float64 `json:"spread"`
}

// SynthesizeQuote 根据收盘价和相对点差合成买卖报价
// 不变量: ask = mid + spread/2, bid = mid - spread/2, spread >= 0
func SynthesizeQuote(ts int64, close float64, spreadBps float64) Quote {
	if spreadBps < 0 {
		spreadBps = 0
	}
	spread := close * spreadBps / 10000
	return Quote{
		Time:   ts,
		Bid:    close - spread/2,
		Ask:    close + spread/2,
		Spread: spread,
	}
}
