// Package feed 历史K线数据源
// 优先读本地CSV缓存，未命中时从 Binance 分批下载并回写缓存
package feed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"golang.org/x/time/rate"

	"barsim/config"
	"barsim/logger"
	"barsim/market"
	"barsim/metrics"
)

// Fetcher 历史数据获取器
type Fetcher struct {
	client    *binance.Client
	cache     *Cache // 为nil时禁用缓存
	limiter   *rate.Limiter
	batchSize int
}

// NewFetcher 根据配置创建数据获取器
func NewFetcher(cfg *config.FeedConfig) *Fetcher {
	var cache *Cache
	if cfg.CacheEnabled {
		cache = NewCache(cfg.CacheDir)
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 || batchSize > 1000 {
		batchSize = 1000
	}

	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = 10
	}

	return &Fetcher{
		// 历史K线是公开接口，不需要API密钥
		client:    binance.NewClient("", ""),
		cache:     cache,
		limiter:   rate.NewLimiter(rate.Limit(rateLimit), 1),
		batchSize: batchSize,
	}
}

// Cache 返回底层缓存（供缓存管理接口使用），可能为nil
func (f *Fetcher) Cache() *Cache {
	return f.cache
}

// GetHistoricalData 智能获取历史数据（优先缓存）
func (f *Fetcher) GetHistoricalData(
	ctx context.Context,
	symbol string, // "BTCUSDT"
	interval string, // "1m", "5m", "1h"
	startTime time.Time,
	endTime time.Time,
) ([]*market.Candle, error) {

	// 1. 检查缓存
	cacheKey := Key(symbol, interval, startTime, endTime)
	if f.cache != nil {
		if candles, err := f.cache.Load(cacheKey); err == nil {
			metrics.GetPrometheusMetrics().RecordCacheLookup(true)
			logger.Info("✅ 从缓存加载: %s (%d 根K线)", cacheKey, len(candles))
			return candles, nil
		}
		metrics.GetPrometheusMetrics().RecordCacheLookup(false)
	}

	// 2. 从 Binance 下载
	logger.Info("⬇️ 从 Binance 下载: %s %s (%s 至 %s)",
		symbol, interval,
		startTime.Format("2006-01-02"),
		endTime.Format("2006-01-02"))

	candles, err := f.fetchFromBinance(ctx, symbol, interval, startTime, endTime)
	if err != nil {
		metrics.GetPrometheusMetrics().RecordFeedRequest("binance", "error")
		return nil, err
	}
	metrics.GetPrometheusMetrics().RecordFeedRequest("binance", "ok")

	// 3. 回写缓存
	if f.cache != nil && len(candles) > 0 {
		if err := f.cache.Save(cacheKey, candles); err != nil {
			logger.Warn("⚠️ 缓存保存失败: %v", err)
		} else {
			sizeMB := float64(len(candles)*80) / 1024 / 1024
			logger.Info("💾 已缓存: %s (%.2f MB)", cacheKey, sizeMB)
		}
	}

	return candles, nil
}

// fetchFromBinance 分批下载K线（单次上限1000根）
func (f *Fetcher) fetchFromBinance(
	ctx context.Context,
	symbol string,
	interval string,
	startTime time.Time,
	endTime time.Time,
) ([]*market.Candle, error) {

	intervalSec := market.IntervalSeconds(interval)
	if intervalSec <= 0 {
		return nil, fmt.Errorf("不支持的K线周期: %s", interval)
	}

	batchDuration := time.Duration(intervalSec) * time.Second * time.Duration(f.batchSize)
	totalBatches := int(endTime.Sub(startTime)/batchDuration) + 1

	allCandles := make([]*market.Candle, 0)
	currentStart := startTime
	batchNum := 0

	for currentStart.Before(endTime) {
		batchNum++

		// 限流
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		klines, err := f.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(currentStart.UnixMilli()).
			EndTime(endTime.UnixMilli()).
			Limit(f.batchSize).
			Do(reqCtx)
		cancel()

		if err != nil {
			return nil, fmt.Errorf("获取第 %d 批数据失败: %w", batchNum, err)
		}

		if len(klines) == 0 {
			break
		}

		for _, k := range klines {
			if k.OpenTime > endTime.UnixMilli() {
				break
			}
			allCandles = append(allCandles, parseKline(symbol, k))
		}

		// 下一批从最后一根K线之后开始
		lastOpen := klines[len(klines)-1].OpenTime
		currentStart = time.UnixMilli(lastOpen + intervalSec*1000)

		progress := float64(batchNum) / float64(totalBatches) * 100
		if progress > 100 {
			progress = 100
		}
		logger.Info("📊 下载进度: %.1f%% (已获取 %d 根K线)", progress, len(allCandles))
	}

	logger.Info("✅ 下载完成: 共 %d 根K线", len(allCandles))
	return allCandles, nil
}

// parseKline 交易所K线转内部结构
func parseKline(symbol string, k *binance.Kline) *market.Candle {
	open, _ := strconv.ParseFloat(k.Open, 64)
	high, _ := strconv.ParseFloat(k.High, 64)
	low, _ := strconv.ParseFloat(k.Low, 64)
	close, _ := strconv.ParseFloat(k.Close, 64)
	volume, _ := strconv.ParseFloat(k.Volume, 64)

	return &market.Candle{
		Symbol:    symbol,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
		Timestamp: k.OpenTime,
		IsClosed:  true,
	}
}
