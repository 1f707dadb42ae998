package feed

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"barsim/logger"
	"barsim/market"
)

// Cache K线磁盘缓存（CSV数据 + JSON索引）
type Cache struct {
	dir string
}

// NewCache 创建磁盘缓存
func NewCache(dir string) *Cache {
	if dir == "" {
		dir = filepath.Join("data", "klines")
	}
	return &Cache{dir: dir}
}

// CacheIndexEntry 缓存索引条目
type CacheIndexEntry struct {
	Symbol   string    `json:"symbol"`
	Interval string    `json:"interval"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Candles  int       `json:"candles"`
	SizeMB   float64   `json:"size_mb"`
	Created  time.Time `json:"created"`
}

// CacheInfo 缓存信息
type CacheInfo struct {
	Name     string    `json:"name"`
	Symbol   string    `json:"symbol"`
	Interval string    `json:"interval"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Candles  int       `json:"candles"`
	SizeMB   float64   `json:"size_mb"`
	Created  time.Time `json:"created"`
}

// CacheStats 缓存统计
type CacheStats struct {
	FileCount int     `json:"file_count"`
	TotalSize int64   `json:"total_size"`
	SizeMB    float64 `json:"size_mb"`
}

// Key 生成缓存键
func Key(symbol, interval string, start, end time.Time) string {
	return fmt.Sprintf("%s_%s_%s_%s",
		symbol, interval,
		start.Format("2006-01-02"),
		end.Format("2006-01-02"))
}

// Load 从 CSV 加载
func (c *Cache) Load(cacheKey string) ([]*market.Candle, error) {
	filename := filepath.Join(c.dir, cacheKey+".csv")

	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("缓存文件为空或格式错误")
	}

	// 跳过表头
	candles := make([]*market.Candle, 0, len(records)-1)
	for i := 1; i < len(records); i++ {
		candle, err := parseCSVRecord(records[i])
		if err != nil {
			return nil, fmt.Errorf("解析第 %d 行失败: %w", i, err)
		}
		candles = append(candles, candle)
	}

	return candles, nil
}

// parseCSVRecord 解析 CSV 记录
func parseCSVRecord(record []string) (*market.Candle, error) {
	if len(record) != 7 {
		return nil, fmt.Errorf("记录字段数量错误: 期望7个，实际%d个", len(record))
	}

	timestamp, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("解析 timestamp 失败: %w", err)
	}

	open, err := strconv.ParseFloat(record[1], 64)
	if err != nil {
		return nil, fmt.Errorf("解析 open 失败: %w", err)
	}

	high, err := strconv.ParseFloat(record[2], 64)
	if err != nil {
		return nil, fmt.Errorf("解析 high 失败: %w", err)
	}

	low, err := strconv.ParseFloat(record[3], 64)
	if err != nil {
		return nil, fmt.Errorf("解析 low 失败: %w", err)
	}

	close, err := strconv.ParseFloat(record[4], 64)
	if err != nil {
		return nil, fmt.Errorf("解析 close 失败: %w", err)
	}

	volume, err := strconv.ParseFloat(record[5], 64)
	if err != nil {
		return nil, fmt.Errorf("解析 volume 失败: %w", err)
	}

	return &market.Candle{
		Timestamp: timestamp,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
		Symbol:    record[6],
		IsClosed:  true,
	}, nil
}

// Save 保存到 CSV
func (c *Cache) Save(cacheKey string, candles []*market.Candle) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("创建缓存目录失败: %w", err)
	}

	filename := filepath.Join(c.dir, cacheKey+".csv")
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("创建缓存文件失败: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// 写入表头
	if err := writer.Write([]string{"timestamp", "open", "high", "low", "close", "volume", "symbol"}); err != nil {
		return fmt.Errorf("写入表头失败: %w", err)
	}

	for _, cd := range candles {
		record := []string{
			fmt.Sprintf("%d", cd.Timestamp),
			fmt.Sprintf("%.8f", cd.Open),
			fmt.Sprintf("%.8f", cd.High),
			fmt.Sprintf("%.8f", cd.Low),
			fmt.Sprintf("%.8f", cd.Close),
			fmt.Sprintf("%.8f", cd.Volume),
			cd.Symbol,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("写入数据失败: %w", err)
		}
	}

	if err := c.updateIndex(cacheKey, candles); err != nil {
		logger.Warn("⚠️ 更新缓存索引失败: %v", err)
	}

	return nil
}

// updateIndex 更新缓存索引
func (c *Cache) updateIndex(cacheKey string, candles []*market.Candle) error {
	indexFile := filepath.Join(c.dir, "cache_index.json")

	index := make(map[string]CacheIndexEntry)
	if data, err := os.ReadFile(indexFile); err == nil {
		json.Unmarshal(data, &index)
	}

	// 格式: BTCUSDT_1h_2023-01-01_2023-06-30
	var symbol, interval, startStr, endStr string
	fmt.Sscanf(cacheKey, "%[^_]_%[^_]_%[^_]_%s", &symbol, &interval, &startStr, &endStr)

	start, _ := time.Parse("2006-01-02", startStr)
	end, _ := time.Parse("2006-01-02", endStr)

	filename := filepath.Join(c.dir, cacheKey+".csv")
	var sizeMB float64
	if fileInfo, err := os.Stat(filename); err == nil {
		sizeMB = float64(fileInfo.Size()) / 1024 / 1024
	}

	index[cacheKey] = CacheIndexEntry{
		Symbol:   symbol,
		Interval: interval,
		Start:    start,
		End:      end,
		Candles:  len(candles),
		SizeMB:   sizeMB,
		Created:  time.Now(),
	}

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(indexFile, data, 0644)
}

// List 列出所有缓存
func (c *Cache) List() ([]CacheInfo, error) {
	indexFile := filepath.Join(c.dir, "cache_index.json")

	data, err := os.ReadFile(indexFile)
	if err != nil {
		if os.IsNotExist(err) {
			return []CacheInfo{}, nil
		}
		return nil, fmt.Errorf("读取缓存索引失败: %w", err)
	}

	index := make(map[string]CacheIndexEntry)
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("解析缓存索引失败: %w", err)
	}

	caches := make([]CacheInfo, 0, len(index))
	for name, entry := range index {
		caches = append(caches, CacheInfo{
			Name:     name,
			Symbol:   entry.Symbol,
			Interval: entry.Interval,
			Start:    entry.Start,
			End:      entry.End,
			Candles:  entry.Candles,
			SizeMB:   entry.SizeMB,
			Created:  entry.Created,
		})
	}

	return caches, nil
}

// Delete 删除指定缓存
func (c *Cache) Delete(cacheKey string) error {
	filename := filepath.Join(c.dir, cacheKey+".csv")
	if err := os.Remove(filename); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("删除缓存文件失败: %w", err)
	}

	indexFile := filepath.Join(c.dir, "cache_index.json")
	data, err := os.ReadFile(indexFile)
	if err != nil {
		return nil // 索引文件不存在，忽略
	}

	index := make(map[string]CacheIndexEntry)
	if err := json.Unmarshal(data, &index); err != nil {
		return fmt.Errorf("解析缓存索引失败: %w", err)
	}

	delete(index, cacheKey)

	data, err = json.MarshalIndent(index, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(indexFile, data, 0644)
}

// Clear 清理所有缓存
func (c *Cache) Clear() error {
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("清理缓存失败: %w", err)
	}
	return nil
}

// Stats 获取缓存统计
func (c *Cache) Stats() (CacheStats, error) {
	files, err := filepath.Glob(filepath.Join(c.dir, "*.csv"))
	if err != nil {
		return CacheStats{}, fmt.Errorf("读取缓存目录失败: %w", err)
	}

	var totalSize int64
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		totalSize += info.Size()
	}

	return CacheStats{
		FileCount: len(files),
		TotalSize: totalSize,
		SizeMB:    float64(totalSize) / 1024 / 1024,
	}, nil
}

// CleanOld 清理过期缓存（超过指定天数）
func (c *Cache) CleanOld(days int) error {
	caches, err := c.List()
	if err != nil {
		return err
	}

	cutoffTime := time.Now().AddDate(0, 0, -days)
	deletedCount := 0

	for _, cache := range caches {
		if cache.Created.Before(cutoffTime) {
			if err := c.Delete(cache.Name); err != nil {
				return fmt.Errorf("删除过期缓存 %s 失败: %w", cache.Name, err)
			}
			deletedCount++
		}
	}

	if deletedCount > 0 {
		logger.Info("✅ 已清理 %d 个过期缓存", deletedCount)
	}

	return nil
}
