// Package monitor 进程资源采集
// 周期性采样CPU/内存/协程数，写入Prometheus指标并可选落库
package monitor

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"barsim/database"
	"barsim/logger"
	"barsim/metrics"
)

// Snapshot 系统资源快照
type Snapshot struct {
	Timestamp     time.Time `json:"timestamp"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryMB      float64   `json:"memory_mb"`
	MemoryPercent float64   `json:"memory_percent"` // 系统内存占用百分比
	Goroutines    int       `json:"goroutines"`
	ProcessID     int       `json:"process_id"`
}

// Collect 采集当前进程的资源指标
func Collect() (*Snapshot, error) {
	pid := os.Getpid()
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil, fmt.Errorf("获取进程失败: %w", err)
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		// 进程级获取失败时退回系统CPU使用率
		cpuPercent, err = systemCPUPercent()
		if err != nil {
			return nil, fmt.Errorf("获取CPU占用率失败: %w", err)
		}
	}

	memInfo, err := p.MemoryInfo()
	if err != nil {
		return nil, fmt.Errorf("获取内存信息失败: %w", err)
	}
	memoryMB := float64(memInfo.RSS) / 1024 / 1024

	var memoryPercent float64
	if memStat, err := mem.VirtualMemory(); err == nil && memStat.Total > 0 {
		memoryPercent = (float64(memInfo.RSS) / float64(memStat.Total)) * 100
	}

	return &Snapshot{
		Timestamp:     time.Now(),
		CPUPercent:    cpuPercent,
		MemoryMB:      memoryMB,
		MemoryPercent: memoryPercent,
		Goroutines:    runtime.NumGoroutine(),
		ProcessID:     pid,
	}, nil
}

func systemCPUPercent() (float64, error) {
	percentages, err := cpu.Percent(time.Second, false)
	if err != nil {
		return 0, err
	}
	if len(percentages) == 0 {
		return 0, fmt.Errorf("无法获取CPU使用率")
	}
	return percentages[0], nil
}

// Collector 周期采集器
type Collector struct {
	interval time.Duration
	db       database.Database // 可为nil，仅更新指标
}

// NewCollector 创建周期采集器
func NewCollector(interval time.Duration, db database.Database) *Collector {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Collector{interval: interval, db: db}
}

// Start 启动采集循环（阻塞，通常在协程中调用）
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	logger.Info("🖥️ 系统监控已启动，采集间隔 %v", c.interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sample(ctx)
		}
	}
}

func (c *Collector) sample(ctx context.Context) {
	snap, err := Collect()
	if err != nil {
		logger.Warn("⚠️ 系统指标采集失败: %v", err)
		return
	}

	metrics.GetPrometheusMetrics().SetSystemState(snap.CPUPercent, snap.MemoryPercent, snap.Goroutines)

	if c.db != nil {
		record := &database.SystemMetrics{
			CPUPercent:    snap.CPUPercent,
			MemoryPercent: snap.MemoryPercent,
			MemoryUsedMB:  snap.MemoryMB,
			Goroutines:    snap.Goroutines,
			Timestamp:     snap.Timestamp,
		}
		if err := c.db.SaveSystemMetrics(ctx, record); err != nil {
			logger.Warn("⚠️ 系统指标落库失败: %v", err)
		}
	}
}
