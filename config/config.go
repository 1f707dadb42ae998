package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"barsim/market"
)

// SimConfig 模拟撮合参数
type SimConfig struct {
	Symbol         string  `yaml:"symbol" json:"symbol"`
	Interval       string  `yaml:"interval" json:"interval"`               // 基础K线周期，如 "1m"
	InitialBalance float64 `yaml:"initial_balance" json:"initial_balance"` // 初始余额
	SpreadBps      float64 `yaml:"spread_bps" json:"spread_bps"`           // 合成点差（基点）
	SlippageBps    float64 `yaml:"slippage_bps" json:"slippage_bps"`       // 最大滑点（基点）
	RandomSeed     int64   `yaml:"random_seed" json:"random_seed"`         // 滑点随机种子，0表示默认种子
	HigherInterval string  `yaml:"higher_interval" json:"higher_interval"` // 回放中的大周期视图，如 "15m"，空表示关闭
}

// FeedConfig 历史数据源配置
type FeedConfig struct {
	Source       string `yaml:"source" json:"source"`               // binance / csv
	CacheDir     string `yaml:"cache_dir" json:"cache_dir"`         // 本地K线缓存目录
	CacheEnabled bool   `yaml:"cache_enabled" json:"cache_enabled"` // 是否启用磁盘缓存
	RateLimit    int    `yaml:"rate_limit" json:"rate_limit"`       // 每秒请求上限
	BatchSize    int    `yaml:"batch_size" json:"batch_size"`       // 单次拉取K线数量（交易所上限1000）
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type     string `yaml:"type" json:"type"` // sqlite / postgres / mysql
	Path     string `yaml:"path" json:"path"` // sqlite 文件路径
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	DBName   string `yaml:"dbname" json:"dbname"`
	SSLMode  string `yaml:"sslmode" json:"sslmode"`
}

// WebConfig Web服务配置
type WebConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Host    string `yaml:"host" json:"host"`
	Port    int    `yaml:"port" json:"port"`
}

// MetricsConfig Prometheus指标配置
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	Port    int  `yaml:"port" json:"port"`
}

// Config 回测系统配置
type Config struct {
	Sim      SimConfig      `yaml:"sim"`
	Feed     FeedConfig     `yaml:"feed"`
	Database DatabaseConfig `yaml:"database"`
	Web      WebConfig      `yaml:"web"`
	Metrics  MetricsConfig  `yaml:"metrics"`

	System struct {
		LogLevel    string `yaml:"log_level"`
		Timezone    string `yaml:"timezone"`     // 时区，如 "Asia/Shanghai"
		LogLanguage string `yaml:"log_language"` // 报告/日志语言，如 "zh-CN" 或 "en-US"
	} `yaml:"system"`
}

// LoadConfig 从文件加载配置
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %v", err)
	}
	return LoadConfigFromBytes(data)
}

// LoadConfigFromBytes 从字节数组加载配置（用于测试）
func LoadConfigFromBytes(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %v", err)
	}

	return cfg, nil
}

// SaveConfig 保存配置到文件
func SaveConfig(cfg *Config, configPath string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("配置验证失败: %v", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %v", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %v", err)
	}

	return nil
}

// DefaultConfig 创建带默认值的配置
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Sim.Symbol = "BTCUSDT"
	cfg.Sim.Interval = "1m"
	cfg.Sim.InitialBalance = 10000
	cfg.Sim.SpreadBps = 2.0
	cfg.Sim.SlippageBps = 2.0
	cfg.Sim.HigherInterval = "15m"

	cfg.Feed.Source = "binance"
	cfg.Feed.CacheDir = "data/klines"
	cfg.Feed.CacheEnabled = true
	cfg.Feed.RateLimit = 10
	cfg.Feed.BatchSize = 1000

	cfg.Database.Type = "sqlite"
	cfg.Database.Path = "data/barsim.db"

	cfg.Web.Enabled = false
	cfg.Web.Host = "0.0.0.0"
	cfg.Web.Port = 8080

	cfg.Metrics.Enabled = false
	cfg.Metrics.Port = 9090

	cfg.System.LogLevel = "INFO"
	cfg.System.Timezone = "Asia/Shanghai"
	cfg.System.LogLanguage = "zh-CN"

	return cfg
}

// Validate 验证配置合法性
func (c *Config) Validate() error {
	if c.Sim.Symbol == "" {
		return fmt.Errorf("交易对不能为空")
	}
	if c.Sim.InitialBalance < 0 {
		return fmt.Errorf("初始余额不能为负: %.2f", c.Sim.InitialBalance)
	}
	if c.Sim.SpreadBps < 0 {
		return fmt.Errorf("点差不能为负: %.2f", c.Sim.SpreadBps)
	}
	if c.Sim.SlippageBps < 0 {
		return fmt.Errorf("滑点不能为负: %.2f", c.Sim.SlippageBps)
	}
	if c.Sim.HigherInterval != "" {
		higher := market.IntervalSeconds(c.Sim.HigherInterval)
		if higher <= 0 {
			return fmt.Errorf("无法识别的大周期: %s", c.Sim.HigherInterval)
		}
		if base := market.IntervalSeconds(c.Sim.Interval); base > 0 && higher <= base {
			return fmt.Errorf("大周期 %s 必须大于基础周期 %s", c.Sim.HigherInterval, c.Sim.Interval)
		}
	}

	switch c.Feed.Source {
	case "binance", "csv":
	default:
		return fmt.Errorf("不支持的数据源: %s", c.Feed.Source)
	}
	if c.Feed.BatchSize <= 0 || c.Feed.BatchSize > 1000 {
		return fmt.Errorf("批量大小必须在 1-1000 之间: %d", c.Feed.BatchSize)
	}
	if c.Feed.RateLimit <= 0 {
		return fmt.Errorf("限流速率必须为正: %d", c.Feed.RateLimit)
	}

	switch c.Database.Type {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("不支持的数据库类型: %s", c.Database.Type)
	}
	if c.Database.Type == "sqlite" && c.Database.Path == "" {
		return fmt.Errorf("sqlite 数据库路径不能为空")
	}

	if c.Web.Enabled && (c.Web.Port <= 0 || c.Web.Port > 65535) {
		return fmt.Errorf("Web端口非法: %d", c.Web.Port)
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return fmt.Errorf("指标端口非法: %d", c.Metrics.Port)
	}

	return nil
}
