package config

import (
	"testing"
)

// TestLoadConfigFromBytes 基本加载与默认值回填
func TestLoadConfigFromBytes(t *testing.T) {
	yml := []byte(`
sim:
  symbol: ETHUSDT
  initial_balance: 50000
  spread_bps: 1.5
system:
  log_level: DEBUG
`)
	cfg, err := LoadConfigFromBytes(yml)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.Sim.Symbol != "ETHUSDT" {
		t.Errorf("交易对: 期望 ETHUSDT, 实际 %s", cfg.Sim.Symbol)
	}
	if cfg.Sim.InitialBalance != 50000 {
		t.Errorf("初始余额: 期望 50000, 实际 %.2f", cfg.Sim.InitialBalance)
	}
	if cfg.Sim.SpreadBps != 1.5 {
		t.Errorf("点差: 期望 1.5, 实际 %.2f", cfg.Sim.SpreadBps)
	}

	// 未指定的字段保留默认值
	if cfg.Sim.Interval != "1m" {
		t.Errorf("默认周期: 期望 1m, 实际 %s", cfg.Sim.Interval)
	}
	if cfg.Feed.BatchSize != 1000 {
		t.Errorf("默认批量: 期望 1000, 实际 %d", cfg.Feed.BatchSize)
	}
	if cfg.Database.Type != "sqlite" {
		t.Errorf("默认数据库: 期望 sqlite, 实际 %s", cfg.Database.Type)
	}
	if cfg.System.LogLevel != "DEBUG" {
		t.Errorf("日志级别: 期望 DEBUG, 实际 %s", cfg.System.LogLevel)
	}
}

// TestValidateRejects 非法配置被拒绝
func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"空交易对", func(c *Config) { c.Sim.Symbol = "" }},
		{"负初始余额", func(c *Config) { c.Sim.InitialBalance = -1 }},
		{"负点差", func(c *Config) { c.Sim.SpreadBps = -0.5 }},
		{"负滑点", func(c *Config) { c.Sim.SlippageBps = -1 }},
		{"未知大周期", func(c *Config) { c.Sim.HigherInterval = "7m" }},
		{"大周期不大于基础周期", func(c *Config) { c.Sim.HigherInterval = "1m" }},
		{"未知数据源", func(c *Config) { c.Feed.Source = "ftp" }},
		{"批量超限", func(c *Config) { c.Feed.BatchSize = 5000 }},
		{"未知数据库", func(c *Config) { c.Database.Type = "oracle" }},
		{"sqlite缺路径", func(c *Config) { c.Database.Path = "" }},
		{"Web端口非法", func(c *Config) { c.Web.Enabled = true; c.Web.Port = 70000 }},
	}

	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: 应验证失败", tc.name)
		}
	}
}

// TestDefaultConfigValid 默认配置自身必须合法
func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("默认配置验证失败: %v", err)
	}
}
