package database

import (
	"fmt"
	"time"

	"barsim/config"
)

// NewDatabase 根据应用配置创建数据库实例
func NewDatabase(cfg *config.DatabaseConfig) (Database, error) {
	dbConfig := &DBConfig{
		Type:            cfg.Type,
		DSN:             buildDSN(cfg),
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		LogLevel:        "silent",
	}

	switch cfg.Type {
	case "sqlite", "postgres", "postgresql", "mysql":
		return NewGormDatabase(dbConfig)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

// buildDSN 按数据库类型拼接数据源字符串
func buildDSN(cfg *config.DatabaseConfig) string {
	switch cfg.Type {
	case "postgres", "postgresql":
		sslmode := cfg.SSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslmode)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)
	default:
		return cfg.Path
	}
}
