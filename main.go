package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barsim/config"
	"barsim/database"
	"barsim/event"
	"barsim/feed"
	"barsim/i18n"
	"barsim/logger"
	"barsim/metrics"
	"barsim/monitor"
	"barsim/replay"
	"barsim/report"
	"barsim/utils"
	"barsim/web"
)

// Version 版本号
var Version = "1.2.0"

func main() {
	var (
		showVersion = flag.Bool("version", false, "显示版本号")
		debugMode   = flag.Bool("debug", false, "启用调试日志")
		configPath  = flag.String("config", "config.yaml", "配置文件路径")
		startDate   = flag.String("start", "", "回测起始日期 (2024-01-01)，与 -end 一起提供时执行单次回测")
		endDate     = flag.String("end", "", "回测结束日期 (2024-02-01)")
		strategyArg = flag.String("strategy", "sma_cross", "回测策略")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("BarSim Backtest Engine\n")
		fmt.Printf("Version: %s\n", Version)
		os.Exit(0)
	}

	logger.Info("🚀 BarSim 回测引擎启动...")
	logger.Info("📦 版本号: %s", Version)

	// 1. 加载配置（不存在则写出默认配置）
	var cfg *config.Config
	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		logger.Info("ℹ️ 配置文件不存在，使用默认配置")
		cfg = config.DefaultConfig()
		if err := config.SaveConfig(cfg, *configPath); err != nil {
			logger.Warn("⚠️ 保存默认配置失败: %v，将继续运行", err)
		} else {
			logger.Info("✅ 已创建默认配置文件: %s", *configPath)
		}
	} else {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			logger.Fatalf("❌ 加载配置失败: %v", err)
		}
		cfg = loaded
	}

	// 2. 时区与日志
	if err := utils.SetLocation(cfg.System.Timezone); err != nil {
		logger.Warn("⚠️ 加载时区 %s 失败: %v，将使用默认时区 Asia/Shanghai", cfg.System.Timezone, err)
	} else {
		logger.Info("✅ 系统时区设置为: %s", cfg.System.Timezone)
	}
	logger.SetLocation(utils.GlobalLocation)

	if *debugMode {
		cfg.System.LogLevel = "debug"
	}
	logLevel := logger.ParseLogLevel(cfg.System.LogLevel)
	logger.SetLevel(logLevel)
	logger.Info("日志级别设置为: %s", logLevel.String())
	defer logger.Close()

	// 3. i18n
	logLang := cfg.System.LogLanguage
	if logLang == "" {
		logLang = "zh-CN"
	}
	if err := i18n.Init(logLang); err != nil {
		logger.Warn("⚠️ 初始化 i18n 失败: %v，将使用默认语言", err)
	} else {
		logger.Info("✅ i18n 系统已初始化，报告语言: %s", logLang)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. 事件总线与事件中心
	logger.Info("🔧 正在初始化事件总线...")
	eventBus := event.NewEventBus(1000)
	eventCenter := event.NewCenter(eventBus)

	// 5. 数据库（可选）
	var db database.Database
	if cfg.Database.Type != "" {
		var err error
		db, err = database.NewDatabase(&cfg.Database)
		if err != nil {
			logger.Warn("⚠️ 初始化数据库失败: %v (将继续运行，但不保存数据)", err)
			db = nil
		} else {
			logger.Info("✅ 数据库初始化完成: %s", cfg.Database.Type)
			defer db.Close()
			eventCenter.AttachHandler(eventPersister(ctx, db))
		}
	}

	// 6. Prometheus 指标服务（可选）
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Port)
		metricsServer.Start()
		defer metricsServer.Stop()
	}

	// 7. 系统资源采集
	collector := monitor.NewCollector(30*time.Second, db)
	go collector.Start(ctx)

	// 8. 数据源
	fetcher := feed.NewFetcher(&cfg.Feed)

	eventCenter.Start(ctx)

	// 单次回测模式：提供了 -start/-end 直接跑完退出
	if *startDate != "" && *endDate != "" {
		if err := runOnce(ctx, cfg, fetcher, db, eventBus, *strategyArg, *startDate, *endDate, logLang); err != nil {
			logger.Fatalf("❌ 回测失败: %v", err)
		}
		cancel()
		eventCenter.Wait()
		return
	}

	// 服务模式
	webServer := web.NewServer(cfg, db, fetcher)
	if webServer != nil {
		if hub := webServer.Hub(); hub != nil {
			eventCenter.AttachHandler(hub.EventHandler())
		}
		if err := webServer.Start(ctx); err != nil {
			logger.Fatalf("❌ 启动Web服务器失败: %v", err)
		}
	} else {
		logger.Warn("⚠️ Web服务未启用，且未指定 -start/-end，无事可做")
		logger.Warn("💡 单次回测: barsim -start 2024-01-01 -end 2024-02-01")
	}

	// 9. 配置热重载
	watcher, err := config.NewWatcher(*configPath, cfg, func(oldCfg, newCfg *config.Config) {
		logger.Info("🔄 配置已重新加载")
	})
	if err != nil {
		logger.Warn("⚠️ 初始化配置监听失败: %v", err)
	} else {
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("⚠️ 启动配置监听失败: %v", err)
		}
		defer watcher.Stop()
	}

	logger.Info("✅ 系统初始化完成，程序正在运行中...")
	logger.Info("💡 按 Ctrl+C 退出程序")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("🛑 收到退出信号，开始优雅关闭...")

	if webServer != nil {
		webServer.Stop()
	}
	cancel()
	eventCenter.Wait()

	logger.Info("✅ 程序已退出")
}

// runOnce 执行单次回测并输出报告
func runOnce(
	ctx context.Context,
	cfg *config.Config,
	fetcher *feed.Fetcher,
	db database.Database,
	eventBus *event.EventBus,
	strategyName, startDate, endDate, lang string,
) error {
	start, err := time.ParseInLocation("2006-01-02", startDate, utils.GlobalLocation)
	if err != nil {
		return fmt.Errorf("起始日期格式错误: %w", err)
	}
	end, err := time.ParseInLocation("2006-01-02", endDate, utils.GlobalLocation)
	if err != nil {
		return fmt.Errorf("结束日期格式错误: %w", err)
	}
	if !end.After(start) {
		return fmt.Errorf("结束日期必须晚于起始日期")
	}

	if strategyName != "sma_cross" {
		return fmt.Errorf("不支持的策略: %s", strategyName)
	}
	strategy := replay.NewSMACrossStrategy(5, 20, 0.02, 0.04)

	candles, err := fetcher.GetHistoricalData(ctx, cfg.Sim.Symbol, cfg.Sim.Interval, start, end)
	if err != nil {
		return fmt.Errorf("获取历史数据失败: %w", err)
	}
	if len(candles) == 0 {
		return fmt.Errorf("未获取到历史数据")
	}

	runCfg := replay.Config{
		Symbol:         cfg.Sim.Symbol,
		Interval:       cfg.Sim.Interval,
		InitialBalance: cfg.Sim.InitialBalance,
		SpreadBps:      cfg.Sim.SpreadBps,
		SlippageBps:    cfg.Sim.SlippageBps,
		RandomSeed:     cfg.Sim.RandomSeed,
		HigherInterval: cfg.Sim.HigherInterval,
	}

	opts := []replay.RunnerOption{replay.WithEventBus(eventBus)}
	if db != nil {
		opts = append(opts, replay.WithDatabase(db))
	}
	runner := replay.NewRunner(runCfg, candles, strategy, opts...)

	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	rpt := report.Build(result)
	logger.Info("📈 总收益率: %.2f%%, 最大回撤: %.2f%%, 夏普: %.2f",
		rpt.Metrics.TotalReturn, rpt.Metrics.MaxDrawdown, rpt.Metrics.SharpeRatio)

	reportPath, err := rpt.Save("", lang)
	if err != nil {
		return fmt.Errorf("保存报告失败: %w", err)
	}
	logger.Info("📊 回测报告已生成: %s", reportPath)

	csvPath, err := rpt.SaveEquityCurveCSV("")
	if err != nil {
		logger.Warn("⚠️ 导出权益曲线失败: %v", err)
	} else {
		logger.Info("💾 权益曲线已导出: %s", csvPath)
	}

	return nil
}

// eventPersister 把事件落库的事件中心处理器
func eventPersister(ctx context.Context, db database.Database) event.Handler {
	return func(e *event.Event) {
		data, err := json.Marshal(e.Data)
		if err != nil {
			data = []byte("{}")
		}
		sessionID, _ := e.Data["session_id"].(string)
		record := &database.EventRecord{
			SessionID: sessionID,
			Type:      string(e.Type),
			Severity:  string(event.GetEventSeverity(e.Type)),
			Timestamp: e.Timestamp.UnixMilli(),
			Data:      string(data),
		}
		if err := db.SaveEvent(ctx, record); err != nil {
			logger.Warn("⚠️ 事件落库失败: %v", err)
		}
	}
}
