package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"barsim/logger"
)

// ReloadFunc 配置热更新回调
type ReloadFunc func(old, new *Config)

// Watcher 配置文件监控器
// 文件变化时重新加载并通知回调，加载失败则保留旧配置
type Watcher struct {
	configPath string
	watcher    *fsnotify.Watcher
	onReload   ReloadFunc

	mu          sync.RWMutex
	current     *Config
	isWatching  bool
	lastModTime time.Time
}

// NewWatcher 创建配置监控器
func NewWatcher(configPath string, initial *Config, onReload ReloadFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监控器失败: %v", err)
	}

	var lastModTime time.Time
	if info, err := os.Stat(configPath); err == nil {
		lastModTime = info.ModTime()
	}

	return &Watcher{
		configPath:  configPath,
		watcher:     fsw,
		onReload:    onReload,
		current:     initial,
		lastModTime: lastModTime,
	}, nil
}

// Current 返回当前生效的配置
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start 开始监控配置文件
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isWatching {
		return fmt.Errorf("配置监控器已经在运行")
	}

	// 监控目录而不是文件，编辑器保存时常用 rename+create
	configDir := filepath.Dir(w.configPath)
	if err := w.watcher.Add(configDir); err != nil {
		return fmt.Errorf("添加监控目录失败: %v", err)
	}

	w.isWatching = true
	go w.watchLoop(ctx)

	logger.Info("👀 配置热更新已启动: %s", w.configPath)
	return nil
}

// Stop 停止监控
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.isWatching {
		return nil
	}
	w.isWatching = false
	return w.watcher.Close()
}

func (w *Watcher) watchLoop(ctx context.Context) {
	// 防抖：编辑器保存常触发多个事件
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.configPath) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(300*time.Millisecond, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("配置监控错误: %v", err)
		}
	}
}

// reload 重新加载配置，失败时保留旧配置继续运行
func (w *Watcher) reload() {
	info, err := os.Stat(w.configPath)
	if err != nil {
		logger.Warn("⚠️ 配置文件不可读，保留旧配置: %v", err)
		return
	}

	w.mu.Lock()
	if !info.ModTime().After(w.lastModTime) {
		w.mu.Unlock()
		return
	}
	w.lastModTime = info.ModTime()
	w.mu.Unlock()

	newCfg, err := LoadConfig(w.configPath)
	if err != nil {
		logger.Error("❌ 配置热更新失败，保留旧配置: %v", err)
		return
	}

	w.mu.Lock()
	old := w.current
	w.current = newCfg
	w.mu.Unlock()

	// 日志级别和语言支持热切换
	if old == nil || old.System.LogLevel != newCfg.System.LogLevel {
		logger.SetLevel(logger.ParseLogLevel(newCfg.System.LogLevel))
	}

	logger.Info("✅ 配置已热更新")
	if w.onReload != nil {
		w.onReload(old, newCfg)
	}
}
