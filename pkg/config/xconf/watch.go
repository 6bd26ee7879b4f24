package xconf

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce 默认防抖时间
const DefaultDebounce = 100 * time.Millisecond

// Watcher 监视配置文件并在变化后 Reload
type Watcher struct {
	cfg      *Config
	fs       *fsnotify.Watcher
	debounce time.Duration
}

// WatchOption 监视器选项
type WatchOption func(*Watcher)

// WithDebounce 窗口内的连续变更只触发一次 Reload
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher 监视文件所在目录：编辑器和 ConfigMap 以重建或 rename 的方式更新文件，
// 只监视文件本身会丢事件。
func (c *Config) NewWatcher(opts ...WatchOption) (*Watcher, error) {
	if c.path == "" {
		return nil, ErrNotReloadable
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("xconf: create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(c.path)); err != nil {
		return nil, errors.Join(fmt.Errorf("xconf: watch %s: %w", filepath.Dir(c.path), err), fsw.Close())
	}
	w := &Watcher{cfg: c, fs: fsw, debounce: DefaultDebounce}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// Run 阻塞直到 ctx 取消，返回时释放监视资源。
//
// 每次 Reload 后以其结果调用 onReload（nil 表示成功），监视出错时也会以该错误调用。
// onReload 在 Run 的 goroutine 中执行。
func (w *Watcher) Run(ctx context.Context, onReload func(err error)) error {
	defer w.fs.Close() //nolint:errcheck // 退出时关闭
	if onReload == nil {
		onReload = func(error) {}
	}
	name := filepath.Base(w.cfg.path)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			onReload(fmt.Errorf("xconf: watch: %w", err))
		case <-fire:
			fire = nil
			onReload(w.cfg.Reload())
		}
	}
}
