package xquota

import (
	"context"
	"log/slog"

	"github.com/omeyang/priorizai/pkg/config/xconf"
	"github.com/omeyang/priorizai/pkg/observability/xlog"
)

// ConfigProvider 外部配置源
type ConfigProvider interface {
	// Load 加载并校验配置
	Load() (Config, error)

	// Watch 监视变更，ctx 取消后通道关闭。
	Watch(ctx context.Context) (<-chan ConfigChange, error)
}

// ConfigChange 配置变更事件
type ConfigChange struct {
	NewConfig Config
	Err       error
}

// XConfProvider 从 xconf.Config 的某个路径加载配置
type XConfProvider struct {
	cfg  *xconf.Config
	path string
}

// NewXConfProvider path 如 "quota"
func NewXConfProvider(cfg *xconf.Config, path string) *XConfProvider {
	return &XConfProvider{cfg: cfg, path: path}
}

// Load 先取默认值，再用配置覆盖，最后校验。
func (p *XConfProvider) Load() (Config, error) {
	config := DefaultConfig()
	if err := p.cfg.Unmarshal(p.path, &config); err != nil {
		return Config{}, configError("unmarshal %q: %v", p.path, err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Watch 文件变更时投递新配置。通道只保留最新一次变更，ctx 取消后关闭。
func (p *XConfProvider) Watch(ctx context.Context) (<-chan ConfigChange, error) {
	w, err := p.cfg.NewWatcher()
	if err != nil {
		return nil, err
	}
	ch := make(chan ConfigChange, 1)
	// 唯一的发送方，先丢弃未读的旧变更再写入不会阻塞
	deliver := func(change ConfigChange) {
		select {
		case <-ch:
		default:
		}
		ch <- change
	}
	go func() {
		defer close(ch)
		_ = w.Run(ctx, func(reloadErr error) { //nolint:errcheck // Run 只在 ctx 取消时返回 nil
			if ctx.Err() != nil {
				return
			}
			if reloadErr != nil {
				deliver(ConfigChange{Err: reloadErr})
				return
			}
			cfg, loadErr := p.Load()
			deliver(ConfigChange{NewConfig: cfg, Err: loadErr})
		})
	}()
	return ch, nil
}

// Follow 消费配置变更直到通道关闭。
//
// 只有 Limit 支持热更新；其他字段变化记录告警，需重启生效。
// 加载失败时保留当前配置。
func (g *Gate) Follow(changes <-chan ConfigChange) {
	ctx := context.Background()
	for change := range changes {
		if change.Err != nil {
			g.opts.logger.Warn(ctx, "xquota: config reload failed, keeping current", xlog.Err(change.Err))
			continue
		}
		next := change.NewConfig.withDefaults()
		if err := g.UpdateLimit(next.Limit); err != nil {
			g.opts.logger.Warn(ctx, "xquota: invalid limit in reloaded config", xlog.Err(err))
		}
		next.Limit = g.cfg.Limit
		if next != g.cfg {
			g.opts.logger.Warn(ctx, "xquota: only limit is reloadable, other changes need a restart",
				slog.String("timezone", next.Timezone), slog.String("key_prefix", next.KeyPrefix))
		}
	}
}
