package xetcd

import (
	"fmt"
	"net"
	"time"
)

// Config etcd 连接配置
type Config struct {
	// Endpoints "host:port" 列表，必填
	Endpoints []string `koanf:"endpoints"`
	Username  string   `koanf:"username"`
	Password  string   `koanf:"password"`

	DialTimeout      time.Duration `koanf:"dial_timeout"`
	KeepAliveTime    time.Duration `koanf:"keepalive_time"`
	KeepAliveTimeout time.Duration `koanf:"keepalive_timeout"`

	// HealthTimeout > 0 时 NewClient 在返回前读取一次 HealthKey
	HealthTimeout time.Duration `koanf:"health_timeout"`
	// HealthKey 只授权了部分前缀的账号需要改到授权范围内
	HealthKey string `koanf:"health_key"`

	RejectOldCluster    bool `koanf:"reject_old_cluster"`
	PermitWithoutStream bool `koanf:"permit_without_stream"`
}

const (
	defaultDialTimeout      = 5 * time.Second
	defaultKeepAliveTime    = 10 * time.Second
	defaultKeepAliveTimeout = 3 * time.Second
	defaultHealthKey        = "priorizai/health"
)

// DefaultConfig 不含 Endpoints。布尔字段默认 true，从这里开始改。
func DefaultConfig() Config {
	return Config{
		DialTimeout:         defaultDialTimeout,
		KeepAliveTime:       defaultKeepAliveTime,
		KeepAliveTimeout:    defaultKeepAliveTimeout,
		HealthKey:           defaultHealthKey,
		RejectOldCluster:    true,
		PermitWithoutStream: true,
	}
}

// Validate 要求至少一个端点，且每个都是 host:port。
func (c Config) Validate() error {
	if len(c.Endpoints) == 0 {
		return ErrNoEndpoints
	}
	for i, ep := range c.Endpoints {
		if _, port, err := net.SplitHostPort(ep); err != nil || port == "" {
			return fmt.Errorf("%w: endpoint[%d]=%q", ErrInvalidEndpoint, i, ep)
		}
	}
	return nil
}

// withDefaults 零值时长和空 HealthKey 取默认
func (c Config) withDefaults() Config {
	fill := func(d *time.Duration, def time.Duration) {
		if *d <= 0 {
			*d = def
		}
	}
	fill(&c.DialTimeout, defaultDialTimeout)
	fill(&c.KeepAliveTime, defaultKeepAliveTime)
	fill(&c.KeepAliveTimeout, defaultKeepAliveTimeout)
	if c.HealthKey == "" {
		c.HealthKey = defaultHealthKey
	}
	return c
}
