package xquota

import (
	"errors"
	"strings"
	"time"
)

const (
	// DefaultTTL 计数键存活时间，约两天，覆盖日界附近的时钟偏差。
	DefaultTTL = 48 * time.Hour

	// DefaultStoreTimeout 单次存储调用的超时
	DefaultStoreTimeout = 2 * time.Second
)

// Config 网关配置
type Config struct {
	// Limit 每个地址每日可通过的请求数，必须 >= 1。
	Limit int `koanf:"limit"`

	// Secret 地址哈希的密钥，必填。
	Secret string `koanf:"secret"`

	// Timezone IANA 时区名，决定日界，默认 America/Sao_Paulo。
	Timezone string `koanf:"timezone"`

	// KeyPrefix 计数键命名空间，默认 "rl"。
	KeyPrefix string `koanf:"key_prefix"`

	// TTL 计数键存活时间，默认 48h，不能短于一天。
	TTL time.Duration `koanf:"ttl"`

	// StoreTimeout 单次存储调用超时，默认 2s。
	StoreTimeout time.Duration `koanf:"store_timeout"`
}

// DefaultConfig 返回除 Secret 外的默认配置
func DefaultConfig() Config {
	return Config{
		Limit:        3,
		Timezone:     DefaultTimezone,
		KeyPrefix:    DefaultKeyPrefix,
		TTL:          DefaultTTL,
		StoreTimeout: DefaultStoreTimeout,
	}
}

// withDefaults 只填充可选字段，Limit 与 Secret 保持原样交给 Validate。
func (c Config) withDefaults() Config {
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
	if c.TTL == 0 {
		c.TTL = DefaultTTL
	}
	if c.StoreTimeout == 0 {
		c.StoreTimeout = DefaultStoreTimeout
	}
	return c
}

// Validate 返回所有配置问题，每个都包装 ErrConfiguration。
func (c Config) Validate() error {
	c = c.withDefaults()
	var errs []error
	if c.Limit < 1 {
		errs = append(errs, configError("limit must be >= 1, got %d", c.Limit))
	}
	if c.Secret == "" {
		errs = append(errs, secretMissing())
	}
	if c.TTL < 24*time.Hour {
		errs = append(errs, configError("ttl must be at least 24h, got %s", c.TTL))
	}
	if c.StoreTimeout < 0 {
		errs = append(errs, configError("store_timeout must be positive"))
	}
	if strings.Contains(c.KeyPrefix, ":") {
		errs = append(errs, configError("key_prefix %q must not contain ':'", c.KeyPrefix))
	}
	if _, err := NewDayClock(c.Timezone, nil); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
