package xconf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Format 配置格式
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

var (
	ErrEmptyPath         = errors.New("xconf: empty config path")
	ErrUnsupportedFormat = errors.New("xconf: unsupported config format")
	ErrLoadFailed        = errors.New("xconf: load config")
	ErrParseFailed       = errors.New("xconf: parse config")
	ErrUnmarshalFailed   = errors.New("xconf: unmarshal config")
	ErrNotReloadable     = errors.New("xconf: config has no backing file")
)

var extFormats = map[string]Format{
	".yaml": FormatYAML,
	".yml":  FormatYAML,
	".json": FormatJSON,
}

func parserFor(f Format) (koanf.Parser, error) {
	switch f {
	case FormatYAML:
		return yaml.Parser(), nil
	case FormatJSON:
		return json.Parser(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

// Config 一个 YAML/JSON 源叠加环境变量绑定。文件源支持 Reload 与 Watcher。
//
// 键以 "." 分隔，结构体标签为 koanf。
type Config struct {
	path   string
	format Format
	parser koanf.Parser
	env    []EnvBinding

	mu sync.RWMutex
	k  *koanf.Koanf
}

// Option 加载选项
type Option func(*Config)

// WithEnv 追加环境变量绑定，每次加载都在文件之后应用。
func WithEnv(bindings ...EnvBinding) Option {
	return func(c *Config) { c.env = append(c.env, bindings...) }
}

// New 按扩展名（.yaml/.yml/.json）识别格式并加载文件。
func New(path string, opts ...Option) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	format, ok := extFormats[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	c, err := newConfig(path, format, opts)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	if c.k, err = c.build(data); err != nil {
		return nil, err
	}
	return c, nil
}

// NewFromBytes 不可 Reload。data 为空得到只含环境变量的配置。
func NewFromBytes(data []byte, format Format, opts ...Option) (*Config, error) {
	c, err := newConfig("", format, opts)
	if err != nil {
		return nil, err
	}
	if c.k, err = c.build(data); err != nil {
		return nil, err
	}
	return c, nil
}

func newConfig(path string, format Format, opts []Option) (*Config, error) {
	parser, err := parserFor(format)
	if err != nil {
		return nil, err
	}
	c := &Config{path: path, format: format, parser: parser}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// build 每次返回新的 koanf 实例，失败时不影响当前配置。
func (c *Config) build(data []byte) (*koanf.Koanf, error) {
	k := koanf.New(".")
	if len(data) > 0 {
		if err := k.Load(rawbytes.Provider(data), c.parser); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
		}
	}
	if err := applyEnv(k, c.env); err != nil {
		return nil, err
	}
	return k, nil
}

// Client 当前 koanf 实例，Reload 后会被替换，不要长期持有。
func (c *Config) Client() *koanf.Koanf {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.k
}

// Unmarshal path 为空时解码整个配置。target 中已有的值作为默认值保留。
func (c *Config) Unmarshal(path string, target any) error {
	if err := c.Client().UnmarshalWithConf(path, target, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("%w: %w", ErrUnmarshalFailed, err)
	}
	return nil
}

// Reload 重读文件并重新叠加环境变量，失败时保留旧配置。
func (c *Config) Reload() error {
	if c.path == "" {
		return ErrNotReloadable
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	k, err := c.build(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.k = k
	c.mu.Unlock()
	return nil
}

// Path 字节源返回空串
func (c *Config) Path() string { return c.path }

func (c *Config) Format() Format { return c.format }
