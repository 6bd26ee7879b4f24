package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/omeyang/priorizai/pkg/observability/xlog"
	"github.com/omeyang/priorizai/pkg/resilience/xbreaker"
	"github.com/omeyang/priorizai/pkg/resilience/xretry"
)

const (
	DefaultBaseURL = "https://api.openai.com"
	DefaultModel   = "gpt-4o-mini"

	chatPath         = "/v1/chat/completions"
	maxResponseBytes = 1 << 20
)

// Config 模型服务配置
type Config struct {
	APIKey      string        `koanf:"api_key"`
	Model       string        `koanf:"model"`
	BaseURL     string        `koanf:"base_url"`
	Timeout     time.Duration `koanf:"timeout"`
	MaxAttempts int           `koanf:"max_attempts"`
}

func DefaultConfig() Config {
	return Config{
		Model:       DefaultModel,
		BaseURL:     DefaultBaseURL,
		Timeout:     30 * time.Second,
		MaxAttempts: 3,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = d.MaxAttempts
	}
	return c
}

// Message 对话消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// ChatRequest chat completions 请求体，Model 为空时使用配置中的模型。
type ChatRequest struct {
	Model          string          `json:"model"`
	Temperature    float64         `json:"temperature"`
	Messages       []Message       `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// Completer 返回模型第一条回复的文本
type Completer interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// Client OpenAI chat completions 客户端，调用经过熔断与重试。
type Client struct {
	cfg     Config
	http    *http.Client
	exec    *xbreaker.BreakerRetryer
	logger  xlog.Logger
	breaker *xbreaker.Breaker
	retryer *xretry.Retryer
}

// ClientOption 客户端选项
type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithClientLogger(l xlog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBreaker 替换默认熔断器
func WithBreaker(b *xbreaker.Breaker) ClientOption {
	return func(c *Client) {
		if b != nil {
			c.breaker = b
		}
	}
}

// WithRetryer 替换默认重试器
func WithRetryer(r *xretry.Retryer) ClientOption {
	return func(c *Client) {
		if r != nil {
			c.retryer = r
		}
	}
}

// NewClient 创建客户端。APIKey 为空时仍可创建，调用时返回 ErrNotConfigured。
func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	c := &Client{
		cfg:    cfg.withDefaults(),
		http:   &http.Client{},
		logger: xlog.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.retryer == nil {
		c.retryer = xretry.NewRetryer(
			xretry.WithAttempts(c.cfg.MaxAttempts),
			xretry.WithBackoff(xretry.Backoff{
				Initial:    200 * time.Millisecond,
				Max:        2 * time.Second,
				Multiplier: 2,
				Jitter:     0.1,
			}),
			xretry.WithOnRetry(func(attempt int, err error) {
				c.logger.Warn(context.Background(), "assist upstream retry",
					slog.Int("attempt", attempt), xlog.Err(err))
			}),
		)
	}
	if c.breaker == nil {
		// 输入错误和 4xx 不代表上游故障
		c.breaker = xbreaker.NewBreaker("assist-openai",
			xbreaker.WithSuccess(func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled) || xretry.IsPermanent(err)
			}),
		)
	}
	exec, err := xbreaker.NewBreakerRetryer(c.breaker, c.retryer)
	if err != nil {
		return nil, err
	}
	c.exec = exec
	return c, nil
}

// Model 当前使用的模型名
func (c *Client) Model() string { return c.cfg.Model }

// Configured 是否配置了 API Key
func (c *Client) Configured() bool { return c.cfg.APIKey != "" }

// Breaker 返回内部熔断器
func (c *Client) Breaker() *xbreaker.Breaker { return c.breaker }

func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	if req.Model == "" {
		req.Model = c.cfg.Model
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("assist: encode request: %w", err)
	}
	return xbreaker.ExecuteWithRetry(ctx, c.exec, func(ctx context.Context) (string, error) {
		return c.post(ctx, body)
	})
}

func (c *Client) post(ctx context.Context, body []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return "", xretry.NewPermanentError(fmt.Errorf("assist: build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", xretry.NewTemporaryError(fmt.Errorf("%w: %w", ErrUpstream, err))
	}
	defer resp.Body.Close() //nolint:errcheck // 只读响应体

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", xretry.NewTemporaryError(fmt.Errorf("%w: read body: %w", ErrUpstream, err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &UpstreamError{Status: resp.StatusCode, Message: upstreamMessage(raw)}
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil || len(out.Choices) == 0 {
		// 回复无法解析时交给调用方回退到默认结果
		return "", nil
	}
	return out.Choices[0].Message.Content, nil
}

func upstreamMessage(raw []byte) string {
	var e errorResponse
	if err := json.Unmarshal(raw, &e); err == nil {
		if e.Error.Message != "" {
			return e.Error.Message
		}
		if e.Message != "" {
			return e.Message
		}
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		return s
	}
	return MsgUpstreamFailed
}

var _ Completer = (*Client)(nil)
