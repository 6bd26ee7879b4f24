package xquota

import (
	"encoding/json"
	"errors"
	"net/http"
)

// DefaultRejectMessage 超额响应的默认文案
const DefaultRejectMessage = "Limite diário atingido."

// ResetAtLayout 响应中 resetAt 的格式
const ResetAtLayout = "2006-01-02T15:04:05-07:00"

// RejectBody 超额时的响应体
type RejectBody struct {
	OK        bool   `json:"ok"`
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	ResetAt   string `json:"resetAt"`
}

// ErrorBody 网关错误的响应体
type ErrorBody struct {
	OK      bool   `json:"ok"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// MiddlewareOptions HTTP 中间件选项
type MiddlewareOptions struct {
	// DenyHandler 超出配额时调用
	DenyHandler func(w http.ResponseWriter, r *http.Request, d *Decision)

	// ErrorHandler 网关返回错误时调用，请求不会被放行。
	ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

	// SkipFunc 返回 true 时跳过配额检查
	SkipFunc func(r *http.Request) bool

	// EnableHeaders 是否写入 X-RateLimit-* 响应头
	EnableHeaders bool

	// RejectMessage 默认拒绝处理器使用的文案
	RejectMessage string
}

// MiddlewareOption 中间件选项函数
type MiddlewareOption func(*MiddlewareOptions)

func defaultMiddlewareOptions() *MiddlewareOptions {
	return &MiddlewareOptions{
		EnableHeaders: true,
		RejectMessage: DefaultRejectMessage,
	}
}

// sanitize 填充未设置的处理器
func (o *MiddlewareOptions) sanitize() {
	if o.RejectMessage == "" {
		o.RejectMessage = DefaultRejectMessage
	}
	if o.DenyHandler == nil {
		msg := o.RejectMessage
		o.DenyHandler = func(w http.ResponseWriter, _ *http.Request, d *Decision) {
			WriteReject(w, d, msg)
		}
	}
	if o.ErrorHandler == nil {
		o.ErrorHandler = func(w http.ResponseWriter, _ *http.Request, err error) {
			WriteError(w, err)
		}
	}
}

// WriteReject 写 429 响应
func WriteReject(w http.ResponseWriter, d *Decision, message string) {
	writeJSON(w, http.StatusTooManyRequests, RejectBody{
		Code:      CodeRateLimited,
		Message:   message,
		Limit:     d.Limit,
		Remaining: 0,
		ResetAt:   d.ResetAt.Format(ResetAtLayout),
	})
}

// WriteError 按错误类别写响应：配置错误 500，地址无法确定 400，存储不可用 503。
func WriteError(w http.ResponseWriter, err error) {
	code := CodeOf(err)
	writeJSON(w, StatusOf(err), ErrorBody{Code: code, Message: errorMessage(err, code)})
}

// StatusOf 错误对应的 HTTP 状态码
func StatusOf(err error) int {
	switch CodeOf(err) {
	case "":
		return http.StatusOK
	case CodeConfig:
		return http.StatusInternalServerError
	case CodeAddressUnresolved:
		return http.StatusBadRequest
	default:
		return http.StatusServiceUnavailable
	}
}

// errorMessage 面向客户端的文案，不暴露内部细节。
func errorMessage(err error, code Code) string {
	switch code {
	case CodeConfig:
		if errors.Is(err, ErrSecretMissing) {
			return "HASH_SALT não configurado."
		}
		return "Configuração inválida do limitador."
	case CodeAddressUnresolved:
		return "Não foi possível identificar o cliente."
	default:
		return "Serviço temporariamente indisponível."
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	// 写入失败通常表示客户端已断开，无法补救
	_ = json.NewEncoder(w).Encode(body) //nolint:errcheck // 客户端断开
}

// WithDenyHandler 自定义超额响应
func WithDenyHandler(h func(w http.ResponseWriter, r *http.Request, d *Decision)) MiddlewareOption {
	return func(o *MiddlewareOptions) {
		o.DenyHandler = h
	}
}

// WithErrorHandler 自定义错误响应
func WithErrorHandler(h func(w http.ResponseWriter, r *http.Request, err error)) MiddlewareOption {
	return func(o *MiddlewareOptions) {
		o.ErrorHandler = h
	}
}

// WithSkipFunc 设置跳过函数
func WithSkipFunc(fn func(r *http.Request) bool) MiddlewareOption {
	return func(o *MiddlewareOptions) {
		o.SkipFunc = fn
	}
}

// WithMiddlewareHeaders 是否写入限流响应头，默认开启。
func WithMiddlewareHeaders(enable bool) MiddlewareOption {
	return func(o *MiddlewareOptions) {
		o.EnableHeaders = enable
	}
}

// WithRejectMessage 默认拒绝处理器的文案
func WithRejectMessage(msg string) MiddlewareOption {
	return func(o *MiddlewareOptions) {
		o.RejectMessage = msg
	}
}
