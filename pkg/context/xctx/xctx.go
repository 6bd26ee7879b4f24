package xctx

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// 日志属性名
const (
	KeyRequestID  = "request_id"
	KeyTraceID    = "trace_id"
	KeyClientHash = "client_hash"
)

// field 包私有 key，同时记录写入日志时的属性名。
type field struct{ name string }

var (
	requestIDField  = &field{KeyRequestID}
	traceIDField    = &field{KeyTraceID}
	clientHashField = &field{KeyClientHash}

	// logFields 写入日志的顺序
	logFields = [...]*field{requestIDField, traceIDField, clientHashField}
)

func (f *field) with(ctx context.Context, v string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, f, v)
}

func (f *field) get(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(f).(string) //nolint:errcheck // 类型断言
	return v
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return requestIDField.with(ctx, id)
}

func RequestID(ctx context.Context) string { return requestIDField.get(ctx) }

func WithTraceID(ctx context.Context, id string) context.Context {
	return traceIDField.with(ctx, id)
}

func TraceID(ctx context.Context) string { return traceIDField.get(ctx) }

// WithClientHash 只放哈希后的客户端标识，原始地址不进 context。
func WithClientHash(ctx context.Context, hash string) context.Context {
	return clientHashField.with(ctx, hash)
}

func ClientHash(ctx context.Context) string { return clientHashField.get(ctx) }

// maxRequestIDLen 上游传入的 request ID 长度上限
const maxRequestIDLen = 64

// ValidRequestID 1 到 64 个字符，只含字母、数字、'-'、'_'、'.'。
func ValidRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}

// NewRequestID 32 位小写十六进制（UUIDv4 去掉连字符）
func NewRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// EnsureRequestID candidate 合法时沿用，否则生成新的。返回写入后的 ctx 和最终 ID。
func EnsureRequestID(ctx context.Context, candidate string) (context.Context, string) {
	id := candidate
	if !ValidRequestID(id) {
		id = NewRequestID()
	}
	return WithRequestID(ctx, id), id
}

// AppendLogAttrs 按 request_id、trace_id、client_hash 的顺序追加非空字段。
func AppendLogAttrs(attrs []slog.Attr, ctx context.Context) []slog.Attr {
	if ctx == nil {
		return attrs
	}
	for _, f := range logFields {
		if v := f.get(ctx); v != "" {
			attrs = append(attrs, slog.String(f.name, v))
		}
	}
	return attrs
}
