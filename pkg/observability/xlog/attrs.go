package xlog

import (
	"log/slog"
	"slices"
	"strings"
	"time"
)

// 常用属性 Key
const (
	KeyError      = "error"
	KeyDuration   = "duration"
	KeyComponent  = "component"
	KeyOperation  = "operation"
	KeyCount      = "count"
	KeyStatusCode = "status_code"
	KeyMethod     = "method"
	KeyPath       = "path"
	KeyDay        = "day"
	KeyCode       = "code"
)

// Err 创建错误属性，err 为 nil 时返回会被 slog 忽略的空属性。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建人类可读的耗时属性（如 "12ms"）
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

func Component(name string) slog.Attr { return slog.String(KeyComponent, name) }

func Operation(name string) slog.Attr { return slog.String(KeyOperation, name) }

func Count(n int64) slog.Attr { return slog.Int64(KeyCount, n) }

func StatusCode(code int) slog.Attr { return slog.Int(KeyStatusCode, code) }

func Method(m string) slog.Attr { return slog.String(KeyMethod, m) }

func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

// Day 配额日键，如 "2024-01-01"
func Day(d string) slog.Attr { return slog.String(KeyDay, d) }

// Code 对外错误码，如 "RATE_LIMITED"
func Code(c string) slog.Attr { return slog.String(KeyCode, c) }

// Redacted 替换值
const Redacted = "***"

// RedactKeys 返回把指定 key（大小写不敏感）的值替换为 "***" 的 ReplaceAttrFunc。
//
//	logger, _, _ := xlog.New().SetReplaceAttr(xlog.RedactKeys("secret", "api_key")).Build()
func RedactKeys(keys ...string) ReplaceAttrFunc {
	lowered := make([]string, 0, len(keys))
	for _, k := range keys {
		lowered = append(lowered, strings.ToLower(k))
	}
	return func(_ []string, a slog.Attr) slog.Attr {
		if slices.Contains(lowered, strings.ToLower(a.Key)) {
			return slog.String(a.Key, Redacted)
		}
		return a
	}
}
