package xlog

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level 与 slog.Level 数值一致
type Level slog.Level

const (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

var levelNames = map[string]Level{
	"":        LevelInfo,
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

func (l Level) String() string { return slog.Level(l).String() }

// ParseLevel 大小写不敏感，空串为 info。
func ParseLevel(s string) (Level, error) {
	if lv, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return lv, nil
	}
	return LevelInfo, fmt.Errorf("xlog: unknown level %q", s)
}
