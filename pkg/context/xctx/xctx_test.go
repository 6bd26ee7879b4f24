package xctx_test

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/priorizai/pkg/context/xctx"
)

func TestFields(t *testing.T) {
	ctx := xctx.WithRequestID(context.Background(), "req-1")
	ctx = xctx.WithTraceID(ctx, "trace-1")
	ctx = xctx.WithClientHash(ctx, "abc")

	assert.Equal(t, "req-1", xctx.RequestID(ctx))
	assert.Equal(t, "trace-1", xctx.TraceID(ctx))
	assert.Equal(t, "abc", xctx.ClientHash(ctx))
	assert.Empty(t, xctx.ClientHash(context.Background()))
}

func TestEnsureRequestID(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		keep      bool
	}{
		{"empty", "", false},
		{"valid", "upstream-01.a_b", true},
		{"space", "has space", false},
		{"header injection", "a\r\nb", false},
		{"too long", strings.Repeat("a", 65), false},
		{"max length", strings.Repeat("a", 64), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, id := xctx.EnsureRequestID(context.Background(), tt.candidate)
			assert.Equal(t, id, xctx.RequestID(ctx))
			if tt.keep {
				assert.Equal(t, tt.candidate, id)
				return
			}
			assert.Len(t, id, 32)
			assert.NotContains(t, id, "-")
		})
	}
}

func TestNilContext(t *testing.T) {
	//nolint:staticcheck // nil ctx 按 Background 处理
	ctx := xctx.WithClientHash(nil, "h")
	require.NotNil(t, ctx)
	assert.Equal(t, "h", xctx.ClientHash(ctx))
	//nolint:staticcheck // nil ctx
	assert.Empty(t, xctx.TraceID(nil))
	//nolint:staticcheck // nil ctx
	assert.Empty(t, xctx.AppendLogAttrs(nil, nil))
}

func TestAppendLogAttrs(t *testing.T) {
	ctx := xctx.WithRequestID(context.Background(), "r")
	ctx = xctx.WithClientHash(ctx, "abc")

	attrs := xctx.AppendLogAttrs(nil, ctx)
	require.Len(t, attrs, 2)
	assert.Equal(t, slog.String(xctx.KeyRequestID, "r"), attrs[0])
	assert.Equal(t, slog.String(xctx.KeyClientHash, "abc"), attrs[1])
}
