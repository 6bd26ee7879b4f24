package xetcd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
	assert.Equal(t, 10*time.Second, cfg.KeepAliveTime)
	assert.Equal(t, 3*time.Second, cfg.KeepAliveTimeout)
	assert.Equal(t, "priorizai/health", cfg.HealthKey)
	assert.Zero(t, cfg.HealthTimeout)
	assert.True(t, cfg.RejectOldCluster)
	assert.True(t, cfg.PermitWithoutStream)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		endpoints []string
		wantErr   error
	}{
		{"valid", []string{"localhost:2379"}, nil},
		{"multiple", []string{"h1:2379", "h2:2379"}, nil},
		{"ipv6", []string{"[::1]:2379"}, nil},
		{"empty", nil, ErrNoEndpoints},
		{"blank endpoint", []string{""}, ErrInvalidEndpoint},
		{"missing port", []string{"localhost"}, ErrInvalidEndpoint},
		{"empty port", []string{"localhost:"}, ErrInvalidEndpoint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Config{Endpoints: tt.endpoints}.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	orig := Config{Endpoints: []string{"localhost:2379"}, DialTimeout: time.Second}
	cfg := orig.withDefaults()
	assert.Equal(t, time.Second, cfg.DialTimeout)
	assert.Equal(t, defaultKeepAliveTime, cfg.KeepAliveTime)
	assert.Equal(t, defaultKeepAliveTimeout, cfg.KeepAliveTimeout)
	assert.Equal(t, defaultHealthKey, cfg.HealthKey)
	assert.Zero(t, orig.KeepAliveTime)
}
