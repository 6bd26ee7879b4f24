package xetcd

import "errors"

var (
	ErrNoEndpoints     = errors.New("xetcd: no endpoints configured")
	ErrInvalidEndpoint = errors.New("xetcd: invalid endpoint, expected host:port")
	ErrNotConnected    = errors.New("xetcd: client not connected")
	ErrClientClosed    = errors.New("xetcd: client is closed")
)
