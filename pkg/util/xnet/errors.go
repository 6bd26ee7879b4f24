package xnet

import "errors"

var (
	// ErrInvalidAddress 无效的 IP 地址字符串
	ErrInvalidAddress = errors.New("xnet: invalid IP address")

	// ErrInvalidRange 无效的 IP 范围格式
	ErrInvalidRange = errors.New("xnet: invalid IP range")
)
