package xquota

import (
	"errors"
	"fmt"
)

// 预定义错误，使用 errors.Is 比较。
//
// 超出配额不是错误：CheckAndConsume 返回 Admitted=false 的 Decision。
var (
	// ErrConfiguration 缺少密钥、存储或配额无效。网关拒绝所有请求，直到配置修复。
	ErrConfiguration = errors.New("xquota: configuration error")

	// ErrSecretMissing 哈希密钥为空，总是与 ErrConfiguration 一起出现。
	ErrSecretMissing = errors.New("xquota: secret is empty")

	// ErrAddressUnresolved 无法确定客户端地址，按拒绝处理而非放行。
	ErrAddressUnresolved = errors.New("xquota: client address unresolved")

	// ErrStoreUnavailable 计数存储超时、断连或熔断。失败即拒绝。
	ErrStoreUnavailable = errors.New("xquota: counter store unavailable")

	// ErrStoreClosed 存储已关闭
	ErrStoreClosed = errors.New("xquota: store closed")

	// ErrGateClosed 网关已关闭
	ErrGateClosed = errors.New("xquota: gate closed")

	// ErrInvalidKey 键缺少日期或标识
	ErrInvalidKey = errors.New("xquota: invalid key")
)

// Code 对外的稳定错误码
type Code string

const (
	CodeConfig            Code = "CONFIG_ERROR"
	CodeAddressUnresolved Code = "ADDRESS_UNRESOLVED"
	CodeStoreUnavailable  Code = "STORE_UNAVAILABLE"
	CodeRateLimited       Code = "RATE_LIMITED"
)

// CodeOf 把网关错误映射为错误码，nil 返回空串。
//
// 未识别的错误按 CodeStoreUnavailable 处理：对调用方而言它们都是"暂时无法判定配额"。
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return CodeConfig
	case errors.Is(err, ErrAddressUnresolved):
		return CodeAddressUnresolved
	default:
		return CodeStoreUnavailable
	}
}

func secretMissing() error {
	return fmt.Errorf("%w: %w", ErrConfiguration, ErrSecretMissing)
}

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// storeError 把存储返回的错误归入 ErrStoreUnavailable，已归类的错误保持原样。
func storeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConfiguration) || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
