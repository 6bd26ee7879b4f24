package assist

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidInput 请求内容不合法，具体提示见 InputError.Message。
	ErrInvalidInput = errors.New("assist: invalid input")

	// ErrNotConfigured 未配置 API Key
	ErrNotConfigured = errors.New("assist: api key not configured")

	// ErrUpstream 上游模型服务返回非 2xx
	ErrUpstream = errors.New("assist: upstream error")
)

// 对外提示文案
const (
	MsgNoTasks        = "Informe ao menos 1 tarefa."
	MsgTooManyTasks   = "Informe no máximo 10 tarefas."
	MsgTaskTitle      = "Toda tarefa precisa de um título."
	MsgNoText         = "Informe o texto."
	MsgTextTooLong    = "Texto muito longo."
	MsgBadContent     = "Conteúdo inválido detectado."
	MsgBadMethod      = "Método de priorização inválido."
	MsgInvalidJSON    = "JSON inválido."
	MsgInvalidBody    = "Body inválido."
	MsgNotConfigured  = "OPENAI_API_KEY não configurada no Worker (Secrets/Vars)."
	MsgUpstreamFailed = "Falha no OpenAI."
	MsgInternal       = "Erro interno"
)

// InputError 携带给用户看的提示，errors.Is(err, ErrInvalidInput) 成立。
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return "assist: " + e.Message }

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

// Retryable 输入错误重试无意义
func (e *InputError) Retryable() bool { return false }

// Invalid 创建 InputError
func Invalid(msg string) error { return &InputError{Message: msg} }

// UpstreamError 上游 HTTP 错误。429 与 5xx 可重试。
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("assist: upstream status %d: %s", e.Status, e.Message)
}

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

func (e *UpstreamError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

// UserMessage 把错误转换为可以返回给客户端的文案。
//
// 上游错误细节只进日志，客户端只看到固定文案。
func UserMessage(err error) string {
	var ie *InputError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ie):
		return ie.Message
	case errors.Is(err, ErrNotConfigured):
		return MsgNotConfigured
	case errors.Is(err, ErrUpstream):
		return MsgUpstreamFailed
	default:
		return MsgInternal
	}
}
