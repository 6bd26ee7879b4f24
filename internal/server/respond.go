package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/omeyang/priorizai/internal/assist"
	"github.com/omeyang/priorizai/pkg/resilience/xquota"
)

// MsgBodyTooLarge 请求体超过上限
const MsgBodyTooLarge = "Body muito grande."

type okBody struct {
	OK   bool `json:"ok"`
	Data any  `json:"data"`
}

type failBody struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body) //nolint:errcheck // 客户端断开
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, okBody{OK: true, Data: data})
}

func writeFail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, failBody{Error: msg})
}

// statusOf 助手错误对应的状态码：输入错误 400，请求体过大 413，其余 500。
func statusOf(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, assist.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeAssistError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", s.requestAttrs(r, status, err)...)
	}
	switch {
	case status == http.StatusRequestEntityTooLarge:
		writeFail(w, status, MsgBodyTooLarge)
	case errors.Is(err, assist.ErrNotConfigured):
		writeJSON(w, status, xquota.ErrorBody{Code: xquota.CodeConfig, Message: assist.MsgNotConfigured})
	default:
		writeFail(w, status, assist.UserMessage(err))
	}
}

// decodeBody 读取 JSON 对象，非对象（null、数组、数字）视为无效。
func decodeBody(r *http.Request, v any) error {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return assist.Invalid(assist.MsgInvalidJSON)
	}
	if len(raw) == 0 || raw[0] != '{' {
		return assist.Invalid(assist.MsgInvalidBody)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return assist.Invalid(assist.MsgInvalidBody)
	}
	return nil
}
