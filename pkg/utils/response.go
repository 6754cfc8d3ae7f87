package utils

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// ErrorResponse 是所有失败响应的统一结构。
type ErrorResponse struct {
	Success       bool              `json:"success"`
	Message       string            `json:"message"`
	Errors        map[string]string `json:"errors,omitempty"`
	MissingFields map[string]bool   `json:"missingFields,omitempty"`
}

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorResponse{Message: message})
}

// RespondFieldErrors 发送带有字段级错误信息的失败响应
func RespondFieldErrors(w http.ResponseWriter, status int, message string, fields map[string]string) {
	RespondJSON(w, status, ErrorResponse{Message: message, Errors: fields})
}
