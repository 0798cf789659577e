// Package web holds small HTTP response helpers shared by the handlers.
package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func JSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("json encode", "err", err)
	}
}

func Error(w http.ResponseWriter, code int, err error) {
	ErrorCode(w, code, "error", err.Error())
}

func ErrorCode(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, map[string]any{
		"error": message,
		"code":  code,
	})
}

// StatusWriter wraps ResponseWriter to capture the status code for logging.
type StatusWriter struct {
	http.ResponseWriter
	Code int
}

func (w *StatusWriter) WriteHeader(code int) {
	w.Code = code
	w.ResponseWriter.WriteHeader(code)
}
