package dardanova

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"syscall"
)

// StatusData writes the JSON envelope {"status": ..., "data": ...} used by every API response.
func StatusData(w http.ResponseWriter, status string, retData any, statusCode int) {
	if err, ok := retData.(error); ok {
		retData = ErrorMessage(err)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(struct {
		Status string `json:"status"`
		Data   any    `json:"data"`
	}{
		Status: status,
		Data:   retData,
	})
	if err != nil {
		if errors.Is(err, syscall.EPIPE) {
			return
		}
		slog.Error("Couldn't send return data", slog.Any("err", err))
	}
}

// WriteError writes the error as an API error response with its status code.
func (s *StatusError) WriteError(w http.ResponseWriter) {
	if s == nil {
		return
	}
	StatusData(w, "error", s.Text, s.Code)
}
