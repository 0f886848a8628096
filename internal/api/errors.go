package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	amerrors "github.com/Aman-CERP/agentmemory/internal/errors"
	"github.com/Aman-CERP/agentmemory/internal/store"
)

// errorBody is the JSON body of every error response.
type errorBody struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	Suggestion string `json:"suggestion,omitempty"`
}

// statusFor maps an error to an HTTP status by category.
func statusFor(err error) int {
	if store.IsNotFound(err) {
		return http.StatusNotFound
	}
	switch amerrors.GetCode(err) {
	case amerrors.ErrCodeSourceNotFound:
		return http.StatusNotFound
	case amerrors.ErrCodeProviderRateLimited:
		return http.StatusTooManyRequests
	}
	switch amerrors.GetCategory(err) {
	case amerrors.CategoryConfig:
		return http.StatusBadRequest
	case amerrors.CategoryProvider:
		return http.StatusBadGateway
	case amerrors.CategoryStore:
		return http.StatusServiceUnavailable
	case amerrors.CategoryParse:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	me, ok := amerrors.As(err)
	if !ok {
		me = amerrors.Wrap(amerrors.ErrCodeInternal, err)
	}

	attrs := []any{slog.String("path", r.URL.Path), slog.Int("status", status)}
	for k, v := range amerrors.FormatForLog(err) {
		attrs = append(attrs, slog.Any(k, v))
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed", attrs...)
	} else {
		slog.Info("request_rejected", attrs...)
	}

	writeJSON(w, status, errorBody{Error: me.Message, Code: me.Code, Suggestion: me.Suggestion})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("response_write_failed", slog.String("error", err.Error()))
	}
}

func badRequest(message string) error {
	return amerrors.New(amerrors.ErrCodeInvalidInput, message, nil)
}
