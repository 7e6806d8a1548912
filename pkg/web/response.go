package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

const (
	StatusOK  = "OK"
	StatusNOK = "NOK"
)

// Response is the envelope every API endpoint answers with.
type Response struct {
	Status  string `json:"status"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

// RespondJSON writes payload as JSON with the given HTTP status.
func RespondJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Error encoding response to JSON", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

// RespondOK writes a successful envelope carrying data.
func RespondOK(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	RespondJSON(w, logger, status, Response{Status: StatusOK, Data: data})
}

// RespondNOK writes a failure envelope. data may carry details such as field errors.
func RespondNOK(w http.ResponseWriter, logger *slog.Logger, status int, message string, data any) {
	RespondJSON(w, logger, status, Response{Status: StatusNOK, Data: data, Message: message})
}

// RequiredQuery returns the trimmed query parameter key, answering 400 when it is absent or blank.
func RequiredQuery(w http.ResponseWriter, r *http.Request, logger *slog.Logger, key string) (string, bool) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		RespondNOK(w, logger, http.StatusBadRequest, key+" query parameter is required", nil)
		return "", false
	}
	return value, true
}
