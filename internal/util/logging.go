package util

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"saas-auth-server/internal/apperror"
)

// LogError : logs and wraps err; the message must never contain a token
func LogError(message string, err error) error {
	log.Printf("%s: %v", message, err)
	return fmt.Errorf("%s: %w", message, err)
}

func HandleError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Code    int    `json:"code"`
	}{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	_ = json.NewEncoder(w).Encode(errorResponse)
}

// HandleAppError : expected failures keep their code and reason, everything else is logged and becomes a bare 500
func HandleAppError(w http.ResponseWriter, operation string, err error) {
	if _, ok := apperror.As(err); !ok {
		log.Printf("[%s] unexpected error: %v", operation, err)
	}
	HandleError(w, apperror.PublicReason(err), apperror.HTTPStatus(err))
}

func WriteJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("response encoding failed: %v", err)
	}
}
