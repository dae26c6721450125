package errors

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/saadiahenna/hennabook/internal/logging"
)

// InternalError logs err against the request and answers with a generic
// plain-text 500.
func InternalError(w http.ResponseWriter, r *http.Request, err error, message string) {
	LogError(r, message, err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func BadRequestError(w http.ResponseWriter, r *http.Request, err error, clientMessage string) {
	logger(r).WithError(err).Warn("bad request")
	http.Error(w, clientMessage, http.StatusBadRequest)
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		LogError(r, "encode json response", err)
	}
}

func LogError(r *http.Request, message string, err error) {
	logger(r).WithError(err).Error(message)
}

func LogInfo(r *http.Request, message string) {
	logger(r).Info(message)
}

func logger(r *http.Request) logrus.FieldLogger {
	return logging.FromContext(r.Context())
}
