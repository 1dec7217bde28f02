// Package handler contains the HTTP handlers of the user directory. Handlers
// parse query parameters, call the user service and map its errors onto
// status codes; they hold no state of their own.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/atinyakov/go-user-directory/internal/app/service"
	"github.com/atinyakov/go-user-directory/internal/generator"
	"github.com/atinyakov/go-user-directory/internal/models"
	"github.com/atinyakov/go-user-directory/internal/storage"
	"github.com/atinyakov/go-user-directory/internal/worker"
)

// malformedRequest represents an error with a malformed HTTP request.
type malformedRequest struct {
	status int    // HTTP status code for the error
	msg    string // Error message
}

// Error returns the error message for a malformed request.
func (mr *malformedRequest) Error() string {
	return mr.msg
}

// queryInt reads a positive integer query parameter, falling back to def
// when it is absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		msg := fmt.Sprintf("query parameter %q must be a positive integer", name)
		return 0, &malformedRequest{status: http.StatusBadRequest, msg: msg}
	}
	return v, nil
}

func pagination(r *http.Request) (page, limit int, err error) {
	page, err = queryInt(r, "page", service.DefaultPage)
	if err != nil {
		return 0, 0, err
	}
	limit, err = queryInt(r, "limit", service.DefaultPageSize)
	if err != nil {
		return 0, 0, err
	}
	return page, limit, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorStatus maps service and engine errors to HTTP status codes.
func errorStatus(err error) int {
	var mr *malformedRequest
	switch {
	case errors.As(err, &mr):
		return mr.status
	case errors.Is(err, service.ErrInvalidQuery), errors.Is(err, worker.ErrInvalidTarget):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, worker.ErrPartialDeletion):
		return http.StatusInternalServerError
	case errors.Is(err, worker.ErrStorageUnavailable), errors.Is(err, storage.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, generator.ErrGenerationExhausted):
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// writeError logs err and answers with {"message": ...}.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := errorStatus(err)

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		logger.Debug("request rejected", zap.Int("status", status), zap.Error(err))
	}

	writeJSON(w, status, models.MessageResponse{Message: err.Error()})
}
