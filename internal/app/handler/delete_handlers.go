package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/go-user-directory/internal/app/service"
	"github.com/atinyakov/go-user-directory/internal/models"
	"github.com/atinyakov/go-user-directory/internal/worker"
)

type DeleteHandler struct {
	service service.UserServiceIface
	logger  *zap.Logger
}

func NewDelete(s service.UserServiceIface, l *zap.Logger) *DeleteHandler {
	return &DeleteHandler{
		service: s,
		logger:  l,
	}
}

// DeleteAll handles DELETE /deleteAll. A partial deletion still reports how
// many records were removed.
func (h *DeleteHandler) DeleteAll(res http.ResponseWriter, req *http.Request) {
	r, err := h.service.DeleteAll(context.WithoutCancel(req.Context()))
	if err != nil {
		var partial *worker.PartialDeletionError
		if errors.As(err, &partial) {
			h.logger.Error("delete all stopped", zap.Int64("deleted", partial.Deleted), zap.Error(partial.Err))
			writeJSON(res, http.StatusInternalServerError, models.DeleteAllResponse{
				Message:      fmt.Sprintf("Deleted %d users before failure", partial.Deleted),
				DeletedCount: partial.Deleted,
				State:        r.State.String(),
				Error:        partial.Err.Error(),
			})
			return
		}
		writeError(res, h.logger, err)
		return
	}

	msg := fmt.Sprintf("Deleted %d users", r.Deleted)
	if !r.Drained {
		msg += ", collection not yet empty"
	}

	writeJSON(res, http.StatusOK, models.DeleteAllResponse{
		Message:      msg,
		DeletedCount: r.Deleted,
		Drained:      r.Drained,
		State:        r.State.String(),
	})
}

// DeleteUser handles DELETE /users/{id} and returns the removed record.
func (h *DeleteHandler) DeleteUser(res http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")

	u, err := h.service.DeleteUser(req.Context(), id)
	if err != nil {
		writeError(res, h.logger, err)
		return
	}

	writeJSON(res, http.StatusOK, u)
}
