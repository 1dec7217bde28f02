package handler

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/go-user-directory/internal/app/service"
	"github.com/atinyakov/go-user-directory/internal/models"
)

type PostHandler struct {
	service service.UserServiceIface
	logger  *zap.Logger
}

func NewPost(s service.UserServiceIface, l *zap.Logger) *PostHandler {
	return &PostHandler{
		service: s,
		logger:  l,
	}
}

// Populate handles POST /populate. The optional count query parameter
// overrides the configured default. The run is detached from the request
// context so a disconnecting client does not stop it midway.
func (h *PostHandler) Populate(res http.ResponseWriter, req *http.Request) {
	count, err := queryInt(req, "count", h.service.DefaultPopulateCount())
	if err != nil {
		writeError(res, h.logger, err)
		return
	}

	r, err := h.service.Populate(context.WithoutCancel(req.Context()), count)
	if err != nil {
		writeError(res, h.logger, err)
		return
	}

	writeJSON(res, http.StatusOK, models.PopulateResponse{
		Message:       fmt.Sprintf("Database populated with approximately %d users", r.Inserted),
		InsertedCount: r.Inserted,
		RejectedCount: r.Rejected,
		TargetCount:   r.Target,
		FailedChunks:  r.FailedChunks,
		DurationMs:    r.Duration.Milliseconds(),
	})
}
