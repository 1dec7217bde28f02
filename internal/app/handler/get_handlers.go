package handler

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/atinyakov/go-user-directory/internal/app/service"
	"github.com/atinyakov/go-user-directory/internal/models"
)

type GetHandler struct {
	service service.UserServiceIface
	logger  *zap.Logger
}

func NewGet(s service.UserServiceIface, l *zap.Logger) *GetHandler {
	return &GetHandler{
		service: s,
		logger:  l,
	}
}

// Users handles GET /users. The body is a bare array; pagination metadata
// travels in headers.
func (h *GetHandler) Users(res http.ResponseWriter, req *http.Request) {
	page, limit, err := pagination(req)
	if err != nil {
		writeError(res, h.logger, err)
		return
	}

	p, err := h.service.List(req.Context(), page, limit)
	if err != nil {
		writeError(res, h.logger, err)
		return
	}

	res.Header().Set("Total-Pages", strconv.Itoa(p.TotalPages))
	res.Header().Set("X-Total-Count", strconv.FormatInt(p.Total, 10))
	res.Header().Set("X-Page", strconv.Itoa(p.Page))
	res.Header().Set("X-Limit", strconv.Itoa(p.Limit))

	writeJSON(res, http.StatusOK, p.Users)
}

// Search handles GET /search?name=&email=&phone=.
func (h *GetHandler) Search(res http.ResponseWriter, req *http.Request) {
	page, limit, err := pagination(req)
	if err != nil {
		writeError(res, h.logger, err)
		return
	}

	q := req.URL.Query()
	filter := models.SearchFilter{
		Username: q.Get("name"),
		Email:    q.Get("email"),
		Phone:    q.Get("phone"),
	}

	p, err := h.service.Search(req.Context(), filter, page, limit)
	if err != nil {
		writeError(res, h.logger, err)
		return
	}

	res.Header().Set("Total-Pages", strconv.Itoa(p.TotalPages))
	writeJSON(res, http.StatusOK, models.SearchResponse{
		Users:      p.Users,
		Total:      p.Total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: p.TotalPages,
	})
}

func (h *GetHandler) Ping(res http.ResponseWriter, req *http.Request) {
	if err := h.service.PingContext(req.Context()); err != nil {
		h.logger.Error("ping failed", zap.Error(err))
		res.WriteHeader(http.StatusInternalServerError)
		return
	}
	res.WriteHeader(http.StatusOK)
}

func (h *GetHandler) Stats(res http.ResponseWriter, req *http.Request) {
	stats, err := h.service.Stats(req.Context())
	if err != nil {
		writeError(res, h.logger, err)
		return
	}
	writeJSON(res, http.StatusOK, stats)
}
