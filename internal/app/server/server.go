// Package server assembles the chi router of the directory API.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/atinyakov/go-user-directory/internal/app/handler"
	"github.com/atinyakov/go-user-directory/internal/app/service"
	"github.com/atinyakov/go-user-directory/internal/metrics"
	"github.com/atinyakov/go-user-directory/internal/middleware"
	"github.com/atinyakov/go-user-directory/internal/models"
)

// Init builds the router. Populate, deleteAll and stats are reachable only
// from trustedSubnet when it is set. A nil gatherer leaves /metrics unmounted.
func Init(
	s service.UserServiceIface,
	logger *zap.Logger,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	trustedSubnet string,
) *chi.Mux {
	postHandler := handler.NewPost(s, logger)
	getHandler := handler.NewGet(s, logger)
	deleteHandler := handler.NewDelete(s, logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.WithMetrics(m))
	r.Use(middleware.WithGzip)

	r.Group(func(r chi.Router) {
		r.Use(middleware.WithSubnet(trustedSubnet))

		r.Post("/populate", postHandler.Populate)
		r.Delete("/deleteAll", deleteHandler.DeleteAll)
		r.Get("/api/internal/stats", getHandler.Stats)
	})

	r.Get("/users", getHandler.Users)
	r.Get("/search", getHandler.Search)
	r.Delete("/users/{id}", deleteHandler.DeleteUser)
	r.Get("/ping", getHandler.Ping)

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "Route not found")
	})

	return r
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.MessageResponse{Message: msg})
}
