package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"receiving/internal/api"
	"receiving/internal/booking"
	"receiving/pkg/config"
)

type Dependencies struct {
	Cfg      config.Config
	Log      *logrus.Logger
	Bookings *booking.Service
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(api.RequestLogger(deps.Log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	h := booking.Handlers{Service: deps.Bookings, Log: deps.Log}

	// v1
	r.Route("/v1", func(r chi.Router) {
		// Scheduling UI runs on its own origin.
		r.Use(api.CORSMiddleware(api.CORSOptions{
			AllowedOrigins: deps.Cfg.AllowedOrigins,
			MaxAgeSeconds:  600,
		}))
		r.Use(api.BearerAuth(deps.Cfg, deps.Log))

		r.Route("/bookings", func(r chi.Router) {
			r.Get("/", h.List)
			r.Get("/search", h.Search)
			r.Post("/", h.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Get)
				r.Put("/", h.Update)
				r.Delete("/", h.Delete)
				r.Patch("/status", h.SetStatus)

				r.Get("/history", h.History)
				r.Post("/history", h.AppendEntry)
				r.Delete("/history", h.ResetHistory)
				r.Put("/history/{index}", h.EditEntry)
				r.Delete("/history/{index}", h.DeleteEntry)

				r.Get("/audit", h.Audit)
			})
		})
	})

	return r
}
