package booking

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tongarclub/jongque-sub001/internal/middleware"
)

// Routes returns the authenticated booking router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.GetByID)
		r.Patch("/{id}", h.Reschedule)
		r.Post("/{id}/cancel", h.Cancel)

		// Operator lifecycle transitions
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireOperator())
			r.Post("/{id}/check-in", h.CheckIn)
			r.Post("/{id}/start", h.Start)
			r.Post("/{id}/complete", h.Complete)
			r.Post("/{id}/no-show", h.NoShow)
		})
	})

	return r
}

// Routes returns the public guest booking router. Callers wrap it with the
// rate limiter.
func (h *GuestHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/{token}", h.Get)
	r.Post("/{token}/cancel", h.Cancel)

	return r
}
