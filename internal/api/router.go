package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vouch/internal/requestservice"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(tax Taxonomy, svc *requestservice.Service, sseHandler http.Handler) chi.Router {
	h := NewHandler(tax, svc)

	r := chi.NewRouter()

	// Reference data.
	r.Group(func(r chi.Router) {
		r.Use(CacheControl(ReferenceMaxAge))
		r.Get("/taxonomy", h.GetTaxonomy)
		r.Get("/locations", h.ListLocations)
		r.Get("/locations/search", h.SearchLocations)
		r.Get("/locations/{id}/descendants", h.LocationDescendants)
		r.Get("/locations/{id}/children", h.LocationChildren)
		r.Get("/business-types", h.ListBusinessTypes)
		r.Get("/business-types/search", h.SearchBusinessTypes)
	})
	r.With(NoStore).Post("/taxonomy/invalidate", h.InvalidateTaxonomy)

	// Requests.
	r.Group(func(r chi.Router) {
		r.Use(NoStore)
		r.Get("/requests", h.ListRequests)
		r.Post("/requests", h.CreateRequest)
		r.Get("/requests/{token}", h.GetRequest)
		r.Get("/requests/{token}/meta", h.GetShareMeta)
		r.Post("/requests/{token}/responses", h.CreateResponse)
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
