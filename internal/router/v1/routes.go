package v1

import (
	"github.com/evyataryagoni/ipgeocode/internal/handler"
	"github.com/go-chi/chi/v5"
)

// SetupRoutes configures all v1 API routes
// Called by the main router to setup /v1/* endpoints
func SetupRoutes(geocodeHandler *handler.GeocodeHandler) chi.Router {
	r := chi.NewRouter()

	// POST /v1/geocode {"ips": [...]}
	r.Post("/geocode", geocodeHandler.Geocode)

	return r
}
