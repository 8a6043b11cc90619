package handler

import (
	"context"
	"net/http"

	"github.com/evyataryagoni/ipgeocode/internal/logger"
	"github.com/evyataryagoni/ipgeocode/internal/models"
	"github.com/evyataryagoni/ipgeocode/internal/service"
	"github.com/go-playground/validator/v10"
)

// KeyProvider supplies the API key of a request
type KeyProvider interface {
	APIKey(ctx context.Context) (string, error)
}

// GeocodeHandler geocodes a small batch synchronously
type GeocodeHandler struct {
	enricher  *service.Enricher
	keys      KeyProvider
	validator *validator.Validate
	logger    *logger.Logger
}

// NewGeocodeHandler creates a new batch handler
func NewGeocodeHandler(enricher *service.Enricher, keys KeyProvider, log *logger.Logger) *GeocodeHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &GeocodeHandler{
		enricher:  enricher,
		keys:      keys,
		validator: validator.New(),
		logger:    log.WithComponent("GeocodeHandler"),
	}
}

// Geocode handles POST /v1/geocode
//
// Request:  {"ips": ["8.8.8.8", "0.0.0.0"]}
// Response: [{"ip": "8.8.8.8", "country_name": ...}, {"ip": "0.0.0.0", "error": "restricted_address"}]
//
// One element per input, in input order. The call is paced like a batch
// run, so a request larger than the rate limit takes at least one window.
func (h *GeocodeHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	var req models.GeocodeRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "'ips' must contain between 1 and 1000 entries")
		return
	}

	apiKey, err := h.keys.APIKey(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to obtain API key")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	results, err := h.enricher.Run(r.Context(), apiKey, req.IPs)
	if err != nil {
		h.logger.Error().Err(err).Msg("Geocoding batch failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, results)
}
