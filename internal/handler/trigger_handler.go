package handler

import (
	"net/http"
	"strings"

	"github.com/evyataryagoni/ipgeocode/internal/logger"
	"github.com/evyataryagoni/ipgeocode/internal/models"
	"github.com/evyataryagoni/ipgeocode/internal/service"
	"github.com/evyataryagoni/ipgeocode/internal/store"
	"github.com/go-playground/validator/v10"
)

// TriggerHandler receives "object finalized" storage events
// Each event geocodes the new object into OUTPUT_BUCKET/OUTPUT_PREFIX<name>
//
// Responsibilities:
//   - Parse and validate the event body
//   - Skip objects this service wrote itself
//   - Run the job and map its outcome to a status code
type TriggerHandler struct {
	job          *service.Job
	storage      store.ObjectStorage
	outputBucket string
	outputPrefix string
	validator    *validator.Validate
	logger       *logger.Logger
}

// NewTriggerHandler creates a new storage trigger handler
func NewTriggerHandler(job *service.Job, storage store.ObjectStorage, outputBucket, outputPrefix string, log *logger.Logger) *TriggerHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &TriggerHandler{
		job:          job,
		storage:      storage,
		outputBucket: outputBucket,
		outputPrefix: outputPrefix,
		validator:    validator.New(),
		logger:       log.WithComponent("TriggerHandler"),
	}
}

// HandleStorageEvent handles POST /
//
// The body is the object metadata of the event (binary content mode):
//
//	{"bucket": "input-bucket", "name": "ip-addresses.csv", ...}
//
// Status codes:
//   - 200: processed or skipped, body is a RunSummary
//   - 400: body is not an object event
//   - 500: the run aborted (the platform redelivers the event)
func (h *TriggerHandler) HandleStorageEvent(w http.ResponseWriter, r *http.Request) {
	var object models.StorageObject
	if err := decodeBody(w, r, &object); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid event body")
		return
	}

	if err := h.validator.Struct(object); err != nil {
		respondError(w, http.StatusBadRequest, "Missing 'bucket' or 'name' in event")
		return
	}

	log := h.logger.With().
		Str("event_id", r.Header.Get("Ce-Id")).
		Str("bucket", object.Bucket).
		Str("object", object.Name).
		Logger()

	if h.isOwnOutput(object) {
		log.Debug().Msg("Skipping generated output object")
		respondJSON(w, http.StatusOK, models.RunSummary{Skipped: true})
		return
	}

	source := store.NewObjectSource(h.storage, object.Bucket, object.Name)
	sink := store.NewObjectSink(h.storage, h.outputBucket, store.OutputObjectName(h.outputPrefix, object.Name))

	log.Info().Msg("Processing storage event")

	summary, err := h.job.Run(r.Context(), source, sink)
	if err != nil {
		log.Error().Err(err).Msg("Geocoding run failed")
		respondError(w, http.StatusInternalServerError, "Geocoding failed")
		return
	}

	log.Info().
		Int("rows", summary.Rows).
		Int("failures", summary.Failures).
		Str("output", summary.Output).
		Msg("Geocoded file written")

	respondJSON(w, http.StatusOK, summary)
}

// isOwnOutput reports whether an event is about a file this handler produced
func (h *TriggerHandler) isOwnOutput(object models.StorageObject) bool {
	return object.Bucket == h.outputBucket && strings.HasPrefix(object.Name, h.outputPrefix)
}
