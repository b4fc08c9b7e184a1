package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"jitbridge/internal/jit/models"
	"jitbridge/internal/jit/service"
	"jitbridge/pkg/platform/httputil"
	"jitbridge/pkg/requestcontext"
)

// Service defines the interface for event processing.
type Service interface {
	Process(ctx context.Context, event models.Event) (*service.Outcome, error)
}

// Handler wires the event endpoint to the lifecycle service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an event handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the event endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/events", h.HandleEvent)
}

// HandleEvent handles POST /api/jit/v1/events requests.
func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	event, err := httputil.DecodeJSON[models.Event](r)
	if err != nil {
		h.logger.WarnContext(ctx, "rejected malformed event body",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	outcome, err := h.service.Process(ctx, event)
	if err != nil {
		h.logger.ErrorContext(ctx, "event processing failed",
			"request_id", requestID,
			"event_name", event.EventName,
			"event_id", event.EventID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "event processed",
		"request_id", requestID,
		"event_name", event.EventName,
		"event_id", event.EventID,
		"incident_number", outcome.TicketNumber,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	status := http.StatusOK
	if outcome.Created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, FromOutcome(event.EventID, outcome))
}
