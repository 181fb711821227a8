// Event-log HTTP handler.
//
// This file exposes the dedup-log contract over HTTP:
//   - POST /api/earthquake-events/log
//
// Callers submit a normalized event together with the delivery source that
// observed it; the response reports whether this submission was the first
// acceptance of that (event, payload) combination.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hkawai/go-quake-backend/internal/domain"
	"github.com/hkawai/go-quake-backend/internal/services"
)

// LogEventRequest is the JSON payload for logging an event.
type LogEventRequest struct {
	// Event is the normalized earthquake record to claim and store.
	Event *domain.EarthquakeEvent `json:"event" binding:"required"`
	// Source is the delivery channel: "rest" or "websocket".
	Source string `json:"source" binding:"required" example:"websocket"`
}

// LogEventResponse reports the dedup outcome for a submission.
type LogEventResponse struct {
	// Inserted is true when this call accepted the event; false when the
	// same (event, payload) was already logged.
	Inserted bool `json:"inserted" example:"true"`
}

// LogEarthquakeEvent godoc
// @ID          logEarthquakeEvent
// @Summary     Record an event in the dedup log
// @Description Claims (eventId, payloadHash) on behalf of a delivery source and persists the event when the claim succeeds. A duplicate is a normal outcome, not an error.
// @Tags        Events
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.LogEventRequest  true  "Event and delivery source"
//
// @Success     200  {object}  handlers.LogEventResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid event or source"
// @Failure     500  {object}  handlers.ErrorResponse  "Persistence failure"
// @Router      /api/earthquake-events/log [post]
func (h *Handlers) LogEarthquakeEvent(c *gin.Context) {
	var req LogEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	inserted, err := h.logger.LogEvent(c.Request.Context(), req.Event, req.Source)
	if err != nil {
		if errors.Is(err, services.ErrInvalidEvent) || errors.Is(err, services.ErrInvalidSource) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeLogFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, LogEventResponse{Inserted: inserted})
}
