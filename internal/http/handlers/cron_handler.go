// Cron trigger HTTP handler.
//
// This file exposes the endpoint an external scheduler calls every minute:
//   - GET /api/cron/fetch-earthquakes
//
// The route is guarded by middleware.CronAuth; the handler itself only runs
// the pull pipeline and reports success.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hkawai/go-quake-backend/internal/domain"
)

// FetchResponse is the JSON payload of a completed cron trigger.
type FetchResponse struct {
	Success bool `json:"success" example:"true"`
}

// FetchEarthquakes godoc
// @ID          fetchEarthquakes
// @Summary     Run one pull-pipeline pass
// @Description Polls the telegram provider, processes the returned batch, and records a cron health mark. Intended for external schedulers.
// @Tags        Cron
// @Produce     json
//
// @Param       Authorization  header  string  false "Bearer CRON_SECRET"
//
// @Success     200  {object}  handlers.FetchResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Fetch failed"
// @Router      /api/cron/fetch-earthquakes [get]
func (h *Handlers) FetchEarthquakes(c *gin.Context) {
	if err := h.puller.RunPullPass(c.Request.Context(), domain.SourceCron); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeFetchFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, FetchResponse{Success: true})
}
