// Admin health HTTP handlers.
//
// This file exposes the per-driver pipeline health reports:
//   - GET /api/admin/batch-health        (fallback poller)
//   - GET /api/admin/rest-poller-health  (cron trigger)
//
// The classification is derived at request time from the last recorded run;
// a stale or never-run driver reports its state in the body, always with
// HTTP 200, so dashboards can distinguish "unhealthy pipeline" from
// "unreachable backend".
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hkawai/go-quake-backend/internal/domain"
)

// BatchHealth godoc
// @ID          batchHealth
// @Summary     Fallback-poller health
// @Description Reports staleness of the in-process fallback poller's last completed pass.
// @Tags        Admin
// @Produce     json
//
// @Success     200  {object}  services.HealthReport
// @Failure     500  {object}  handlers.ErrorResponse  "Health lookup failed"
// @Router      /api/admin/batch-health [get]
func (h *Handlers) BatchHealth(c *gin.Context) {
	h.healthFor(c, domain.SourcePoller)
}

// RestPollerHealth godoc
// @ID          restPollerHealth
// @Summary     Cron trigger health
// @Description Reports staleness of the external cron trigger's last completed pass.
// @Tags        Admin
// @Produce     json
//
// @Success     200  {object}  services.HealthReport
// @Failure     500  {object}  handlers.ErrorResponse  "Health lookup failed"
// @Router      /api/admin/rest-poller-health [get]
func (h *Handlers) RestPollerHealth(c *gin.Context) {
	h.healthFor(c, domain.SourceCron)
}

func (h *Handlers) healthFor(c *gin.Context, source domain.HealthSource) {
	report, err := h.health.Status(c.Request.Context(), source)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeHealthFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, report)
}
