package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary      Reload fleet
// @Description  Replaces the local cache with the backend's listing.
// @Tags         fleet
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/fleet/reload [post]
func (h *Handler) reloadFleet(c *gin.Context) {
	if err := h.services.Fleet.Reload(c.Request.Context()); err != nil {
		h.respondError(c, "fleet_reload_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  statusReloaded,
		"count":   len(h.services.Fleet.List()),
		"enabled": h.services.Fleet.EnabledCount(),
	})
}

// @Summary      Center all servos
// @Tags         fleet
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, results"
// @Failure      409  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/fleet/center_all [post]
func (h *Handler) centerAll(c *gin.Context) {
	results, err := h.services.Motion.CenterAll(c.Request.Context())
	if err != nil {
		h.respondError(c, "fleet_center_all_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusCentered, "results": results})
}

// @Summary      Backend connectivity
// @Description  Last probe result; pass probe=true to check now.
// @Tags         fleet
// @Produce      json
// @Param        probe  query     bool  false  "Probe the backend now"
// @Success      200    {object}  models.ConnectivityReport
// @Router       /api/v1/fleet/connectivity [get]
func (h *Handler) connectivity(c *gin.Context) {
	if c.Query("probe") == "true" {
		c.JSON(http.StatusOK, h.services.Monitoring.CheckHealth(c.Request.Context()))
		return
	}
	c.JSON(http.StatusOK, h.services.Monitoring.Connectivity())
}

// @Summary      Status messages
// @Tags         fleet
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "busy, messages"
// @Router       /api/v1/fleet/status [get]
func (h *Handler) statuses(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"busy":     h.services.Motion.Busy(),
		"messages": h.services.Monitoring.Statuses(),
	})
}
