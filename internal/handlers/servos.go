package handlers

import (
	"errors"
	"net/http"

	"servopanel/internal/backend"
	"servopanel/internal/models"
	"servopanel/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK        = "ok"
	statusScheduled = "scheduled"
	statusSwept     = "sweep_complete"
	statusReloaded  = "reloaded"
	statusCentered  = "centered"
	statusAdded     = "added"
	statusUpdated   = "updated"
	statusRemoved   = "removed"

	errInvalidBodyPref = "invalid body: "
	errFleetBusy       = "please wait for current movement"
	errBackendDown     = "connection error"
	errInternal        = "internal error"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		if httpCode >= http.StatusInternalServerError {
			h.log.Errorw(logKey, fields...)
		} else {
			h.log.Infow(logKey, fields...)
		}
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// respondError maps coordinator and backend errors onto HTTP codes.
func (h *Handler) respondError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	var (
		ve *service.ValidationError
		re *backend.RejectedError
	)
	switch {
	case errors.As(err, &ve):
		h.logAndJSONError(c, http.StatusBadRequest, ve.Error(), logKey, err, kv...)
	case errors.Is(err, service.ErrUnknownActuator):
		h.logAndJSONError(c, http.StatusNotFound, err.Error(), logKey, err, kv...)
	case errors.Is(err, service.ErrFleetBusy):
		h.logAndJSONError(c, http.StatusConflict, errFleetBusy, logKey, err, kv...)
	case errors.Is(err, service.ErrActuatorDisabled):
		h.logAndJSONError(c, http.StatusConflict, err.Error(), logKey, err, kv...)
	case errors.As(err, &re):
		h.logAndJSONError(c, http.StatusUnprocessableEntity, re.Message, logKey, err, kv...)
	case errors.Is(err, backend.ErrTransport):
		h.logAndJSONError(c, http.StatusBadGateway, errBackendDown, logKey, err, kv...)
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errInternal, logKey, err, kv...)
	}
}

// Request DTOs.
type angleRequest struct {
	Angle *int `json:"angle" binding:"required"`
}

type nudgeRequest struct {
	Delta int `json:"delta"`
}

type sweepRequest struct {
	Step  int     `json:"step,omitempty" binding:"omitempty,min=1,max=180"`
	Delay float64 `json:"delay,omitempty" binding:"omitempty,gt=0"`
}

type addServoRequest struct {
	ServoID string                `json:"servo_id" binding:"required"`
	Config  models.ActuatorConfig `json:"config"`
}

// AngleRequest is an exported model for Swagger docs of angle payloads.
type AngleRequest struct {
	// Requested angle in degrees; clamped to the servo's bounds
	Angle int `json:"angle" example:"120"`
}

// SweepRequest is an exported model for Swagger docs of the sweep payload.
type SweepRequest struct {
	// Whole degrees per step (default 15)
	Step int `json:"step,omitempty" example:"15"`
	// Seconds between steps (default 0.05)
	Delay float64 `json:"delay,omitempty" example:"0.05"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      List servos
// @Tags         servos
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, enabled, servos"
// @Router       /api/v1/servos [get]
func (h *Handler) listServos(c *gin.Context) {
	servos := h.services.Fleet.List()
	c.JSON(http.StatusOK, gin.H{
		"count":   len(servos),
		"enabled": h.services.Fleet.EnabledCount(),
		"servos":  servos,
	})
}

// @Summary      Get servo
// @Tags         servos
// @Produce      json
// @Param        id   path      string  true  "Servo id"
// @Success      200  {object}  models.Actuator
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/servos/{id} [get]
func (h *Handler) getServo(c *gin.Context) {
	a, err := h.services.Fleet.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, "servo_get_failed", err, "id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, a)
}

// @Summary      Add servo
// @Tags         servos
// @Accept       json
// @Produce      json
// @Param        body  body      addServoRequest  true  "servo_id and config"
// @Success      201   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/servos [post]
func (h *Handler) addServo(c *gin.Context) {
	var req addServoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	if err := h.services.Fleet.Add(c.Request.Context(), req.ServoID, req.Config); err != nil {
		h.respondError(c, "servo_add_failed", err, "id", req.ServoID)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": statusAdded, "servo_id": req.ServoID})
}

// @Summary      Replace servo config
// @Tags         servos
// @Accept       json
// @Produce      json
// @Param        id    path      string                 true  "Servo id"
// @Param        body  body      models.ActuatorConfig  true  "Full config"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/servos/{id} [put]
func (h *Handler) updateServo(c *gin.Context) {
	var cfg models.ActuatorConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	id := c.Param("id")
	if err := h.services.Fleet.Update(c.Request.Context(), id, cfg); err != nil {
		h.respondError(c, "servo_update_failed", err, "id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusUpdated, "servo_id": id})
}

// @Summary      Remove servo
// @Tags         servos
// @Produce      json
// @Param        id   path      string  true  "Servo id"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/servos/{id} [delete]
func (h *Handler) removeServo(c *gin.Context) {
	id := c.Param("id")
	if err := h.services.Fleet.Remove(c.Request.Context(), id); err != nil {
		h.respondError(c, "servo_remove_failed", err, "id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusRemoved, "servo_id": id})
}

// @Summary      Set debounced target
// @Description  Coalesces bursts; only the last target within the quiescence window is sent.
// @Tags         motion
// @Accept       json
// @Produce      json
// @Param        id    path      string        true  "Servo id"
// @Param        body  body      AngleRequest  true  "Target angle"
// @Success      202   {object}  map[string]interface{}
// @Router       /api/v1/servos/{id}/target [post]
func (h *Handler) scheduleTarget(c *gin.Context) {
	var req angleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	id := c.Param("id")
	target, err := h.services.Motion.Schedule(id, *req.Angle)
	if err != nil {
		h.respondError(c, "servo_schedule_failed", err, "id", id)
		return
	}
	h.respondScheduled(c, id, target)
}

// @Summary      Nudge target
// @Tags         motion
// @Accept       json
// @Produce      json
// @Param        id    path      string  true  "Servo id"
// @Success      202   {object}  map[string]interface{}
// @Router       /api/v1/servos/{id}/nudge [post]
func (h *Handler) nudge(c *gin.Context) {
	var req nudgeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
			return
		}
	}
	id := c.Param("id")
	target, err := h.services.Motion.Nudge(id, req.Delta)
	if err != nil {
		h.respondError(c, "servo_nudge_failed", err, "id", id)
		return
	}
	h.respondScheduled(c, id, target)
}

// @Summary      Move to preset
// @Tags         motion
// @Produce      json
// @Param        id      path      string  true  "Servo id"
// @Param        preset  path      string  true  "Preset"  Enums(min,center,max,open,close)
// @Success      202     {object}  map[string]interface{}
// @Router       /api/v1/servos/{id}/preset/{preset} [post]
func (h *Handler) preset(c *gin.Context) {
	id := c.Param("id")
	target, err := h.services.Motion.Preset(id, c.Param("preset"))
	if err != nil {
		h.respondError(c, "servo_preset_failed", err, "id", id, "preset", c.Param("preset"))
		return
	}
	h.respondScheduled(c, id, target)
}

func (h *Handler) respondScheduled(c *gin.Context, id string, target int) {
	c.JSON(http.StatusAccepted, gin.H{
		"status":       statusScheduled,
		"servo_id":     id,
		"target_angle": target,
	})
}

// @Summary      Set angle now
// @Description  Bypasses debouncing and returns the position confirmed by the backend.
// @Tags         motion
// @Accept       json
// @Produce      json
// @Param        id    path      string        true  "Servo id"
// @Param        body  body      AngleRequest  true  "Angle"
// @Success      200   {object}  models.Actuator
// @Failure      409   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/servos/{id}/angle [post]
func (h *Handler) setAngle(c *gin.Context) {
	var req angleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	id := c.Param("id")
	a, err := h.services.Motion.SetAngle(c.Request.Context(), id, *req.Angle)
	if err != nil {
		h.respondError(c, "servo_set_angle_failed", err, "id", id, "angle", *req.Angle)
		return
	}
	c.JSON(http.StatusOK, a)
}

// @Summary      Sweep
// @Description  Holds the fleet lock until the backend finishes the sweep.
// @Tags         motion
// @Accept       json
// @Produce      json
// @Param        id    path      string        true   "Servo id"
// @Param        body  body      SweepRequest  false  "Sweep parameters"
// @Success      200   {object}  map[string]interface{}
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/servos/{id}/sweep [post]
func (h *Handler) sweep(c *gin.Context) {
	var req sweepRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
			return
		}
	}
	id := c.Param("id")
	p := models.SweepParams{Step: req.Step, Delay: req.Delay}
	if err := h.services.Motion.Sweep(c.Request.Context(), id, p); err != nil {
		h.respondError(c, "servo_sweep_failed", err, "id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusSwept, "servo_id": id})
}
