package handlers

import (
	"net/http"

	"marketsync/internal/models"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK        = "ok"
	statusTriggered = "triggered"
	statusUpdated   = "updated"
	statusToggled   = "toggled"

	errJobNotFound     = "job not found"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// AddJobRequest is the payload for registering a new scheduled job.
type AddJobRequest struct {
	// Job type. Allowed: sync_orders, sync_inventory
	Type string `json:"type" binding:"required" example:"sync_orders"`
	// Interval between runs in minutes
	IntervalMinutes int `json:"interval_minutes" binding:"required" example:"30"`
	// Human readable description
	Description string `json:"description,omitempty" example:"order sync every 30m"`
	// Whether the timer is armed on creation
	Enabled bool `json:"enabled" example:"true"`
}

// RunNowRequest optionally overrides the default run arguments for one run.
type RunNowRequest struct {
	// Marketplace order status filter (2=processing, 3=cancelled, 4=shipped, 5=delivered)
	OrderStatus int `json:"order_status,omitempty" example:"2"`
	// How many days of history to fetch
	DaysBack int `json:"days_back,omitempty" example:"7"`
	// quick reconciles stock only, full refreshes the product catalog too
	Mode string `json:"mode,omitempty" example:"full"`
}

// ScheduleRequest is the payload for changing a job's interval.
type ScheduleRequest struct {
	IntervalMinutes int `json:"interval_minutes" binding:"required" example:"60"`
}

// ToggleRequest is the payload for pausing or resuming a job.
type ToggleRequest struct {
	Enabled *bool `json:"enabled" binding:"required" example:"false"`
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

// @Summary      List jobs
// @Tags         jobs
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, jobs"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/jobs [get]
// @Security     BearerAuth
func (h *Handler) listJobs(c *gin.Context) {
	jobs := h.services.Jobs.List()
	c.JSON(http.StatusOK, gin.H{
		"count": len(jobs),
		"jobs":  jobs,
	})
}

// @Summary      Get one job with recent logs
// @Tags         jobs
// @Produce      json
// @Param        id   path      string  true  "Job id"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/jobs/{id} [get]
// @Security     BearerAuth
func (h *Handler) getJob(c *gin.Context) {
	job, err := h.services.Jobs.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": errJobNotFound})
		return
	}
	c.JSON(http.StatusOK, job)
}

// @Summary      Register a scheduled job
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        body  body      AddJobRequest  true  "Job payload"
// @Success      200   {object}  map[string]string  "id"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/jobs [post]
// @Security     BearerAuth
func (h *Handler) addJob(c *gin.Context) {
	var req AddJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	id, err := h.services.Jobs.Add(models.JobType(req.Type), req.IntervalMinutes, req.Description, req.Enabled)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("job_add_failed", "err", err, "type", req.Type)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// @Summary      Trigger a job immediately
// @Description  Fires the job now with optional argument overrides. If a run is in progress the overrides apply to the next fire; a second instance is never started.
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        id    path      string         true   "Job id"
// @Param        body  body      RunNowRequest  false  "Run argument overrides"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/jobs/{id}/run [post]
// @Security     BearerAuth
func (h *Handler) runJobNow(c *gin.Context) {
	var override *models.RunArgs
	if c.Request.ContentLength > 0 {
		var req RunNowRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
			return
		}
		args := models.DefaultRunArgs()
		if req.OrderStatus != 0 {
			args.OrderStatus = req.OrderStatus
		}
		if req.DaysBack != 0 {
			args.DaysBack = req.DaysBack
		}
		if req.Mode != "" {
			args.Mode = req.Mode
		}
		override = &args
	}

	if err := h.services.Jobs.TriggerNow(c.Param("id"), override); err != nil {
		if h.log != nil {
			h.log.Errorw("job_trigger_failed", "err", err, "job_id", c.Param("id"))
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusTriggered})
}

// @Summary      Change a job's interval
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        id    path      string           true  "Job id"
// @Param        body  body      ScheduleRequest  true  "New interval"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/jobs/{id}/schedule [put]
// @Security     BearerAuth
func (h *Handler) updateSchedule(c *gin.Context) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	if err := h.services.Jobs.UpdateSchedule(c.Param("id"), req.IntervalMinutes); err != nil {
		if h.log != nil {
			h.log.Errorw("job_reschedule_failed", "err", err, "job_id", c.Param("id"))
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusUpdated})
}

// @Summary      Pause or resume a job
// @Description  Pausing stops the timer but never interrupts a run already in progress.
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        id    path      string         true  "Job id"
// @Param        body  body      ToggleRequest  true  "Enabled flag"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/jobs/{id}/toggle [put]
// @Security     BearerAuth
func (h *Handler) toggleJob(c *gin.Context) {
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	if err := h.services.Jobs.Toggle(c.Param("id"), *req.Enabled); err != nil {
		if h.log != nil {
			h.log.Errorw("job_toggle_failed", "err", err, "job_id", c.Param("id"))
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusToggled})
}
