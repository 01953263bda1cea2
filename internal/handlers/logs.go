package handlers

import (
	"net/http"
	"strconv"

	"marketsync/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	errInvalidLimit  = "invalid 'limit'; expected a non-negative integer"
	errInvalidOffset = "invalid 'offset'; expected a non-negative integer"
	errInvalidDays   = "invalid 'days'; expected a positive integer"
)

// intQuery parses an optional integer query parameter.
func intQuery(c *gin.Context, name string, def int) (int, bool) {
	qs := c.Query(name)
	if qs == "" {
		return def, true
	}
	v, err := strconv.Atoi(qs)
	if err != nil {
		return 0, false
	}
	return v, true
}

// @Summary      List job logs
// @Description  Filter persisted run logs by job id and level, newest first.
// @Tags         logs
// @Produce      json
// @Param        job_id  query   string  false  "Job id"
// @Param        level   query   string  false  "Log level"  Enums(INFO,WARNING,ERROR)
// @Param        limit   query   int     false  "Page size (default 100, max 1000)"
// @Param        offset  query   int     false  "Page offset"
// @Success      200     {object}  map[string]interface{}  "count, entries"
// @Failure      400     {object}  map[string]string
// @Failure      401     {object}  map[string]string
// @Failure      500     {object}  map[string]string
// @Router       /api/v1/logs [get]
// @Security     BearerAuth
func (h *Handler) getLogs(c *gin.Context) {
	ctx := c.Request.Context()

	limit, ok := intQuery(c, "limit", 0)
	if !ok || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidLimit})
		return
	}
	offset, ok := intQuery(c, "offset", 0)
	if !ok || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidOffset})
		return
	}

	filter := models.LogFilter{
		JobID:  c.Query("job_id"),
		Level:  c.Query("level"),
		Limit:  limit,
		Offset: offset,
	}
	entries, err := h.services.Logs.List(ctx, filter)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load logs", "logs_list_failed", err,
			"job_id", filter.JobID, "level", filter.Level)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(entries),
		"entries": entries,
	})
}

// @Summary      Run statistics
// @Description  Success/failure/error counts over the last N days, optionally scoped to one job.
// @Tags         logs
// @Produce      json
// @Param        job_id  query   string  false  "Job id"
// @Param        days    query   int     false  "Window in days (default 7)"
// @Success      200     {object}  models.LogStats
// @Failure      400     {object}  map[string]string
// @Failure      401     {object}  map[string]string
// @Failure      500     {object}  map[string]string
// @Router       /api/v1/logs/stats [get]
// @Security     BearerAuth
func (h *Handler) getLogStats(c *gin.Context) {
	days, ok := intQuery(c, "days", 7)
	if !ok || days < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidDays})
		return
	}

	stats, err := h.services.Logs.Stats(c.Request.Context(), c.Query("job_id"), days)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load stats", "logs_stats_failed", err,
			"job_id", c.Query("job_id"), "days", days)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// @Summary      Delete old logs
// @Description  Removes log entries older than the retention window.
// @Tags         logs
// @Produce      json
// @Param        days  query   int  false  "Retention window in days (default 30)"
// @Success      200   {object}  map[string]interface{}  "deleted"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/logs/cleanup [delete]
// @Security     BearerAuth
func (h *Handler) cleanupLogs(c *gin.Context) {
	days, ok := intQuery(c, "days", 30)
	if !ok || days < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidDays})
		return
	}

	deleted, err := h.services.Logs.Cleanup(c.Request.Context(), days)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to clean up logs", "logs_cleanup_failed", err,
			"days", days)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
