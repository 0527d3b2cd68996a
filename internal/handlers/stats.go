package handlers

import (
	"net/http"

	"teachereval/internal/stats"
	"teachereval/internal/survey"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	stats  *stats.Service
	survey *survey.Service
}

func NewStatsHandler(st *stats.Service, sv *survey.Service) *StatsHandler {
	return &StatsHandler{stats: st, survey: sv}
}

// StatsResponse is the gated summary plus the trend classification when
// the sample is large enough.
type StatsResponse struct {
	*stats.Summary
	Trends *stats.Trends `json:"trends,omitempty"`
}

// Dashboard renders the admin page with the overall counters and filter lists
func (h *StatsHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	dash, err := h.stats.Dashboard(ctx)
	if err != nil {
		internalError(c, err, true)
		return
	}
	opts, err := h.survey.Options(ctx)
	if err != nil {
		internalError(c, err, true)
		return
	}
	render(c, http.StatusOK, "admin.html", "Dashboard", gin.H{
		"Dashboard": dash,
		"Options":   opts,
	})
}

// GetStats returns the summary for the filters in the query string
func (h *StatsHandler) GetStats(c *gin.Context) {
	filter, err := stats.ParseFilter(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.stats.Summarize(c.Request.Context(), filter)
	if err != nil {
		internalError(c, err, false)
		return
	}

	resp := StatsResponse{Summary: summary}
	if summary.Sufficient() {
		trends := stats.ClassifyTrends(summary.Questions)
		resp.Trends = &trends
	}
	c.JSON(http.StatusOK, resp)
}

// GetDashboard returns the dashboard counters as JSON
func (h *StatsHandler) GetDashboard(c *gin.Context) {
	dash, err := h.stats.Dashboard(c.Request.Context())
	if err != nil {
		internalError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, dash)
}
