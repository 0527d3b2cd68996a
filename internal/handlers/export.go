package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"teachereval/internal/export"
	"teachereval/internal/stats"

	"github.com/gin-gonic/gin"
)

const reportTitle = "Teacher evaluation report"

type ExportHandler struct {
	stats *stats.Service
	now   func() time.Time
}

func NewExportHandler(st *stats.Service) *ExportHandler {
	return &ExportHandler{stats: st, now: time.Now}
}

// ExportExcel downloads every matching response as a workbook, one row per response
func (h *ExportHandler) ExportExcel(c *gin.Context) {
	filter, err := stats.ParseFilter(c.Request.URL.Query())
	if err != nil {
		renderError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	questions, err := h.stats.Questions(ctx)
	if err != nil {
		internalError(c, err, true)
		return
	}
	rows, err := h.stats.Responses(ctx, filter)
	if err != nil {
		internalError(c, err, true)
		return
	}

	// Headers are only sent once rendering succeeded
	var buf bytes.Buffer
	if err := export.WriteExcel(&buf, questions, rows); err != nil {
		internalError(c, err, true)
		return
	}
	h.attach(c, "responses", "xlsx", export.ExcelContentType, buf.Bytes())
}

// ExportPDF downloads the aggregated report for the matching responses
func (h *ExportHandler) ExportPDF(c *gin.Context) {
	filter, err := stats.ParseFilter(c.Request.URL.Query())
	if err != nil {
		renderError(c, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.stats.Summarize(c.Request.Context(), filter)
	if err != nil {
		internalError(c, err, true)
		return
	}

	var buf bytes.Buffer
	if err := export.WritePDF(&buf, reportTitle, summary, h.now()); err != nil {
		internalError(c, err, true)
		return
	}
	h.attach(c, "report", "pdf", export.PDFContentType, buf.Bytes())
}

func (h *ExportHandler) attach(c *gin.Context, prefix, ext, contentType string, data []byte) {
	filename := fmt.Sprintf("%s_%s.%s", prefix, h.now().Format("20060102_150405"), ext)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, contentType, data)
}
