package handlers

import (
	"net/http"
	"strconv"

	"teachereval/internal/importer"

	"github.com/gin-gonic/gin"
)

// maxUploadSize bounds workbook and backup uploads
const maxUploadSize = 64 << 20

type ImportHandler struct {
	importer *importer.Importer
}

func NewImportHandler(im *importer.Importer) *ImportHandler {
	return &ImportHandler{importer: im}
}

// Import loads an uploaded workbook. The optional "wipe" field deletes existing
// data first; the whole import is rolled back on any error.
func (h *ImportHandler) Import(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A workbook must be uploaded in the \"file\" field"})
		return
	}
	wipe, _ := strconv.ParseBool(c.PostForm("wipe"))

	f, err := fh.Open()
	if err != nil {
		internalError(c, err, false)
		return
	}
	defer f.Close()

	res, err := h.importer.Import(c.Request.Context(), f, importer.Options{Wipe: wipe})
	if err != nil {
		if importer.IsInputError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		internalError(c, err, false)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Import completed", "wiped": wipe, "result": res})
}
