package handlers

import (
	"errors"
	"net/http"

	"teachereval/internal/backup"

	"github.com/gin-gonic/gin"
)

type BackupHandler struct {
	backups *backup.Manager
}

func NewBackupHandler(m *backup.Manager) *BackupHandler {
	return &BackupHandler{backups: m}
}

// ListBackups returns the stored backups, newest first
func (h *BackupHandler) ListBackups(c *gin.Context) {
	files, err := h.backups.List()
	if err != nil {
		internalError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, gin.H{"backups": files})
}

// CreateBackup snapshots the database now
func (h *BackupHandler) CreateBackup(c *gin.Context) {
	f, err := h.backups.Create(c.Request.Context())
	if err != nil {
		internalError(c, err, false)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Backup created", "backup": f})
}

// DownloadBackup sends one backup file
func (h *BackupHandler) DownloadBackup(c *gin.Context) {
	name := c.Param("name")
	path, err := h.backups.Path(name)
	if errors.Is(err, backup.ErrNotFound) {
		renderError(c, http.StatusNotFound, "Backup not found")
		return
	}
	if err != nil {
		internalError(c, err, true)
		return
	}
	c.FileAttachment(path, name)
}

// CleanupBackups applies the retention limit
func (h *BackupHandler) CleanupBackups(c *gin.Context) {
	removed, err := h.backups.Prune()
	if err != nil {
		internalError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cleanup completed", "removed": removed})
}

// RestoreBackup replaces the live data with an uploaded backup
func (h *BackupHandler) RestoreBackup(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A backup must be uploaded in the \"file\" field"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		internalError(c, err, false)
		return
	}
	defer f.Close()

	if err := h.backups.Restore(c.Request.Context(), f, fh.Filename); err != nil {
		if errors.Is(err, backup.ErrInvalidBackup) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		internalError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Database restored", "file": fh.Filename})
}
