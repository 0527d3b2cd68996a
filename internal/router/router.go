// Package router wires services, handlers and middleware into the gin engine.
package router

import (
	"teachereval/internal/backup"
	"teachereval/internal/config"
	"teachereval/internal/handlers"
	"teachereval/internal/importer"
	"teachereval/internal/middleware"
	"teachereval/internal/stats"
	"teachereval/internal/survey"
	"teachereval/internal/web"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// New builds the engine with every route. The backup manager is shared with
// the scheduler started by main.
func New(cfg *config.Config, db *gorm.DB, backups *backup.Manager) (*gin.Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	auth, err := middleware.NewAuth(cfg.Admin)
	if err != nil {
		return nil, err
	}
	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}
	handlers.UseJSONFieldNames()

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	router.SetHTMLTemplate(tmpl)
	router.MaxMultipartMemory = 32 << 20

	// Services
	surveyService := survey.NewService(db)
	statsService := stats.NewService(db, cfg.Survey.AnonymityThreshold)

	// Handlers
	surveyHandler := handlers.NewSurveyHandler(surveyService)
	authHandler := handlers.NewAuthHandler(auth)
	statsHandler := handlers.NewStatsHandler(statsService, surveyService)
	exportHandler := handlers.NewExportHandler(statsService)
	importHandler := handlers.NewImportHandler(importer.New(db))
	backupHandler := handlers.NewBackupHandler(backups)
	healthHandler := handlers.NewHealthHandler(db)

	router.GET("/health", healthHandler.Health)

	// Public survey
	router.GET("/", surveyHandler.Form)
	router.GET("/survey", surveyHandler.Form)
	router.POST("/survey", surveyHandler.Submit)

	api := router.Group("/api")
	{
		api.GET("/survey/options", surveyHandler.Options)
		api.GET("/courses/:id/disciplines", surveyHandler.Disciplines)

		protected := api.Group("")
		protected.Use(auth.RequireAdmin(middleware.API))
		{
			protected.GET("/stats", statsHandler.GetStats)
			protected.GET("/dashboard", statsHandler.GetDashboard)
		}
	}

	admin := router.Group("/admin")
	{
		admin.GET("/login", authHandler.LoginPage)
		admin.POST("/login", authHandler.Login)
		admin.POST("/logout", authHandler.Logout)

		pages := admin.Group("")
		pages.Use(auth.RequireAdmin(middleware.Page))
		{
			pages.GET("", statsHandler.Dashboard)
			pages.GET("/export/excel", exportHandler.ExportExcel)
			pages.GET("/export/pdf", exportHandler.ExportPDF)
			pages.GET("/backups/:name", backupHandler.DownloadBackup)
		}

		admin.POST("/import", auth.RequireAdmin(middleware.Forbidden), importHandler.Import)

		adminAPI := admin.Group("")
		adminAPI.Use(auth.RequireAdmin(middleware.API))
		{
			adminAPI.GET("/backups", backupHandler.ListBackups)
			adminAPI.POST("/backups", backupHandler.CreateBackup)
			adminAPI.POST("/backups/cleanup", backupHandler.CleanupBackups)
			adminAPI.POST("/restore", backupHandler.RestoreBackup)
		}
	}

	return router, nil
}
