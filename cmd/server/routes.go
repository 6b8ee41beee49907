package main

import (
	"github.com/forps/taskboard/internal/config"
	"github.com/forps/taskboard/internal/handlers"
	"github.com/forps/taskboard/internal/middleware"
	"github.com/forps/taskboard/internal/models"
	"github.com/forps/taskboard/pkg/logger"
	"github.com/gin-gonic/gin"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices, cfg *config.Config) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(cfg.Server.Origins()))

	db := models.GetDB()

	// Health check
	healthHandler := handlers.NewHealthHandler()
	r.GET("/health", healthHandler.CheckHealth)

	// Rate limiter for the anonymous share route
	shareLimiter := middleware.NewRateLimiter(5, 10)

	api := r.Group("/api")
	{
		// Auth routes (public)
		authHandler := handlers.NewAuthHandler(db, &cfg.JWT)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// Anonymous shared project view (public, rate limited)
		shareLinkHandler := handlers.NewShareLinkHandler(db)
		api.GET("/share/:token", shareLimiter.Middleware(), shareLinkHandler.Resolve)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired(), middleware.AuditLog())
		{
			protected.GET("/auth/me", authHandler.Me)

			// Workspaces
			workspaceHandler := handlers.NewWorkspaceHandler(db)
			protected.GET("/workspaces", workspaceHandler.List)
			protected.POST("/workspaces", workspaceHandler.Create)
			protected.GET("/workspaces/:id", workspaceHandler.Get)
			protected.PATCH("/workspaces/:id", workspaceHandler.Update)
			protected.DELETE("/workspaces/:id", workspaceHandler.Delete)

			// Workspace members
			workspaceMemberHandler := handlers.NewWorkspaceMemberHandler(db)
			protected.GET("/workspaces/:id/members", workspaceMemberHandler.List)
			protected.POST("/workspaces/:id/members", workspaceMemberHandler.Invite)
			protected.DELETE("/workspaces/:id/members/:userId", workspaceMemberHandler.Remove)

			// Projects
			projectHandler := handlers.NewProjectHandler(db)
			protected.GET("/workspaces/:id/projects", projectHandler.ListForWorkspace)
			protected.POST("/workspaces/:id/projects", projectHandler.Create)
			protected.GET("/projects/:id", projectHandler.Get)
			protected.PATCH("/projects/:id", projectHandler.Update)
			protected.DELETE("/projects/:id", projectHandler.Delete)

			// Project members
			projectMemberHandler := handlers.NewProjectMemberHandler(db)
			protected.GET("/projects/:id/members", projectMemberHandler.List)
			protected.POST("/projects/:id/members", projectMemberHandler.Add)
			protected.PATCH("/projects/:id/members/:userId", projectMemberHandler.UpdateRole)
			protected.DELETE("/projects/:id/members/:userId", projectMemberHandler.Remove)

			// Tasks
			taskHandler := handlers.NewTaskHandler(db)
			protected.GET("/projects/:id/tasks", taskHandler.ListForProject)
			protected.POST("/projects/:id/tasks", taskHandler.Create)
			protected.GET("/tasks/week", taskHandler.Week)
			protected.GET("/tasks/:id", taskHandler.Get)
			protected.PATCH("/tasks/:id", taskHandler.Update)
			protected.DELETE("/tasks/:id", taskHandler.Delete)
			protected.GET("/tasks/:id/events", taskHandler.ListEvents)

			// Comments
			commentHandler := handlers.NewCommentHandler(db)
			protected.GET("/tasks/:id/comments", commentHandler.List)
			protected.POST("/tasks/:id/comments", commentHandler.Create)
			protected.DELETE("/comments/:id", commentHandler.Delete)

			// Share links
			protected.GET("/projects/:id/share-links", shareLinkHandler.List)
			protected.POST("/projects/:id/share-links", shareLinkHandler.Create)
			protected.PATCH("/share-links/:id", shareLinkHandler.Update)
			protected.DELETE("/share-links/:id", shareLinkHandler.Delete)

			// Reports
			reportHandler := handlers.NewReportHandler(svc.reportService)
			protected.POST("/projects/:id/report", reportHandler.Trigger)

			// System logs
			systemLogHandler := handlers.NewSystemLogHandler(db)
			protected.GET("/system-logs", systemLogHandler.List)
		}
	}
}
