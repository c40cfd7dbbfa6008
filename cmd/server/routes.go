package main

import (
	"github.com/ecostage/backend/internal/middleware"
	"github.com/ecostage/backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Rate limiter for the unauthenticated auth surface
	authLimiter := middleware.NewRateLimiter(5, 10)

	// Health check
	r.GET("/health", svc.healthHandler.CheckHealth)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public, rate limited)
		auth := api.Group("/auth", authLimiter.Middleware())
		{
			auth.POST("/register", svc.authHandler.Register)
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/refresh", svc.authHandler.Refresh)
			auth.POST("/forgot-password", svc.authHandler.ForgotPassword)
			auth.POST("/reset-password", svc.authHandler.ResetPassword)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired(), middleware.AuditLog())
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/logout", svc.authHandler.Logout)

			// Profile
			protected.PUT("/users/me", svc.userHandler.UpdateProfile)
			protected.PUT("/users/me/password", svc.userHandler.ChangePassword)

			// Devices
			protected.GET("/devices", svc.deviceHandler.List)
			protected.POST("/devices", svc.deviceHandler.Create)
			protected.PUT("/devices/:id", svc.deviceHandler.Update)
			protected.PUT("/devices/:id/current", svc.deviceHandler.SetCurrent)
			protected.DELETE("/devices/:id", svc.deviceHandler.Delete)

			// Hardware catalog (read)
			protected.GET("/hardware", svc.hardwareHandler.Catalog)

			// Projects
			protected.GET("/projects", svc.projectHandler.List)
			protected.GET("/projects/:id", svc.projectHandler.Get)
			protected.GET("/projects/:id/history", svc.projectHandler.History)
			protected.PUT("/projects/:id", svc.projectHandler.UpdateTimeline)
			protected.POST("/projects/:id/archive", svc.projectHandler.Archive)
			protected.GET("/projects/:id/members", svc.projectHandler.ListMembers)
			protected.DELETE("/projects/:id/members/:userId", svc.projectHandler.RemoveMember)
			protected.POST("/projects/invite", svc.projectHandler.Invite)

			// Stage progression
			protected.POST("/projects/:id/complete", svc.stageHandler.CompleteStage)
			protected.GET("/projects/:id/completion", svc.stageHandler.Completion)

			// Work sessions / emissions
			protected.POST("/projects/:id/sessions", svc.stageHandler.AccrueEmission)
			protected.GET("/projects/:id/sessions", svc.stageHandler.ListSessions)

			// Project requests
			protected.POST("/project-requests", svc.requestHandler.Submit)
			protected.GET("/project-requests", svc.requestHandler.ListMine)

			// Notifications
			protected.GET("/notifications", svc.notifHandler.List)
			protected.GET("/notifications/:id", svc.notifHandler.Get)
			protected.PUT("/notifications/:id/read", svc.notifHandler.MarkRead)
			protected.PUT("/notifications/read-all", svc.notifHandler.MarkAllRead)
			protected.POST("/notifications/:id/respond", svc.notifHandler.Respond)
		}

		// Admin only routes
		admin := api.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired(), middleware.AuditLog())
		{
			// Users
			admin.GET("/users", svc.userHandler.List)
			admin.PUT("/users/:id/active", svc.userHandler.SetActive)
			admin.PUT("/users/:id/role", svc.userHandler.SetRole)
			admin.DELETE("/users/:id", svc.userHandler.Delete)

			// Hardware catalog (write)
			admin.POST("/hardware/:kind", svc.hardwareHandler.CreateModel)
			admin.PUT("/hardware/:kind/:id", svc.hardwareHandler.UpdateModel)
			admin.DELETE("/hardware/:kind/:id", svc.hardwareHandler.DeleteModel)

			// Project requests
			admin.GET("/project-requests", svc.requestHandler.List)
			admin.POST("/project-requests/:id/approve", svc.requestHandler.Approve)
			admin.POST("/project-requests/:id/reject", svc.requestHandler.Reject)

			// Project maintenance
			admin.DELETE("/projects/:id", svc.projectHandler.AdminDelete)
			admin.POST("/projects/:id/members", svc.projectHandler.AddMember)

			// System logs
			admin.GET("/logs", svc.systemLogHandler.List)
			admin.GET("/logs/retention", svc.systemLogHandler.GetRetention)
			admin.PUT("/logs/retention", svc.systemLogHandler.SetRetention)
			admin.POST("/logs/cleanup", svc.systemLogHandler.Cleanup)
		}
	}
}
