package main

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/rendermarket/internal/engagement"
	"github.com/huangang/rendermarket/internal/handlers"
	"github.com/huangang/rendermarket/internal/middleware"
	"github.com/huangang/rendermarket/internal/models"
	"github.com/huangang/rendermarket/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(svc.cfg.Server.AllowOrigins))

	limit := func(rg *gin.RouterGroup) {
		if svc.limiter != nil {
			rg.Use(svc.limiter.Middleware())
		}
	}

	r.GET("/health", handlers.NewHealthHandler(models.GetDB(), svc.taskQueue, svc.hub).CheckHealth)

	authHandler := handlers.NewAuthHandler(svc.auth)
	projectHandler := handlers.NewProjectHandler(svc.engine)
	applicationHandler := handlers.NewApplicationHandler(svc.engine)
	quoteHandler := handlers.NewQuoteHandler(svc.engine)
	packageHandler := handlers.NewPackageHandler(svc.engine)
	orderHandler := handlers.NewOrderHandler(svc.engine)
	engagementHandler := handlers.NewEngagementHandler(svc.engine, svc.resolver)
	historyHandler := handlers.NewHistoryHandler(svc.engine, svc.logs)
	calendarHandler := handlers.NewCalendarHandler(svc.calendar)
	sseHandler := handlers.NewSSEHandler(svc.hub)

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		limit(auth)
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
		}

		api.GET("/calendar/countries", calendarHandler.Countries)

		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		limit(protected)
		protected.Use(middleware.AuditLog())
		{
			protected.GET("/auth/me", authHandler.Me)

			// SSE, token may also come as ?token= for EventSource
			protected.GET("/events/engagements", sseHandler.StreamEngagementEvents)

			// Projects and applications
			protected.GET("/projects", projectHandler.List)
			protected.GET("/projects/:id", projectHandler.GetByID)
			protected.POST("/projects", middleware.RoleRequired(engagement.RoleClient), projectHandler.Create)
			protected.POST("/projects/:id/close", projectHandler.Close)
			protected.GET("/projects/:id/applications", applicationHandler.ListForProject)
			protected.POST("/projects/:id/applications", middleware.RoleRequired(engagement.RoleArtist), applicationHandler.Submit)
			protected.GET("/applications", applicationHandler.ListMine)
			protected.POST("/applications/:id/decision", applicationHandler.Decide)
			protected.POST("/applications/:id/withdraw", applicationHandler.Withdraw)

			// Custom quotes
			protected.GET("/quote-requests", quoteHandler.List)
			protected.GET("/quote-requests/:id", quoteHandler.GetByID)
			protected.POST("/quote-requests", middleware.RoleRequired(engagement.RoleClient), quoteHandler.Request)
			protected.POST("/quote-requests/:id/quote", quoteHandler.SubmitQuote)
			protected.POST("/quote-requests/:id/decision", quoteHandler.Decide)
			protected.POST("/quote-requests/:id/decline", quoteHandler.Decline)

			// Service packages and orders
			protected.GET("/artists/:id/packages", packageHandler.ListForArtist)
			protected.POST("/packages", middleware.RoleRequired(engagement.RoleArtist), packageHandler.Create)
			protected.PUT("/packages/:id", packageHandler.Update)
			protected.POST("/packages/:id/active", packageHandler.SetActive)
			protected.POST("/packages/:id/orders", middleware.RoleRequired(engagement.RoleClient), packageHandler.Purchase)
			protected.GET("/orders/:id", orderHandler.GetByID)
			protected.POST("/orders/:id/start", orderHandler.Start)

			// Fulfillment, shared by projects and package orders
			protected.GET("/engagements", engagementHandler.List)
			protected.GET("/engagements/:kind/:id/deliveries", engagementHandler.ListDeliveries)
			protected.POST("/engagements/:kind/:id/deliveries", engagementHandler.SubmitDelivery)
			protected.POST("/engagements/:kind/:id/approve", engagementHandler.Approve)
			protected.GET("/engagements/:kind/:id/history", historyHandler.List)
			protected.POST("/deliveries/:id/review", engagementHandler.ReviewDelivery)
		}
	}
}
