package routes

import (
	"github.com/gatherly/server/internal/container"
	"github.com/gatherly/server/internal/handlers"
	"github.com/gatherly/server/internal/helpers"
	"github.com/gatherly/server/internal/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container) *gin.Engine {
	// Set Gin mode for production
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// Add middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.ErrorHandler(container.Logger))
	r.Use(gin.Recovery())

	// API version 1
	v1 := r.Group("/api/v1")
	{
		// Health check
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "OK",
				"service": "gatherly-api",
			})
		})
	}

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(container.JWTSecret, container.Logger))

	protected.GET("/profile", func(c *gin.Context) {
		user, exist := c.Get("user")
		if !exist {
			c.JSON(401, gin.H{"error": "Unauthorized"})
			return
		}

		claims, ok := user.(*helpers.Claims)
		if !ok {
			c.JSON(500, gin.H{"error": "Invalid user claims format"})
			return
		}

		c.JSON(200, gin.H{
			"status":  "OK",
			"user_id": claims.UserID(),
			"email":   claims.Email,
			"role":    claims.Role,
		})
	})

	eventRoutes := protected.Group("/events")
	{
		eventRoutes.POST("/", handlers.CreateEventHandler(container.EventService))
		eventRoutes.PUT("/:id", handlers.UpdateEventHandler(container.EventService))
		eventRoutes.DELETE("/:id", handlers.DeleteEventHandler(container.EventService))
		eventRoutes.GET("/feed", handlers.GetFeedHandler(container.EventService))
		eventRoutes.GET("/", handlers.GetEventsByStatusHandler(container.EventService))

		eventRoutes.POST("/:id/like", handlers.LikeEventHandler(container.EventService))
		eventRoutes.POST("/:id/unlike", handlers.UnlikeEventHandler(container.EventService))
		eventRoutes.POST("/:id/dislike", handlers.DislikeEventHandler(container.EventService))
		eventRoutes.POST("/:id/reserve", handlers.ReserveEventHandler(container.EventService))
		eventRoutes.POST("/:id/cancel", handlers.CancelReservationHandler(container.EventService))
	}

	return r
}
