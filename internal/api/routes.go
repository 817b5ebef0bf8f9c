package api

import (
	"alcyxob/weight-tracker/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Services bundles what the HTTP layer needs.
type Services struct {
	Auth          service.AuthService
	Goals         service.GoalService
	WeightEntries service.WeightEntryService
	History       service.HistoryService
}

func SetupRoutes(router *gin.Engine, jwtSecret string, logger *logrus.Logger, svc Services) {
	authHandler := NewAuthHandler(svc.Auth)
	profileHandler := NewProfileHandler(svc.Goals, svc.History)
	entryHandler := NewWeightEntryHandler(svc.WeightEntries)

	router.Use(RequestID(), RequestLogger(logger))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		users := apiV1.Group("/users")
		{
			users.POST("", profileHandler.CreateProfile)
			users.GET("", profileHandler.ListProfiles)
			users.GET("/:id", profileHandler.GetProfile)
			users.PUT("/:id", profileHandler.UpdateProfile)
			users.DELETE("/:id", profileHandler.DeleteProfile)

			users.POST("/:id/discard-goal", profileHandler.DiscardGoal)
			users.POST("/:id/achieve-goal", profileHandler.AchieveGoal)
			users.POST("/:id/check-expiry", profileHandler.CheckGoalExpiry)

			users.GET("/:id/weight-entries", entryHandler.ListWeightEntries)
			users.POST("/:id/weight-entries", entryHandler.AddWeightEntry)

			users.POST("/:id/history/export", profileHandler.ExportHistory)
		}
	}

	// --- Token user ---
	me := apiV1.Group("/me")
	me.Use(AuthMiddleware(jwtSecret))
	{
		me.GET("", profileHandler.GetProfile)
		me.PUT("", profileHandler.UpdateProfile)
		me.POST("/discard-goal", profileHandler.DiscardGoal)
		me.POST("/achieve-goal", profileHandler.AchieveGoal)
	}
}
