package rest

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler) {
	// Health check endpoint (no version prefix)
	router.GET("/healthz", handler.HealthCheck)

	api := router.Group("/api")
	{
		api.GET("/workflows", handler.ListWorkflows)
		api.POST("/workflows", handler.CreateWorkflow)
		api.GET("/workflows/:id", handler.GetWorkflow)
		api.PUT("/workflows/:id", handler.UpdateWorkflow)
		api.PATCH("/workflows/:id/toggle", handler.ToggleWorkflow)
		api.DELETE("/workflows/:id", handler.DeleteWorkflow)
		api.POST("/workflows/:id/test", handler.TestWorkflow)

		api.GET("/users/:address", handler.GetUser)
		api.PUT("/users/:address/settings", handler.UpdateUserSettings)
		api.GET("/users/:address/rules", handler.ListRules)
		api.POST("/users/:address/rules", handler.AddRule)
		api.PUT("/users/:address/rules/:ruleId", handler.UpdateRule)
		api.DELETE("/users/:address/rules/:ruleId", handler.DeleteRule)
		api.GET("/users/:address/usage", handler.GetUsage)
		api.GET("/users/:address/api-key", handler.GetAPIKey)
		api.POST("/users/:address/regenerate-api-key", handler.RegenerateAPIKey)
		api.POST("/users/:address/upgrade-plan", handler.UpgradePlan)

		api.GET("/templates", handler.ListTemplates)
		api.POST("/templates", handler.CreateTemplate)
		api.GET("/templates/:id", handler.GetTemplate)
		api.PUT("/templates/:id", handler.UpdateTemplate)
		api.DELETE("/templates/:id", handler.DeleteTemplate)

		api.GET("/alerts", handler.ListAlerts)
		api.POST("/alerts", handler.CreateAlert)
		api.PATCH("/alerts/:id/status", handler.SetAlertStatus)
		api.DELETE("/alerts/:id", handler.DeleteAlert)

		api.GET("/portfolio", handler.GetPortfolio)
		api.PUT("/portfolio/holdings", handler.SetHoldings)
		api.GET("/prices", handler.GetPrices)
	}
}
