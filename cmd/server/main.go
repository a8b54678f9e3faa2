package main

import (
	"log"

	"chat-automation/internal/ai"
	"chat-automation/internal/api"
	"chat-automation/internal/automation"
	"chat-automation/internal/config"
	"chat-automation/internal/database"
	"chat-automation/internal/patterns"
	"chat-automation/internal/ws"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadConfig()
	db := database.InitDB(cfg)

	r := gin.Default()

	// CORS Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-User-ID, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	hub := ws.NewHub()
	go hub.Run()

	service := automation.NewService(db, patterns.NewDetector(), ai.NewClient(cfg), hub)
	handler := api.NewAutomationHandler(service)

	apiGroup := r.Group("/api/automation")
	{
		apiGroup.POST("/analyze", handler.AnalyzeConversation)
		apiGroup.POST("/messages", handler.ProcessMessage)

		apiGroup.GET("/workflows", handler.GetWorkflows)
		apiGroup.POST("/workflows", handler.CreateWorkflow)
		apiGroup.PUT("/workflows/:id", handler.UpdateWorkflow)
		apiGroup.DELETE("/workflows/:id", handler.DeleteWorkflow)
		apiGroup.POST("/workflows/:id/toggle", handler.ToggleWorkflow)
		apiGroup.POST("/workflows/:id/execute", handler.ExecuteWorkflow)

		apiGroup.GET("/executions", handler.GetExecutions)
		apiGroup.GET("/analytics", handler.GetAnalytics)

		apiGroup.GET("/settings", handler.GetSettings)
		apiGroup.PUT("/settings", handler.UpdateSettings)
	}

	r.GET("/ws", func(c *gin.Context) {
		hub.ServeWs(c.Writer, c.Request)
	})

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
