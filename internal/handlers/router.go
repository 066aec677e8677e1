package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/testcraft-app/testcraft-service/internal/events"
	"github.com/testcraft-app/testcraft-service/internal/services"
	"github.com/testcraft-app/testcraft-service/internal/utils"
	"github.com/testcraft-app/testcraft-service/internal/validator"
)

type HandlerManager struct {
	testHandler    *TestHandler
	importHandler  *ImportHandler
	sessionHandler *SessionHandler
	resultHandler  *ResultHandler
	wsHandler      *WSHandler
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	bus *events.Bus,
	validator *validator.Validator,
	logger utils.Logger,
	allowedOrigins []string,
) *HandlerManager {
	return &HandlerManager{
		testHandler:    NewTestHandler(serviceManager.Tests(), validator, logger),
		importHandler:  NewImportHandler(serviceManager.Import(), logger),
		sessionHandler: NewSessionHandler(serviceManager.Session(), logger),
		resultHandler:  NewResultHandler(serviceManager.Results(), logger),
		wsHandler:      NewWSHandler(bus, logger, allowedOrigins),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", HealthCheck)

	// WebSocket stream for environment signals and session events
	router.GET("/ws", hm.wsHandler.Stream)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Test authoring routes
		tests := v1.Group("/tests")
		{
			tests.POST("", hm.testHandler.CreateTest)
			tests.GET("", hm.testHandler.ListTests)
			tests.GET("/:id", hm.testHandler.GetTest)
			tests.PUT("/:id/settings", hm.testHandler.UpdateTestSettings)
			tests.DELETE("/:id", hm.testHandler.DeleteTest)
			tests.POST("/:id/save", hm.testHandler.SaveTest)

			// Question management
			tests.POST("/:id/questions", hm.testHandler.AddQuestion)
			tests.PUT("/:id/questions/:question_id", hm.testHandler.UpdateQuestion)
			tests.DELETE("/:id/questions/:question_id", hm.testHandler.RemoveQuestion)

			// Bulk import
			tests.POST("/:id/import/text", hm.importHandler.ImportText)
			tests.POST("/:id/import/file", hm.importHandler.ImportFile)
		}

		// Test-taking session routes
		sessions := v1.Group("/session")
		{
			sessions.POST("/start", hm.sessionHandler.StartSession)
			sessions.GET("/state", hm.sessionHandler.GetSessionState)
			sessions.POST("/answer", hm.sessionHandler.SubmitAnswer)
			sessions.POST("/next", hm.sessionHandler.NextQuestion)
			sessions.POST("/previous", hm.sessionHandler.PreviousQuestion)
			sessions.POST("/jump", hm.sessionHandler.JumpToQuestion)
			sessions.POST("/submit", hm.sessionHandler.SubmitSession)
			sessions.POST("/abandon", hm.sessionHandler.AbandonSession)
		}

		// Result routes
		results := v1.Group("/results")
		{
			results.GET("", hm.resultHandler.ListResults)
			results.GET("/:id", hm.resultHandler.GetResult)
			results.GET("/test/:test_id", hm.resultHandler.GetResultsByTest)
			results.DELETE("/:id", hm.resultHandler.DeleteResult)
		}
	}
}
