package http

import "github.com/gin-gonic/gin"

// SetupCallbackRouter builds the local listener for redirect-based account
// flows.
func SetupCallbackRouter(handlers *CallbackHandlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	auth := router.Group("/auth")
	{
		auth.GET("/callback/:provider", handlers.Social)
		auth.GET("/verify", handlers.Verify)
	}

	return router
}
