package routes

import (
	"github.com/gin-gonic/gin"

	"codebuddy/internal/controllers"
	"codebuddy/internal/middleware"
)

type VoiceInterviewRoutes struct {
	ctrl *controllers.VoiceInterviewController
	auth *middleware.Auth
}

func (r VoiceInterviewRoutes) Register(rg *gin.RouterGroup) {
	// the stream authenticates with a query token, see Stream
	rg.GET("/sessions/:id/stream", r.ctrl.Stream)

	sessions := rg.Group("/sessions")
	sessions.Use(r.auth.RequireAuth())
	{
		sessions.POST("", r.ctrl.StartSession)
		sessions.GET("/:id", r.ctrl.GetSession)
		sessions.POST("/:id/responses", r.ctrl.SubmitResponse)
		sessions.POST("/:id/end", r.ctrl.EndSession)
	}
}
