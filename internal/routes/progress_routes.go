package routes

import (
	"github.com/gin-gonic/gin"

	"codebuddy/internal/controllers"
	"codebuddy/internal/middleware"
)

type ProgressRoutes struct {
	ctrl *controllers.ProgressController
	auth *middleware.Auth
}

func (r ProgressRoutes) Register(rg *gin.RouterGroup) {
	rg.Use(r.auth.RequireAuth())
	{
		rg.POST("", r.ctrl.RecordProgress)
		rg.GET("", r.ctrl.ListProgress)
		rg.GET("/summary", r.ctrl.Summary)
	}
}
