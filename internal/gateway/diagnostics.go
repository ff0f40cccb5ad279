package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"codebuddy/internal/config"
)

type rootResponse struct {
	Message     string       `json:"message"`
	Timestamp   string       `json:"timestamp"`
	Database    config.State `json:"database"`
	Environment string       `json:"environment"`
}

type healthResponse struct {
	Status    string       `json:"status"`
	Database  config.State `json:"database"`
	Timestamp string       `json:"timestamp"`
	Routes    []string     `json:"routes"`
}

type authTestResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func (g *Gateway) registerDiagnostics(engine *gin.Engine) {
	engine.GET("/", g.root)
	engine.GET("/health", g.health)
	engine.GET("/api/auth/test", g.authTest)
}

func (g *Gateway) root(c *gin.Context) {
	c.JSON(http.StatusOK, rootResponse{
		Message:     "CodeBuddy API is running...",
		Timestamp:   g.timestamp(),
		Database:    g.databaseState(),
		Environment: g.opts.Env,
	})
}

// health always answers 200; the database field carries the real state.
func (g *Gateway) health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status:    "OK",
		Database:  g.databaseState(),
		Timestamp: g.timestamp(),
		Routes:    g.Prefixes(),
	})
}

func (g *Gateway) authTest(c *gin.Context) {
	c.JSON(http.StatusOK, authTestResponse{
		Success:   true,
		Message:   "Auth test route is working!",
		Timestamp: g.timestamp(),
	})
}
