// Package server builds the gin router and registers all HTTP routes.
package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"lapra-tech/backend/internal/server/handler"
)

// Deps holds the handlers the router wires up.
type Deps struct {
	// Signup handles /api/auth routes. Required.
	Signup *handler.SignupHandler
	// Health handles GET /api/health. Required.
	Health *handler.HealthHandler
	// AllowOrigins configures CORS; a lone "*" allows any origin.
	AllowOrigins []string
}

// NewRouter returns a gin engine with logging, recovery, CORS, and all routes.
//
// Route → handler mapping:
//   - GET  /api/auth/check-limit → Signup.CheckLimit
//   - POST /api/auth/register    → Signup.Register
//   - POST /api/auth/verify-otp  → Signup.VerifyOTP
//   - POST /api/auth/resend-otp  → Signup.ResendOTP
//   - GET  /api/health           → Health.Check
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(corsConfig(deps.AllowOrigins)))

	auth := r.Group("/api/auth")
	auth.GET("/check-limit", deps.Signup.CheckLimit)
	auth.POST("/register", deps.Signup.Register)
	auth.POST("/verify-otp", deps.Signup.VerifyOTP)
	auth.POST("/resend-otp", deps.Signup.ResendOTP)

	r.GET("/api/health", deps.Health.Check)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Route not found",
		})
	})

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders: []string{"Origin", "Authorization", "Content-Type"},
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
