package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/pawday/backend/internal/api/handlers"
	"github.com/pawday/backend/internal/api/middleware"
)

type ProfileRoutes struct {
	handler   *handlers.ProfileHandler
	jwtSecret string
}

func NewProfileRoutes(handler *handlers.ProfileHandler, jwtSecret string) *ProfileRoutes {
	return &ProfileRoutes{
		handler:   handler,
		jwtSecret: jwtSecret,
	}
}

// RegisterRoutes registers the caller's profile routes
func (r *ProfileRoutes) RegisterRoutes(router *gin.Engine) {
	profile := router.Group("/api/profile")
	profile.Use(middleware.NewAuthMiddleware(r.jwtSecret))
	profile.GET("", r.handler.GetProfile)
	profile.PATCH("", r.handler.UpdateProfile)
}
