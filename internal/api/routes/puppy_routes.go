package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/pawday/backend/internal/api/handlers"
	"github.com/pawday/backend/internal/api/middleware"
	"github.com/pawday/backend/internal/domain/puppy"
)

type PuppyRoutes struct {
	handler   *handlers.PuppyHandler
	puppies   puppy.Service
	jwtSecret string
}

func NewPuppyRoutes(handler *handlers.PuppyHandler, puppies puppy.Service, jwtSecret string) *PuppyRoutes {
	return &PuppyRoutes{
		handler:   handler,
		puppies:   puppies,
		jwtSecret: jwtSecret,
	}
}

// RegisterRoutes registers puppy and household invite routes
func (r *PuppyRoutes) RegisterRoutes(router *gin.Engine) {
	puppies := router.Group("/api/puppies")
	puppies.Use(middleware.NewAuthMiddleware(r.jwtSecret))

	puppies.POST("", r.handler.CreatePuppy)
	puppies.GET("", r.handler.ListPuppies)

	member := puppies.Group("/:id")
	member.Use(middleware.RequireMembership(r.puppies))
	member.GET("", r.handler.GetPuppy)
	member.POST("/invites", r.handler.CreateInvite)

	invites := router.Group("/api/invites")
	invites.Use(middleware.NewAuthMiddleware(r.jwtSecret))
	invites.POST("/accept", r.handler.AcceptInvite)
}
