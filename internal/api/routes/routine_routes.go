package routes

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/pawday/backend/internal/api/handlers"
	"github.com/pawday/backend/internal/api/middleware"
	"github.com/pawday/backend/internal/domain/puppy"
)

type RoutineRoutes struct {
	handler   *handlers.RoutineHandler
	puppies   puppy.Service
	jwtSecret string
}

func NewRoutineRoutes(handler *handlers.RoutineHandler, puppies puppy.Service, jwtSecret string) *RoutineRoutes {
	return &RoutineRoutes{
		handler:   handler,
		puppies:   puppies,
		jwtSecret: jwtSecret,
	}
}

// RegisterRoutes registers routine persistence and completion log routes.
// The active routine is the only cached read: it changes rarely and never
// within a day, unlike the live timeline which must stay uncached.
func (r *RoutineRoutes) RegisterRoutes(router *gin.Engine, cache *middleware.CacheMiddleware) {
	routines := router.Group("/api/routines")
	routines.Use(middleware.NewAuthMiddleware(r.jwtSecret))
	routines.POST("", cache.CacheInvalidate("routine:*"), r.handler.SaveRoutine)

	member := router.Group("/api/puppies/:id")
	member.Use(middleware.NewAuthMiddleware(r.jwtSecret))
	member.Use(middleware.RequireMembership(r.puppies))
	member.GET("/routine", cache.CacheResponse(), gzip.Gzip(gzip.DefaultCompression), r.handler.GetRoutine)
	member.GET("/logs", gzip.Gzip(gzip.DefaultCompression), r.handler.GetLogs)

	items := router.Group("/api/routine-items")
	items.Use(middleware.NewAuthMiddleware(r.jwtSecret))
	items.PATCH("/:id/toggle", cache.CacheInvalidate("routine:*"), r.handler.ToggleItem)
	items.POST("/:id/complete", r.handler.CompleteActivity)
	items.POST("/:id/skip", r.handler.SkipActivity)
	items.DELETE("/:id/completion", r.handler.UndoActivity)
}
