package routes

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/pawday/backend/internal/api/handlers"
	"github.com/pawday/backend/internal/api/middleware"
	"github.com/pawday/backend/internal/domain/puppy"
)

type TimelineRoutes struct {
	handler   *handlers.TimelineHandler
	puppies   puppy.Service
	jwtSecret string
}

func NewTimelineRoutes(handler *handlers.TimelineHandler, puppies puppy.Service, jwtSecret string) *TimelineRoutes {
	return &TimelineRoutes{
		handler:   handler,
		puppies:   puppies,
		jwtSecret: jwtSecret,
	}
}

// RegisterRoutes registers the merged timeline snapshot and live stream.
// Neither route is cached: the merged view is a function of live state.
func (r *TimelineRoutes) RegisterRoutes(router *gin.Engine) {
	timeline := router.Group("/api/puppies/:id/timeline")
	timeline.Use(middleware.NewAuthMiddleware(r.jwtSecret))
	timeline.Use(middleware.RequireMembership(r.puppies))

	timeline.GET("", gzip.Gzip(gzip.DefaultCompression), r.handler.GetTimeline)
	timeline.GET("/ws", r.handler.StreamTimeline)
}
