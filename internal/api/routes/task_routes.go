package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/pawday/backend/internal/api/handlers"
	"github.com/pawday/backend/internal/api/middleware"
)

type TaskRoutes struct {
	handler   *handlers.TaskHandler
	jwtSecret string
}

func NewTaskRoutes(handler *handlers.TaskHandler, jwtSecret string) *TaskRoutes {
	return &TaskRoutes{
		handler:   handler,
		jwtSecret: jwtSecret,
	}
}

// RegisterRoutes registers ad hoc task routes plus the per-day routine
// override and tombstone routes. Membership is checked in the handlers
// because the puppy ID arrives in the payload, not the path.
func (r *TaskRoutes) RegisterRoutes(router *gin.Engine) {
	tasks := router.Group("/api/tasks")
	tasks.Use(middleware.NewAuthMiddleware(r.jwtSecret))
	tasks.POST("", r.handler.CreateTask)
	tasks.PATCH("/:id", r.handler.UpdateTask)
	tasks.DELETE("/:id", r.handler.DeleteTask)
	tasks.PATCH("/:id/complete", r.handler.CompleteTask)
	tasks.PATCH("/:id/uncomplete", r.handler.UncompleteTask)

	items := router.Group("/api/routine-items")
	items.Use(middleware.NewAuthMiddleware(r.jwtSecret))
	items.PUT("/:id/override", r.handler.OverrideRoutineItem)
	items.POST("/:id/tombstone", r.handler.RemoveRoutineItem)
}
